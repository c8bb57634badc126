package domain

import "time"

// ModelID enumerates the generation models the service can drive.
type ModelID string

const (
	ModelSora2    ModelID = "sora-2"
	ModelSora2Pro ModelID = "sora-2-pro"
)

// JobStatus enumerates the canonical job lifecycle states. This is the only
// status vocabulary the registry, persistence layer and API ever see; remote
// vocabulary is translated at the orchestrator boundary via MapRemoteStatus.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusBlocked   JobStatus = "blocked"
	JobStatusCanceled  JobStatus = "canceled"
)

// IsTerminal reports whether no further transition is defined out of s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusBlocked, JobStatusCanceled:
		return true
	}
	return false
}

// IsValid reports whether s is part of the canonical vocabulary.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusSucceeded,
		JobStatusFailed, JobStatusBlocked, JobStatusCanceled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is allowed. Any attempt
// to leave a terminal state is rejected; callers treat that as a no-op rather
// than an error.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.IsTerminal() || !next.IsValid() {
		return false
	}
	switch next {
	case JobStatusQueued:
		return false
	case JobStatusRunning:
		return s == JobStatusQueued
	default:
		// Terminal targets are reachable from both queued and running.
		return true
	}
}

// Job tracks a single remotely executed generation request end to end.
type Job struct {
	ID              string
	Model           ModelID
	Resolution      string
	DurationSeconds int
	Prompt          string
	RefImageID      string
	CostEstimate    float64
	RemoteID        string
	Status          JobStatus
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns an independent copy so registry reads never alias cache state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}
