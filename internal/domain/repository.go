package domain

import "context"

// JobRepository defines persistence for job records. The store is the single
// source of truth; the registry cache is rebuilt from it on load.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context) ([]Job, error)
	ListByStatus(ctx context.Context, statuses ...JobStatus) ([]Job, error)
	// UpdateStatus applies a guarded status transition. It reports whether a
	// row changed; attempts to leave a terminal state change nothing.
	UpdateStatus(ctx context.Context, id string, status JobStatus, errMsg string) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// AssetRepository handles persistence for binary artifacts.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, id string) (*Asset, error)
	// List returns asset rows without payload bytes, optionally filtered by
	// kind and/or owning job.
	List(ctx context.Context, kind AssetKind, jobID string) ([]Asset, error)
	Delete(ctx context.Context, id string) error
	// DeleteByJobID cascades a job delete to its assets.
	DeleteByJobID(ctx context.Context, jobID string) error
	DeleteAll(ctx context.Context) error
}

// CredentialRepository stores the singleton encrypted credential record.
type CredentialRepository interface {
	Get(ctx context.Context, provider string) (*Credential, error)
	Put(ctx context.Context, cred *Credential) error
	Delete(ctx context.Context, provider string) error
}

// SettingsRepository stores the singleton settings record.
type SettingsRepository interface {
	Get(ctx context.Context) (*Settings, error)
	Put(ctx context.Context, settings *Settings) error
}
