package domain

import "strings"

// Generic fallback messages persisted when the remote reports a terminal
// failure without an explanation of its own.
const (
	BlockedFallbackMessage = "Content blocked by safety filters"
	FailedFallbackMessage  = "Generation failed - please check your prompt and try again"
)

var remoteStatusMap = map[string]JobStatus{
	"queued":      JobStatusQueued,
	"in_progress": JobStatusRunning,
	"processing":  JobStatusRunning,
	"running":     JobStatusRunning,
	"succeeded":   JobStatusSucceeded,
	"completed":   JobStatusSucceeded,
	"failed":      JobStatusFailed,
	"blocked":     JobStatusBlocked,
	"canceled":    JobStatusCanceled,
	"cancelled":   JobStatusCanceled,
}

// MapRemoteStatus translates the remote service's status vocabulary into the
// canonical state machine. The mapping is total: vocabulary we do not
// recognize maps to failed (known=false) so an unknown remote state is never
// silently treated as progress.
func MapRemoteStatus(remote string) (status JobStatus, known bool) {
	mapped, ok := remoteStatusMap[strings.ToLower(strings.TrimSpace(remote))]
	if !ok {
		return JobStatusFailed, false
	}
	return mapped, true
}

// FallbackMessage returns the generic error text for a terminal failure
// status, used when the remote supplies none.
func FallbackMessage(status JobStatus) string {
	switch status {
	case JobStatusBlocked:
		return BlockedFallbackMessage
	case JobStatusFailed:
		return FailedFallbackMessage
	default:
		return ""
	}
}
