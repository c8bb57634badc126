package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrCredentialMissing = errors.New("no API credential configured")
	ErrCredentialDecrypt = errors.New("credential decrypt failed")
	ErrInvalidParams     = errors.New("invalid generation parameters")
	ErrJobTerminal       = errors.New("job already in a terminal state")
)

// RemoteRequestError is returned when a submit-time call to the remote
// gateway fails. It carries the HTTP status so callers can distinguish client
// from server fault.
type RemoteRequestError struct {
	StatusCode int
	Message    string
}

func (e *RemoteRequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote request failed: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote request failed (%d): %s", e.StatusCode, e.Message)
}

// ClientFault reports whether the remote rejected the request as a caller
// error (4xx) rather than failing on its own side.
func (e *RemoteRequestError) ClientFault() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// TransientPollError wraps a poll-time gateway failure. It is swallowed at
// the polling boundary: logged, job status unchanged, next tick proceeds on
// the existing backoff schedule.
type TransientPollError struct {
	Err error
}

func (e *TransientPollError) Error() string {
	return fmt.Sprintf("transient poll failure: %v", e.Err)
}

func (e *TransientPollError) Unwrap() error { return e.Err }
