package models

import (
	"errors"
	"fmt"
)

// ErrNoMessages is returned when a summary window matches no stored
// messages. It is an expected outcome, not a system failure.
var ErrNoMessages = errors.New("no messages in window")

// StorageError wraps a failure of the underlying storage medium.
// Callers on the ingestion path must treat it as non-fatal.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// BackendError wraps a text-generation backend failure. Transient
// failures (timeouts, rate limits, 5xx) are retried by the pipeline;
// non-transient ones fail immediately.
type BackendError struct {
	Transient bool
	Attempts  int
	Err       error
}

func (e *BackendError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("backend failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("backend failed: %v", e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ValidationError reports malformed user input, e.g. bad /summary
// arguments. It is reported inline and never crashes a handler.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
