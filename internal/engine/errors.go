package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for locally-resolvable failures. These are reported as
// inline feedback by the views and never terminate the client.
var (
	// ErrPermissionDenied means the current session may not perform the action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTransition means a status guard failed (e.g. approving a
	// task that is not pending approval).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEmptyComment means a comment body was empty after trimming.
	ErrEmptyComment = errors.New("comment text is empty")

	// ErrNotFound means a local reference points at a task the server no
	// longer has.
	ErrNotFound = errors.New("task not found")
)

// NetworkError wraps a transport failure. Remote failures roll back any
// optimistic local state before being surfaced.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
