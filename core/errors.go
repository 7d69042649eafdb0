package core

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by session accessors.
var (
	// ErrNotReady is returned by Result accessors before the session has
	// reached a terminal state.
	ErrNotReady = errors.New("session result not ready")
	// ErrSessionNotFound is returned for unknown session identifiers.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCancelled marks cooperative cancellation. It is a control signal,
	// not a true failure; a cancelled session still closes its stream.
	ErrCancelled = errors.New("session cancelled")
)

// ValidationError reports a malformed inbound request or an agent output
// that failed schema checks after the self-correction attempt. It is never
// retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StageError reports that a single agent stage could not produce a
// contribution. Hard marks agents whose absence makes the final artifact
// unassemblable (layout, component); a hard stage failure escalates to a
// SessionError, a soft one degrades the context for downstream stages.
type StageError struct {
	Agent string
	Hard  bool
	Err   error
}

func (e *StageError) Error() string {
	kind := "soft"
	if e.Hard {
		kind = "hard"
	}
	return fmt.Sprintf("stage %q failed (%s dependency): %v", e.Agent, kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// SessionError is the terminal session-level failure reported via the error
// event and by Result.
type SessionError struct {
	Stage string
	Err   error
}

func (e *SessionError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("session failed at stage %q: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("session failed: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }
