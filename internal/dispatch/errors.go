package dispatch

import (
	"fmt"

	"github.com/drewdunne/agenda/internal/intent"
)

// InterpretationError is returned when the NLU output cannot be used.
type InterpretationError = intent.InterpretationError

// ValidationError reports a required entity that is missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports that no event title contains the reference.
type NotFoundError struct {
	Reference string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no event matches %q", e.Reference)
}

// BackendError wraps a failed calendar call.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("calendar %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// StateError reports a confirmation reply with nothing pending.
type StateError struct {
	UserID string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("no pending confirmation for user %s", e.UserID)
}
