package payments

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a reference resolves to no payment. Webhook
// replay for a reference that was never created is an error, not an insert.
var ErrNotFound = errors.New("payment not found")

// ValidationError reports missing or malformed caller input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports an attempt to overwrite a terminal payment status
// with a different one. The policy is reject-and-report: the stored state
// wins and the caller is told what it tried to do.
type ConflictError struct {
	Reference       string
	CurrentStatus   string
	AttemptedStatus string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("payment %s is already %s; refusing transition to %s",
		e.Reference, e.CurrentStatus, e.AttemptedStatus)
}
