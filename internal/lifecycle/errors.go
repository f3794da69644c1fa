package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the Manager.  Callers match them with errors.Is.
var (
	ErrValidationConflict = errors.New("validation conflict")
	ErrQueueConflict      = errors.New("queue conflict")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyTerminal    = errors.New("already terminal")
	ErrPartialFailure     = errors.New("partial failure")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// ConflictError carries the user-visible reason a scheduling rule refused
// the request.  It unwraps to ErrValidationConflict or ErrQueueConflict.
type ConflictError struct {
	Kind   error
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Unwrap() error { return e.Kind }

// PartialFailureError reports a multi-step transition whose primary write
// landed but a later step failed.  Completed steps are not rolled back; the
// record lists them so an operator can reconcile by hand.
type PartialFailureError struct {
	Operation string
	Completed []string
	Failed    string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %s failed after [%s]: %v",
		e.Operation, e.Failed, strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialFailureError) Unwrap() []error { return []error{ErrPartialFailure, e.Err} }

func validationConflict(reason string) error {
	return &ConflictError{Kind: ErrValidationConflict, Reason: reason}
}

func queueConflict(reason string) error {
	return &ConflictError{Kind: ErrQueueConflict, Reason: reason}
}
