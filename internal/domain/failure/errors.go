package failure

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyProcessed = errors.New("request already processed")
	ErrForbidden        = errors.New("not allowed to decide this request")
	// ErrStaleVersion is returned by repositories when the row changed since it was read.
	ErrStaleVersion = errors.New("loan was modified concurrently")
)

// ValidationError carries a message that is shown to the end user as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// PersistenceError wraps store failures on the primary path.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// DeliveryError is logged by the dispatcher and never returned to HTTP callers.
type DeliveryError struct {
	Audience string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Audience, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
