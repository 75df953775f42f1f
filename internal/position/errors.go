package position

import (
	"errors"
	"fmt"
)

// Error taxonomy for the hedge engine and orchestrator. Every rejection is
// typed and names the offending constraint; callers map the kinds to their
// own surface (the HTTP layer maps them to 400/404/409/502).

// ValidationError is caller-fixable bad input. Not retryable.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError means a concurrent operation mutated the target between
// read and write. Retryable at the caller's discretion.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError means a referenced record no longer exists or was
// soft-deleted.
type NotFoundError struct {
	Kind string
	ID   uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func NotFound(kind string, id uint64) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// StorageError wraps an infrastructure failure from the ledger store. The
// operation is aborted with no partial state committed.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func Storage(err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
