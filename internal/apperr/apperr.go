// Package apperr holds the error taxonomy shared by the order, alert and
// notification services. Callers classify with errors.Is.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidTransition     = errors.New("invalid state transition")
	ErrInvalidInput          = errors.New("invalid input")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("concurrent modification")
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)

// TransitionError is returned when a requested edge is not in the transition table.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InvalidTransition builds a TransitionError for the given states.
func InvalidTransition[S ~string](from, to S) error {
	return &TransitionError{From: string(from), To: string(to)}
}

// Unavailable marks an infrastructure failure as retryable by the caller.
func Unavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrapped{kind: ErrRepositoryUnavailable, cause: errors.Wrap(err, msg)}
}

// NotFound returns an ErrNotFound carrying the entity description.
func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// Forbidden returns an ErrForbidden carrying the reason.
func Forbidden(format string, args ...interface{}) error {
	return errors.Wrapf(ErrForbidden, format, args...)
}

// Conflict returns an ErrConflict carrying the entity description.
func Conflict(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConflict, format, args...)
}

// Invalid returns an ErrInvalidInput carrying the reason.
func Invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

// IsRetryable reports whether the caller may retry the operation as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRepositoryUnavailable) || errors.Is(err, ErrConflict)
}

type wrapped struct {
	kind  error
	cause error
}

func (w *wrapped) Error() string { return w.cause.Error() }

func (w *wrapped) Unwrap() error { return w.cause }

func (w *wrapped) Is(target error) bool { return target == w.kind }
