// Package repository defines the reservation backend contract and its
// concrete implementations (MySQL, Google Sheets, Redis).  Every backend
// failure is reported as an *Error carrying one of the sentinel kinds below
// so that higher layers can branch with errors.Is regardless of which
// backend produced it.
package repository

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable signals a network or transport failure, including
// timeouts and cancellation.
var ErrUnavailable = errors.New("unavailable")

// ErrNotFound is returned when the target of an update or delete does not
// exist in the backend.
var ErrNotFound = errors.New("not found")

// ErrSchemaMismatch is returned when the backend rejects a field, for
// example a missing column or a row it cannot translate.
var ErrSchemaMismatch = errors.New("schema mismatch")

// ErrPermissionDenied is returned when the backend refuses the credentials.
var ErrPermissionDenied = errors.New("permission denied")

// ErrConflict is returned when a create collides with an existing record.
var ErrConflict = errors.New("conflict")

// Error wraps a backend failure with the source and operation it came from.
type Error struct {
	Source string
	Op     string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Source, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel kind as well as the wrapped cause.
func (e *Error) Is(target error) bool { return target == e.Kind }

func newError(source, op string, kind, err error) *Error {
	return &Error{Source: source, Op: op, Kind: kind, Err: err}
}

// KindOf returns the sentinel kind of err.  Context cancellation, deadlines
// and anything unrecognised count as unavailable.
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrSchemaMismatch, ErrPermissionDenied, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnavailable
}

// wrapContext classifies context errors as unavailable.
func wrapContext(source, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(source, op, ErrUnavailable, err)
	}
	return nil
}

// KindName returns the display name of err's kind.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrNotFound:
		return "NotFound"
	case ErrSchemaMismatch:
		return "SchemaMismatch"
	case ErrPermissionDenied:
		return "PermissionDenied"
	case ErrConflict:
		return "Conflict"
	}
	return "Unavailable"
}
