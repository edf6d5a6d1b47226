// Package apperr defines the error kinds shared by the stores and the practice service.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an unknown id. Callers should not retry.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable marks a transient persistence failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidGrade marks an outcome outside the five-point grade scale.
	ErrInvalidGrade = errors.New("invalid grade")
)

// Error carries an error kind together with the operation that failed and its cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Is matches the error kind, so errors.Is(err, ErrStoreUnavailable) works on wrapped errors.
func (e *Error) Is(target error) bool {
	return e != nil && e.Kind == target
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap returns an *Error of the given kind.
func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound builds an ErrNotFound error for the given operation and subject.
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// Unavailable wraps a persistence failure as ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrStoreUnavailable, Op: op, Err: err}
}

// IsRetryable reports whether err is worth retrying at the store adapter.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
