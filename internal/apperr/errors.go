// Package apperr defines the error kinds surfaced to callers.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrReadOnly   = errors.New("read-only")
	ErrConfig     = errors.New("configuration error")
	ErrUpstream   = errors.New("upstream error")
	ErrConflict   = errors.New("conflict")
)

// Error is a kinded error carrying a caller-facing message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an *Error of the given kind with a formatted message.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound error.
func NotFound(format string, args ...any) error { return New(ErrNotFound, format, args...) }

// Validation returns an ErrValidation error.
func Validation(format string, args ...any) error { return New(ErrValidation, format, args...) }

// ReadOnly returns an ErrReadOnly error.
func ReadOnly(format string, args ...any) error { return New(ErrReadOnly, format, args...) }

// Config returns an ErrConfig error.
func Config(format string, args ...any) error { return New(ErrConfig, format, args...) }

// Upstream returns an ErrUpstream error.
func Upstream(format string, args ...any) error { return New(ErrUpstream, format, args...) }

// Conflict returns an ErrConflict error.
func Conflict(format string, args ...any) error { return New(ErrConflict, format, args...) }

// KindOf returns the kind sentinel of err, or nil for unclassified errors.
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrValidation, ErrReadOnly, ErrConfig, ErrUpstream, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
