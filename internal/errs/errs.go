// Package errs defines the error kinds reported by the model layer.
package errs

import (
	"errors"
	"fmt"
)

// Kind represents the category of a model error
type Kind string

const (
	KindInvalidArgument      Kind = "INVALID_ARGUMENT"
	KindReferentialIntegrity Kind = "REFERENTIAL_INTEGRITY"
	KindNotDeletable         Kind = "NOT_DELETABLE"
	KindSerialization        Kind = "SERIALIZATION"
)

// Error is a model error with a kind, optional details and an optional cause
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetails adds error details
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

// InvalidArgument creates an INVALID_ARGUMENT error
func InvalidArgument(format string, args ...interface{}) *Error {
	return Newf(KindInvalidArgument, format, args...)
}

// ReferentialIntegrity creates a REFERENTIAL_INTEGRITY error
func ReferentialIntegrity(format string, args ...interface{}) *Error {
	return Newf(KindReferentialIntegrity, format, args...)
}

// NotDeletable creates a NOT_DELETABLE error
func NotDeletable(format string, args ...interface{}) *Error {
	return Newf(KindNotDeletable, format, args...)
}

// Serialization creates a SERIALIZATION error
func Serialization(format string, args ...interface{}) *Error {
	return Newf(KindSerialization, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
