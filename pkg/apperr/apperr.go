// Package apperr defines the domain error kinds shared by the service packages.
//
// Messages are user facing (Portuguese) and surface unchanged in HTTP error bodies.
// Handlers map the Kind to a status code through httputil.WriteServiceError.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error
type Kind string

const (
	KindNotFound Kind = "not_found"
	KindInvalid  Kind = "invalid"
	KindConflict Kind = "conflict"
)

// Error is a domain error with a human readable message
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors of the same kind and message so sentinel values work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// NotFound creates a not-found error
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Invalid creates a validation error
func Invalid(message string) *Error {
	return &Error{Kind: KindInvalid, Message: message}
}

// Invalidf creates a formatted validation error
func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a state conflict error
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// KindOf returns the kind of the first domain error in the chain, or "" if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
