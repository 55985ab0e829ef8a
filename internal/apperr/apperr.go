// Package apperr defines the error taxonomy surfaced by the services.
//
// Every failure returned by a service is an *Error carrying a Kind. Callers
// branch on the kind with Is or KindOf; the transport layers map kinds to
// exit messages and HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation indicates malformed input: bad format, bad enum value
	// or a missing required field.
	KindValidation Kind = "validation"

	// KindNotFound indicates a referenced entity does not exist.
	KindNotFound Kind = "not_found"

	// KindAlreadyExists indicates a uniqueness violation.
	KindAlreadyExists Kind = "already_exists"

	// KindConflict indicates a licence was already claimed or a claim race
	// was lost.
	KindConflict Kind = "conflict"

	// KindPermission indicates the caller's role lacks the capability.
	KindPermission Kind = "permission"

	// KindAuthentication indicates a credential mismatch.
	KindAuthentication Kind = "authentication"

	// KindInternal indicates an unexpected failure, usually from storage.
	KindInternal Kind = "internal"
)

// Error is a classified service failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func AlreadyExists(format string, args ...any) *Error {
	return newf(KindAlreadyExists, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

func Permission(format string, args ...any) *Error {
	return newf(KindPermission, format, args...)
}

func Authentication(format string, args ...any) *Error {
	return newf(KindAuthentication, format, args...)
}

// Internal wraps an unexpected error with context.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the kind from err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
