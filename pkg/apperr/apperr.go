// Package apperr defines the error taxonomy shared by every core component.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the taxonomy buckets. Components
// branch on Kind, never on message text.
type Kind string

const (
	NotFound           Kind = "not_found"
	AlreadyExists      Kind = "already_exists"
	InvalidInput       Kind = "invalid_input"
	ConfigMismatch     Kind = "config_mismatch"
	SandboxDenied      Kind = "sandbox_denied"
	LoadError          Kind = "load_error"
	InvocationError    Kind = "invocation_error"
	Timeout            Kind = "timeout"
	Cancelled          Kind = "cancelled"
	BackendUnavailable Kind = "backend_unavailable"
	RetryableBackend   Kind = "retryable_backend"
)

// Error wraps a Kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is supports errors.Is comparisons against a bare Kind sentinel, e.g.
// errors.Is(err, apperr.New(apperr.NotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error carrying a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting.
func Wrapf(err error, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind of err, or "" if err is not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err's Kind equals kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err is a kind that local recovery logic should
// retry: RetryableBackend or BackendUnavailable.
func Retryable(err error) bool {
	k := KindOf(err)
	return k == RetryableBackend || k == BackendUnavailable
}
