package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable tag carried by every error the access engine
// surfaces to its callers.  Handlers switch on the kind, never on the
// message text.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindForbidden      ErrorKind = "forbidden"
	KindConflict       ErrorKind = "conflict"
	KindMFA            ErrorKind = "mfa_failed"
	KindSessionExpired ErrorKind = "session_expired"
)

// Error is a classified failure.  Message is safe to return to clients.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is lets errors.Is match on kind alone, e.g.
// errors.Is(err, &model.Error{Kind: model.KindConflict}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrValidation reports malformed input.
func ErrValidation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// ErrNotFound reports an unknown id.
func ErrNotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// ErrForbidden reports a role or scope mismatch, or a missing grant.
func ErrForbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

// ErrConflict reports a state that has already transitioned.
func ErrConflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// ErrMFA reports a bad, expired or unverifiable one-time code.  The message
// is fixed so that it never reveals anything about approval state.
func ErrMFA() *Error {
	return &Error{Kind: KindMFA, Message: "invalid MFA code"}
}

// ErrSessionExpired reports a lapsed or revoked privileged session.
func ErrSessionExpired() *Error {
	return &Error{Kind: KindSessionExpired, Message: "session expired"}
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
