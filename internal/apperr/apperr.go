// Package apperr defines the error kinds every operation reports to its callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transports can react to it without string matching.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_failed"
	KindConflict          Kind = "conflict"
	KindTransient         Kind = "transient"
	KindAuthFailure       Kind = "auth_failure"
	KindInvalidTransition Kind = "invalid_transition"
	KindInternal          Kind = "internal"
)

// Error is the application error carried across package boundaries.
type Error struct {
	Kind    Kind              `json:"kind"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind when the target is a bare kind sentinel, and on Kind+Code otherwise.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrTransient         = &Error{Kind: KindTransient}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}

	// ErrAuthFailure is the only value returned for rejected credentials.
	ErrAuthFailure = &Error{Kind: KindAuthFailure, Code: "invalid_credentials", Message: "invalid credentials"}
)

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: entity + "_not_found", Message: entity + " not found"}
}

func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: message, Fields: fields}
}

// Field builds a single-field validation error.
func Field(field, reason string) *Error {
	return Validation("invalid "+field, map[string]string{field: reason})
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Code: "unavailable", Message: "storage temporarily unavailable", Err: err}
}

func InvalidTransition(entity, from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Code:    "invalid_transition",
		Message: fmt.Sprintf("%s cannot move from %s to %s", entity, from, to),
	}
}

// InvalidState reports an operation that the current status does not allow.
func InvalidState(code, message string) *Error {
	return &Error{Kind: KindInvalidTransition, Code: code, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: "internal error", Err: err}
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the caller may repeat the operation unchanged.
func IsRetryable(err error) bool { return KindOf(err) == KindTransient }
