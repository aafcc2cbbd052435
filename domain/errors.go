package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
	ErrCodeRemote       ErrorCode = "REMOTE"
	ErrCodeParse        ErrorCode = "PARSE"
)

// Error represents a domain-level error. Action names the operation that failed
// ("update-task-status", "bulk-refresh") so repeated failures can be grouped.
type Error struct {
	Code    ErrorCode
	Action  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Action != "" {
		msg = e.Action + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches sentinel domain errors by code and message so wrapped copies compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapRemote tags a Remote Gateway failure with the action that triggered it.
// Existing domain errors keep their code.
func WrapRemote(action string, err error) error {
	if err == nil {
		return nil
	}
	code := ErrCodeRemote
	var dErr *Error
	if errors.As(err, &dErr) && dErr.Code != "" {
		code = dErr.Code
	}
	return &Error{Code: code, Action: action, Message: "remote call failed", Err: err}
}

// ParseError reports a record that could not be normalized.
func ParseError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeParse, Message: fmt.Sprintf(format, args...)}
}

// Common domain errors.
var (
	ErrAssignmentNotFound = NewError(ErrCodeNotFound, "assignment not found")
	ErrNotATask           = NewError(ErrCodeInvalid, "only tasks can be deleted")
	ErrInvalidTransition  = NewError(ErrCodeInvalid, "status transition not allowed")
	ErrInvalidPayload     = NewError(ErrCodeInvalid, "invalid payload")
	ErrImmutableField     = NewError(ErrCodeInvalid, "field cannot be changed")
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrUnknownIntent      = NewError(ErrCodeInvalid, "unknown intent")
	ErrMalformedResponse  = NewError(ErrCodeRemote, "malformed response")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// ActionOf returns the outermost action tag attached to err.
func ActionOf(err error) string {
	for err != nil {
		var dErr *Error
		if !errors.As(err, &dErr) {
			return ""
		}
		if dErr.Action != "" {
			return dErr.Action
		}
		err = dErr.Err
	}
	return ""
}
