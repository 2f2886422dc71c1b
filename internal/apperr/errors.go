// Package apperr is the error taxonomy shared by the pipeline, the operation
// handlers and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error carries the kind of failure, the operation that raised it and a message that is
// safe to show to the caller.
type Error struct {
	Op  string // operation that failed
	Msg string // user visible message
	Err error  // one of the kinds above, possibly wrapping a cause
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, op, format string, args ...any) *Error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...), Err: kind}
}

func Validation(op, format string, args ...any) *Error {
	return newError(ErrValidation, op, format, args...)
}

func Unauthorized(op, format string, args ...any) *Error {
	return newError(ErrUnauthorized, op, format, args...)
}

func Forbidden(op, format string, args ...any) *Error {
	return newError(ErrForbidden, op, format, args...)
}

func NotFound(op, format string, args ...any) *Error {
	return newError(ErrNotFound, op, format, args...)
}

func Conflict(op, format string, args ...any) *Error {
	return newError(ErrConflict, op, format, args...)
}

// Status maps an error to the HTTP status the boundary answers with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller facing message of err, or "" when err is not one of ours.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		return e.Err.Error()
	}
	return ""
}
