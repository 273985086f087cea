// Package apperr defines the error categories shared by every TartalaCRM
// surface. Stores and the authorization engine return categorized errors; the
// HTTP layer maps them to status codes and the CLI maps them to messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of an application error.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

// Error is an error tagged with a Kind. The wrapped error carries the detail.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind with no wrapped cause, so
// errors.Is(err, apperr.ErrForbidden) works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is checks.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInternal        = &Error{Kind: KindInternal}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Unauthenticated wraps err as an authentication failure.
func Unauthenticated(err error) error { return newError(KindUnauthenticated, err) }

// Forbidden wraps err as an authorization denial.
func Forbidden(err error) error { return newError(KindForbidden, err) }

// NotFound wraps err as a missing resource.
func NotFound(err error) error { return newError(KindNotFound, err) }

// Validation wraps err as invalid input.
func Validation(err error) error { return newError(KindValidation, err) }

// Conflict wraps err as a state conflict.
func Conflict(err error) error { return newError(KindConflict, err) }

// Internal wraps err as an unexpected failure.
func Internal(err error) error { return newError(KindInternal, err) }

// Validationf formats a validation error message.
func Validationf(format string, args ...interface{}) error {
	return Validation(fmt.Errorf(format, args...))
}

// NotFoundf formats a not found error message.
func NotFoundf(format string, args ...interface{}) error {
	return NotFound(fmt.Errorf(format, args...))
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal
// when err carries no category. KindOf(nil) is the empty Kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the HTTP status code of its category.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
