package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so the HTTP edge can pick a status code.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindValidation      Kind = "VALIDATION_ERROR"
	KindConflict        Kind = "CONFLICT"
	KindDuplicate       Kind = "DUPLICATE"
	KindExternalService Kind = "EXTERNAL_SERVICE_FAILURE"
	KindInternal        Kind = "INTERNAL_ERROR"
)

var statusByKind = map[Kind]int{
	KindNotFound:        http.StatusNotFound,
	KindUnauthenticated: http.StatusUnauthorized,
	KindForbidden:       http.StatusForbidden,
	KindValidation:      http.StatusUnprocessableEntity,
	KindConflict:        http.StatusConflict,
	KindDuplicate:       http.StatusConflict,
	KindExternalService: http.StatusBadGateway,
	KindInternal:        http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code for this kind.
func (k Kind) StatusCode() int {
	if code, ok := statusByKind[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Error is the domain error returned by every service package.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field: %s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Duplicate(resource string) *Error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf("%s already exists", resource)}
}

// ExternalService wraps a failure from an AI provider or blob store.
func ExternalService(service string, err error) *Error {
	return &Error{Kind: KindExternalService, Message: fmt.Sprintf("%s request failed", service), Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf reports the Kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the short message safe to show to end users.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "Something went wrong"
	}
	switch appErr.Kind {
	case KindExternalService:
		return "Generation service is unavailable, please try again"
	case KindInternal:
		return "Something went wrong"
	default:
		return appErr.Message
	}
}
