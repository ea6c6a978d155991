// Package apperrors defines the error kinds returned by the domain services.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindWindowClosed      Kind = "window_closed"
	KindAlreadyRegistered Kind = "already_registered"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidTransition Kind = "invalid_transition"
	KindValidation        Kind = "validation"
	KindTransientDelivery Kind = "transient_delivery"
	KindPersistence       Kind = "persistence"
)

// Error carries a kind, a message safe to show to the caller and an optional
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error          { return New(KindNotFound, message) }
func CapacityExceeded(message string) *Error  { return New(KindCapacityExceeded, message) }
func WindowClosed(message string) *Error      { return New(KindWindowClosed, message) }
func AlreadyRegistered(message string) *Error { return New(KindAlreadyRegistered, message) }
func Unauthorized(message string) *Error      { return New(KindUnauthorized, message) }
func InvalidTransition(message string) *Error { return New(KindInvalidTransition, message) }
func Validation(message string) *Error        { return New(KindValidation, message) }

func Persistence(message string, err error) *Error {
	return Wrap(KindPersistence, message, err)
}

func TransientDelivery(message string, err error) *Error {
	return Wrap(KindTransientDelivery, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindPersistence for anything else.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps a kind to the status code handlers respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindCapacityExceeded, KindWindowClosed, KindAlreadyRegistered, KindInvalidTransition:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindTransientDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message to show to API callers. Errors that are
// not *Error are hidden behind a generic message.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
