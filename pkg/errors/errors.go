package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("not logged in")
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("not allowed for this account")
	ErrInvalidInput    = errors.New("invalid input data")
	ErrInFlight        = errors.New("another request for this resource is in progress")
	ErrBusy            = errors.New("a step is already in progress")
)

// Kind classifies where a failure originated.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindApplication     Kind = "application"
	KindTransport       Kind = "transport"
	KindNetwork         Kind = "network"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
)

type AppError struct {
	Code    string
	Message string
	Kind    Kind
	// Status is the upstream HTTP status when the failure came from the backend.
	Status int
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    KindApplication,
		Err:     err,
	}
}

func Validation(message string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: message, Kind: KindValidation, Err: ErrInvalidInput}
}

func Unauthenticated(message string) *AppError {
	return &AppError{Code: "UNAUTHENTICATED", Message: message, Kind: KindUnauthenticated, Err: ErrUnauthenticated}
}

func Conflict(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Kind: KindConflict, Err: err}
}

func NotFound(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Kind: KindNotFound, Err: err}
}

func Forbidden(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Kind: KindForbidden, Err: ErrForbidden}
}

// KindOf reports the Kind of err, or "" when err carries no AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Message returns the operator-facing text for err.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// HTTPStatus maps an error to the status the dashboard API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindApplication, KindTransport:
		return http.StatusBadGateway
	case KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
