// Package errors defines the error vocabulary shared by the importer's
// service and HTTP layers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrLimitExceeded  = errors.New("limit exceeded")
)

type kind struct {
	sentinel error
	code     string
	status   int
}

// kinds is ordered: the first sentinel an error matches decides its kind.
var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest},
	{ErrConflict, "CONFLICT", http.StatusConflict},
	{ErrLimitExceeded, "LIMIT_EXCEEDED", http.StatusTooManyRequests},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable},
}

var internalKind = kind{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError}

// AppError is an error that carries its API code and HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(sentinel error, message string) *AppError {
	k := kindOf(sentinel)
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

// NotFound reports a missing resource, e.g. an unknown import id.
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

func AlreadyExists(resource, field, value string) *AppError {
	return newAppError(ErrAlreadyExists, fmt.Sprintf("%s with %s %q already exists", resource, field, value))
}

func InvalidInput(message string) *AppError {
	return newAppError(ErrInvalidInput, message)
}

// Conflict reports an operation not allowed in the resource's current
// state, such as cancelling a finished import.
func Conflict(message string) *AppError {
	return newAppError(ErrConflict, message)
}

// LimitExceeded reports that a quota is exhausted. Clients may retry later.
func LimitExceeded(message string) *AppError {
	return newAppError(ErrLimitExceeded, message)
}

// Unavailable reports that a dependency is temporarily down.
func Unavailable(message string) *AppError {
	return newAppError(ErrServiceUnavail, message)
}

// Internal hides err behind a generic message. err stays reachable through
// Unwrap for logging.
func Internal(err error) *AppError {
	return &AppError{
		Code:    internalKind.code,
		Message: "an internal error occurred",
		Status:  internalKind.status,
		Err:     err,
	}
}

func kindOf(err error) kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k
		}
	}
	return internalKind
}

// HTTPStatus returns the HTTP status for err. An AppError's own status wins,
// then the first matching sentinel, then 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return kindOf(err).status
}

// Code returns the API error code for err, following the same precedence as
// HTTPStatus.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return kindOf(err).code
}
