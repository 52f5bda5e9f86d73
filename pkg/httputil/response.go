package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
	"github.com/utafrali/catalogimporter/pkg/logger"
	"github.com/utafrali/catalogimporter/pkg/validator"
)

// limitRetryAfter is advertised to clients turned away by the concurrent
// import limit. Imports usually take tens of seconds.
const limitRetryAfter = "30"

// Response is the JSON envelope for every API answer.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the "error" member of Response.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// genericMessages replaces err.Error() for sentinels whose wrapped text may
// leak internals. Other sentinels expose the wrapped message as is.
var genericMessages = map[error]string{
	apperrors.ErrNotFound:       "resource not found",
	apperrors.ErrAlreadyExists:  "resource already exists",
	apperrors.ErrServiceUnavail: "service unavailable",
	apperrors.ErrInternal:       "an internal error occurred",
}

// WriteJSON writes v as the JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are gone by now, an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorCode writes an error envelope with an explicit code, tagged
// with the request's correlation id.
func WriteErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, Response{Error: &ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}})
}

// WriteError maps err onto a status and code via apperrors and writes it.
// 5xx errors are logged with the request-scoped logger when the
// RequestLogger middleware installed one, else with fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.Code(err)

	var message string
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else {
		message = sentinelMessage(err, status)
	}

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("code", code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", limitRetryAfter)
	}

	WriteErrorCode(w, r, status, code, message)
}

func sentinelMessage(err error, status int) string {
	for sentinel, msg := range genericMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	if status == http.StatusInternalServerError {
		return genericMessages[apperrors.ErrInternal]
	}
	return err.Error()
}

// WriteValidationError answers 400. Field errors from the validator package
// are listed per field.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if !errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
		})
		return
	}
	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  valErr.Fields(),
		},
	})
}

// ParseUUID parses a path parameter. On failure it has already written a
// 400 INVALID_PARAMETER response and the caller should return.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{Code: "INVALID_PARAMETER", Message: "invalid UUID: " + param},
		})
		return uuid.Nil, false
	}
	return id, true
}
