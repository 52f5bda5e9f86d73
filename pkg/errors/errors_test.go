package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrInternal,
		ErrConflict, ErrServiceUnavail, ErrLimitExceeded,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("db connection lost")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Equal(t, "INTERNAL_ERROR: something broke: db connection lost", appErr.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "import not found"}
	assert.Equal(t, "NOT_FOUND: import not found", bare.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))
	assert.Nil(t, (&AppError{Code: "TEST"}).Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("import", "abc"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("product", "sku", "A1"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("bad batch size"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"conflict", Conflict("import already finished"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"limit exceeded", LimitExceeded("too many imports"), "LIMIT_EXCEEDED", http.StatusTooManyRequests, ErrLimitExceeded},
		{"unavailable", Unavailable("picture host down"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.err)
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.status, tc.err.Status)
			assert.ErrorIs(t, tc.err, tc.sentinel)
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	assert.Equal(t, "import with id abc not found", NotFound("import", "abc").Message)
}

func TestInternal(t *testing.T) {
	inner := errors.New("boom")
	err := Internal(inner)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.NotContains(t, err.Message, "boom")
	assert.ErrorIs(t, err, inner)
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Conflict("import already finished"), "CONFLICT"},
		{fmt.Errorf("start import: %w", LimitExceeded("busy")), "LIMIT_EXCEEDED"},
		{fmt.Errorf("lookup: %w", ErrNotFound), "NOT_FOUND"},
		{ErrServiceUnavail, "SERVICE_UNAVAILABLE"},
		{errors.New("disk full"), "INTERNAL_ERROR"},
		{&AppError{Code: "UNEXPECTED_STATUS", Status: 302}, "UNEXPECTED_STATUS"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Code(tc.err), tc.err.Error())
	}
}

func TestAppErrorStatusWinsOverSentinel(t *testing.T) {
	err := &AppError{Code: "GONE", Status: http.StatusGone, Err: ErrNotFound}
	assert.Equal(t, http.StatusGone, HTTPStatus(fmt.Errorf("wrap: %w", err)))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("import", "1"), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrLimitExceeded, http.StatusTooManyRequests},
		{ErrServiceUnavail, http.StatusServiceUnavailable},
		{errors.New("unknown"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}
