package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
)

// makeResponse creates an *http.Response with the given status code and body string.
func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// structuredError builds a standard JSON error body.
func structuredError(code, message string) string {
	return `{"error":{"code":"` + code + `","message":"` + message + `"}}`
}

func TestParseResponseError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"not found", http.StatusNotFound, "", apperrors.ErrNotFound},
		{"gone", http.StatusGone, "<html>gone</html>", apperrors.ErrNotFound},
		{"structured not found", http.StatusNotFound, structuredError("NOT_FOUND", "asset missing"), apperrors.ErrNotFound},
		{"forbidden", http.StatusForbidden, "denied", apperrors.ErrInvalidInput},
		{"unauthorized", http.StatusUnauthorized, "", apperrors.ErrInvalidInput},
		{"conflict", http.StatusConflict, "", apperrors.ErrConflict},
		{"rate limited", http.StatusTooManyRequests, "slow down", apperrors.ErrLimitExceeded},
		{"unavailable", http.StatusServiceUnavailable, "", apperrors.ErrServiceUnavail},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tc.status, tc.body), "cdn")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)

			var appErr *apperrors.AppError
			assert.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
		})
	}
}

func TestParseResponseError_StructuredMessageKept(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadRequest, structuredError("INVALID_INPUT", "bad size")), "resizer")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "resizer: bad size", appErr.Message)
}

func TestParseResponseError_ServerError(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusInternalServerError, structuredError("INTERNAL_ERROR", "something went wrong")), "cdn")
	require.Error(t, err)

	var appErr *apperrors.AppError
	assert.False(t, errors.As(err, &appErr))
	assert.Contains(t, err.Error(), "cdn")
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "something went wrong")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadGateway, "Bad Gateway: upstream connection refused\n"), "cdn")

	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "Bad Gateway: upstream connection refused")
}

func TestParseResponseError_EmptyBodyUsesStatusText(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusBadGateway, ""), "cdn")

	assert.Contains(t, err.Error(), http.StatusText(http.StatusBadGateway))
}

func TestParseResponseError_BodyIsTruncated(t *testing.T) {
	body := strings.Repeat("x", maxErrorBody*2)
	err := ParseResponseError(makeResponse(http.StatusBadGateway, body), "cdn")

	assert.Less(t, len(err.Error()), maxErrorBody+100)
}

func TestParseResponseError_UnhandledStatus(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusMultipleChoices, ""), "cdn")

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusMultipleChoices, appErr.Status)
	assert.Equal(t, "UNEXPECTED_STATUS", appErr.Code)
}

func TestIsClientError(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 409, 410, 422, 429, 499} {
		assert.True(t, IsClientError(status), "status %d should be a client error", status)
	}
	for _, status := range []int{200, 204, 302, 399, 500, 503} {
		assert.False(t, IsClientError(status), "status %d should NOT be a client error", status)
	}
}
