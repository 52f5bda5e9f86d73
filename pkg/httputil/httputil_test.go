package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/catalogimporter/pkg/errors"
	"github.com/utafrali/catalogimporter/pkg/logger"
	"github.com/utafrali/catalogimporter/pkg/validator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error, "body: %s", rec.Body.String())
	return resp.Error
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusAccepted, Response{Data: map[string]string{"id": "job-1"}})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":"job-1"}}`, rec.Body.String())
}

func TestWriteJSON_OmitsEmptyMembers(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusBadRequest, Response{Error: &ErrorResponse{Code: "ERR", Message: "msg"}})

	assert.JSONEq(t, `{"error":{"code":"ERR","message":"msg"}}`, rec.Body.String())
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"app not found", apperrors.NotFound("import", "abc"), http.StatusNotFound, "NOT_FOUND", "import with id abc not found"},
		{"sentinel not found", fmt.Errorf("load job: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND", "resource not found"},
		{"already exists", apperrors.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "resource already exists"},
		{"invalid input", fmt.Errorf("header row: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT", "header row: invalid input"},
		{"conflict", apperrors.Conflict("import already finished"), http.StatusConflict, "CONFLICT", "import already finished"},
		{"unavailable", fmt.Errorf("dial: %w", apperrors.ErrServiceUnavail), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service unavailable"},
		{"unknown", fmt.Errorf("pq: password authentication failed"), http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"},
		{"internal", apperrors.Internal(fmt.Errorf("disk full")), http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/abc", nil)
			WriteError(rec, req, tc.err, discardLogger())

			assert.Equal(t, tc.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.message, body.Message)
			assert.Empty(t, rec.Header().Get("Retry-After"))
		})
	}
}

func TestWriteError_LimitSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", nil)
	WriteError(rec, req, apperrors.LimitExceeded("at most 2 imports may run at once"), discardLogger())

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, limitRetryAfter, rec.Header().Get("Retry-After"))
	assert.Equal(t, "LIMIT_EXCEEDED", decodeError(t, rec).Code)
}

func TestWriteError_RequestID(t *testing.T) {
	for _, err := range []error{apperrors.ErrNotFound, apperrors.NotFound("import", "x")} {
		ctx := logger.WithCorrelationID(context.Background(), "corr-123")
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		WriteError(rec, req, err, discardLogger())

		assert.Equal(t, "corr-123", decodeError(t, rec).RequestID)
	}

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperrors.ErrNotFound, discardLogger())
	assert.NotContains(t, rec.Body.String(), "request_id")
}

func TestWriteError_LogsServerErrorsToRequestLogger(t *testing.T) {
	var captured []string
	handler := &captureHandler{records: &captured}
	ctx := logger.NewContext(context.Background(), slog.New(handler))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports", nil).WithContext(ctx)

	WriteError(httptest.NewRecorder(), req, apperrors.ErrNotFound, discardLogger())
	assert.Empty(t, captured)

	WriteError(httptest.NewRecorder(), req, fmt.Errorf("boom"), discardLogger())
	assert.Equal(t, []string{"request failed"}, captured)
}

func TestWriteErrorCode(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	WriteErrorCode(rec, req, http.StatusBadRequest, "INVALID_PARAMETER", "batch_size must be an integer")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t,
		`{"error":{"code":"INVALID_PARAMETER","message":"batch_size must be an integer","request_id":"corr-9"}}`,
		rec.Body.String())
}

func TestWriteValidationError(t *testing.T) {
	type form struct {
		BatchSize int `validate:"lte=5000"`
	}
	err := validator.Validate(form{BatchSize: 9000})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.NotEmpty(t, body.Fields)

	rec = httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("not a validation error"))
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestParseUUID(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want string
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true, "550e8400-e29b-41d4-a716-446655440000"},
		{"550E8400-E29B-41D4-A716-446655440000", true, "550e8400-e29b-41d4-a716-446655440000"},
		{"not-a-uuid", false, "00000000-0000-0000-0000-000000000000"},
		{"", false, "00000000-0000-0000-0000-000000000000"},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		id, ok := ParseUUID(rec, tc.in)

		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, id.String())
		if tc.ok {
			assert.Zero(t, rec.Body.Len())
			continue
		}
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "INVALID_PARAMETER", body.Code)
		assert.Contains(t, body.Message, tc.in)
	}
}

type captureHandler struct {
	records *[]string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	*h.records = append(*h.records, r.Message)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }
