package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/catalogimporter/pkg/logger"
)

// logOnce serves req through mw and returns the single JSON line the handler
// logged via the context logger.
func logOnce(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	base := logger.NewWithWriter("catalog-importer", "info", &buf)

	h := RequestLogger(base)(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handled")
	})))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	return out
}

func passthrough(next http.Handler) http.Handler { return next }

func TestRequestLogger_ContextFields(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = logger.WithCorrelationID(ctx, "corr-test-123")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", nil).WithContext(ctx)

	out := logOnce(t, passthrough, req)

	assert.Equal(t, "handled", out["msg"])
	assert.Equal(t, "corr-test-123", out["correlation_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", out["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", out["span_id"])
	assert.Equal(t, http.MethodPost, out["method"])
	assert.NotContains(t, out, "import_id")
}

func TestRequestLogger_ImportIDFromContext(t *testing.T) {
	ctx := logger.WithImportID(context.Background(), "imp-42")
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	assert.Equal(t, "imp-42", logOnce(t, passthrough, req)["import_id"])
}

func TestImportScope_TagsLoggerAndContext(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewWithWriter("catalog-importer", "info", &buf)

	var fromCtx string
	r := chi.NewRouter()
	r.Use(RequestLogger(base))
	r.With(ImportScope("id")).Get("/imports/{id}", func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logger.ImportIDFromContext(r.Context())
		logger.FromContext(r.Context()).Info("handled")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/imports/imp-7", nil))

	assert.Equal(t, "imp-7", fromCtx)
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "imp-7", out["import_id"])
}

func TestImportScope_NoParamOrLogger(t *testing.T) {
	called := 0
	h := ImportScope("id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		assert.Empty(t, logger.ImportIDFromContext(r.Context()))
		assert.Same(t, slog.Default(), logger.FromContext(r.Context()))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/imports", nil))
	assert.Equal(t, 1, called)
}
