package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func captureSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

// slowLog enables slow query logging into a buffer for the test's duration.
func slowLog(t *testing.T, threshold time.Duration) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetSlowQueryLogging(threshold, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	return &buf
}

func TestTraceQuery_Span(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		statement  string
		err        error
		wantStatus codes.Code
	}{
		{"success", "GetProductBySku", "SELECT id FROM products WHERE sku = $1", nil, codes.Unset},
		{"failure", "UpdateProduct", "UPDATE products SET name = $1 WHERE id = $2", errors.New("connection refused"), codes.Error},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exporter := captureSpans(t)

			_, end := TraceQuery(context.Background(), tc.operation, tc.statement)
			end(tc.err)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			span := spans[0]
			assert.Equal(t, "db."+tc.operation, span.Name)
			assert.Equal(t, trace.SpanKindClient, span.SpanKind)
			assert.Equal(t, tc.wantStatus, span.Status.Code)
			assert.Equal(t, tc.err != nil, len(span.Events) > 0)

			got := make(map[string]string)
			for _, kv := range span.Attributes {
				got[string(kv.Key)] = kv.Value.Emit()
			}
			assert.Equal(t, "postgresql", got["db.system"])
			assert.Equal(t, tc.operation, got["db.operation"])
			assert.Equal(t, tc.statement, got["db.statement"])
		})
	}
}

func TestTraceQuery_ChildOfCaller(t *testing.T) {
	exporter := captureSpans(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "import.batch")
	_, end := TraceQuery(ctx, "InsertProduct", "INSERT INTO products")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSlowQueryLogging(t *testing.T) {
	captureSpans(t)
	buf := slowLog(t, time.Nanosecond)

	_, end := TraceQuery(context.Background(), "InsertUrlRecord", "INSERT INTO url_records VALUES ($1)")
	end(errors.New("unique constraint violation"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "slow query detected", entry["msg"])
	assert.Equal(t, "InsertUrlRecord", entry["operation"])
	assert.Equal(t, "INSERT INTO url_records VALUES ($1)", entry["statement"])
	assert.Equal(t, "unique constraint violation", entry["error"])
	assert.Contains(t, entry, "threshold")
}

func TestSlowQueryLogging_Quiet(t *testing.T) {
	tests := []struct {
		name      string
		threshold time.Duration
	}{
		{"below threshold", time.Hour},
		{"disabled", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			captureSpans(t)
			buf := slowLog(t, tc.threshold)

			_, end := TraceQuery(context.Background(), "FastSelect", "SELECT 1")
			assert.NotPanics(t, func() { end(nil) })
			assert.Empty(t, buf.String())
		})
	}
}
