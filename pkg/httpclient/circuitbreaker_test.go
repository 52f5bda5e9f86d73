package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newBreaker returns a breaker client that trips after three failures in a
// row and half-opens after openFor.
func newBreaker(name string, openFor time.Duration) *CircuitBreakerClient {
	cfg := CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      openFor,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
	return NewCircuitBreakerClient(New(Config{Timeout: 5 * time.Second, MaxConnsPerHost: 4}), cfg, testLogger())
}

// statusServer answers with the status held in code and counts hits.
func statusServer(t *testing.T, code *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(code.Load()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hitN(cb *CircuitBreakerClient, url string, n int) {
	for range n {
		if resp, err := cb.Get(context.Background(), url); err == nil {
			_ = resp.Body.Close()
		}
	}
}

func TestCircuitBreaker_StatusHandling(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   gobreaker.State
	}{
		{"success keeps closed", http.StatusOK, gobreaker.StateClosed},
		{"missing picture keeps closed", http.StatusNotFound, gobreaker.StateClosed},
		{"bad request keeps closed", http.StatusBadRequest, gobreaker.StateClosed},
		{"server error trips", http.StatusInternalServerError, gobreaker.StateOpen},
		{"bad gateway trips", http.StatusBadGateway, gobreaker.StateOpen},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var code, hits atomic.Int32
			code.Store(int32(tc.status))
			srv := statusServer(t, &code, &hits)
			cb := newBreaker("status-"+tc.name, 5*time.Second)

			hitN(cb, srv.URL, 5)

			assert.Equal(t, tc.want, cb.State(srv.URL))
		})
	}
}

func TestCircuitBreaker_ServerErrorWrapsSentinel(t *testing.T) {
	var code, hits atomic.Int32
	code.Store(http.StatusInternalServerError)
	srv := statusServer(t, &code, &hits)

	_, err := newBreaker("sentinel", 5*time.Second).Get(context.Background(), srv.URL+"/broken.png")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerStatus)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_OpenRejectsWithoutCallingHost(t *testing.T) {
	var code, hits atomic.Int32
	code.Store(http.StatusServiceUnavailable)
	srv := statusServer(t, &code, &hits)
	cb := newBreaker("open-reject", 5*time.Second)

	hitN(cb, srv.URL, 3)
	require.Equal(t, gobreaker.StateOpen, cb.State(srv.URL))
	before := hits.Load()

	for range 4 {
		_, err := cb.Get(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, before, hits.Load())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	var code, hits atomic.Int32
	code.Store(http.StatusInternalServerError)
	srv := statusServer(t, &code, &hits)
	cb := newBreaker("recovery", 100*time.Millisecond)

	hitN(cb, srv.URL, 3)
	require.Equal(t, gobreaker.StateOpen, cb.State(srv.URL))

	time.Sleep(150 * time.Millisecond)
	code.Store(http.StatusOK)

	resp, err := cb.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, cb.State(srv.URL))
}

func TestCircuitBreaker_PerHostIsolation(t *testing.T) {
	var badCode, goodCode, hits atomic.Int32
	badCode.Store(http.StatusBadGateway)
	goodCode.Store(http.StatusOK)
	bad := statusServer(t, &badCode, &hits)
	good := statusServer(t, &goodCode, &hits)
	cb := newBreaker("per-host", 5*time.Second)

	hitN(cb, bad.URL, 3)
	hitN(cb, good.URL, 1)

	assert.Equal(t, gobreaker.StateOpen, cb.State(bad.URL))
	assert.Equal(t, gobreaker.StateClosed, cb.State(good.URL))
}

func TestCircuitBreaker_StateGauge(t *testing.T) {
	var code, hits atomic.Int32
	code.Store(http.StatusInternalServerError)
	srv := statusServer(t, &code, &hits)
	cb := newBreaker("gauge", 5*time.Second)

	hitN(cb, srv.URL, 3)

	host := srv.Listener.Addr().String()
	assert.Equal(t, 2.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("gauge", host)))
}

func TestCircuitBreaker_CanceledCallsDoNotTrip(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	cb := newBreaker("canceled", 5*time.Second)

	for range 4 {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := cb.Get(ctx, srv.URL)
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State(srv.URL))
}

func TestCircuitBreaker_StateOfUnknownHost(t *testing.T) {
	cb := NewCircuitBreakerClient(New(DefaultConfig()), DefaultCircuitBreakerConfig("unknown"), nil)

	assert.Equal(t, gobreaker.StateClosed, cb.State("https://never-contacted.example/a.png"))
	assert.Equal(t, gobreaker.StateClosed, cb.State("://bad"))
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("pictures")

	assert.Equal(t, "pictures", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.InDelta(t, 0.5, cfg.FailureRatio, 1e-9)
}
