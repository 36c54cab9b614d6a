package coingecko_common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	mock_coingecko_common "github.com/status-im/portfolio-proxy/coingecko_common/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"
)

type recordingStatusHandler struct {
	statuses []string
	retries  int
}

func (h *recordingStatusHandler) OnRequest(status string) { h.statuses = append(h.statuses, status) }
func (h *recordingStatusHandler) OnRetry()                { h.retries++ }

func fastRetryOptions(attempts int) RetryOptions {
	opts := DefaultRetryOptions()
	opts.MaxRetries = attempts
	opts.BaseBackoff = 10 * time.Millisecond
	opts.RequestTimeout = 2 * time.Second
	return opts
}

func newTestServer(t *testing.T, handler func(attempt int32, w http.ResponseWriter)) (*httptest.Server, *atomic.Int32) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(attempts.Add(1), w)
	}))
	t.Cleanup(server.Close)
	return server, &attempts
}

func TestHTTPClientWithRetries_Success(t *testing.T) {
	server, attempts := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"bitcoin":{"usd":45000}}`))
	})

	handler := &recordingStatusHandler{}
	client := NewHTTPClientWithRetries(fastRetryOptions(2), handler, nil)

	req, _ := http.NewRequest("GET", server.URL, nil)
	body, _, err := client.ExecuteRequest(context.Background(), req)

	require.NoError(t, err)
	assert.JSONEq(t, `{"bitcoin":{"usd":45000}}`, string(body))
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, []string{"success"}, handler.statuses)
}

func TestHTTPClientWithRetries_RetriesServerErrors(t *testing.T) {
	server, attempts := newTestServer(t, func(attempt int32, w http.ResponseWriter) {
		if attempt == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	handler := &recordingStatusHandler{}
	client := NewHTTPClientWithRetries(fastRetryOptions(2), handler, nil)

	req, _ := http.NewRequest("GET", server.URL, nil)
	_, _, err := client.ExecuteRequest(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 1, handler.retries)
	assert.Equal(t, []string{"error", "success"}, handler.statuses)
}

func TestHTTPClientWithRetries_DoesNotRetryRateLimit(t *testing.T) {
	server, attempts := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	handler := &recordingStatusHandler{}
	client := NewHTTPClientWithRetries(fastRetryOptions(3), handler, nil)

	req, _ := http.NewRequest("GET", server.URL, nil)
	_, _, err := client.ExecuteRequest(context.Background(), req)

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorKindRateLimited))
	assert.Contains(t, err.Error(), "retry after 60")
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, []string{"rate_limited"}, handler.statuses)
}

func TestHTTPClientWithRetries_DoesNotRetryClientErrors(t *testing.T) {
	server, attempts := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := NewHTTPClientWithRetries(fastRetryOptions(3), nil, nil)

	req, _ := http.NewRequest("GET", server.URL, nil)
	_, _, err := client.ExecuteRequest(context.Background(), req)

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorKindUpstreamFailure))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestHTTPClientWithRetries_AttemptTimeout(t *testing.T) {
	server, attempts := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	opts := fastRetryOptions(2)
	opts.RequestTimeout = 50 * time.Millisecond
	handler := &recordingStatusHandler{}
	client := NewHTTPClientWithRetries(opts, handler, nil)

	req, _ := http.NewRequest("GET", server.URL, nil)
	start := time.Now()
	_, _, err := client.ExecuteRequest(context.Background(), req)

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorKindTimeout), "got %v", err)
	assert.Equal(t, int32(2), attempts.Load(), "timeouts are retried")
	assert.Equal(t, []string{"timeout", "timeout"}, handler.statuses)
	assert.Less(t, time.Since(start), 1*time.Second)
}

func TestHTTPClientWithRetries_WaitsOnLimiter(t *testing.T) {
	server, _ := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
	})

	ctrl := gomock.NewController(t)
	mockManager := mock_coingecko_common.NewMockIRateLimiterManager(ctrl)

	limiter := rate.NewLimiter(rate.Every(300*time.Millisecond), 1)
	mockManager.EXPECT().GetLimiterForRequest(gomock.Any()).Return(limiter).Times(2)

	client := NewHTTPClientWithRetries(fastRetryOptions(1), nil, mockManager)
	req, _ := http.NewRequest("GET", server.URL, nil)

	start := time.Now()
	_, _, err := client.ExecuteRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond, "first request passes the burst")

	start = time.Now()
	_, _, err = client.ExecuteRequest(context.Background(), req)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond, "second request is spaced")
}

func TestHTTPClientWithRetries_LimiterContextCancellation(t *testing.T) {
	server, attempts := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
	})

	ctrl := gomock.NewController(t)
	mockManager := mock_coingecko_common.NewMockIRateLimiterManager(ctrl)

	limiter := rate.NewLimiter(rate.Every(10*time.Second), 1)
	limiter.Allow() // drain the burst
	mockManager.EXPECT().GetLimiterForRequest(gomock.Any()).Return(limiter)

	client := NewHTTPClientWithRetries(fastRetryOptions(1), nil, mockManager)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequest("GET", server.URL, nil)
	start := time.Now()
	_, _, err := client.ExecuteRequest(ctx, req)

	assert.True(t, IsKind(err, ErrorKindTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 50*time.Millisecond, "a slot past the deadline is not waited for")
	assert.Equal(t, int32(0), attempts.Load())

	// The unused slot was handed back
	assert.InDelta(t, 0, limiter.Tokens(), 0.1)
}

func TestHTTPClientWithRetries_LimiterWaitsWithinDeadline(t *testing.T) {
	server, attempts := newTestServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
	})

	ctrl := gomock.NewController(t)
	mockManager := mock_coingecko_common.NewMockIRateLimiterManager(ctrl)

	limiter := rate.NewLimiter(rate.Every(300*time.Millisecond), 1)
	limiter.Allow() // drain the burst
	mockManager.EXPECT().GetLimiterForRequest(gomock.Any()).Return(limiter)

	client := NewHTTPClientWithRetries(fastRetryOptions(1), nil, mockManager)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req, _ := http.NewRequest("GET", server.URL, nil)
	start := time.Now()
	_, _, err := client.ExecuteRequest(ctx, req)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestWaitForLimiter_Cancelled(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := waitForLimiter(ctx, limiter)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond

	assert.Equal(t, base, calculateBackoffWithJitter(base, 0))
	for attempt := 1; attempt <= 3; attempt++ {
		expected := base * time.Duration(1<<uint(attempt-1))
		backoff := calculateBackoffWithJitter(base, attempt)
		assert.GreaterOrEqual(t, backoff, expected)
		assert.Less(t, backoff, expected+expected/2)
	}
	assert.Equal(t, time.Duration(0), calculateBackoffWithJitter(0, 2))
}
