// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

// throttleServer answers the first n requests with status and then 200.
func throttleServer(t *testing.T, status int, n int32, calls *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(calls, 1) <= n {
			w.WriteHeader(status)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusInternalServerError, false},
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{529, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Retryable(tt.status), "status %d", tt.status)
	}
}

// get issues a GET to ts through DoWithRetry and returns the final status.
func get(t *testing.T, ts *httptest.Server, maxRetries int) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)
	resp, err := DoWithRetry(context.Background(), ts.Client(), req, maxRetries)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		throttled  int32
		maxRetries int
		wantCalls  int32
		wantStatus int
	}{
		{"first try succeeds", http.StatusOK, 0, 5, 1, http.StatusOK},
		{"two 429s recover", http.StatusTooManyRequests, 2, 5, 3, http.StatusOK},
		{"one 503 recovers", http.StatusServiceUnavailable, 1, 5, 2, http.StatusOK},
		{"one 529 recovers", 529, 1, 5, 2, http.StatusOK},
		{"500 is not retried", http.StatusInternalServerError, 10, 5, 1, http.StatusInternalServerError},
		{"gives up after max retries", http.StatusTooManyRequests, 100, 3, 4, http.StatusTooManyRequests},
		{"zero uses default of five", http.StatusTooManyRequests, 100, 0, 6, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := throttleServer(t, tt.status, tt.throttled, &calls)
			assert.Equal(t, tt.wantStatus, get(t, ts, tt.maxRetries))
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	var calls int32
	ts := throttleServer(t, http.StatusTooManyRequests, 100, &calls)

	old := RetryBaseDelay
	RetryBaseDelay = time.Second
	t.Cleanup(func() { RetryBaseDelay = old })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetry_ReplaysPostBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		n := len(bodies)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, bytes.NewReader([]byte(`{"q":"x"}`)))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 2)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{`{"q":"x"}`, `{"q":"x"}`}, bodies)
}

func TestBackoff_RetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, 4*RetryBaseDelay, backoff(resp, 2))

	resp.Header.Set("Retry-After", "3")
	assert.Equal(t, 3*time.Second, backoff(resp, 0))

	resp.Header.Set("Retry-After", "100000")
	assert.Equal(t, MaxRetryAfter, backoff(resp, 0))

	resp.Header.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	assert.Equal(t, RetryBaseDelay, backoff(resp, 0))
}
