package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveOutbound(service, outcome string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, service+":"+outcome)
}

func TestClientPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/echo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Token abc", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"hello"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"world"}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewClient(Options{
		Name:     "echo",
		BaseURL:  srv.URL + "/",
		Headers:  map[string]string{"Authorization": "Token abc"},
		Observer: obs,
	}, zerolog.Nop())

	var out struct {
		Answer string `json:"answer"`
	}
	err := c.PostJSON(context.Background(), "v1/echo", map[string]string{"query": "hello"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "world", out.Answer)
	assert.Equal(t, []string{"echo:success"}, obs.outcomes)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad token"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Name: "mem0", BaseURL: srv.URL}, zerolog.Nop())
	err := c.GetJSON(context.Background(), "/v1/memories/", nil)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.False(t, se.Retryable())
	assert.Contains(t, err.Error(), "bad token")
}

func TestClientNoRetryByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Options{Name: "svc", BaseURL: srv.URL}, zerolog.Nop())
	err := c.PostJSON(context.Background(), "/x", map[string]int{"n": 1}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"n":1}`, string(body), "body must be replayed on retry")
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Options{
		Name:         "svc",
		BaseURL:      srv.URL,
		RetryMax:     2,
		RetryBackoff: time.Millisecond,
	}, zerolog.Nop())

	err := c.PostJSON(context.Background(), "/x", map[string]int{"n": 1}, &map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientCircuitBreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Options{
		Name:            "flaky",
		BaseURL:         srv.URL,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, zerolog.Nop())

	for i := 0; i < 2; i++ {
		err := c.GetJSON(context.Background(), "/", nil)
		require.Error(t, err)
	}

	err := c.GetJSON(context.Background(), "/", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "open circuit must not reach upstream")
}

func TestClientBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Options{Name: "strict", BaseURL: srv.URL, BreakerFailures: 1}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		err := c.GetJSON(context.Background(), "/", nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	}
}

func TestClientURL(t *testing.T) {
	c := NewClient(Options{BaseURL: "https://api.example.com/"}, zerolog.Nop())
	assert.Equal(t, "https://api.example.com/v1/search", c.URL("v1/search"))
	assert.Equal(t, "https://api.example.com/v1/search", c.URL("/v1/search"))
	assert.Equal(t, "https://other.example.com/x", c.URL("https://other.example.com/x"))
}

func TestClientRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewClient(Options{Name: "limited", BaseURL: srv.URL, RateLimit: 0.5, Burst: 1, Observer: obs}, zerolog.Nop())

	require.NoError(t, c.GetJSON(context.Background(), "/", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.GetJSON(ctx, "/", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, []string{"limited:success", "limited:throttled"}, obs.outcomes)
}

func TestClientRetriesWaitOnRateLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := NewClient(Options{
		Name:            "limited",
		BaseURL:         srv.URL,
		RetryMax:        3,
		RetryBackoff:    time.Millisecond,
		RateLimit:       0.5,
		Burst:           1,
		BreakerFailures: 1,
		Observer:        obs,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := c.GetJSON(ctx, "/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errThrottled)

	// the retry was held back by the limiter instead of reaching the server
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, []string{"limited:5xx", "limited:throttled"}, obs.outcomes)
	// local throttling does not count against the upstream
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
}

func TestNewLimiterDisabled(t *testing.T) {
	assert.Nil(t, newLimiter(0, 10))
	l := newLimiter(5, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
