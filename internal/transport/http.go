package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Kartavya-AI/ai-bot/internal/config"
)

// maxErrorBody caps how much of a failed response is kept on StatusError.
const maxErrorBody = 4 << 10

// Observer receives one call per outbound request attempt.
type Observer interface {
	ObserveOutbound(service, outcome string, d time.Duration)
}

// Options defines HTTP client configuration for one upstream service
type Options struct {
	Name         string
	BaseURL      string
	Headers      map[string]string
	Timeout      time.Duration
	RetryMax     int
	RetryBackoff time.Duration
	MaxIdleConns int
	IdleConnTTL  time.Duration

	// RateLimit is in requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	// BreakerFailures consecutive failures open the circuit; zero disables it.
	BreakerFailures int
	BreakerTimeout  time.Duration

	Observer Observer
}

// OptionsFromConfig fills Options from the shared transport settings.
func OptionsFromConfig(name, baseURL string, cfg config.TransportConfig) Options {
	return Options{
		Name:            name,
		BaseURL:         baseURL,
		Timeout:         cfg.Timeout,
		RetryMax:        cfg.RetryMax,
		RetryBackoff:    cfg.RetryBackoff,
		RateLimit:       cfg.RateLimit,
		Burst:           cfg.Burst,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, body)
}

// Retryable reports whether the status is worth retrying
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client provides a tuned HTTP client for JSON REST services
type Client struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewClient creates a new HTTP client with the specified options
func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 10
	}
	if opts.IdleConnTTL == 0 {
		opts.IdleConnTTL = 90 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        opts.MaxIdleConns,
		MaxIdleConnsPerHost: opts.MaxIdleConns,
		IdleConnTimeout:     opts.IdleConnTTL,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	c := &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts:   opts,
		logger: logger.With().Str("service", opts.Name).Logger(),
	}

	c.limiter = newLimiter(opts.RateLimit, opts.Burst)
	if opts.BreakerFailures > 0 {
		c.breaker = newBreaker(opts, c.logger)
	}

	return c
}

// Name returns the upstream service name
func (c *Client) Name() string { return c.opts.Name }

// URL joins path onto the configured base URL
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.opts.BaseURL + path
}

// Do performs a request with the circuit breaker and retry on 5xx/429. Every
// attempt, retries included, waits on the rate limiter. The body is replayed
// on every attempt. A non-2xx response is returned as *StatusError and its
// body is already closed.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	if c.breaker == nil {
		return c.doWithRetry(ctx, method, path, body, headers)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.doWithRetry(ctx, method, path, body, headers)
		var se *StatusError
		if (errors.As(err, &se) && !se.Retryable()) || errors.Is(err, errThrottled) {
			// client errors and local throttling say nothing about upstream health
			return &breakerPassthrough{err: err}, nil
		}
		return resp, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: circuit breaker: %w", c.opts.Name, err)
		}
		return nil, err
	}
	if pt, ok := out.(*breakerPassthrough); ok {
		return nil, pt.err
	}
	return out.(*http.Response), nil
}

type breakerPassthrough struct{ err error }

func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	url := c.URL(path)

	var lastErr error
	for attempt := 0; attempt <= c.opts.RetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.RetryBackoff * time.Duration(attempt)):
			}
		}
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to build request: %w", c.opts.Name, err)
		}
		c.setHeaders(req, headers)

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			c.observe("error", start)
			lastErr = fmt.Errorf("%s: request failed: %w", c.opts.Name, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.observe("success", start)
			return resp, nil
		}

		c.observe(fmt.Sprintf("%dxx", resp.StatusCode/100), start)
		se := readStatusError(c.opts.Name, resp)
		lastErr = se
		if !se.Retryable() {
			return nil, se
		}
		c.logger.Warn().Int("status", se.StatusCode).Int("attempt", attempt+1).Msg("upstream error")
	}

	return nil, lastErr
}

func (c *Client) setHeaders(req *http.Request, headers map[string]string) {
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "botcrew/1.0")
	for key, value := range c.opts.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}

func (c *Client) observe(outcome string, start time.Time) {
	if c.opts.Observer != nil {
		c.opts.Observer.ObserveOutbound(c.opts.Name, outcome, time.Since(start))
	}
}

func readStatusError(service string, resp *http.Response) *StatusError {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       string(data),
	}
}

// JSON sends in (when non-nil) as a JSON body and decodes the response into
// out (when non-nil).
func (c *Client) JSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", c.opts.Name, err)
		}
		body = data
	}

	resp, err := c.Do(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", c.opts.Name, err)
	}
	return nil
}

// PostJSON is shorthand for JSON with POST
func (c *Client) PostJSON(ctx context.Context, path string, in, out interface{}) error {
	return c.JSON(ctx, http.MethodPost, path, in, out)
}

// GetJSON is shorthand for JSON with GET
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	return c.JSON(ctx, http.MethodGet, path, nil, out)
}
