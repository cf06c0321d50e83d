package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mescon/Hassarr/internal/logger"
)

// Observer receives one call per upstream round trip. status is 0 when no
// response was received.
type Observer interface {
	ObserveRequest(service, route string, status int, d time.Duration)
}

// ClientOptions holds the shared wiring for upstream clients.
type ClientOptions struct {
	HTTPClient *http.Client
	Limiter    *RateLimiter
	Breaker    *CircuitBreaker
	Observer   Observer
	// MaxRetries is the number of attempts for idempotent requests. Default: 3
	MaxRetries int
	// RetryDelay is multiplied by the attempt number between retries. Default: 1s
	RetryDelay time.Duration
}

// NormalizeBaseURL prefixes a scheme-less URL with https:// and drops trailing slashes.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return strings.TrimRight(raw, "/")
}

// restClient performs authenticated JSON requests against one service.
type restClient struct {
	name       string
	base       string
	apiKey     string
	http       *http.Client
	limiter    *RateLimiter
	breaker    *CircuitBreaker
	observer   Observer
	log        logger.Component
	maxRetries int
	retryDelay time.Duration
}

func newRESTClient(name, baseURL, apiKey string, opts ClientOptions) *restClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Breaker == nil {
		opts.Breaker = NewCircuitBreaker(name, DefaultCircuitBreakerConfig())
	}
	return &restClient{
		name:       name,
		base:       NormalizeBaseURL(baseURL),
		apiKey:     apiKey,
		http:       opts.HTTPClient,
		limiter:    opts.Limiter,
		breaker:    opts.Breaker,
		observer:   opts.Observer,
		log:        logger.Named(name),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
}

func (c *restClient) configured() bool {
	return c.base != "" && c.apiKey != ""
}

// isRetryableError checks if an error is a transient network error worth retrying.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if os.IsTimeout(err) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"eof",
		"connection timed out",
		"temporary failure",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func isSuccess(code int) bool {
	return code == http.StatusOK || code == http.StatusCreated || code == http.StatusNoContent
}

// do sends one request and decodes the JSON body into out (when non-nil).
// route is a low-cardinality label for metrics, endpoint the path plus query.
// GET requests are retried on transient transport errors.
func (c *restClient) do(ctx context.Context, route, method, endpoint string, body, out any) error {
	if !c.configured() {
		return fmt.Errorf("%s: %w", c.name, ErrNotConfigured)
	}
	if !c.breaker.Allow() {
		c.log.Warnf("Circuit breaker OPEN - rejecting %s %s", method, endpoint)
		return fmt.Errorf("%w: %s is unhealthy", ErrCircuitOpen, c.name)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s body: %w", route, err)
		}
	}

	reqURL := c.base + "/" + strings.TrimLeft(endpoint, "/")
	attempts := 1
	if method == http.MethodGet {
		attempts = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		status, respBody, err := c.roundTrip(ctx, route, method, reqURL, payload)
		if err != nil {
			lastErr = err
			if !isRetryableError(err) || attempt == attempts-1 {
				break
			}
			c.log.Infof("%s %s failed (attempt %d/%d): %v, retrying...", method, route, attempt+1, attempts, err)
			select {
			case <-ctx.Done():
				c.breaker.RecordFailure()
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * c.retryDelay):
			}
			continue
		}

		if status >= 500 {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}

		if !isSuccess(status) {
			apiErr := &APIError{StatusCode: status, Body: truncateBody(respBody), Method: method, URL: reqURL}
			c.log.Errorf("%v", apiErr)
			return apiErr
		}
		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			decErr := &DecodeError{URL: reqURL, Snippet: truncateBody(respBody), Err: err}
			c.log.Errorf("%v", decErr)
			return decErr
		}
		return nil
	}

	c.breaker.RecordFailure()
	if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return lastErr
	}
	c.log.Errorf("%s %s: %v", method, reqURL, lastErr)
	return fmt.Errorf("%s request failed: %w", c.name, lastErr)
}

func (c *restClient) roundTrip(ctx context.Context, route, method, reqURL string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(route, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Debugf("Failed to close response body: %v", closeErr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	c.observe(route, resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	c.log.Debugf("%s %s -> %d (%d bytes)", method, route, resp.StatusCode, len(data))
	return resp.StatusCode, data, nil
}

func (c *restClient) observe(route string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(c.name, route, status, d)
	}
}
