package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"aqualink/internal/logging"
	"aqualink/internal/session"
)

// Client talks to the water-treatment backend. One instance serves all
// endpoint groups (dashboard, measurements, limits, alarms, reports).
// Idempotent GETs are retried with exponential backoff and jitter;
// mutating requests are issued exactly once.
type Client struct {
	sess              *session.Session
	http              *http.Client
	logger            *slog.Logger
	maxRetries        int
	retryDelay        time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitterPercent     int
	rng               *rand.Rand // Per-client RNG for jitter to prevent thundering herd
	rngMu             sync.Mutex // Protects rng for concurrent access
}

// Config configures the backend client
type Config struct {
	Timeout           time.Duration // Default: 30s
	MaxRetries        *int          // Default: 3. Use nil for default, &0 for explicitly 0 (no retries)
	RetryDelay        time.Duration // Base delay for exponential backoff, default: 1s
	MaxBackoff        time.Duration // Maximum backoff delay, default: 30s
	BackoffMultiplier float64       // Backoff multiplier, default: 2.0
	JitterPercent     *int          // Jitter percentage (0-100), default: 20. Use nil for default, &0 for explicitly 0
}

// New creates a backend client with default settings
func New(sess *session.Session) *Client {
	return NewWithConfig(sess, Config{})
}

// NewWithConfig creates a backend client with custom configuration
func NewWithConfig(sess *session.Session, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxRetries := 3
	if cfg.MaxRetries != nil {
		maxRetries = *cfg.MaxRetries
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 1 * time.Second
	}

	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	backoffMultiplier := cfg.BackoffMultiplier
	if backoffMultiplier == 0 {
		backoffMultiplier = 2.0
	}

	jitterPercent := 20
	if cfg.JitterPercent != nil {
		jitterPercent = *cfg.JitterPercent
	}

	return &Client{
		sess:              sess,
		logger:            logging.Default(),
		maxRetries:        maxRetries,
		retryDelay:        retryDelay,
		maxBackoff:        maxBackoff,
		backoffMultiplier: backoffMultiplier,
		jitterPercent:     jitterPercent,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Close releases idle connections
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// getJSON issues a retried GET and decodes the response body into out
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	body, err := c.getWithRetry(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// getWithRetry issues a GET with exponential backoff retry
func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Check context before each attempt
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		body, err := c.do(ctx, http.MethodGet, url, nil)
		if err == nil {
			return body, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, fmt.Errorf("non-retryable error: %w", err)
		}

		// Don't sleep after the last attempt
		if attempt < c.maxRetries {
			delay := c.calculateBackoff(attempt, err)
			c.logger.LogAttrs(ctx, slog.LevelWarn, "Retrying request",
				logging.RetryAttrs(attempt+1, delay.Milliseconds(), err)...)
			select {
			case <-time.After(delay):
				// Continue to next attempt
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// putJSON issues a single PUT carrying a JSON body, no retry
func (c *Client) putJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, url, body)
	return err
}

// do performs one HTTP exchange and maps the status code onto the
// typed error taxonomy
func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "aqualink-agent/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.sess.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()

	// Read response body (limited to prevent memory issues)
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024)) // 16MB limit
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	switch resp.StatusCode {
	case http.StatusBadRequest: // 400
		return nil, &NonRetryableError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("bad request: %s", string(respBody)),
		}
	case http.StatusUnauthorized, http.StatusForbidden: // 401, 403
		return nil, &NonRetryableError{
			StatusCode: resp.StatusCode,
			Message:    "unauthorized - check auth token",
		}
	case http.StatusNotFound: // 404
		return nil, &NonRetryableError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("not found: %s", url),
		}
	case http.StatusTooManyRequests: // 429
		return nil, &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		// 500, 502, 503, 504 - server errors are retryable
		return nil, &RetryableError{
			Err: fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody)),
		}
	default:
		// Other errors are retryable by default
		return nil, &RetryableError{
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody)),
		}
	}
}

// Error types for retry logic

// RetryableError indicates an error that should be retried
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NonRetryableError indicates an error that should not be retried
type NonRetryableError struct {
	StatusCode int
	Message    string
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable error (status %d): %s", e.StatusCode, e.Message)
}

// RateLimitError indicates rate limiting with optional Retry-After
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (status %d): retry after %v", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (status %d)", e.StatusCode)
}

// isRetryable checks if an error should be retried
func isRetryable(err error) bool {
	var nonRetryable *NonRetryableError
	if errors.As(err, &nonRetryable) {
		return false
	}

	// Rate limits and retryable errors should be retried
	return true
}

// calculateBackoff calculates exponential backoff with jitter
func (c *Client) calculateBackoff(attempt int, err error) time.Duration {
	// Check for Retry-After header in rate limit errors
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) && rateLimitErr.RetryAfter > 0 {
		c.rngMu.Lock()
		jitter := time.Duration(c.rng.Float64() * float64(time.Second))
		c.rngMu.Unlock()
		return rateLimitErr.RetryAfter + jitter
	}

	// Exponential backoff: baseDelay * multiplier^attempt
	backoff := float64(c.retryDelay) * math.Pow(c.backoffMultiplier, float64(attempt))

	if backoff > float64(c.maxBackoff) {
		backoff = float64(c.maxBackoff)
	}

	jitterFraction := float64(c.jitterPercent) / 100.0
	c.rngMu.Lock()
	jitter := backoff * jitterFraction * (c.rng.Float64()*2 - 1)
	c.rngMu.Unlock()
	backoff += jitter

	return time.Duration(backoff)
}

// parseRetryAfter parses the Retry-After header (seconds or HTTP date)
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	// Try parsing as seconds
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP date
	if t, err := time.Parse(time.RFC1123, header); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	return 0
}
