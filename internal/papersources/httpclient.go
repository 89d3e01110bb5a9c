package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/paper-discovery-service/internal/domain"
	"github.com/helixir/paper-discovery-service/internal/observability"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source labels metrics and errors (e.g., "openalex").
	Source string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts after the first.
	// Zero disables retries.
	MaxRetries int

	// RetryDelay is the backoff before the first retry. It doubles on
	// every further attempt.
	RetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff and Retry-After waits.
	MaxRetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key").
	APIKeyHeader string

	// Metrics is optional.
	Metrics *observability.Metrics
}

// HTTPClient wraps http.Client with rate limiting and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client with rate limiting.
// The client applies rate limiting before each request and automatically
// retries on network errors, 429 (Too Many Requests), and 5xx server errors.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Source == "" {
		cfg.Source = "unknown"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = max(1, int(cfg.RateLimit))
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-PaperDiscovery/1.0"
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

type endpointKey struct{}

// WithEndpoint labels requests made with ctx for metrics. Source adapters
// use a fixed name per operation so URL paths carrying identifiers never
// become label values.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

func endpointFromContext(ctx context.Context) string {
	if ep, ok := ctx.Value(endpointKey{}).(string); ok && ep != "" {
		return ep
	}
	return "other"
}

// Do executes an HTTP request with rate limiting and retries.
// It waits for the rate limiter before each request attempt,
// sets the User-Agent and optional API key headers, and retries transient
// failures with exponential backoff. A Retry-After header on a 429 or 5xx
// response overrides the computed backoff.
//
// Responses with other status codes, including 4xx, are returned to the
// caller unchanged. When retries are exhausted on a retryable status the
// error is a *domain.ExternalAPIError carrying that status; when they are
// exhausted on network errors the last network error is returned.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	ctx := req.Context()
	endpoint := endpointFromContext(ctx)
	metrics := c.config.Metrics

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordSourceRetry(c.config.Source)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		start := time.Now()
		resp, err := c.client.Do(req)
		metrics.RecordSourceRequest(c.config.Source, endpoint, time.Since(start).Seconds())

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			metrics.RecordSourceRequestFailed(c.config.Source, endpoint, "network")
			lastErr = fmt.Errorf("%s request failed: %w", c.config.Source, err)
			if attempt < c.config.MaxRetries {
				if err := c.prepareRetry(req, c.backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if !c.shouldRetry(resp.StatusCode) {
			if resp.StatusCode >= 400 {
				metrics.RecordSourceRequestFailed(c.config.Source, endpoint, strconv.Itoa(resp.StatusCode))
			}
			return resp, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			metrics.RecordSourceRateLimited(c.config.Source)
		}
		metrics.RecordSourceRequestFailed(c.config.Source, endpoint, strconv.Itoa(resp.StatusCode))
		retryDelay := c.getRetryDelay(resp, attempt)

		// Close the response body to free resources before retry
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt < c.config.MaxRetries {
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			if err := c.prepareRetry(req, retryDelay); err != nil {
				return nil, err
			}
			continue
		}

		return nil, domain.NewExternalAPIError(
			c.config.Source,
			resp.StatusCode,
			fmt.Sprintf("max retries exhausted after %d attempts", c.config.MaxRetries+1),
			lastErr,
		)
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

// prepareRetry sleeps for delay and rewinds the request body.
func (c *HTTPClient) prepareRetry(req *http.Request, delay time.Duration) error {
	if err := c.waitForRetry(req.Context(), delay); err != nil {
		return err
	}
	if err := c.resetRequestBody(req); err != nil {
		return fmt.Errorf("cannot retry request: %w", err)
	}
	return nil
}

// shouldRetry returns true if the status code indicates we should retry.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// backoff returns RetryDelay * 2^attempt, capped at MaxRetryDelay.
func (c *HTTPClient) backoff(attempt int) time.Duration {
	delay := c.config.RetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= c.config.MaxRetryDelay {
			return c.config.MaxRetryDelay
		}
	}
	return min(delay, c.config.MaxRetryDelay)
}

// getRetryDelay determines how long to wait before retrying.
// It respects the Retry-After header if present, otherwise uses exponential
// backoff. Either way the wait never exceeds MaxRetryDelay.
func (c *HTTPClient) getRetryDelay(resp *http.Response, attempt int) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.backoff(attempt)
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			if seconds > int64(c.config.MaxRetryDelay/time.Second) {
				return c.config.MaxRetryDelay
			}
			return time.Duration(seconds) * time.Second
		}
		return c.backoff(attempt)
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return min(delay, c.config.MaxRetryDelay)
		}
	}

	return c.backoff(attempt)
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
