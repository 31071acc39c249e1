// Package transport is the HTTP plumbing shared by the remote place
// providers: request pacing, bounded retries and mapping of HTTP failures
// onto the provider failure taxonomy.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/version"
)

const (
	// DefaultTimeout caps a single HTTP exchange. The per-provider context
	// deadline is normally much shorter.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default request rate (requests per second).
	DefaultRateLimit = 10

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 4 << 10
)

// Client performs paced, retried JSON GET requests for one provider.
type Client struct {
	source     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      errors.RetryConfig
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRateLimit sets the request rate. Non-positive values disable pacing.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithRetry sets the retry policy.
func WithRetry(cfg errors.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the named provider.
func New(source string, opts ...Option) *Client {
	c := &Client{
		source: source,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		retry:   errors.ProviderRetryConfig(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetJSON fetches endpoint with params and decodes the JSON body into out.
//
// Unavailable failures (5xx, transport errors) are retried while the
// context allows. Every returned error is either a context error or a
// provider failure carrying a failure kind.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	return errors.Retry(ctx, c.retry, func() error {
		return c.getOnce(ctx, endpoint, reqURL, out)
	})
}

func (c *Client) getOnce(ctx context.Context, endpoint, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The next slot lies beyond the deadline.
		return errors.RateLimited(c.source, "local request pacing exceeded the deadline", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.RequestError(c.source, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.AsProviderFailure(c.source, err)
	}
	defer resp.Body.Close()

	// Endpoint only: the query string carries credentials.
	c.logger.Debug("provider_http_response",
		slog.String("provider", c.source),
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.FromHTTPStatus(c.source, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Unavailable(c.source, fmt.Sprintf("invalid response body: %v", err), err)
	}
	return nil
}
