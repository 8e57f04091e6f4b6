// Package apiclient provides a base HTTP client for the upstream data APIs with:
// - JSON response unmarshaling
// - Error classification by upstream status (429, 5xx, 404)
// - Class-specific retry budgets with backoff
package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"weathergo/internal/core"
	"weathergo/internal/httpclient"
)

const maxBodySize = 4 * 1024 * 1024 // 4 MB, far above any upstream payload

// Hooks receives client lifecycle notifications for metrics collection.
// All fields are optional.
type Hooks struct {
	// OnRequest fires before each attempt, including retries.
	OnRequest func(provider string)
	// OnRetry fires before a backoff sleep, with the failure class that triggered it.
	OnRetry func(provider string, class core.ErrorType)
	// OnResult fires once per Get call with the final outcome.
	OnResult func(provider string, err error, elapsed time.Duration)
}

// Config holds configuration for an upstream API client.
type Config struct {
	// Provider identifies the upstream for error messages and metrics.
	Provider string

	// BaseURL is the API base URL.
	BaseURL string

	// Retry is the class-specific retry policy.
	Retry RetryPolicy

	// Hooks receives lifecycle notifications.
	Hooks Hooks
}

// DefaultConfig returns a client configuration with the default retry policy.
func DefaultConfig(provider, baseURL string) Config {
	return Config{
		Provider: provider,
		BaseURL:  baseURL,
		Retry:    DefaultRetryPolicy(),
	}
}

// HeaderSetter is a function that sets headers on an HTTP request.
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for the upstream data APIs.
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
	retryer      *Retryer
}

// New creates a new API client with the given configuration.
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config, headerSetter)
}

// NewWithHTTPClient creates a new API client with a custom HTTP client.
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
		retryer:      NewRetryer(config.Provider, config.Retry, config.Hooks),
	}
}

// SetBaseURL updates the base URL.
func (c *Client) SetBaseURL(url string) {
	c.config.BaseURL = url
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Provider returns the provider name this client talks to.
func (c *Client) Provider() string {
	return c.config.Provider
}

// Get executes a GET request through the retry executor and unmarshals the
// JSON response into result. Errors carry the taxonomy classification.
func (c *Client) Get(ctx context.Context, endpoint string, result any) error {
	start := time.Now()
	err := c.retryer.Do(ctx, func(ctx context.Context) error {
		return c.getOnce(ctx, endpoint, result)
	})
	if c.config.Hooks.OnResult != nil {
		c.config.Hooks.OnResult(c.config.Provider, err, time.Since(start))
	}
	return err
}

// getOnce executes a single GET attempt without retries.
func (c *Client) getOnce(ctx context.Context, endpoint string, result any) error {
	if c.config.Hooks.OnRequest != nil {
		c.config.Hooks.OnRequest(c.config.Provider)
	}

	url := c.config.BaseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.NewNetworkError(c.config.Provider, "failed to create request: "+err.Error(), err)
	}
	req.Header.Set("Accept", "application/json")
	if c.headerSetter != nil {
		c.headerSetter(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewNetworkError(c.config.Provider, "request failed: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return core.NewNetworkError(c.config.Provider, "failed to read response: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.classify(resp.StatusCode, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return core.NewInvalidUpstreamDataError(c.config.Provider, "failed to parse response: "+err.Error())
		}
	}
	return nil
}

// classify maps a non-200 upstream status to a taxonomy error. The retry
// executor decides from the classification whether and how to retry.
func (c *Client) classify(statusCode int, body []byte) *core.APIError {
	message := truncate(string(body), 512)
	switch {
	case statusCode == http.StatusTooManyRequests:
		return core.NewRateLimitError(c.config.Provider, message)
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return core.NewNotFoundError(c.config.Provider, message)
	case statusCode >= 500:
		return core.NewUpstreamServerError(c.config.Provider, statusCode, message, nil)
	default:
		// Other 4xx: the upstream rejected a request we built, which means the
		// contract is broken. Not retryable.
		return core.NewInvalidUpstreamDataError(c.config.Provider,
			"upstream rejected request with status "+http.StatusText(statusCode)+": "+message)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
