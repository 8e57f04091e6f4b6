// Package uv provides the optional UV index façade backed by OpenUV. The
// whole feature is disabled when no API key is configured.
package uv

import (
	"context"
	"net/http"
	"time"

	"weathergo/internal/apiclient"
	"weathergo/internal/cache"
	"weathergo/internal/core"
)

const (
	// DefaultBaseURL is the OpenUV API endpoint.
	DefaultBaseURL = "https://api.openuv.io"

	providerName = "uv"
)

var indexPolicy = cache.TTL(1 * time.Hour)

// Config holds UV provider configuration.
type Config struct {
	// BaseURL defaults to the public API when empty.
	BaseURL string

	// APIKey enables the provider; empty means disabled.
	APIKey string

	// Retry overrides the default retry policy when non-zero.
	Retry apiclient.RetryPolicy

	// Hooks receives client lifecycle notifications.
	Hooks apiclient.Hooks
}

// Client is the UV index façade. A nil *Client is valid and reports itself
// disabled, so callers can hold one unconditionally.
type Client struct {
	api   *apiclient.Client
	cache *cache.Cache
}

// New creates a UV client, or nil when no API key is configured.
func New(cfg Config, c *cache.Cache) *Client {
	return NewWithHTTPClient(nil, cfg, c)
}

// NewWithHTTPClient creates a UV client with a custom HTTP client (nil for
// the default). Returns nil when no API key is configured.
func NewWithHTTPClient(httpClient *http.Client, cfg Config, c *cache.Cache) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	apiCfg := apiclient.DefaultConfig(providerName, baseURL)
	if len(cfg.Retry.RateLimitDelays) > 0 || cfg.Retry.ServerRetries > 0 {
		apiCfg.Retry = cfg.Retry
	}
	apiCfg.Hooks = cfg.Hooks

	headers := func(req *http.Request) {
		req.Header.Set("x-access-token", cfg.APIKey)
	}

	var api *apiclient.Client
	if httpClient != nil {
		api = apiclient.NewWithHTTPClient(httpClient, apiCfg, headers)
	} else {
		api = apiclient.New(apiCfg, headers)
	}
	return &Client{api: api, cache: c}
}

// Enabled reports whether the provider was configured with a credential.
func (c *Client) Enabled() bool {
	return c != nil
}

type indexResponse struct {
	Result struct {
		UV        float64   `json:"uv"`
		UVTime    time.Time `json:"uv_time"`
		UVMax     float64   `json:"uv_max"`
		UVMaxTime time.Time `json:"uv_max_time"`
	} `json:"result"`
}

// Index returns the UV index for a coordinate pair, keyed by rounded
// coordinates like the grid lookup.
func (c *Client) Index(ctx context.Context, lat, lon float64) (core.UVIndex, error) {
	key := "uv:" + core.CoordKey(lat, lon)
	return cache.GetOrFetch(ctx, c.cache, key, indexPolicy, func(ctx context.Context) (core.UVIndex, error) {
		var resp indexResponse
		endpoint := "/api/v1/uv?lat=" + core.RoundCoord(lat) + "&lng=" + core.RoundCoord(lon)
		if err := c.api.Get(ctx, endpoint, &resp); err != nil {
			return core.UVIndex{}, err
		}
		return core.UVIndex{
			Value:   resp.Result.UV,
			MaxUV:   resp.Result.UVMax,
			MaxAt:   resp.Result.UVMaxTime,
			TakenAt: resp.Result.UVTime,
		}, nil
	})
}

// InvalidatePoint drops the UV reading cached for a coordinate pair.
func (c *Client) InvalidatePoint(lat, lon float64) {
	if c == nil {
		return
	}
	c.cache.Delete("uv:" + core.CoordKey(lat, lon))
}

// CacheStats returns the UV cache snapshot (zero when disabled).
func (c *Client) CacheStats() cache.Stats {
	if c == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// ClearCache drops all UV entries.
func (c *Client) ClearCache() {
	if c == nil {
		return
	}
	c.cache.Clear()
}
