// Package geocode provides the ZIP-to-coordinates façade backed by the
// Zippopotam API.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"weathergo/internal/apiclient"
	"weathergo/internal/cache"
	"weathergo/internal/core"
)

const (
	// DefaultBaseURL is the public Zippopotam endpoint.
	DefaultBaseURL = "https://api.zippopotam.us"

	providerName = "geocode"
)

// ZIP-to-coordinate assignments are essentially static, so a day of caching
// is conservative.
var lookupPolicy = cache.TTL(24 * time.Hour)

// Bounding box for plausible US coordinates (including Alaska and Hawaii).
// Results outside it are treated as corrupt upstream data, not as a
// geographic limit of the system.
const (
	minLatitude  = 24.0
	maxLatitude  = 72.0
	minLongitude = -180.0
	maxLongitude = -65.0
)

// Config holds geocoder configuration.
type Config struct {
	// BaseURL defaults to the public API when empty.
	BaseURL string

	// Retry overrides the default retry policy when non-zero.
	Retry apiclient.RetryPolicy

	// Hooks receives client lifecycle notifications.
	Hooks apiclient.Hooks
}

// Client is the geocoding façade.
type Client struct {
	api   *apiclient.Client
	cache *cache.Cache
}

// New creates a geocoder backed by the given cache.
func New(cfg Config, c *cache.Cache) *Client {
	return NewWithHTTPClient(nil, cfg, c)
}

// NewWithHTTPClient creates a geocoder with a custom HTTP client (nil for
// the default).
func NewWithHTTPClient(httpClient *http.Client, cfg Config, c *cache.Cache) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	apiCfg := apiclient.DefaultConfig(providerName, baseURL)
	if len(cfg.Retry.RateLimitDelays) > 0 || cfg.Retry.ServerRetries > 0 {
		apiCfg.Retry = cfg.Retry
	}
	apiCfg.Hooks = cfg.Hooks

	var api *apiclient.Client
	if httpClient != nil {
		api = apiclient.NewWithHTTPClient(httpClient, apiCfg, nil)
	} else {
		api = apiclient.New(apiCfg, nil)
	}
	return &Client{api: api, cache: c}
}

// Zippopotam returns coordinates as strings.
type lookupResponse struct {
	Places []struct {
		PlaceName string `json:"place name"`
		State     string `json:"state abbreviation"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"places"`
}

// Lookup resolves a ZIP code to coordinates. The ZIP is validated before any
// cache or remote interaction; an unknown ZIP surfaces as a not-found error
// from the upstream.
func (c *Client) Lookup(ctx context.Context, zip string) (core.Coordinates, error) {
	z, err := core.NormalizeZIP(zip)
	if err != nil {
		return core.Coordinates{}, err
	}

	return cache.GetOrFetch(ctx, c.cache, "zip:"+z, lookupPolicy, func(ctx context.Context) (core.Coordinates, error) {
		var resp lookupResponse
		if err := c.api.Get(ctx, "/us/"+z, &resp); err != nil {
			return core.Coordinates{}, err
		}
		if len(resp.Places) == 0 {
			return core.Coordinates{}, core.NewNotFoundError(providerName,
				fmt.Sprintf("no places found for ZIP %s", z))
		}

		place := resp.Places[0]
		lat, latErr := strconv.ParseFloat(place.Latitude, 64)
		lon, lonErr := strconv.ParseFloat(place.Longitude, 64)
		if latErr != nil || lonErr != nil {
			return core.Coordinates{}, core.NewInvalidUpstreamDataError(providerName,
				fmt.Sprintf("unparseable coordinates %q,%q for ZIP %s", place.Latitude, place.Longitude, z))
		}
		if lat < minLatitude || lat > maxLatitude || lon < minLongitude || lon > maxLongitude {
			return core.Coordinates{}, core.NewInvalidUpstreamDataError(providerName,
				fmt.Sprintf("coordinates %.4f,%.4f for ZIP %s are outside the plausible US bounding box", lat, lon, z))
		}

		return core.Coordinates{
			Latitude:  lat,
			Longitude: lon,
			City:      place.PlaceName,
			State:     place.State,
		}, nil
	})
}

// Invalidate drops the cached coordinates for a ZIP.
func (c *Client) Invalidate(zip string) {
	if z, err := core.NormalizeZIP(zip); err == nil {
		c.cache.Delete("zip:" + z)
	}
}

// CacheStats returns the geocode cache snapshot.
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// ClearCache drops all geocode entries.
func (c *Client) ClearCache() {
	c.cache.Clear()
}
