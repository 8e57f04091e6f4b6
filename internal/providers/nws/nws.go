// Package nws provides the National Weather Service API façade: grid point
// resolution, forecasts, station observations and active alerts, each with
// its own cache TTL.
package nws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"weathergo/internal/apiclient"
	"weathergo/internal/cache"
	"weathergo/internal/core"
)

const (
	// DefaultBaseURL is the public NWS API endpoint.
	DefaultBaseURL = "https://api.weather.gov"

	providerName = "nws"
)

// TTL policies per data kind. Grid assignments effectively never change, so
// point lookups and station lists are long-lived; forecasts roll hourly;
// observations update every few minutes; alerts are never cached.
var (
	pointsPolicy      = cache.TTL(24 * time.Hour)
	forecastPolicy    = cache.TTL(1 * time.Hour)
	stationsPolicy    = cache.TTL(7 * 24 * time.Hour)
	observationPolicy = cache.TTL(10 * time.Minute)
	alertsPolicy      = cache.NoStore
)

// Config holds NWS client configuration.
type Config struct {
	// BaseURL defaults to the public API when empty.
	BaseURL string

	// UserAgent is required by api.weather.gov usage policy; requests
	// without one may be rejected.
	UserAgent string

	// Retry overrides the default retry policy when non-zero.
	Retry apiclient.RetryPolicy

	// Hooks receives client lifecycle notifications.
	Hooks apiclient.Hooks
}

// Client is the NWS façade. One instance is constructed at process start and
// shared; it is safe for concurrent use.
type Client struct {
	api   *apiclient.Client
	cache *cache.Cache
}

// New creates an NWS client backed by the given cache.
func New(cfg Config, c *cache.Cache) *Client {
	return NewWithHTTPClient(nil, cfg, c)
}

// NewWithHTTPClient creates an NWS client with a custom HTTP client (nil for
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

	headers := func(req *http.Request) {
		if cfg.UserAgent != "" {
			req.Header.Set("User-Agent", cfg.UserAgent)
		}
	}

	var api *apiclient.Client
	if httpClient != nil {
		api = apiclient.NewWithHTTPClient(httpClient, apiCfg, headers)
	} else {
		api = apiclient.New(apiCfg, headers)
	}
	return &Client{api: api, cache: c}
}

// quantValue is the NWS unit-tagged measurement wrapper. Values are null
// when the station did not report the field.
type quantValue struct {
	Value *float64 `json:"value"`
}

type pointsResponse struct {
	Properties struct {
		GridID string `json:"gridId"`
		GridX  int    `json:"gridX"`
		GridY  int    `json:"gridY"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		GeneratedAt time.Time `json:"generatedAt"`
		Periods     []struct {
			Number                     int        `json:"number"`
			Name                       string     `json:"name"`
			StartTime                  time.Time  `json:"startTime"`
			EndTime                    time.Time  `json:"endTime"`
			IsDaytime                  bool       `json:"isDaytime"`
			Temperature                int        `json:"temperature"`
			TemperatureUnit            string     `json:"temperatureUnit"`
			ProbabilityOfPrecipitation quantValue `json:"probabilityOfPrecipitation"`
			WindSpeed                  string     `json:"windSpeed"`
			WindDirection              string     `json:"windDirection"`
			ShortForecast              string     `json:"shortForecast"`
			DetailedForecast           string     `json:"detailedForecast"`
			Icon                       string     `json:"icon"`
		} `json:"periods"`
	} `json:"properties"`
}

type stationsResponse struct {
	Features []struct {
		Properties struct {
			StationIdentifier string `json:"stationIdentifier"`
		} `json:"properties"`
	} `json:"features"`
}

type observationResponse struct {
	Properties struct {
		Timestamp          time.Time  `json:"timestamp"`
		TextDescription    string     `json:"textDescription"`
		Icon               string     `json:"icon"`
		Temperature        quantValue `json:"temperature"`
		Dewpoint           quantValue `json:"dewpoint"`
		RelativeHumidity   quantValue `json:"relativeHumidity"`
		WindSpeed          quantValue `json:"windSpeed"`
		WindDirection      quantValue `json:"windDirection"`
		BarometricPressure quantValue `json:"barometricPressure"`
		Visibility         quantValue `json:"visibility"`
	} `json:"properties"`
}

type alertsResponse struct {
	Features []struct {
		Properties struct {
			ID          string    `json:"id"`
			Event       string    `json:"event"`
			Headline    string    `json:"headline"`
			Description string    `json:"description"`
			Severity    string    `json:"severity"`
			Urgency     string    `json:"urgency"`
			AreaDesc    string    `json:"areaDesc"`
			Onset       time.Time `json:"onset"`
			Expires     time.Time `json:"expires"`
		} `json:"properties"`
	} `json:"features"`
}

// Points resolves a coordinate pair to its forecast grid point. Coordinates
// are rounded to 4 decimals both for the request path and the cache key.
func (c *Client) Points(ctx context.Context, lat, lon float64) (core.GridPoint, error) {
	key := "points:" + core.CoordKey(lat, lon)
	return cache.GetOrFetch(ctx, c.cache, key, pointsPolicy, func(ctx context.Context) (core.GridPoint, error) {
		var resp pointsResponse
		endpoint := "/points/" + core.CoordKey(lat, lon)
		if err := c.api.Get(ctx, endpoint, &resp); err != nil {
			return core.GridPoint{}, err
		}
		gp := core.GridPoint{
			Office: resp.Properties.GridID,
			GridX:  resp.Properties.GridX,
			GridY:  resp.Properties.GridY,
		}
		if gp.Office == "" {
			return core.GridPoint{}, core.NewInvalidUpstreamDataError(providerName,
				"points response missing grid office")
		}
		return gp, nil
	})
}

// Forecast returns the 7-day forecast for a grid point.
func (c *Client) Forecast(ctx context.Context, gp core.GridPoint) (core.Forecast, error) {
	key := "forecast:" + gp.Key()
	return c.fetchForecast(ctx, key, fmt.Sprintf("/gridpoints/%s/%d,%d/forecast", gp.Office, gp.GridX, gp.GridY))
}

// HourlyForecast returns the hourly forecast for a grid point.
func (c *Client) HourlyForecast(ctx context.Context, gp core.GridPoint) (core.Forecast, error) {
	key := "hourly:" + gp.Key()
	return c.fetchForecast(ctx, key, fmt.Sprintf("/gridpoints/%s/%d,%d/forecast/hourly", gp.Office, gp.GridX, gp.GridY))
}

func (c *Client) fetchForecast(ctx context.Context, key, endpoint string) (core.Forecast, error) {
	return cache.GetOrFetch(ctx, c.cache, key, forecastPolicy, func(ctx context.Context) (core.Forecast, error) {
		var resp forecastResponse
		if err := c.api.Get(ctx, endpoint, &resp); err != nil {
			return core.Forecast{}, err
		}

		out := core.Forecast{
			GeneratedAt: resp.Properties.GeneratedAt,
			Periods:     make([]core.ForecastPeriod, 0, len(resp.Properties.Periods)),
		}
		for _, p := range resp.Properties.Periods {
			precip := 0
			if p.ProbabilityOfPrecipitation.Value != nil {
				precip = int(*p.ProbabilityOfPrecipitation.Value)
			}
			out.Periods = append(out.Periods, core.ForecastPeriod{
				Number:           p.Number,
				Name:             p.Name,
				StartTime:        p.StartTime,
				EndTime:          p.EndTime,
				IsDaytime:        p.IsDaytime,
				Temperature:      p.Temperature,
				TemperatureUnit:  p.TemperatureUnit,
				PrecipChance:     precip,
				WindSpeed:        p.WindSpeed,
				WindDirection:    p.WindDirection,
				ShortForecast:    p.ShortForecast,
				DetailedForecast: p.DetailedForecast,
				Icon:             p.Icon,
			})
		}
		return out, nil
	})
}

// Stations returns the observation station IDs serving a grid point, in the
// upstream's proximity order.
func (c *Client) Stations(ctx context.Context, gp core.GridPoint) ([]string, error) {
	key := "stations:" + gp.Key()
	return cache.GetOrFetch(ctx, c.cache, key, stationsPolicy, func(ctx context.Context) ([]string, error) {
		var resp stationsResponse
		endpoint := fmt.Sprintf("/gridpoints/%s/%d,%d/stations", gp.Office, gp.GridX, gp.GridY)
		if err := c.api.Get(ctx, endpoint, &resp); err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(resp.Features))
		for _, f := range resp.Features {
			if f.Properties.StationIdentifier != "" {
				ids = append(ids, f.Properties.StationIdentifier)
			}
		}
		if len(ids) == 0 {
			return nil, core.NewInvalidUpstreamDataError(providerName, "station list is empty")
		}
		return ids, nil
	})
}

// LatestObservation returns the most recent report from a station.
func (c *Client) LatestObservation(ctx context.Context, stationID string) (core.Observation, error) {
	key := "obs:" + stationID
	return cache.GetOrFetch(ctx, c.cache, key, observationPolicy, func(ctx context.Context) (core.Observation, error) {
		var resp observationResponse
		endpoint := "/stations/" + url.PathEscape(stationID) + "/observations/latest"
		if err := c.api.Get(ctx, endpoint, &resp); err != nil {
			return core.Observation{}, err
		}
		p := resp.Properties
		return core.Observation{
			StationID:        stationID,
			Timestamp:        p.Timestamp,
			TemperatureC:     p.Temperature.Value,
			DewpointC:        p.Dewpoint.Value,
			HumidityPct:      p.RelativeHumidity.Value,
			WindSpeedKmh:     p.WindSpeed.Value,
			WindDirectionDeg: p.WindDirection.Value,
			PressurePa:       p.BarometricPressure.Value,
			VisibilityM:      p.Visibility.Value,
			Description:      p.TextDescription,
			Icon:             p.Icon,
		}, nil
	})
}

// ActiveAlerts returns the alerts active at a point. Alerts are never
// cached; every call reaches the upstream.
func (c *Client) ActiveAlerts(ctx context.Context, lat, lon float64) ([]core.Alert, error) {
	key := "alerts:" + core.CoordKey(lat, lon)
	return cache.GetOrFetch(ctx, c.cache, key, alertsPolicy, func(ctx context.Context) ([]core.Alert, error) {
		var resp alertsResponse
		endpoint := "/alerts/active?point=" + url.QueryEscape(core.CoordKey(lat, lon))
		if err := c.api.Get(ctx, endpoint, &resp); err != nil {
			return nil, err
		}
		alerts := make([]core.Alert, 0, len(resp.Features))
		for _, f := range resp.Features {
			p := f.Properties
			alerts = append(alerts, core.Alert{
				ID:          p.ID,
				Event:       p.Event,
				Headline:    p.Headline,
				Description: p.Description,
				Severity:    p.Severity,
				Urgency:     p.Urgency,
				AreaDesc:    p.AreaDesc,
				Onset:       p.Onset,
				Expires:     p.Expires,
			})
		}
		return alerts, nil
	})
}

// InvalidatePoint drops the grid lookup cached for a coordinate pair.
func (c *Client) InvalidatePoint(lat, lon float64) {
	c.cache.Delete("points:" + core.CoordKey(lat, lon))
}

// InvalidateGrid drops all products cached for a grid point.
func (c *Client) InvalidateGrid(gp core.GridPoint) {
	suffix := gp.Key()
	c.cache.DeleteFunc(func(key string) bool {
		return key == "forecast:"+suffix || key == "hourly:"+suffix || key == "stations:"+suffix
	})
}

// InvalidateObservation drops the latest observation cached for a station.
func (c *Client) InvalidateObservation(stationID string) {
	c.cache.Delete("obs:" + stationID)
}

// CacheStats returns the NWS cache snapshot.
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// ClearCache drops all NWS entries.
func (c *Client) ClearCache() {
	c.cache.Clear()
}
