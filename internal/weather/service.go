// Package weather assembles the full per-ZIP weather package by running the
// geocode → grid → products pipeline through the cached provider façades.
package weather

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"weathergo/internal/cache"
	"weathergo/internal/core"
	"weathergo/internal/providers/geocode"
	"weathergo/internal/providers/nws"
	"weathergo/internal/providers/uv"
	"weathergo/internal/tracked"
)

// Service owns the long-lived provider clients. One instance is constructed
// at process start and shared by the HTTP handlers and the refresh scheduler.
type Service struct {
	geo     *geocode.Client
	nws     *nws.Client
	uv      *uv.Client
	tracked *tracked.Store
}

// New creates the pipeline service.
func New(geo *geocode.Client, nwsClient *nws.Client, uvClient *uv.Client, store *tracked.Store) *Service {
	return &Service{
		geo:     geo,
		nws:     nwsClient,
		uv:      uvClient,
		tracked: store,
	}
}

// CacheReport is the stats snapshot exposed to the admin surface.
type CacheReport struct {
	Geocode     cache.Stats `json:"geocode"`
	Weather     cache.Stats `json:"weather"`
	UV          cache.Stats `json:"uv"`
	UVEnabled   bool        `json:"uv_enabled"`
	TrackedZIPs int         `json:"tracked_zips"`
}

// ByZIP runs the full pipeline for one ZIP code and returns the assembled
// package. The ZIP becomes tracked on first sight so the background
// scheduler keeps it warm from then on.
//
// Forecasts, the observation and alerts are fetched concurrently and are all
// required; the optional UV reading is fetched alongside but tolerated on
// failure, since the feature as a whole is best-effort.
func (s *Service) ByZIP(ctx context.Context, zip string) (*core.WeatherPackage, error) {
	z, err := core.NormalizeZIP(zip)
	if err != nil {
		return nil, err
	}

	if err := s.tracked.Add(z); err != nil {
		// Tracking is a warm-cache optimization; its persistence failing
		// must not fail the request.
		slog.Warn("failed to track ZIP", "zip", z, "error", err)
	}

	coords, err := s.geo.Lookup(ctx, z)
	if err != nil {
		return nil, err
	}

	gp, err := s.nws.Points(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		return nil, err
	}

	pkg := &core.WeatherPackage{
		ZIP:         z,
		Coordinates: coords,
		GridPoint:   gp,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fc, err := s.nws.Forecast(gctx, gp)
		if err != nil {
			return err
		}
		pkg.Forecast = fc
		return nil
	})
	g.Go(func() error {
		fc, err := s.nws.HourlyForecast(gctx, gp)
		if err != nil {
			return err
		}
		pkg.Hourly = fc
		return nil
	})
	g.Go(func() error {
		obs, err := s.latestObservation(gctx, gp)
		if err != nil {
			return err
		}
		pkg.Observation = obs
		return nil
	})
	g.Go(func() error {
		alerts, err := s.nws.ActiveAlerts(gctx, coords.Latitude, coords.Longitude)
		if err != nil {
			return err
		}
		pkg.Alerts = alerts
		return nil
	})
	if s.uv.Enabled() {
		g.Go(func() error {
			idx, err := s.uv.Index(gctx, coords.Latitude, coords.Longitude)
			if err != nil {
				slog.Warn("UV index fetch failed", "zip", z, "error", err)
				return nil
			}
			pkg.UV = &idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkg.FetchedAt = time.Now().UTC()
	return pkg, nil
}

// latestObservation walks the grid's stations in proximity order and returns
// the first one that reports. Only total failure is an error.
func (s *Service) latestObservation(ctx context.Context, gp core.GridPoint) (*core.Observation, error) {
	stations, err := s.nws.Stations(ctx, gp)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, id := range stations {
		obs, err := s.nws.LatestObservation(ctx, id)
		if err != nil {
			lastErr = err
			slog.Debug("station observation failed, trying next", "station", id, "error", err)
			continue
		}
		return &obs, nil
	}
	return nil, lastErr
}

// RefreshZIP invalidates everything cached for a ZIP and re-runs the
// pipeline, returning the freshly fetched package.
func (s *Service) RefreshZIP(ctx context.Context, zip string) (*core.WeatherPackage, error) {
	z, err := core.NormalizeZIP(zip)
	if err != nil {
		return nil, err
	}
	if err := s.invalidateZIP(ctx, z); err != nil {
		return nil, err
	}
	return s.ByZIP(ctx, z)
}

// ClearZIP invalidates everything cached for a ZIP without refetching.
func (s *Service) ClearZIP(ctx context.Context, zip string) error {
	z, err := core.NormalizeZIP(zip)
	if err != nil {
		return err
	}
	return s.invalidateZIP(ctx, z)
}

// invalidateZIP walks the ZIP's derived keys from the geocode entry down.
// The walk itself uses cached lookups where possible; the geocode entry is
// dropped last so the derivation chain stays resolvable.
func (s *Service) invalidateZIP(ctx context.Context, z string) error {
	coords, err := s.geo.Lookup(ctx, z)
	if err != nil {
		return err
	}

	if gp, err := s.nws.Points(ctx, coords.Latitude, coords.Longitude); err == nil {
		if stations, err := s.nws.Stations(ctx, gp); err == nil {
			for _, id := range stations {
				s.nws.InvalidateObservation(id)
			}
		}
		s.nws.InvalidateGrid(gp)
	}
	s.nws.InvalidatePoint(coords.Latitude, coords.Longitude)
	s.uv.InvalidatePoint(coords.Latitude, coords.Longitude)
	s.geo.Invalidate(z)
	return nil
}

// ClearAll drops every cached entry across all providers. Hit/miss counters
// survive, which is what the monitoring surface expects.
func (s *Service) ClearAll() {
	s.geo.ClearCache()
	s.nws.ClearCache()
	s.uv.ClearCache()
}

// Stats reports per-provider cache stats and the tracked-set size.
func (s *Service) Stats() CacheReport {
	return CacheReport{
		Geocode:     s.geo.CacheStats(),
		Weather:     s.nws.CacheStats(),
		UV:          s.uv.CacheStats(),
		UVEnabled:   s.uv.Enabled(),
		TrackedZIPs: s.tracked.Len(),
	}
}

// TrackedZIPs returns the ZIPs the scheduler should keep warm.
func (s *Service) TrackedZIPs() []string {
	return s.tracked.List()
}

// Warm runs the pipeline for one ZIP, discarding the result; populating the
// caches is the point. Used by the background scheduler.
func (s *Service) Warm(ctx context.Context, zip string) error {
	_, err := s.ByZIP(ctx, zip)
	return err
}
