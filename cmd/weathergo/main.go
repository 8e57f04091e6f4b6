// Package main is the entry point for the weather gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weathergo/config"
	"weathergo/internal/cache"
	"weathergo/internal/logging"
	"weathergo/internal/observability"
	"weathergo/internal/providers/geocode"
	"weathergo/internal/providers/nws"
	"weathergo/internal/providers/uv"
	"weathergo/internal/scheduler"
	"weathergo/internal/server"
	"weathergo/internal/tracked"
	"weathergo/internal/version"
	"weathergo/internal/weather"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Format)

	slog.Info("starting weathergo",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	// Metrics collection. The registry is only served when enabled, but the
	// hooks are always wired so enabling it later needs no code change.
	metrics := observability.New()

	// One cache per provider so stats and clearing stay per-source.
	geoCache := cache.New(cfg.Cache.SweepInterval)
	nwsCache := cache.New(cfg.Cache.SweepInterval)
	uvCache := cache.New(cfg.Cache.SweepInterval)
	defer geoCache.Close()
	defer nwsCache.Close()
	defer uvCache.Close()

	metrics.RegisterCache("geocode", geoCache.Stats)
	metrics.RegisterCache("nws", nwsCache.Stats)
	metrics.RegisterCache("uv", uvCache.Stats)

	hooks := metrics.ClientHooks()
	geo := geocode.New(geocode.Config{
		BaseURL: cfg.Geocode.BaseURL,
		Hooks:   hooks,
	}, geoCache)
	wx := nws.New(nws.Config{
		BaseURL:   cfg.NWS.BaseURL,
		UserAgent: cfg.NWS.UserAgent,
		Hooks:     hooks,
	}, nwsCache)
	uvClient := uv.New(uv.Config{
		BaseURL: cfg.OpenUV.BaseURL,
		APIKey:  cfg.OpenUV.APIKey,
		Hooks:   hooks,
	}, uvCache)
	if uvClient.Enabled() {
		slog.Info("UV index provider enabled")
	} else {
		slog.Info("UV index provider disabled", "reason", "no OPENUV_API_KEY")
	}

	// Tracked-ZIP set, persisted across restarts when a file is configured.
	store := tracked.NewStore(cfg.Cache.TrackedZIPsFile)
	if err := store.Load(); err != nil {
		slog.Error("failed to load tracked ZIPs", "file", cfg.Cache.TrackedZIPsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("tracked ZIPs loaded", "count", store.Len(), "file", cfg.Cache.TrackedZIPsFile)

	svc := weather.New(geo, wx, uvClient, store)

	// Background refresh keeps every tracked ZIP warm.
	sched := scheduler.New(svc, cfg.Refresh.Interval, metrics)
	sched.Start()
	defer sched.Stop()

	if cfg.Server.AdminKey == "" {
		slog.Warn("ADMIN_KEY not set; mutating admin endpoints are unauthenticated")
	}

	serverCfg := &server.Config{
		AdminKey:       cfg.Server.AdminKey,
		MetricsEnabled: cfg.Server.MetricsEnabled,
		Version:        version.Version,
	}
	srv := server.New(svc, sched, metrics.Registry(), serverCfg)

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr, "metrics_enabled", cfg.Server.MetricsEnabled)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}
