package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the Echo server.
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options.
type Config struct {
	AdminKey       string // Optional: key required on mutating admin routes
	MetricsEnabled bool   // Whether to expose the Prometheus metrics endpoint
	Version        string // Reported by /health
}

// New creates the HTTP server. registry may be nil when metrics are disabled.
func New(svc WeatherService, sched StatusReporter, registry *prometheus.Registry, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg == nil {
		cfg = &Config{}
	}
	handler := NewHandler(svc, sched, cfg.Version)

	e.Use(requestLogger())
	e.Use(middleware.Recover())

	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled && registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	e.GET("/api/weather/:zip", handler.Weather)
	e.GET("/api/cache/stats", handler.CacheStats)

	admin := e.Group("", AdminAuth(cfg.AdminKey))
	admin.POST("/api/weather/:zip/refresh", handler.Refresh)
	admin.POST("/api/cache/clear", handler.CacheClear)
	admin.DELETE("/api/cache/:zip", handler.CacheClearZIP)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// requestLogger logs each request through slog.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"duration", v.Latency.Round(time.Millisecond))
			return nil
		},
	})
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler, allowing Server to be used with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
