// Package server provides the HTTP surface of the weather gateway.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"weathergo/internal/core"
	"weathergo/internal/scheduler"
	"weathergo/internal/weather"
)

// WeatherService is the slice of the weather pipeline the handlers need.
type WeatherService interface {
	ByZIP(ctx context.Context, zip string) (*core.WeatherPackage, error)
	RefreshZIP(ctx context.Context, zip string) (*core.WeatherPackage, error)
	ClearZIP(ctx context.Context, zip string) error
	ClearAll()
	Stats() weather.CacheReport
}

// StatusReporter reports the background refresh scheduler's state.
type StatusReporter interface {
	Status() scheduler.Status
}

// Handler holds the HTTP handlers.
type Handler struct {
	svc     WeatherService
	sched   StatusReporter
	version string
}

// NewHandler creates a handler backed by the given service. sched may be nil
// when no scheduler is running.
func NewHandler(svc WeatherService, sched StatusReporter, version string) *Handler {
	return &Handler{
		svc:     svc,
		sched:   sched,
		version: version,
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]string{
		"status":  "ok",
		"version": h.version,
	}
	if h.sched != nil {
		resp["scheduler"] = string(h.sched.Status())
	}
	return c.JSON(http.StatusOK, resp)
}

// Weather handles GET /api/weather/:zip
func (h *Handler) Weather(c echo.Context) error {
	pkg, err := h.svc.ByZIP(c.Request().Context(), c.Param("zip"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, pkg)
}

// Refresh handles POST /api/weather/:zip/refresh
func (h *Handler) Refresh(c echo.Context) error {
	pkg, err := h.svc.RefreshZIP(c.Request().Context(), c.Param("zip"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, pkg)
}

// statsResponse decorates the cache report with scheduler state.
type statsResponse struct {
	weather.CacheReport
	Scheduler scheduler.Status `json:"scheduler,omitempty"`
}

// CacheStats handles GET /api/cache/stats
func (h *Handler) CacheStats(c echo.Context) error {
	resp := statsResponse{CacheReport: h.svc.Stats()}
	if h.sched != nil {
		resp.Scheduler = h.sched.Status()
	}
	return c.JSON(http.StatusOK, resp)
}

// CacheClear handles POST /api/cache/clear
func (h *Handler) CacheClear(c echo.Context) error {
	h.svc.ClearAll()
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

// CacheClearZIP handles DELETE /api/cache/:zip
func (h *Handler) CacheClearZIP(c echo.Context) error {
	zip := c.Param("zip")
	if err := h.svc.ClearZIP(c.Request().Context(), zip); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared", "zip": zip})
}

// handleError converts pipeline errors to HTTP responses.
func handleError(c echo.Context, err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return c.JSON(apiErr.HTTPStatusCode(), apiErr.ToJSON())
	}

	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
