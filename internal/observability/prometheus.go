// Package observability provides Prometheus metrics for upstream calls,
// cache effectiveness and the refresh scheduler.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"weathergo/internal/apiclient"
	"weathergo/internal/cache"
	"weathergo/internal/core"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	upstreamRetries  *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec

	refreshPasses   prometheus.Counter
	refreshFailures prometheus.Counter
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weathergo_upstream_requests_total",
			Help: "Upstream API attempts, including retries.",
		}, []string{"provider"}),
		upstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weathergo_upstream_failures_total",
			Help: "Upstream API calls that failed after retries, by error type.",
		}, []string{"provider", "type"}),
		upstreamRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weathergo_upstream_retries_total",
			Help: "Backoff sleeps taken before a retry, by failure class.",
		}, []string{"provider", "class"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weathergo_upstream_duration_seconds",
			Help:    "End-to-end upstream call duration, retries included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		refreshPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "weathergo_refresh_passes_total",
			Help: "Completed background refresh passes.",
		}),
		refreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "weathergo_refresh_key_failures_total",
			Help: "Tracked ZIP codes that failed to refresh during a pass.",
		}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ClientHooks returns apiclient hooks that feed the upstream collectors.
func (m *Metrics) ClientHooks() apiclient.Hooks {
	return apiclient.Hooks{
		OnRequest: func(provider string) {
			m.upstreamRequests.WithLabelValues(provider).Inc()
		},
		OnRetry: func(provider string, class core.ErrorType) {
			m.upstreamRetries.WithLabelValues(provider, string(class)).Inc()
		},
		OnResult: func(provider string, err error, elapsed time.Duration) {
			m.upstreamDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
			if err != nil {
				m.upstreamFailures.WithLabelValues(provider, errorLabel(err)).Inc()
			}
		},
	}
}

// RegisterCache exposes a cache's stats as gauges named by data source.
func (m *Metrics) RegisterCache(source string, stats func() cache.Stats) {
	labels := prometheus.Labels{"source": source}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "weathergo_cache_keys", Help: "Current cached entries.", ConstLabels: labels,
		}, func() float64 { return float64(stats().Keys) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "weathergo_cache_hits_total", Help: "Lifetime cache hits.", ConstLabels: labels,
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "weathergo_cache_misses_total", Help: "Lifetime cache misses.", ConstLabels: labels,
		}, func() float64 { return float64(stats().Misses) }),
	)
}

// ObserveRefreshPass records a completed scheduler pass and its failed keys.
func (m *Metrics) ObserveRefreshPass(failedKeys int) {
	m.refreshPasses.Inc()
	m.refreshFailures.Add(float64(failedKeys))
}

func errorLabel(err error) string {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return string(apiErr.Type)
	}
	return "other"
}
