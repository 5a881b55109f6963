// Package metrics provides Prometheus metrics for the image cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the cache.
type Metrics struct {
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	Evictions      prometheus.Counter
	FetchErrors    prometheus.Counter
	StoreErrors    prometheus.Counter
	TrackedEntries prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagecache_hits_total",
			Help: "Total number of lookups served from the cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagecache_misses_total",
			Help: "Total number of lookups served by fetching over the network.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagecache_evictions_total",
			Help: "Total number of entries evicted to satisfy the capacity bound.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagecache_fetch_errors_total",
			Help: "Total number of failed network fetches.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagecache_store_errors_total",
			Help: "Total number of failed disk operations.",
		}),
		TrackedEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imagecache_entries",
			Help: "Current number of entries tracked by the recency index.",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.Evictions,
		m.FetchErrors,
		m.StoreErrors,
		m.TrackedEntries,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry for custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
