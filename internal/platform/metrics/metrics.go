// Package metrics defines the Prometheus collectors for the deal bot.
//
// Collectors live on a dedicated registry served at /metrics. Naming follows
// Prometheus conventions: a dealbot_ prefix, _total for counters and _seconds
// for duration histograms.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the bot's collectors with the registry that exposes them.
type Registry struct {
	registry *prometheus.Registry

	// WebhookUpdates counts Telegram updates by dispatcher outcome.
	WebhookUpdates *prometheus.CounterVec
	// CacheLookups counts response cache reads by cache name and result.
	CacheLookups *prometheus.CounterVec
	// CommerceRequests counts commerce API attempts by method, endpoint host and outcome.
	CommerceRequests *prometheus.CounterVec
	// LimiterWaitSeconds observes time spent waiting on the commerce rate limiter.
	LimiterWaitSeconds prometheus.Histogram
	// CacheEntries reports live entries per cache after each sweep.
	CacheEntries *prometheus.GaugeVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry.
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		WebhookUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealbot_webhook_updates_total",
				Help: "Total Telegram updates received by outcome.",
			},
			[]string{"outcome"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealbot_cache_lookups_total",
				Help: "Total response cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),
		CommerceRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealbot_commerce_requests_total",
				Help: "Total commerce API attempts by method, endpoint and outcome.",
			},
			[]string{"method", "endpoint", "outcome"},
		),
		LimiterWaitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dealbot_commerce_limiter_wait_seconds",
				Help:    "Seconds spent waiting for a commerce rate limiter token.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		CacheEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dealbot_cache_entries",
				Help: "Live response cache entries after the last sweep.",
			},
			[]string{"cache"},
		),
	}
	r.registry.MustRegister(
		r.WebhookUpdates,
		r.CacheLookups,
		r.CommerceRequests,
		r.LimiterWaitSeconds,
		r.CacheEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordUpdate records one dispatched update.
func (r *Registry) RecordUpdate(outcome string) {
	r.WebhookUpdates.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records one cache read.
func (r *Registry) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordCommerceRequest records one commerce API attempt.
func (r *Registry) RecordCommerceRequest(method, endpoint, outcome string) {
	r.CommerceRequests.WithLabelValues(method, endpoint, outcome).Inc()
}

// RecordLimiterWait records time spent blocked on the rate limiter.
func (r *Registry) RecordLimiterWait(d time.Duration) {
	r.LimiterWaitSeconds.Observe(d.Seconds())
}

// RecordCacheSize records the live entry count of a cache.
func (r *Registry) RecordCacheSize(cache string, entries int) {
	r.CacheEntries.WithLabelValues(cache).Set(float64(entries))
}
