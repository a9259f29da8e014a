// Package metrics defines the Prometheus metrics exported on /metrics.
// All Record* helpers are safe to call on a nil *Metrics so components can
// run without a registry in tests and tools.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Query pipeline metrics
	QueriesTotal         *prometheus.CounterVec
	QueryDurationSeconds *prometheus.HistogramVec
	RouterDecisionsTotal *prometheus.CounterVec

	// LLM metrics
	LLMTotal           *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec

	// Scraper metrics
	ScraperRequestsTotal   *prometheus.CounterVec
	ScraperDurationSeconds *prometheus.HistogramVec

	// Data cache metrics
	CacheOperationsTotal *prometheus.CounterVec
	CacheRecords         *prometheus.GaugeVec

	// Webhook metrics
	WebhookTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rea_queries_total",
				Help: "Total number of processed queries by route and status",
			},
			[]string{"route", "status"}, // route: price, plot, web_search, other, multi
		),

		QueryDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rea_query_duration_seconds",
				Help:    "End-to-end query processing duration by route",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 45, 90},
			},
			[]string{"route"},
		),

		RouterDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rea_router_decisions_total",
				Help: "Router decisions by deciding stage and intent",
			},
			[]string{"stage", "intent"}, // stage: rule name, llm, default
		),

		LLMTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rea_llm_total",
				Help: "Language model calls by provider, operation and status",
			},
			[]string{"provider", "operation", "status"},
		),

		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rea_llm_duration_seconds",
				Help:    "Language model call duration by provider and operation",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
			},
			[]string{"provider", "operation"},
		),

		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rea_llm_fallback_total",
				Help: "Provider fallbacks by source and target provider",
			},
			[]string{"from_provider", "to_provider", "operation"},
		),

		ScraperRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rea_scraper_requests_total",
				Help: "Listing site requests by site and status",
			},
			[]string{"site", "status"}, // status: success, error, empty
		),

		ScraperDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rea_scraper_duration_seconds",
				Help:    "Listing site request duration by site",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"site"},
		),

		CacheOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rea_cache_operations_total",
				Help: "Transaction table cache operations by key and result",
			},
			[]string{"key", "result"}, // result: hit, miss, load, error, clear
		),

		CacheRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rea_cache_records",
				Help: "Number of cached transaction rows by key",
			},
			[]string{"key"},
		),

		WebhookTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rea_webhook_total",
				Help: "LINE webhook events by type and status",
			},
			[]string{"event_type", "status"},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rea_rate_limiter_dropped_total",
				Help: "Requests rejected by rate limiters",
			},
			[]string{"limiter"},
		),
	}
}

// RecordQuery records a finished query.
func (m *Metrics) RecordQuery(route, status string, duration float64) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(route, status).Inc()
	m.QueryDurationSeconds.WithLabelValues(route).Observe(duration)
}

// RecordRouterDecision records which router stage decided the intent.
func (m *Metrics) RecordRouterDecision(stage, intent string) {
	if m == nil {
		return
	}
	m.RouterDecisionsTotal.WithLabelValues(stage, intent).Inc()
}

// RecordLLM records a language model call.
func (m *Metrics) RecordLLM(provider, operation, status string, duration float64) {
	if m == nil {
		return
	}
	m.LLMTotal.WithLabelValues(provider, operation, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider, operation).Observe(duration)
}

// RecordLLMFallback records a switch from one provider to the next.
func (m *Metrics) RecordLLMFallback(from, to, operation string) {
	if m == nil {
		return
	}
	m.LLMFallbackTotal.WithLabelValues(from, to, operation).Inc()
}

// RecordScraperRequest records a listing site request.
func (m *Metrics) RecordScraperRequest(site, status string, duration float64) {
	if m == nil {
		return
	}
	m.ScraperRequestsTotal.WithLabelValues(site, status).Inc()
	m.ScraperDurationSeconds.WithLabelValues(site).Observe(duration)
}

// RecordCache records a data cache operation.
func (m *Metrics) RecordCache(key, result string) {
	if m == nil {
		return
	}
	m.CacheOperationsTotal.WithLabelValues(key, result).Inc()
}

// SetCacheRecords updates the cached row gauge for key.
func (m *Metrics) SetCacheRecords(key string, n int) {
	if m == nil {
		return
	}
	m.CacheRecords.WithLabelValues(key).Set(float64(n))
}

// RecordWebhook records a LINE webhook event.
func (m *Metrics) RecordWebhook(eventType, status string) {
	if m == nil {
		return
	}
	m.WebhookTotal.WithLabelValues(eventType, status).Inc()
}

// RecordRateLimiterDrop records a rejected request.
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}
