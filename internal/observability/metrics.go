package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for billing, rates and rule loading.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	costCalculations *prometheus.CounterVec
	costDuration     *prometheus.HistogramVec

	rateFetches        *prometheus.CounterVec
	rateFetchDuration  *prometheus.HistogramVec
	rateStaleFallbacks *prometheus.CounterVec
	rateCacheHits      *prometheus.CounterVec

	configLoads         *prometheus.CounterVec
	configInvalidations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics set backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		costCalculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_cost_calculations_total",
				Help: "Total number of cost calculations by service, strategy and outcome",
			},
			[]string{"service_id", "strategy", "outcome"},
		),

		costDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_cost_calculation_duration_seconds",
				Help:    "Cost calculation latency in seconds, including rate lookup",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service_id"},
		),

		rateFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_rate_fetches_total",
				Help: "Total number of upstream price fetches by asset and outcome",
			},
			[]string{"asset_id", "outcome"},
		),

		rateFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_rate_fetch_duration_seconds",
				Help:    "Upstream price fetch latency in seconds, including retries",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"asset_id"},
		),

		rateStaleFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_rate_stale_fallbacks_total",
				Help: "Total number of times a stale price was served after a failed refresh",
			},
			[]string{"asset_id"},
		),

		rateCacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_rate_cache_hits_total",
				Help: "Total number of price lookups served from cache",
			},
			[]string{"asset_id"},
		),

		configLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_config_loads_total",
				Help: "Total number of rule document loads by service and outcome",
			},
			[]string{"service_id", "outcome"},
		),

		configInvalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_config_invalidations_total",
				Help: "Total number of rule cache invalidations",
			},
			[]string{"service_id"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.costCalculations,
		m.costDuration,
		m.rateFetches,
		m.rateFetchDuration,
		m.rateStaleFallbacks,
		m.rateCacheHits,
		m.configLoads,
		m.configInvalidations,
	)

	return m
}

// RecordCostCalculation records one engine evaluation.
func (m *Metrics) RecordCostCalculation(serviceID, strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.costCalculations.WithLabelValues(serviceID, strategy, outcome).Inc()
	m.costDuration.WithLabelValues(serviceID).Observe(elapsed.Seconds())
}

// RecordRateFetch records one upstream price fetch (after retries).
func (m *Metrics) RecordRateFetch(assetID, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rateFetches.WithLabelValues(assetID, outcome).Inc()
	m.rateFetchDuration.WithLabelValues(assetID).Observe(elapsed.Seconds())
}

// RecordRateCacheHit records a price served without an upstream call.
func (m *Metrics) RecordRateCacheHit(assetID string) {
	if m == nil {
		return
	}
	m.rateCacheHits.WithLabelValues(assetID).Inc()
}

// RecordStaleFallback records a stale price served after a failed refresh.
func (m *Metrics) RecordStaleFallback(assetID string) {
	if m == nil {
		return
	}
	m.rateStaleFallbacks.WithLabelValues(assetID).Inc()
}

// RecordConfigLoad records a rule document load.
func (m *Metrics) RecordConfigLoad(serviceID, outcome string) {
	if m == nil {
		return
	}
	m.configLoads.WithLabelValues(serviceID, outcome).Inc()
}

// RecordConfigInvalidation records a rule cache invalidation. An empty
// service id means the whole cache was cleared.
func (m *Metrics) RecordConfigInvalidation(serviceID string) {
	if m == nil {
		return
	}
	if serviceID == "" {
		serviceID = "*"
	}
	m.configInvalidations.WithLabelValues(serviceID).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
