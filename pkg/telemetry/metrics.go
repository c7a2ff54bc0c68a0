package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the design pipeline.
// All recording methods are safe to call on a nil receiver so callers
// can run without metrics wired up.
type Metrics struct {
	registry *prometheus.Registry

	compilesTotal       *prometheus.CounterVec
	cacheHitsTotal      *prometheus.CounterVec
	sequenceOpsTotal    *prometheus.CounterVec
	boundaryRoundTrip   prometheus.Histogram
	boundaryTimeouts    prometheus.Counter
	fallbackActivations prometheus.Counter
}

// NewMetrics creates and registers the pipeline collectors under the
// configured namespace.
func NewMetrics(cfg MetricsConfig) *Metrics {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "designcore"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		compilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compiles_total",
			Help:      "Total intent compilations by result status",
		}, []string{"status"}),
		cacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by cache name",
		}, []string{"cache"}),
		sequenceOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_operations_total",
			Help:      "Executed sequence operations by category and status",
		}, []string{"category", "status"}),
		boundaryRoundTrip: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "boundary_round_trip_seconds",
			Help:      "Round trip latency of evaluator requests",
			Buckets:   prometheus.DefBuckets,
		}),
		boundaryTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_timeouts_total",
			Help:      "Evaluator requests that exceeded their deadline",
		}),
		fallbackActivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_activations_total",
			Help:      "Times local fallback geometry replaced evaluator output",
		}),
	}

	registry.MustRegister(
		m.compilesTotal,
		m.cacheHitsTotal,
		m.sequenceOpsTotal,
		m.boundaryRoundTrip,
		m.boundaryTimeouts,
		m.fallbackActivations,
	)

	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCompile counts a compilation with the given result status.
func (m *Metrics) RecordCompile(status string) {
	if m == nil {
		return
	}
	m.compilesTotal.WithLabelValues(status).Inc()
}

// RecordCacheHit counts a hit on the named cache.
func (m *Metrics) RecordCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordSequenceOp counts an executed operation by category and status.
func (m *Metrics) RecordSequenceOp(category, status string) {
	if m == nil {
		return
	}
	m.sequenceOpsTotal.WithLabelValues(category, status).Inc()
}

// ObserveBoundaryRoundTrip records the latency of one evaluator request.
func (m *Metrics) ObserveBoundaryRoundTrip(d time.Duration) {
	if m == nil {
		return
	}
	m.boundaryRoundTrip.Observe(d.Seconds())
}

// RecordBoundaryTimeout counts a request that hit its deadline.
func (m *Metrics) RecordBoundaryTimeout() {
	if m == nil {
		return
	}
	m.boundaryTimeouts.Inc()
}

// RecordFallbackActivation counts a switch to local fallback geometry.
func (m *Metrics) RecordFallbackActivation() {
	if m == nil {
		return
	}
	m.fallbackActivations.Inc()
}
