// Package observability implements the metrics and tracing named by
// spec.md §4.13 (component C13): Prometheus counters/histograms/gauges for
// the engine as a whole, a per-request timing tree, and an optional OTel
// tracer that degrades to a no-op when unconfigured.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nuri428/ontology-chat/internal/domain"
	"github.com/nuri428/ontology-chat/internal/resilience"
)

// Metrics is the engine-wide Prometheus collector set §4.13 names:
// queries_total{intent,status}, response_seconds, stage_seconds,
// active_requests, breaker_state{name}, cache_hit_rate.
type Metrics struct {
	queriesTotal   *prometheus.CounterVec
	responseSecs   prometheus.Histogram
	stageSecs      *prometheus.HistogramVec
	activeRequests prometheus.Gauge
	breakerState   *prometheus.GaugeVec
	cacheHitRate   prometheus.Gauge
}

// NewMetrics registers the full metric set with registry (pass
// prometheus.DefaultRegisterer for the process-global registry, or a
// fresh prometheus.NewRegistry() for test isolation), grounded on
// graph/metrics.go's NewPrometheusMetrics registration style.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ontologychat",
			Name:      "queries_total",
			Help:      "Total queries handled, labeled by classified intent and outcome status",
		}, []string{"intent", "status"}),

		responseSecs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ontologychat",
			Name:      "response_seconds",
			Help:      "End-to-end request latency from Route to the final Report",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		}),

		stageSecs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ontologychat",
			Name:      "stage_seconds",
			Help:      "Latency of one named pipeline stage (a Fast Handler branch or a Deep Workflow node)",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),

		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ontologychat",
			Name:      "active_requests",
			Help:      "Number of requests currently being processed",
		}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ontologychat",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per named backend (0=closed, 0.5=half-open, 1=open)",
		}, []string{"name"}),

		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ontologychat",
			Name:      "cache_hit_rate",
			Help:      "Rolling cache hit rate across all cache layers",
		}),
	}
}

// RecordQuery increments queries_total for the given intent/status pair.
func (m *Metrics) RecordQuery(intent domain.Intent, status string) {
	m.queriesTotal.WithLabelValues(string(intent), status).Inc()
}

// ObserveResponse records one end-to-end request's latency.
func (m *Metrics) ObserveResponse(d time.Duration) {
	m.responseSecs.Observe(d.Seconds())
}

// ObserveStage records one named stage's latency.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageSecs.WithLabelValues(stage).Observe(d.Seconds())
}

// IncActiveRequests/DecActiveRequests bracket one request's lifetime.
func (m *Metrics) IncActiveRequests() { m.activeRequests.Inc() }
func (m *Metrics) DecActiveRequests() { m.activeRequests.Dec() }

// breakerStateValue maps a Breaker's closed/half-open/open state to the
// numeric gauge value §4.13 names.
func breakerStateValue(s resilience.BreakerState) float64 {
	switch s.State {
	case resilience.StateOpen:
		return 1
	case resilience.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

// SetBreakerState publishes one backend's current breaker state.
func (m *Metrics) SetBreakerState(name string, s resilience.BreakerState) {
	m.breakerState.WithLabelValues(name).Set(breakerStateValue(s))
}

// SyncBreakerStates publishes every breaker in a registry snapshot at once,
// used by a periodic observability tick.
func (m *Metrics) SyncBreakerStates(snapshot map[string]resilience.BreakerState) {
	for name, s := range snapshot {
		m.SetBreakerState(name, s)
	}
}

// SetCacheHitRate publishes the current rolling cache hit rate in [0,1].
func (m *Metrics) SetCacheHitRate(rate float64) {
	m.cacheHitRate.Set(domain.Clamp01(rate))
}
