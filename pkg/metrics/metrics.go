// Package metrics exposes the resolution pipeline's counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resumeqa"

// Metrics is nil-safe: every recorder is a no-op on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	cacheLookupsTotal *prometheus.CounterVec
	cacheScore        prometheus.Histogram
	admissionsTotal   *prometheus.CounterVec
	escalationsTotal  *prometheus.CounterVec
	stageErrorsTotal  *prometheus.CounterVec
	purgedTotal       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_requests_total",
			Help:      "Resolved questions by origin and final status",
		},
		[]string{"origin", "status"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "End-to-end resolution latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"origin"},
	)
	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semcache_lookups_total",
			Help:      "Semantic cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
	m.cacheScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "semcache_hit_score",
			Help:      "Combined score of served cache hits",
			Buckets:   []float64{0.75, 0.8, 0.85, 0.9, 0.95, 1},
		},
	)
	m.admissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semcache_admissions_total",
			Help:      "Cache admissions by result (enqueued, skipped, failed, written, rejected)",
		},
		[]string{"result"},
	)
	m.escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Questions handed to a human, by reason",
		},
		[]string{"reason"},
	)
	m.stageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Collaborator failures by pipeline stage",
		},
		[]string{"stage"},
	)
	m.purgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semcache_purged_total",
			Help:      "Cached answers removed for expiry or corpus change",
		},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.cacheLookupsTotal,
		m.cacheScore,
		m.admissionsTotal,
		m.escalationsTotal,
		m.stageErrorsTotal,
		m.purgedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves this registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveResolution(origin, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(origin, status).Inc()
	m.requestDuration.WithLabelValues(origin).Observe(seconds)
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheHitScore(score float64) {
	if m == nil {
		return
	}
	m.cacheScore.Observe(score)
}

func (m *Metrics) Admission(result string) {
	if m == nil {
		return
	}
	m.admissionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Escalation(reason string) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) StageError(stage string) {
	if m == nil {
		return
	}
	m.stageErrorsTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) Purged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purgedTotal.Add(float64(n))
}
