// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricHTTPRequestsTotal   = "http_requests_total"
	MetricGenerations         = "guide_generations_total"
	MetricSearches            = "guide_searches_total"
	MetricGuidesCreated       = "guides_created_total"
	MetricPersistFailures     = "guide_persist_failures_total"
	MetricLikeToggles         = "guide_like_toggles_total"
	MetricComments            = "guide_comments_total"
	MetricActiveSessions      = "sessions_active"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	generations         *prometheus.CounterVec
	searches            *prometheus.CounterVec
	guidesCreated       prometheus.Counter
	persistFailures     *prometheus.CounterVec
	likeToggles         *prometheus.CounterVec
	comments            prometheus.Counter
	activeSessions      prometheus.Gauge
}

// New creates the collectors. They are not registered; call Register.
func New() *Metrics {
	return &Metrics{
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 15, 30},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGenerations,
				Help: "Generator calls by kind (guide, find_more) and outcome",
			},
			[]string{"kind", "outcome"},
		),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearches,
				Help: "Searches by how they were answered (cache, store, generated)",
			},
			[]string{"source"},
		),
		guidesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricGuidesCreated,
				Help: "Guides stored after a successful generation",
			},
		),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPersistFailures,
				Help: "Store writes that failed after generation succeeded",
			},
			[]string{"op"},
		),
		likeToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricLikeToggles,
				Help: "Like toggles by resulting state",
			},
			[]string{"liked"},
		),
		comments: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricComments,
				Help: "Comments posted",
			},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricActiveSessions,
				Help: "Sessions currently held in memory",
			},
		),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.httpRequestDuration,
		m.httpRequestsTotal,
		m.generations,
		m.searches,
		m.guidesCreated,
		m.persistFailures,
		m.likeToggles,
		m.comments,
		m.activeSessions,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveHTTPRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// IncGeneration counts a generator call. kind is "guide" or "find_more".
func (m *Metrics) IncGeneration(kind, outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(kind, outcome).Inc()
}

// IncSearch counts a search by source: "cache", "store" or "generated".
func (m *Metrics) IncSearch(source string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(source).Inc()
}

func (m *Metrics) IncGuidesCreated() {
	if m == nil {
		return
	}
	m.guidesCreated.Inc()
}

func (m *Metrics) IncPersistFailure(op string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) IncLikeToggle(liked bool) {
	if m == nil {
		return
	}
	label := "false"
	if liked {
		label = "true"
	}
	m.likeToggles.WithLabelValues(label).Inc()
}

func (m *Metrics) IncComments() {
	if m == nil {
		return
	}
	m.comments.Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
