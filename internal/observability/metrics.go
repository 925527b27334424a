// Package observability holds the logger, Prometheus metrics, and the router
// observer shared by every surface.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weatheragent"

// Metrics holds the Prometheus counters and histograms for routing, the
// generative backend, the responder cache, and the HTTP surface.
type Metrics struct {
	RoutesTotal   *prometheus.CounterVec   // labels: capability, outcome={handled,clarified,delegated,failed}
	RouteDuration *prometheus.HistogramVec // labels: capability

	BackendRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	BackendDuration prometheus.Histogram
	Fallbacks       *prometheus.CounterVec // labels: reason={demo,error,empty}

	ResponderCache *prometheus.CounterVec // labels: result={hit,miss}

	HTTPRequests *prometheus.CounterVec // labels: route, code
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoutesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_total",
			Help:      "Routed queries by capability and outcome.",
		}, []string{"capability", "outcome"}),
		RouteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_duration_seconds",
			Help:      "Time to answer a routed query.",
			Buckets:   []float64{0.0005, 0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"capability"}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Generative backend requests by outcome.",
		}, []string{"outcome"}),
		BackendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_duration_seconds",
			Help:      "Generative backend request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responder_fallbacks_total",
			Help:      "Canned replies served in place of the backend, by reason.",
		}, []string{"reason"}),
		ResponderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responder_cache_total",
			Help:      "Responder cache lookups by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		m.RoutesTotal,
		m.RouteDuration,
		m.BackendRequests,
		m.BackendDuration,
		m.Fallbacks,
		m.ResponderCache,
		m.HTTPRequests,
	)

	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
