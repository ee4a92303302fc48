package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ProbesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resolver",
		Name:      "probes_total",
		Help:      "Remote existence probes by outcome.",
	}, []string{"status"})

	ProbeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "resolver",
		Name:      "probe_duration_seconds",
		Help:      "HTTP probe duration in seconds, retries included.",
		Buckets:   []float64{0.1, 0.3, 0.5, 1, 2, 5, 10, 30, 60},
	})

	ProbeCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "resolver",
		Name:      "probe_cache_hits_total",
		Help:      "Probes answered from the outcome cache.",
	})

	TemplatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resolver",
		Name:      "templates_total",
		Help:      "Synthesized URL templates by outcome.",
	}, []string{"outcome"})

	ReconciliationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resolver",
		Name:      "reconciliations_total",
		Help:      "Reconciliation runs by subtype and outcome.",
	}, []string{"subtype", "outcome"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resolver",
		Name:      "http_requests_total",
		Help:      "API requests by method, path and status code.",
	}, []string{"method", "path", "status"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ProbesTotal,
		ProbeDuration,
		ProbeCacheHits,
		TemplatesTotal,
		ReconciliationsTotal,
		HTTPRequestsTotal,
	)
}
