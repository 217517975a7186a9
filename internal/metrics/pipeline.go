package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline Prometheus metrics.
var (
	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogqa",
			Name:      "cache_requests_total",
			Help:      "Cache lookups by cache instance and result",
		},
		[]string{"cache", "result"}, // result: "hit" / "miss"
	)

	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogqa",
			Name:      "classifications_total",
			Help:      "Query classifications by type and rule",
		},
		[]string{"type", "rule"},
	)

	RetrievalFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "catalogqa",
			Name:      "retrieval_fallbacks_total",
			Help:      "Filtered searches that returned nothing and were retried unfiltered",
		},
	)

	RetrievalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogqa",
			Name:      "retrieval_errors_total",
			Help:      "Collaborator failures degraded to empty results",
		},
		[]string{"stage"}, // "embedding" / "index"
	)

	ResolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalogqa",
			Name:      "resolve_duration_seconds",
			Help:      "End-to-end query resolution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"}, // "answered" / "no_results" / "conversation" / "cached"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheRequestsTotal)
	prometheus.MustRegister(ClassificationsTotal)
	prometheus.MustRegister(RetrievalFallbacksTotal)
	prometheus.MustRegister(RetrievalErrorsTotal)
	prometheus.MustRegister(ResolveDuration)
	pipelineMetricsRegistered = true
}
