package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "vltd_dashboard"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of calls to the VLTD backend, by outcome kind.",
		},
		[]string{"role", "method", "outcome"},
	)

	BackendRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Duration of calls to the VLTD backend.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"role"},
	)

	ActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activations_total",
			Help:      "Total number of vehicle activation submits.",
		},
		[]string{"variant", "result"},
	)

	LocationPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_polls_total",
			Help:      "Total number of live-map location polls.",
		},
		[]string{"role", "result"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open operator sessions.",
		},
	)
)

// Result labels a success/failure counter.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		BackendRequestsTotal,
		BackendRequestDurationSeconds,
		ActivationsTotal,
		LocationPollsTotal,
		SessionsActive,
	)
}
