package route

import "github.com/prometheus/client_golang/prometheus"

var (
	routerRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "router",
			Name:      "requests_total",
			Help:      "Requests issued to the external router.",
		},
	)

	routerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "router",
			Name:      "failures_total",
			Help:      "Router failures by kind.",
		},
		[]string{"kind"},
	)

	routerRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Subsystem: "router",
			Name:      "request_duration_seconds",
			Help:      "External router call latency.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(routerRequestsTotal, routerFailuresTotal, routerRequestDuration)
}
