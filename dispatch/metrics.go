package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	assignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "engine",
			Name:      "assignments_total",
			Help:      "Assignment outcomes by service type and assignment type.",
		},
		[]string{"service_type", "assignment_type"},
	)

	assignmentScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Subsystem: "engine",
			Name:      "assignment_score",
			Help:      "Composite score of the selected driver.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"service_type"},
	)

	etaFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "engine",
			Name:      "eta_fallbacks_total",
			Help:      "Times the fixed-rate ETA fallback replaced the collaborator.",
		},
	)
)

func init() {
	prometheus.MustRegister(assignmentsTotal, assignmentScore, etaFallbacksTotal)
}
