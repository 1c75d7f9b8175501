package grid

import "github.com/prometheus/client_golang/prometheus"

var (
	rebalanceCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "rebalancer",
			Name:      "cycles_total",
			Help:      "Completed rebalance cycles by strategy.",
		},
		[]string{"strategy"},
	)

	coverageGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dispatch",
			Subsystem: "rebalancer",
			Name:      "overall_coverage",
			Help:      "Fraction of grid cells with at least one driver.",
		},
	)

	repositionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Subsystem: "rebalancer",
			Name:      "repositions_total",
			Help:      "Reposition actions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(rebalanceCyclesTotal, coverageGauge, repositionsTotal)
}
