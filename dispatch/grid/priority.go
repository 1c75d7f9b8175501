package grid

import (
	"sort"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// PriorityBucket bands a need's priority score.
type PriorityBucket string

const (
	BucketCritical PriorityBucket = "critical"
	BucketHigh     PriorityBucket = "high"
	BucketMedium   PriorityBucket = "medium"
	BucketLow      PriorityBucket = "low"
)

// Strategy is the overall posture of one rebalance cycle.
type Strategy string

const (
	// StrategyEmergency: at least one critical coverage gap exists.
	StrategyEmergency Strategy = "EMERGENCY"
	// StrategyPredictive: the forecaster reports an expected demand spike.
	StrategyPredictive Strategy = "PREDICTIVE"
	// StrategyProactive: more than three high-priority gaps.
	StrategyProactive Strategy = "PROACTIVE"
	// StrategyReactive: routine upkeep.
	StrategyReactive Strategy = "REACTIVE"
)

// Forecast is the optional demand forecaster output.
type Forecast struct {
	ExpectedSpike bool        `yaml:"expectedSpike" json:"expectedSpike"`
	Hotspots      []geo.Point `yaml:"hotspots,omitempty" json:"hotspots,omitempty"`
}

// Need is one underserved cell with its priority and the driver counts
// required to close the gap.
type Need struct {
	Cell           CellCoverage
	Priority       float64
	Bucket         PriorityBucket
	RequiredBARQ   int
	RequiredBULLET int
}

// needPriority scores an underserved cell in [0,1]:
// +0.4 for a dead BARQ cell with real demand, +0.3 for a dead BULLET cell,
// up to +0.3 for pending orders, +0.2 when a forecast hotspot falls in the
// cell.
func needPriority(cc CellCoverage, g *Grid, forecast *Forecast) float64 {
	p := 0.0
	if cc.BarqDrivers == 0 && cc.Demand.BARQ > 0.3 {
		p += 0.4
	}
	if cc.BulletDrivers == 0 && cc.Demand.BULLET > 0.2 {
		p += 0.3
	}
	pending := 0.1 * float64(cc.PendingOrders)
	if pending > 0.3 {
		pending = 0.3
	}
	p += pending
	if forecast != nil && cellHasHotspot(cc, g, forecast.Hotspots) {
		p += 0.2
	}
	if p > 1 {
		p = 1
	}
	return p
}

// cellHasHotspot reports whether any forecast hotspot maps to cc's cell.
func cellHasHotspot(cc CellCoverage, g *Grid, hotspots []geo.Point) bool {
	for _, h := range hotspots {
		if cell, ok := g.CellAt(h); ok && cell.Row == cc.Row && cell.Col == cc.Col {
			return true
		}
	}
	return false
}

// bucketOf bands a priority score.
func bucketOf(p float64) PriorityBucket {
	switch {
	case p > 0.8:
		return BucketCritical
	case p > 0.6:
		return BucketHigh
	case p > 0.4:
		return BucketMedium
	default:
		return BucketLow
	}
}

// BuildNeeds converts the underserved cells of an analysis into prioritised
// needs, highest priority first (cell id breaks ties for determinism).
func BuildNeeds(analysis CoverageAnalysis, g *Grid, th Thresholds, forecast *Forecast) []Need {
	needs := make([]Need, 0, len(analysis.Underserved))
	for _, cc := range analysis.Underserved {
		n := Need{Cell: cc}
		n.Priority = needPriority(cc, g, forecast)
		n.Bucket = bucketOf(n.Priority)
		if cc.Demand.BARQ > barqDemandFloor && cc.BarqDrivers < th.MinBARQ {
			n.RequiredBARQ = th.MinBARQ - cc.BarqDrivers
		}
		if cc.Demand.BULLET > bulletDemandFloor && cc.BulletDrivers < th.MinBULLET {
			n.RequiredBULLET = th.MinBULLET - cc.BulletDrivers
		}
		needs = append(needs, n)
	}
	sort.SliceStable(needs, func(i, j int) bool {
		if needs[i].Priority != needs[j].Priority {
			return needs[i].Priority > needs[j].Priority
		}
		return needs[i].Cell.CellID < needs[j].Cell.CellID
	})
	return needs
}

// SelectStrategy picks the cycle posture from the needs and the forecast.
func SelectStrategy(needs []Need, forecast *Forecast) Strategy {
	high := 0
	for _, n := range needs {
		switch n.Bucket {
		case BucketCritical:
			return StrategyEmergency
		case BucketHigh:
			high++
		}
	}
	if forecast != nil && forecast.ExpectedSpike {
		return StrategyPredictive
	}
	if high > 3 {
		return StrategyProactive
	}
	return StrategyReactive
}
