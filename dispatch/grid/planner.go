package grid

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/barqfleet/dispatch-engine/dispatch"
	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// Planner constants: eligibility floor, incentive schedule, cost model.
const (
	// minIdleSeconds is the eligibility floor. Eligibility is fixed at
	// this value; the configured idleTimeThreshold is advisory only.
	minIdleSeconds = 300

	incentiveCritical = 10.0
	incentiveHigh     = 5.0
	incentiveBaseline = 2.0 // travel baseline added to every action

	fuelCostPerKm       = 0.5
	repositionMinPerKm  = 3.0
	criticalScoreFactor = 1.5
	highScoreFactor     = 1.2
)

// RepositionAction instructs one idle driver to move to a cell centre.
type RepositionAction struct {
	DriverID         string         `json:"driverId"`
	From             geo.Point      `json:"from"`
	To               geo.Point      `json:"to"`
	GridID           string         `json:"gridId"`
	Priority         PriorityBucket `json:"priority"`
	EstimatedTimeMin float64        `json:"estimatedTime"`
	Incentive        float64        `json:"incentive"`
	Reason           string         `json:"reason"`
}

// Plan is the output of one planning pass.
type Plan struct {
	ID               string             `json:"id"`
	Strategy         Strategy           `json:"strategy"`
	Actions          []RepositionAction `json:"actions"`
	Cost             float64            `json:"cost"` // incentives plus fuel
	EstimatedTimeMin float64            `json:"estimatedTime"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// EligibleDrivers filters the snapshot down to repositionable drivers:
// idle, available, past the fixed 300 s idle floor, and not already
// repositioning.
func EligibleDrivers(snap dispatch.FleetSnapshot, active map[string]bool) []dispatch.Driver {
	var eligible []dispatch.Driver
	for _, d := range snap.Available {
		if d.Status != dispatch.DriverIdle || !d.Available {
			continue
		}
		if d.IdleSeconds <= minIdleSeconds {
			continue
		}
		if active[d.ID] {
			continue
		}
		eligible = append(eligible, d)
	}
	return eligible
}

// repositionScore ranks a driver for one need:
//
//	100 - 2*distance + capability bonus + idle bonus + rating bonus,
//
// boosted 1.5x for critical and 1.2x for high needs, floored at 0.
func repositionScore(d dispatch.Driver, need Need) float64 {
	distKm := geo.HaversineKm(d.Location, need.Cell.Center)
	score := 100.0 - 2.0*distKm

	if need.RequiredBARQ > 0 && d.CanServe(dispatch.BARQ) {
		score += 20
	} else if need.RequiredBULLET > 0 && d.CanServe(dispatch.BULLET) {
		score += 15
	}

	idleBonus := float64(d.IdleSeconds) / 60.0
	if idleBonus > 20 {
		idleBonus = 20
	}
	score += idleBonus
	score += 5.0 * (d.Rating - 4.0)

	switch need.Bucket {
	case BucketCritical:
		score *= criticalScoreFactor
	case BucketHigh:
		score *= highScoreFactor
	}
	if score < 0 {
		score = 0
	}
	return score
}

// BuildPlan matches eligible drivers to needs, critical bucket first, then
// high. Under EMERGENCY the high bucket is skipped entirely: every driver
// goes to a critical gap. Each match consumes the driver and decrements the
// need. Planning is deterministic for a fixed snapshot: same needs, same
// pool, same actions.
func BuildPlan(needs []Need, pool []dispatch.Driver, strategy Strategy, now time.Time) Plan {
	plan := Plan{
		ID:        uuid.NewString(),
		Strategy:  strategy,
		CreatedAt: now,
	}

	remaining := make([]dispatch.Driver, len(pool))
	copy(remaining, pool)

	for _, bucket := range []PriorityBucket{BucketCritical, BucketHigh} {
		if bucket == BucketHigh && strategy == StrategyEmergency {
			continue
		}
		for _, need := range needs {
			if need.Bucket != bucket {
				continue
			}
			required := need.RequiredBARQ + need.RequiredBULLET
			for required > 0 && len(remaining) > 0 {
				best := pickBest(remaining, need)
				driver := remaining[best]
				remaining = append(remaining[:best], remaining[best+1:]...)

				plan.Actions = append(plan.Actions, buildAction(driver, need))
				required--
			}
		}
	}

	for _, a := range plan.Actions {
		distKm := geo.HaversineKm(a.From, a.To)
		plan.Cost += a.Incentive + fuelCostPerKm*distKm
		if a.EstimatedTimeMin > plan.EstimatedTimeMin {
			plan.EstimatedTimeMin = a.EstimatedTimeMin
		}
	}
	return plan
}

// pickBest returns the index of the highest-scoring driver for need.
// Ties break on driver ID for determinism.
func pickBest(pool []dispatch.Driver, need Need) int {
	best, bestScore := 0, -1.0
	for i, d := range pool {
		s := repositionScore(d, need)
		if s > bestScore || (s == bestScore && d.ID < pool[best].ID) {
			best, bestScore = i, s
		}
	}
	return best
}

func buildAction(d dispatch.Driver, need Need) RepositionAction {
	distKm := geo.HaversineKm(d.Location, need.Cell.Center)
	incentive := incentiveBaseline
	switch need.Bucket {
	case BucketCritical:
		incentive += incentiveCritical
	case BucketHigh:
		incentive += incentiveHigh
	}
	return RepositionAction{
		DriverID:         d.ID,
		From:             d.Location,
		To:               need.Cell.Center,
		GridID:           need.Cell.CellID,
		Priority:         need.Bucket,
		EstimatedTimeMin: math.Ceil(distKm * repositionMinPerKm),
		Incentive:        incentive,
		Reason:           fmt.Sprintf("coverage gap in %s (%s priority)", need.Cell.CellID, need.Bucket),
	}
}

// Improvement is the expected effect of a cycle's accepted actions.
type Improvement struct {
	GridsImproved    int     `json:"gridsImproved"`
	CriticalResolved int     `json:"criticalResolved"`
	CoverageIncrease float64 `json:"coverageIncrease"`
	SLAImprovement   float64 `json:"slaImprovement"`
}

// EstimateImprovement derives the expected-improvement report from the
// accepted actions: distinct cells improved, critical needs resolved, and
// the first-order coverage and SLA estimates.
func EstimateImprovement(accepted []RepositionAction) Improvement {
	cells := make(map[string]bool, len(accepted))
	imp := Improvement{}
	for _, a := range accepted {
		cells[a.GridID] = true
		if a.Priority == BucketCritical {
			imp.CriticalResolved++
		}
	}
	imp.GridsImproved = len(cells)
	imp.CoverageIncrease = 0.01 * float64(imp.GridsImproved)
	imp.SLAImprovement = 0.05 * float64(imp.CriticalResolved)
	return imp
}

// sortActionsByPriority orders actions critical first for dispatch.
func sortActionsByPriority(actions []RepositionAction) {
	rank := map[PriorityBucket]int{BucketCritical: 0, BucketHigh: 1, BucketMedium: 2, BucketLow: 3}
	sort.SliceStable(actions, func(i, j int) bool {
		return rank[actions[i].Priority] < rank[actions[j].Priority]
	})
}
