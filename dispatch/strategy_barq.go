package dispatch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// Confidence levels for outcomes that bypass scoring.
const (
	emergencyConfidence    = 0.6
	addedToRouteConfidence = 0.7
	batchedConfidence      = 0.85
)

func distanceKm(d Driver, o Order) float64 {
	return geo.HaversineKm(d.Location, o.Pickup)
}

func tripDistanceKm(o Order) float64 {
	return geo.HaversineKm(o.Pickup, o.Dropoff)
}

// candidatesWithin filters drivers down to those capable of tier, with
// remaining capacity, within radiusKm of the order pickup. Distances are
// computed once and carried on the candidate.
func candidatesWithin(drivers []Driver, tier ServiceType, order Order, radiusKm float64) []candidate {
	var cands []candidate
	for _, d := range drivers {
		if !d.CanServe(tier) || d.RemainingCapacity(tier) <= 0 {
			continue
		}
		dist := distanceKm(d, order)
		if dist <= radiusKm {
			cands = append(cands, candidate{driver: d, distanceKm: dist})
		}
	}
	return cands
}

// firstBusyCapable returns the first busy driver that can absorb one more
// order of tier, or false.
func firstBusyCapable(busy []Driver, tier ServiceType) (Driver, bool) {
	for _, d := range busy {
		if d.CanTakeMore(tier) {
			return d, true
		}
	}
	return Driver{}, false
}

// assignBARQ runs the immediate-tier strategy: 5 km scored search, then
// busy-but-capable absorption, then 10 km emergency escalation, then a
// priority queue outcome.
func (e *Engine) assignBARQ(ctx context.Context, order Order, snap FleetSnapshot, deps Deps) Assignment {
	cands := candidatesWithin(snap.Available, BARQ, order, BARQSearchRadiusKm)
	if len(cands) > 0 {
		return e.scoredAssignment(ctx, order, cands, BARQ, BARQSearchRadiusKm, AssignImmediate, deps)
	}

	if driver, ok := firstBusyCapable(snap.Busy, BARQ); ok {
		return e.absorbedAssignment(ctx, order, driver, deps)
	}

	// Emergency escalation: widen the radius. SLA is already at risk.
	cands = candidatesWithin(snap.Available, BARQ, order, BARQEmergencyRadiusKm)
	if len(cands) > 0 {
		asg := e.scoredAssignment(ctx, order, cands, BARQ, BARQEmergencyRadiusKm, AssignEmergency, deps)
		asg.Confidence = emergencyConfidence
		asg.Warnings = append(asg.Warnings, "SLA compliance at risk due to driver distance")
		return asg
	}

	logrus.Warnf("order %s: %v within %.0f km emergency radius, queueing with priority", order.ID, ErrNoCandidates, BARQEmergencyRadiusKm)
	return Assignment{
		OrderID:    order.ID,
		Type:       AssignQueuedPriority,
		Reasoning:  []string{"no BARQ-capable drivers within emergency radius"},
		Warnings:   []string{"SLA will be breached - no drivers available"},
		Confidence: 0,
	}
}

// scoredAssignment scores cands and builds the assignment record for the
// winner: top candidate assigned, next three as backups, confidence equal
// to the clamped composite score.
func (e *Engine) scoredAssignment(ctx context.Context, order Order, cands []candidate, tier ServiceType, radiusKm float64, typ AssignmentType, deps Deps) Assignment {
	weights := e.cfg.Scoring.Weights.BARQ
	if tier == BULLET {
		weights = e.cfg.Scoring.Weights.BULLET
	}
	scored := scoreCandidates(cands, tier, weights, radiusKm, e.now(), e.recentCount)
	best := scored[0]

	est := e.estimateTimes(ctx, best.driver, order)
	asg := Assignment{
		OrderID:               order.ID,
		AssignedDriver:        best.driver.ID,
		Type:                  typ,
		EstimatedPickupTime:   est.pickupTime,
		EstimatedDeliveryTime: est.deliveryTime,
		Score:                 best.total,
		Confidence:            clamp01(best.total),
		BackupDrivers:         backupsFrom(scored),
		Reasoning: []string{
			fmt.Sprintf("selected driver %s at %.2f km (score %.3f, proximity %.3f)",
				best.driver.ID, best.distanceKm, best.total, best.proximity),
			fmt.Sprintf("%d candidate(s) within %.0f km", len(scored), radiusKm),
		},
	}
	if est.fallback {
		asg.Reasoning = append(asg.Reasoning, "time estimates use fixed-rate fallback")
	}
	e.annotateFeasibility(ctx, &asg, order, est, deps)
	return asg
}

// absorbedAssignment hands the order to a busy driver with spare capacity.
func (e *Engine) absorbedAssignment(ctx context.Context, order Order, driver Driver, deps Deps) Assignment {
	est := e.estimateTimes(ctx, driver, order)
	asg := Assignment{
		OrderID:               order.ID,
		AssignedDriver:        driver.ID,
		Type:                  AssignAddedToRoute,
		EstimatedPickupTime:   est.pickupTime,
		EstimatedDeliveryTime: est.deliveryTime,
		Confidence:            addedToRouteConfidence,
		Score:                 addedToRouteConfidence,
		Reasoning: []string{
			fmt.Sprintf("no available drivers; busy driver %s has %d %s slot(s) remaining",
				driver.ID, driver.RemainingCapacity(order.ServiceType), order.ServiceType),
		},
	}
	e.annotateFeasibility(ctx, &asg, order, est, deps)
	return asg
}
