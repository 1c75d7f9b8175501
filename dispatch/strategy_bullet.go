package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// assignBULLET runs the batched-tier strategy: probe existing BULLET trips
// for a cheap insertion first, then a 20 km scored search, then
// busy-but-capable absorption, then a queue outcome.
func (e *Engine) assignBULLET(ctx context.Context, order Order, snap FleetSnapshot, deps Deps) Assignment {
	if asg, ok := e.batchProbe(ctx, order, snap, deps); ok {
		return asg
	}

	cands := candidatesWithin(snap.Available, BULLET, order, BULLETSearchRadiusKm)
	if len(cands) > 0 {
		return e.scoredAssignment(ctx, order, cands, BULLET, BULLETSearchRadiusKm, AssignImmediate, deps)
	}

	if driver, ok := firstBusyCapable(snap.Busy, BULLET); ok {
		return e.absorbedAssignment(ctx, order, driver, deps)
	}

	logrus.Debugf("order %s: %v within %.0f km, queueing", order.ID, ErrNoCandidates, BULLETSearchRadiusKm)
	return Assignment{
		OrderID:    order.ID,
		Type:       AssignQueued,
		Reasoning:  []string{"no BULLET-capable drivers with remaining capacity"},
		Warnings:   []string{"order queued - no eligible drivers"},
		Confidence: 0,
	}
}

// batchProbe looks for a busy driver already carrying at least one BULLET
// order whose route absorbs the new order within the detour ceiling. The
// first fitting driver wins; available drivers are never scored when a
// batch fits.
func (e *Engine) batchProbe(ctx context.Context, order Order, snap FleetSnapshot, deps Deps) (Assignment, bool) {
	for _, d := range snap.Busy {
		if d.RemainingCapacity(BULLET) <= 0 {
			continue
		}
		existing := d.OrdersOf(BULLET)
		if len(existing) == 0 {
			continue
		}
		report := e.fitter.Fit(order, existing, d.Location)
		if !report.Fits || report.DetourKm > MaxBatchDetourKm {
			continue
		}

		est := e.estimateTimes(ctx, d, order)
		asg := Assignment{
			OrderID:               order.ID,
			AssignedDriver:        d.ID,
			Type:                  AssignBatched,
			BatchID:               uuid.NewString(),
			EstimatedPickupTime:   est.pickupTime,
			EstimatedDeliveryTime: est.deliveryTime,
			Confidence:            batchedConfidence,
			Score:                 batchedConfidence,
			Reasoning: []string{
				fmt.Sprintf("order fits driver %s's existing route with %.2f km detour (%d order(s) en route)",
					d.ID, report.DetourKm, len(existing)),
			},
		}
		e.annotateFeasibility(ctx, &asg, order, est, deps)
		logrus.Debugf("batched order %s onto driver %s (detour %.2f km, batch %s)",
			order.ID, d.ID, report.DetourKm, asg.BatchID)
		return asg, true
	}
	return Assignment{}, false
}
