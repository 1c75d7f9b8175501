// Package dispatch implements the driver-order matching core of the
// delivery platform: per-order assignment with tier-specific scoring,
// batching and escalation, plus the shared fleet snapshot model consumed
// by the grid rebalancer.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Deps carries optional per-call inputs to Assign. A nil FleetStatus means
// the engine acquires a fresh snapshot from its provider; a non-nil
// SLAFeasibility short-circuits the time-window check.
type Deps struct {
	FleetStatus    *FleetSnapshot
	SLAFeasibility *FeasibilityReport
}

// EngineStats is a point-in-time copy of the engine's outcome counters.
type EngineStats struct {
	ByType         map[AssignmentType]int
	Total          int
	Queued         int
	TrackedDrivers int
}

// Engine is the order assignment component. It is pure with respect to the
// input snapshot; the only visible mutations are the recent-assignment log
// and the outcome counters, both applied after the assignment record is
// finalised.
type Engine struct {
	cfg    Config
	fleet  FleetStatusProvider
	eta    ETAService // nil: fixed-rate fallback only
	fitter RouteFitter

	recent *RecentAssignments
	now    func() time.Time

	mu     sync.Mutex
	byType map[AssignmentType]int
}

// NewEngine builds an assignment engine. The fleet provider is required;
// eta may be nil (fallback estimates apply); a nil fitter defaults to
// cheapest insertion.
func NewEngine(cfg Config, fleet FleetStatusProvider, eta ETAService, fitter RouteFitter) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fleet == nil {
		return nil, fmt.Errorf("%w: fleet status provider", ErrMissingCollaborator)
	}
	if fitter == nil {
		fitter = CheapestInsertionFitter{}
	}
	return &Engine{
		cfg:    cfg,
		fleet:  fleet,
		eta:    eta,
		fitter: fitter,
		recent: NewRecentAssignments(),
		now:    time.Now,
		byType: make(map[AssignmentType]int),
	}, nil
}

// Assign selects the best driver for order, or defers it. A cancelled
// context leaves no partial state: the recent-assignment entry and counters
// are only written after the record is finalised and the context is still
// live.
func (e *Engine) Assign(ctx context.Context, order Order, deps Deps) (Assignment, error) {
	if !order.ServiceType.Valid() {
		return Assignment{}, fmt.Errorf("%w: %q", ErrUnknownServiceType, order.ServiceType)
	}

	snap, err := e.snapshot(ctx, deps)
	if err != nil {
		return Assignment{}, fmt.Errorf("acquire fleet snapshot: %w", err)
	}

	var asg Assignment
	switch order.ServiceType {
	case BARQ:
		asg = e.assignBARQ(ctx, order, snap, deps)
	case BULLET:
		asg = e.assignBULLET(ctx, order, snap, deps)
	}

	if err := ctx.Err(); err != nil {
		// Cancelled mid-call: discard, leave no bookkeeping behind.
		return Assignment{}, err
	}

	if asg.Assigned() {
		e.recent.Record(asg.AssignedDriver, order.ID, order.ServiceType, e.now())
		assignmentScore.WithLabelValues(string(order.ServiceType)).Observe(asg.Score)
	}
	assignmentsTotal.WithLabelValues(string(order.ServiceType), string(asg.Type)).Inc()

	e.mu.Lock()
	e.byType[asg.Type]++
	e.mu.Unlock()

	logrus.Debugf("assigned order %s: type=%s driver=%q confidence=%.2f",
		order.ID, asg.Type, asg.AssignedDriver, asg.Confidence)
	return asg, nil
}

// Recent exposes the advisory assignment log (read-only use).
func (e *Engine) Recent() *RecentAssignments { return e.recent }

// Stats returns a copy of the outcome counters.
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := EngineStats{
		ByType:         make(map[AssignmentType]int, len(e.byType)),
		TrackedDrivers: e.recent.TrackedDrivers(),
	}
	for t, n := range e.byType {
		stats.ByType[t] = n
		stats.Total += n
		if t == AssignQueued || t == AssignQueuedPriority {
			stats.Queued += n
		}
	}
	return stats
}

func (e *Engine) snapshot(ctx context.Context, deps Deps) (FleetSnapshot, error) {
	if deps.FleetStatus != nil {
		return *deps.FleetStatus, nil
	}
	return e.fleet.GetFleetStatus(ctx)
}

// recentCount is the advisory tie-break input: assignments in the last hour.
func (e *Engine) recentCount(driverID string) int {
	return e.recent.CountSince(driverID, e.now().Add(-recentWindow))
}

// timeEstimate holds the travel estimates for one driver-order pairing.
type timeEstimate struct {
	pickupTime   time.Time
	deliveryTime time.Time
	travelMin    float64
	fallback     bool
}

// estimateTimes computes pickup and delivery estimates for driver serving
// order. The ETA collaborator refines the estimate when present; any
// failure is contained and the fixed-rate fallback applies.
func (e *Engine) estimateTimes(ctx context.Context, driver Driver, order Order) timeEstimate {
	now := e.now()
	toPickupKm := distanceKm(driver, order)
	tripKm := tripDistanceKm(order)

	toPickupMin, fb1 := e.travelMinutes(ctx, toPickupKm, order)
	tripMin, fb2 := e.travelMinutes(ctx, tripKm, order)

	est := timeEstimate{
		travelMin: toPickupMin,
		fallback:  fb1 || fb2,
	}
	est.pickupTime = now.Add(minutes(toPickupMin))
	est.deliveryTime = now.Add(minutes(toPickupMin + PickupServiceMinutes + tripMin))
	return est
}

// travelMinutes queries the ETA collaborator, falling back to the fixed
// rate on absence or failure. The bool reports whether the fallback fired.
func (e *Engine) travelMinutes(ctx context.Context, km float64, order Order) (float64, bool) {
	if e.eta == nil {
		return fallbackTravelMinutes(km), true
	}
	res, err := e.eta.CalculateETA(ctx, ETARequest{
		DistanceKm:  km,
		VehicleType: "motorbike",
		NumStops:    1,
	})
	if err != nil {
		logrus.Warnf("order %s: %v, using fixed-rate fallback: %v", order.ID, ErrETAUnavailable, err)
		etaFallbacksTotal.Inc()
		return fallbackTravelMinutes(km), true
	}
	return res.TotalMinutes, false
}

// annotateFeasibility fills in the time-window feasibility of asg when the
// order carries a window, preferring a caller-supplied report.
func (e *Engine) annotateFeasibility(ctx context.Context, asg *Assignment, order Order, est timeEstimate, deps Deps) {
	if order.TimeWindow == nil {
		return
	}
	report := FeasibilityReport{}
	switch {
	case deps.SLAFeasibility != nil:
		report = *deps.SLAFeasibility
	case e.eta != nil:
		r, err := e.eta.CheckTimeWindowFeasibility(ctx, FeasibilityRequest{
			CurrentTime:   e.now(),
			Window:        *order.TimeWindow,
			TravelMinutes: est.travelMin,
		})
		if err != nil {
			logrus.Warnf("feasibility check failed for order %s, using local fallback: %v", order.ID, err)
			report = fallbackFeasibility(FeasibilityRequest{CurrentTime: e.now(), Window: *order.TimeWindow, TravelMinutes: est.travelMin})
		} else {
			report = r
		}
	default:
		report = fallbackFeasibility(FeasibilityRequest{CurrentTime: e.now(), Window: *order.TimeWindow, TravelMinutes: est.travelMin})
	}
	asg.TimeWindowFeasibility = report.Status
	if report.Status == FeasibilityLate {
		asg.Warnings = append(asg.Warnings, "delivery window cannot be met with current travel estimate")
	}
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
