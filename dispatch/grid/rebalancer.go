package grid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/barqfleet/dispatch-engine/dispatch"
)

// repositionMaxAge is how long an accepted reposition may stay in-flight
// before the tracking entry is swept.
const repositionMaxAge = 30 * time.Minute

// DispatchResult is the driver collaborator's answer to a reposition
// request. A decline is not an error from the engine's perspective.
type DispatchResult struct {
	Accepted bool
	Reason   string
}

// RepositionDispatcher delivers reposition requests to drivers. Calls may
// suspend; implementations must honor the context deadline and be
// idempotent on (driverId, gridId).
type RepositionDispatcher interface {
	SendRepositionRequest(ctx context.Context, action RepositionAction) (DispatchResult, error)
}

// Forecaster is the optional demand forecaster collaborator.
type Forecaster interface {
	Forecast(ctx context.Context) (Forecast, error)
}

// ActiveReposition tracks one accepted in-flight action.
type ActiveReposition struct {
	Action    RepositionAction
	StartedAt time.Time
	Status    string // "in_progress"
}

// DispatchOutcome records one action's fate within a cycle.
type DispatchOutcome struct {
	Action RepositionAction
	Reason string
}

// CycleResult is the record of one rebalance cycle.
type CycleResult struct {
	Timestamp   time.Time
	Coalesced   bool
	Strategy    Strategy
	Analysis    CoverageAnalysis
	Plan        Plan
	Successful  []DispatchOutcome
	Failed      []DispatchOutcome
	Declined    []DispatchOutcome
	SuccessRate float64
	Improvement Improvement

	// DispatchErrors aggregates per-action transport failures. The cycle
	// itself never fails because of them.
	DispatchErrors error
}

// Rebalancer owns the coverage grid and the activeRepositioning map, and
// runs serialized analysis/planning/dispatch cycles. A trigger arriving
// while a cycle is in flight is coalesced (dropped), not queued.
type Rebalancer struct {
	grid       *Grid
	thresholds Thresholds
	interval   time.Duration
	fleet      dispatch.FleetStatusProvider
	dispatcher RepositionDispatcher
	forecaster Forecaster // nil: no predictive input
	now        func() time.Time

	cycleMu sync.Mutex // held for the duration of a cycle; TryLock coalesces

	mu      sync.Mutex // guards active and history
	active  map[string]ActiveReposition
	history []CycleResult
}

// NewRebalancer builds a rebalancer over its own grid. The fleet provider
// and dispatcher are required; the forecaster is optional.
func NewRebalancer(cfg dispatch.Config, fleet dispatch.FleetStatusProvider, dispatcher RepositionDispatcher, forecaster Forecaster) (*Rebalancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fleet == nil {
		return nil, fmt.Errorf("%w: fleet status provider", dispatch.ErrMissingCollaborator)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: reposition dispatcher", dispatch.ErrMissingCollaborator)
	}
	g, err := NewGrid(cfg.Grid.Rows, cfg.Grid.Cols, cfg.Grid.Bounds)
	if err != nil {
		return nil, err
	}
	return &Rebalancer{
		grid:       g,
		thresholds: ThresholdsFromConfig(cfg.Coverage),
		interval:   cfg.Triggers.CheckInterval(),
		fleet:      fleet,
		dispatcher: dispatcher,
		forecaster: forecaster,
		now:        time.Now,
		active:     make(map[string]ActiveReposition),
	}, nil
}

// Grid exposes the rebalancer's grid for demand/pending seeding. The grid
// is owned by the rebalancer; callers must not mutate occupancy.
func (r *Rebalancer) Grid() *Grid { return r.grid }

// Run executes cycles on the configured period until ctx is cancelled.
func (r *Rebalancer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logrus.Infof("rebalancer running every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("rebalancer stopped")
			return
		case <-ticker.C:
			if _, err := r.TriggerNow(ctx); err != nil {
				logrus.Warnf("rebalance cycle failed: %v", err)
			}
		}
	}
}

// TriggerNow runs one cycle immediately. If a cycle is already in flight
// the trigger is coalesced: the result carries Coalesced=true and no work
// is done.
func (r *Rebalancer) TriggerNow(ctx context.Context) (CycleResult, error) {
	if !r.cycleMu.TryLock() {
		logrus.Debug("rebalance trigger coalesced: cycle already in flight")
		return CycleResult{Coalesced: true, Timestamp: r.now()}, nil
	}
	defer r.cycleMu.Unlock()
	return r.runCycle(ctx)
}

func (r *Rebalancer) runCycle(ctx context.Context) (CycleResult, error) {
	started := r.now()
	result := CycleResult{Timestamp: started}

	r.sweepStale(started)

	snap, err := r.fleet.GetFleetStatus(ctx)
	if err != nil {
		return result, fmt.Errorf("acquire fleet snapshot: %w", err)
	}

	var forecast *Forecast
	if r.forecaster != nil {
		f, err := r.forecaster.Forecast(ctx)
		if err != nil {
			logrus.Warnf("forecaster unavailable, proceeding without predictive input: %v", err)
		} else {
			forecast = &f
		}
	}

	// Grid mutation happens only here, inside the serialized cycle.
	r.grid.Reset()
	r.grid.Place(snap, started)

	result.Analysis = Analyze(r.grid, snap, r.thresholds, started)
	needs := BuildNeeds(result.Analysis, r.grid, r.thresholds, forecast)
	result.Strategy = SelectStrategy(needs, forecast)

	pool := EligibleDrivers(snap, r.activeIDs())
	result.Plan = BuildPlan(needs, pool, result.Strategy, started)
	sortActionsByPriority(result.Plan.Actions)

	r.dispatchActions(ctx, &result)

	if n := len(result.Plan.Actions); n > 0 {
		result.SuccessRate = float64(len(result.Successful)) / float64(n)
	}
	result.Improvement = EstimateImprovement(outcomesToActions(result.Successful))

	rebalanceCyclesTotal.WithLabelValues(string(result.Strategy)).Inc()
	coverageGauge.Set(result.Analysis.OverallCoverage)
	repositionsTotal.WithLabelValues("successful").Add(float64(len(result.Successful)))
	repositionsTotal.WithLabelValues("failed").Add(float64(len(result.Failed)))
	repositionsTotal.WithLabelValues("declined").Add(float64(len(result.Declined)))

	r.mu.Lock()
	r.history = append(r.history, result)
	r.mu.Unlock()

	logrus.Infof("rebalance cycle: strategy=%s coverage=%.2f actions=%d ok=%d failed=%d declined=%d",
		result.Strategy, result.Analysis.OverallCoverage, len(result.Plan.Actions),
		len(result.Successful), len(result.Failed), len(result.Declined))
	return result, nil
}

// dispatchActions submits every planned action. Previously accepted actions
// are never rolled back on later failures; only the failing action is
// dropped.
func (r *Rebalancer) dispatchActions(ctx context.Context, result *CycleResult) {
	var errs error
	for _, action := range result.Plan.Actions {
		res, err := r.dispatcher.SendRepositionRequest(ctx, action)
		switch {
		case err != nil:
			result.Failed = append(result.Failed, DispatchOutcome{Action: action, Reason: err.Error()})
			errs = multierror.Append(errs, fmt.Errorf("driver %s: %w", action.DriverID, err))
		case !res.Accepted:
			result.Declined = append(result.Declined, DispatchOutcome{Action: action, Reason: res.Reason})
		default:
			result.Successful = append(result.Successful, DispatchOutcome{Action: action})
			r.mu.Lock()
			r.active[action.DriverID] = ActiveReposition{
				Action:    action,
				StartedAt: r.now(),
				Status:    "in_progress",
			}
			r.mu.Unlock()
		}
	}
	result.DispatchErrors = errs
}

// sweepStale drops tracking entries older than the in-flight ceiling.
func (r *Rebalancer) sweepStale(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.active {
		if now.Sub(rec.StartedAt) > repositionMaxAge {
			logrus.Warnf("reposition of driver %s to %s exceeded %s, clearing", id, rec.Action.GridID, repositionMaxAge)
			delete(r.active, id)
		}
	}
}

// ClearRepositioning releases a driver once the collaborator reports the
// move finished (or abandoned).
func (r *Rebalancer) ClearRepositioning(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, driverID)
}

// ActiveRepositioning returns a copy of the tracking map.
func (r *Rebalancer) ActiveRepositioning() map[string]ActiveReposition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]ActiveReposition, len(r.active))
	for k, v := range r.active {
		out[k] = v
	}
	return out
}

// History returns a copy of the cycle records.
func (r *Rebalancer) History() []CycleResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CycleResult, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Rebalancer) activeIDs() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[string]bool, len(r.active))
	for id := range r.active {
		ids[id] = true
	}
	return ids
}

func outcomesToActions(outcomes []DispatchOutcome) []RepositionAction {
	actions := make([]RepositionAction, len(outcomes))
	for i, o := range outcomes {
		actions[i] = o.Action
	}
	return actions
}
