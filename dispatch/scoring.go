package dispatch

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Search radii and availability decay horizons per tier.
const (
	BARQSearchRadiusKm      = 5.0
	BARQEmergencyRadiusKm   = 10.0
	BULLETSearchRadiusKm    = 20.0
	barqAvailabilityHorizon = 10.0 // minutes until score hits zero
	bulletAvailHorizon      = 30.0

	defaultPerformanceRating = 0.8
)

// ScoringWeights are the per-tier factor weights. A tier uses only a subset
// of the factors; unused factors carry weight zero. Weights must sum to 1.
type ScoringWeights struct {
	Proximity    float64 `yaml:"proximity" json:"proximity"`
	Availability float64 `yaml:"availability" json:"availability"`
	Performance  float64 `yaml:"performance" json:"performance"`
	Capacity     float64 `yaml:"capacity" json:"capacity"`
	Efficiency   float64 `yaml:"efficiency" json:"efficiency"`
	Fatigue      float64 `yaml:"fatigue" json:"fatigue"`
}

// DefaultBARQWeights returns the BARQ scoring profile:
// proximity 0.40, availability 0.30, performance 0.20, fatigue 0.10.
func DefaultBARQWeights() ScoringWeights {
	return ScoringWeights{Proximity: 0.40, Availability: 0.30, Performance: 0.20, Fatigue: 0.10}
}

// DefaultBULLETWeights returns the BULLET scoring profile:
// proximity 0.25, capacity 0.30, efficiency 0.25, fatigue 0.20.
func DefaultBULLETWeights() ScoringWeights {
	return ScoringWeights{Proximity: 0.25, Capacity: 0.30, Efficiency: 0.25, Fatigue: 0.20}
}

// Sum returns the total weight.
func (w ScoringWeights) Sum() float64 {
	return w.Proximity + w.Availability + w.Performance + w.Capacity + w.Efficiency + w.Fatigue
}

// Validate checks that the weights are non-negative and sum to 1.
func (w ScoringWeights) Validate() error {
	for name, v := range map[string]float64{
		"proximity": w.Proximity, "availability": w.Availability,
		"performance": w.Performance, "capacity": w.Capacity,
		"efficiency": w.Efficiency, "fatigue": w.Fatigue,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %q must be a finite non-negative number, got %v", name, v)
		}
	}
	if s := w.Sum(); math.Abs(s-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %v", s)
	}
	return nil
}

// candidate carries a driver through the scoring pipeline together with its
// per-factor sub-scores, each clamped to [0,1].
type candidate struct {
	driver     Driver
	distanceKm float64

	proximity    float64
	availability float64
	performance  float64
	capacity     float64
	efficiency   float64
	fatigue      float64

	total float64
}

// clamp01 bounds s to [0,1].
func clamp01(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// proximityScore decays exponentially with distance: exp(-d / (0.5*maxD)).
func proximityScore(distKm, maxKm float64) float64 {
	return clamp01(math.Exp(-distKm / (0.5 * maxKm)))
}

// availabilityScore is 1 for immediately-available drivers and decays
// linearly with the wait in minutes, reaching zero at the tier horizon.
func availabilityScore(d Driver, tier ServiceType, now time.Time) float64 {
	if d.ImmediatelyAvailable(now) {
		return 1.0
	}
	waitMin := d.EstimatedAvailability.Sub(now).Minutes()
	horizon := barqAvailabilityHorizon
	if tier == BULLET {
		horizon = bulletAvailHorizon
	}
	return clamp01(1.0 - waitMin/horizon)
}

// performanceScore is the reported rating in [0,1]; unreported drivers
// score the fleet default 0.8.
func performanceScore(d Driver) float64 {
	if d.PerformanceRating <= 0 {
		return defaultPerformanceRating
	}
	return clamp01(d.PerformanceRating)
}

// capacityScore is remaining slots over the tier ceiling.
func capacityScore(d Driver, tier ServiceType) float64 {
	ceil := MaxBARQCapacity
	if tier == BULLET {
		ceil = MaxBULLETCapacity
	}
	return clamp01(float64(d.RemainingCapacity(tier)) / float64(ceil))
}

// scoreCandidates fills in the sub-scores and totals for cands and sorts
// them best-first. Ties on total break lexicographically on
// (proximity, availability|capacity, performance|efficiency), then on the
// advisory recent-assignment count (fewer is better), then on driver ID
// for determinism.
func scoreCandidates(cands []candidate, tier ServiceType, w ScoringWeights, maxKm float64, now time.Time, recentCount func(driverID string) int) []candidate {
	for i := range cands {
		c := &cands[i]
		c.proximity = proximityScore(c.distanceKm, maxKm)
		c.availability = availabilityScore(c.driver, tier, now)
		c.performance = performanceScore(c.driver)
		c.capacity = capacityScore(c.driver, tier)
		c.fatigue = clamp01(c.driver.Fatigue.Score())
		// efficiency stays as set by the caller (route-improvement estimate,
		// 0 when unmeasurable)
		c.efficiency = clamp01(c.efficiency)

		c.total = w.Proximity*c.proximity +
			w.Availability*c.availability +
			w.Performance*c.performance +
			w.Capacity*c.capacity +
			w.Efficiency*c.efficiency +
			w.Fatigue*c.fatigue
	}

	second := func(c candidate) float64 {
		if tier == BULLET {
			return c.capacity
		}
		return c.availability
	}
	third := func(c candidate) float64 {
		if tier == BULLET {
			return c.efficiency
		}
		return c.performance
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.total != b.total {
			return a.total > b.total
		}
		if a.proximity != b.proximity {
			return a.proximity > b.proximity
		}
		if second(a) != second(b) {
			return second(a) > second(b)
		}
		if third(a) != third(b) {
			return third(a) > third(b)
		}
		if recentCount != nil {
			ra, rb := recentCount(a.driver.ID), recentCount(b.driver.ID)
			if ra != rb {
				return ra < rb
			}
		}
		return a.driver.ID < b.driver.ID
	})
	return cands
}

// backupsFrom converts the runners-up (positions 1..3) into backup records.
func backupsFrom(scored []candidate) []BackupDriver {
	var backups []BackupDriver
	for i := 1; i < len(scored) && i <= 3; i++ {
		backups = append(backups, BackupDriver{DriverID: scored[i].driver.ID, Score: scored[i].total})
	}
	return backups
}
