package grid

import (
	"time"

	"github.com/barqfleet/dispatch-engine/dispatch"
	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// Demand intensity floors below which an empty tier does not count as a
// coverage gap.
const (
	barqDemandFloor   = 0.1
	bulletDemandFloor = 0.1
)

// CellStatus classifies a cell's coverage.
type CellStatus string

const (
	CellUnderserved CellStatus = "underserved"
	CellOverserved  CellStatus = "overserved"
	CellOptimal     CellStatus = "optimal"
)

// Thresholds are the per-tier driver count bounds per cell.
type Thresholds struct {
	MinBARQ   int
	MaxBARQ   int
	MinBULLET int
	MaxBULLET int
}

// ThresholdsFromConfig lifts the engine coverage config into grid thresholds.
func ThresholdsFromConfig(cfg dispatch.CoverageConfig) Thresholds {
	return Thresholds{
		MinBARQ:   cfg.BARQ.MinDriversPerGrid,
		MaxBARQ:   cfg.BARQ.MaxDriversPerGrid,
		MinBULLET: cfg.BULLET.MinDriversPerGrid,
		MaxBULLET: cfg.BULLET.MaxDriversPerGrid,
	}
}

// CellCoverage is the per-cell analysis output: a value copy, safe to hand
// to readers outside the rebalancer.
type CellCoverage struct {
	CellID        string
	Row, Col      int
	Center        geo.Point
	TotalDrivers  int
	BarqDrivers   int
	BulletDrivers int
	PendingOrders int
	Demand        HistoricalDemand
	Status        CellStatus
}

// CoverageAnalysis is the citywide coverage report for one cycle.
type CoverageAnalysis struct {
	Cells       []CellCoverage
	Underserved []CellCoverage
	Overserved  []CellCoverage

	// OverallCoverage is the fraction of cells with any driver;
	// the per-tier variants count cells with at least one capable driver.
	OverallCoverage float64
	BarqCoverage    float64
	BulletCoverage  float64

	AnalyzedAt time.Time
}

// Analyze classifies every cell and computes the citywide coverage
// metrics. It reads the grid occupancy written by Place and the snapshot
// for driver capabilities; it does not mutate either.
func Analyze(g *Grid, snap dispatch.FleetSnapshot, th Thresholds, now time.Time) CoverageAnalysis {
	analysis := CoverageAnalysis{AnalyzedAt: now}

	covered, barqCovered, bulletCovered := 0, 0, 0
	for _, cell := range g.Cells() {
		cc := CellCoverage{
			CellID:        cell.ID,
			Row:           cell.Row,
			Col:           cell.Col,
			Center:        cell.Center,
			TotalDrivers:  len(cell.Drivers),
			PendingOrders: cell.PendingOrders,
			Demand:        cell.Demand,
		}
		for _, id := range cell.Drivers {
			d, ok := snap.Driver(id)
			if !ok {
				continue
			}
			if d.CanServe(dispatch.BARQ) {
				cc.BarqDrivers++
			}
			if d.CanServe(dispatch.BULLET) {
				cc.BulletDrivers++
			}
		}

		cc.Status = classify(cc, th)
		switch cc.Status {
		case CellUnderserved:
			analysis.Underserved = append(analysis.Underserved, cc)
		case CellOverserved:
			analysis.Overserved = append(analysis.Overserved, cc)
		}
		if cc.TotalDrivers > 0 {
			covered++
		}
		if cc.BarqDrivers > 0 {
			barqCovered++
		}
		if cc.BulletDrivers > 0 {
			bulletCovered++
		}
		analysis.Cells = append(analysis.Cells, cc)
	}

	total := float64(g.Rows() * g.Cols())
	analysis.OverallCoverage = float64(covered) / total
	analysis.BarqCoverage = float64(barqCovered) / total
	analysis.BulletCoverage = float64(bulletCovered) / total
	return analysis
}

// classify applies the under/over-service rules. A tier only counts as a
// gap when its historical demand clears the floor.
func classify(cc CellCoverage, th Thresholds) CellStatus {
	underBarq := cc.BarqDrivers < th.MinBARQ && cc.Demand.BARQ > barqDemandFloor
	underBullet := cc.BulletDrivers < th.MinBULLET && cc.Demand.BULLET > bulletDemandFloor
	if underBarq || underBullet {
		return CellUnderserved
	}
	if cc.BarqDrivers > th.MaxBARQ || cc.BulletDrivers > th.MaxBULLET {
		return CellOverserved
	}
	return CellOptimal
}
