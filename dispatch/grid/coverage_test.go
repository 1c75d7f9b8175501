package grid

import (
	"testing"

	"github.com/barqfleet/dispatch-engine/dispatch"
)

func TestClassify(t *testing.T) {
	th := testThresholds()
	tests := []struct {
		name string
		cc   CellCoverage
		want CellStatus
	}{
		{
			"no drivers with real demand is underserved",
			CellCoverage{Demand: HistoricalDemand{BARQ: 0.5}},
			CellUnderserved,
		},
		{
			"no drivers with negligible demand is optimal",
			CellCoverage{Demand: HistoricalDemand{BARQ: 0.05, BULLET: 0.05}},
			CellOptimal,
		},
		{
			"bullet gap alone is underserved",
			CellCoverage{BarqDrivers: 3, Demand: HistoricalDemand{BULLET: 0.4}},
			CellUnderserved,
		},
		{
			"too many barq drivers is overserved",
			CellCoverage{BarqDrivers: 9, BulletDrivers: 2},
			CellOverserved,
		},
		{
			"within bounds is optimal",
			CellCoverage{BarqDrivers: 4, BulletDrivers: 2, Demand: HistoricalDemand{BARQ: 0.5, BULLET: 0.5}},
			CellOptimal,
		},
		{
			"a gap outranks an excess",
			CellCoverage{BarqDrivers: 0, BulletDrivers: 6, Demand: HistoricalDemand{BARQ: 0.5}},
			CellUnderserved,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.cc, th); got != tt.want {
				t.Errorf("classify(%+v) = %s, want %s", tt.cc, got, tt.want)
			}
		})
	}
}

// TestAnalyze_CoverageFractions: a 2x2 grid with drivers in two cells.
func TestAnalyze_CoverageFractions(t *testing.T) {
	g := mustGrid(t, 2, 2)

	dual := idleDriver("driver_dual", g.Cell(0, 0).Center, 900)
	bulletOnly := idleDriver("driver_bullet", g.Cell(1, 1).Center, 900)
	bulletOnly.ServiceCapability = []dispatch.ServiceType{dispatch.BULLET}

	snap := dispatch.FleetSnapshot{Available: []dispatch.Driver{dual, bulletOnly}}
	g.Place(snap, testNow)
	g.SetDemand(0, 1, HistoricalDemand{BARQ: 0.6})

	analysis := Analyze(g, snap, testThresholds(), testNow)

	if analysis.OverallCoverage != 0.5 {
		t.Errorf("overall coverage = %f, want 0.5 (2 of 4 cells)", analysis.OverallCoverage)
	}
	if analysis.BarqCoverage != 0.25 {
		t.Errorf("barq coverage = %f, want 0.25", analysis.BarqCoverage)
	}
	if analysis.BulletCoverage != 0.5 {
		t.Errorf("bullet coverage = %f, want 0.5", analysis.BulletCoverage)
	}

	// cell_0_1 is empty with real BARQ demand; cell_0_0 has 1 barq driver
	// below the min of 2, but demand there is zero so it is not a gap.
	if len(analysis.Underserved) != 1 || analysis.Underserved[0].CellID != "cell_0_1" {
		t.Errorf("unexpected underserved set: %+v", analysis.Underserved)
	}

	var cell11 CellCoverage
	for _, cc := range analysis.Cells {
		if cc.CellID == "cell_1_1" {
			cell11 = cc
		}
	}
	if cell11.BarqDrivers != 0 || cell11.BulletDrivers != 1 {
		t.Errorf("capability counts wrong for cell_1_1: %+v", cell11)
	}
}

// Analysis reads occupancy; it never mutates the grid.
func TestAnalyze_DoesNotMutateGrid(t *testing.T) {
	g := mustGrid(t, 2, 2)
	snap := dispatch.FleetSnapshot{Available: []dispatch.Driver{idleDriver("d1", g.Cell(0, 0).Center, 900)}}
	g.Place(snap, testNow)

	Analyze(g, snap, testThresholds(), testNow)
	if got := len(g.Cell(0, 0).Drivers); got != 1 {
		t.Errorf("occupancy changed by analysis: %d drivers", got)
	}
}
