package grid

import (
	"testing"
	"time"

	"github.com/barqfleet/dispatch-engine/dispatch"
	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// testBounds matches the stock Riyadh service area: 10x10 cells are roughly
// 6.7 km tall and 6.4 km wide.
var testBounds = geo.BoundingBox{MinLat: 24.40, MinLng: 46.30, MaxLat: 25.00, MaxLng: 47.00}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mustGrid(t *testing.T, rows, cols int) *Grid {
	t.Helper()
	g, err := NewGrid(rows, cols, testBounds)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func testThresholds() Thresholds {
	return Thresholds{MinBARQ: 2, MaxBARQ: 8, MinBULLET: 1, MaxBULLET: 5}
}

// idleDriver is eligible for repositioning: idle, available, dual-capable.
func idleDriver(id string, loc geo.Point, idleSec int64) dispatch.Driver {
	return dispatch.Driver{
		ID:                id,
		ServiceCapability: []dispatch.ServiceType{dispatch.BARQ, dispatch.BULLET},
		Location:          loc,
		Status:            dispatch.DriverIdle,
		Available:         true,
		Capacity:          dispatch.Capacity{BARQ: 3, BULLET: 5},
		IdleSeconds:       idleSec,
		Rating:            4.5,
	}
}

// underservedNeed builds a need for a synthetic cell at center with the
// given bucket and one required BARQ driver.
func underservedNeed(cellID string, center geo.Point, bucket PriorityBucket) Need {
	return Need{
		Cell:         CellCoverage{CellID: cellID, Center: center},
		Bucket:       bucket,
		RequiredBARQ: 1,
	}
}
