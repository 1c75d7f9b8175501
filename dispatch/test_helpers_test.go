package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// kmPerDegreeLat slightly overshoots the true value so that a nominal
// offset of N km lands just inside an N km radius.
const kmPerDegreeLat = 111.195

// testPickup is the pickup point used across strategy tests.
var testPickup = geo.Point{Lat: 24.70, Lng: 46.60}

// testNow is the fixed clock installed on test engines.
var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// pointAtKmNorth returns a point the given kilometres due north of base.
func pointAtKmNorth(base geo.Point, km float64) geo.Point {
	return geo.Point{Lat: base.Lat + km/kmPerDegreeLat, Lng: base.Lng}
}

func barqDriver(id string, distKm float64, capacity int) Driver {
	return Driver{
		ID:                id,
		ServiceCapability: []ServiceType{BARQ, BULLET},
		Location:          pointAtKmNorth(testPickup, distKm),
		Status:            DriverAvailable,
		Available:         true,
		Capacity:          Capacity{BARQ: capacity, BULLET: MaxBULLETCapacity},
		Fatigue:           FatigueLow,
		Rating:            4.5,
	}
}

func bulletDriver(id string, distKm float64, capacity int) Driver {
	return Driver{
		ID:                id,
		ServiceCapability: []ServiceType{BULLET},
		Location:          pointAtKmNorth(testPickup, distKm),
		Status:            DriverAvailable,
		Available:         true,
		Capacity:          Capacity{BULLET: capacity},
		Fatigue:           FatigueLow,
		Rating:            4.5,
	}
}

func barqOrder(id string) Order {
	return Order{
		ID:          id,
		ServiceType: BARQ,
		Pickup:      testPickup,
		Dropoff:     geo.Point{Lat: 24.72, Lng: 46.63},
		Priority:    PriorityHigh,
		CreatedAt:   testNow,
		Status:      OrderPending,
	}
}

func bulletOrder(id string) Order {
	o := barqOrder(id)
	o.ServiceType = BULLET
	o.Priority = PriorityMedium
	return o
}

// newTestEngine builds an engine over a static snapshot with a fixed clock
// and no ETA collaborator.
func newTestEngine(t *testing.T, snap FleetSnapshot, fitter RouteFitter) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig(), &StaticFleetProvider{Snapshot: snap}, nil, fitter)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.now = func() time.Time { return testNow }
	return e
}

func mustAssign(t *testing.T, e *Engine, order Order) Assignment {
	t.Helper()
	asg, err := e.Assign(context.Background(), order, Deps{})
	if err != nil {
		t.Fatalf("Assign(%s): %v", order.ID, err)
	}
	return asg
}

func hasWarning(asg Assignment, substr string) bool {
	for _, w := range asg.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
