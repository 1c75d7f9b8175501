package dispatch

import (
	"math"
	"testing"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// TestCheapestInsertion_OnPathOrder: an order whose stops already lie on the
// driver's route costs essentially nothing.
func TestCheapestInsertion_OnPathOrder(t *testing.T) {
	// GIVEN a driver heading due north with one order (pickup 2 km, dropoff
	// 4 km) and a new order whose stops sit at 1 km and 3 km on the same line
	driverLoc := testPickup
	existing := []Order{{
		ID:          "order_en_route",
		ServiceType: BULLET,
		Pickup:      pointAtKmNorth(driverLoc, 2),
		Dropoff:     pointAtKmNorth(driverLoc, 4),
	}}
	newOrder := Order{
		ID:          "order_new",
		ServiceType: BULLET,
		Pickup:      pointAtKmNorth(driverLoc, 1),
		Dropoff:     pointAtKmNorth(driverLoc, 3),
	}

	report := CheapestInsertionFitter{}.Fit(newOrder, existing, driverLoc)

	// THEN the detour is negligible and the order fits
	if !report.Fits {
		t.Fatalf("expected on-path order to fit, got %+v", report)
	}
	if report.DetourKm > 0.01 {
		t.Errorf("expected near-zero detour, got %f km", report.DetourKm)
	}
	if report.NewKm < report.OriginalKm {
		t.Errorf("new route %f km shorter than original %f km", report.NewKm, report.OriginalKm)
	}
}

// TestCheapestInsertion_FarOrderRejected: stops well off the route blow the
// 5 km detour ceiling.
func TestCheapestInsertion_FarOrderRejected(t *testing.T) {
	driverLoc := testPickup
	existing := []Order{{
		ID:      "order_en_route",
		Pickup:  pointAtKmNorth(driverLoc, 1),
		Dropoff: pointAtKmNorth(driverLoc, 2),
	}}
	far := geo.Point{Lat: driverLoc.Lat, Lng: driverLoc.Lng + 0.2} // ~20 km east
	newOrder := Order{ID: "order_far", Pickup: far, Dropoff: far}

	report := CheapestInsertionFitter{}.Fit(newOrder, existing, driverLoc)
	if report.Fits {
		t.Errorf("expected far order to be rejected, detour %f km", report.DetourKm)
	}
	if report.DetourKm <= MaxBatchDetourKm {
		t.Errorf("expected detour above %f km, got %f", MaxBatchDetourKm, report.DetourKm)
	}
}

// TestCheapestInsertion_EmptyRoute: with no existing stops the detour is the
// full leg from the driver through pickup to dropoff.
func TestCheapestInsertion_EmptyRoute(t *testing.T) {
	driverLoc := testPickup
	newOrder := Order{
		ID:      "order_solo",
		Pickup:  driverLoc,
		Dropoff: pointAtKmNorth(driverLoc, 1),
	}

	report := CheapestInsertionFitter{}.Fit(newOrder, nil, driverLoc)
	if report.OriginalKm != 0 {
		t.Errorf("empty route should measure 0 km, got %f", report.OriginalKm)
	}
	if math.Abs(report.DetourKm-1.0) > 0.01 {
		t.Errorf("expected ~1 km detour, got %f", report.DetourKm)
	}
	if !report.Fits {
		t.Errorf("1 km detour must fit")
	}
}

// The fitter is deterministic: identical inputs yield identical reports.
func TestCheapestInsertion_Deterministic(t *testing.T) {
	driverLoc := testPickup
	existing := []Order{
		{ID: "o1", Pickup: pointAtKmNorth(driverLoc, 1), Dropoff: pointAtKmNorth(driverLoc, 3)},
		{ID: "o2", Pickup: pointAtKmNorth(driverLoc, 2), Dropoff: pointAtKmNorth(driverLoc, 5)},
	}
	newOrder := Order{ID: "o3", Pickup: pointAtKmNorth(driverLoc, 4), Dropoff: pointAtKmNorth(driverLoc, 6)}

	first := CheapestInsertionFitter{}.Fit(newOrder, existing, driverLoc)
	second := CheapestInsertionFitter{}.Fit(newOrder, existing, driverLoc)
	if first != second {
		t.Errorf("reports differ: %+v vs %+v", first, second)
	}
}
