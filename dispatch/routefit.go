package dispatch

import (
	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// MaxBatchDetourKm is the detour ceiling for adding a BULLET order to an
// existing trip. A detour of exactly 5 km still fits.
const MaxBatchDetourKm = 5.0

// FitReport is the result of probing whether a new order fits a driver's
// existing route.
type FitReport struct {
	Fits       bool
	DetourKm   float64
	OriginalKm float64
	NewKm      float64
}

// RouteFitter estimates the detour cost of inserting a new order into a
// driver's existing BULLET route. Implementations must be deterministic.
type RouteFitter interface {
	Fit(order Order, existing []Order, driverLocation geo.Point) FitReport
}

// CheapestInsertionFitter computes the detour by trying every insertion of
// the new pickup and dropoff into the existing stop order (pickup before
// dropoff) and keeping the cheapest, measured in Haversine kilometres.
type CheapestInsertionFitter struct{}

// Fit implements RouteFitter.
func (CheapestInsertionFitter) Fit(order Order, existing []Order, driverLocation geo.Point) FitReport {
	// Existing stop sequence: driver location, then each order's pickup and
	// dropoff in carried order.
	stops := make([]geo.Point, 0, 1+2*len(existing))
	stops = append(stops, driverLocation)
	for _, o := range existing {
		stops = append(stops, o.Pickup, o.Dropoff)
	}

	originalKm := geo.PathLengthKm(stops)

	// Insert pickup at position i and dropoff at position j >= i, where a
	// position counts insertions after stops[pos-1]. Position 0 (before the
	// driver's current location) is not a valid stop slot.
	bestKm := -1.0
	for i := 1; i <= len(stops); i++ {
		withPickup := insertAt(stops, i, order.Pickup)
		for j := i + 1; j <= len(withPickup); j++ {
			routeKm := geo.PathLengthKm(insertAt(withPickup, j, order.Dropoff))
			if bestKm < 0 || routeKm < bestKm {
				bestKm = routeKm
			}
		}
	}

	detour := bestKm - originalKm
	if detour < 0 {
		detour = 0
	}
	return FitReport{
		Fits:       detour <= MaxBatchDetourKm,
		DetourKm:   detour,
		OriginalKm: originalKm,
		NewKm:      bestKm,
	}
}

// insertAt returns a copy of points with p inserted at index idx.
func insertAt(points []geo.Point, idx int, p geo.Point) []geo.Point {
	out := make([]geo.Point, 0, len(points)+1)
	out = append(out, points[:idx]...)
	out = append(out, p)
	out = append(out, points[idx:]...)
	return out
}

// FixedFitReporter returns a fixed report for every probe. Tests inject it
// to make batching decisions deterministic.
type FixedFitReporter struct {
	Report FitReport
}

// Fit implements RouteFitter.
func (f FixedFitReporter) Fit(Order, []Order, geo.Point) FitReport { return f.Report }
