package dispatch

import (
	"context"
	"math"
	"time"
)

// Fixed-rate fallback applied when the ETA collaborator is absent or fails:
// 3 minutes per kilometre rounded up, 5 minutes of pickup service time.
const (
	fallbackMinutesPerKm = 3.0
	PickupServiceMinutes = 5.0
	tightSlackMinutes    = 10.0
)

// ETARequest carries the inputs the ETA collaborator uses to refine a
// travel estimate. Only DistanceKm is required; the rest are advisory.
type ETARequest struct {
	DistanceKm         float64
	VehicleType        string
	TrafficCondition   string
	WeatherCondition   string
	DriverHistory      float64
	NumStops           int
	TotalRouteDistance float64
}

// ETAResult is the collaborator's travel estimate.
type ETAResult struct {
	TotalMinutes float64
	ArrivalTime  time.Time
}

// FeasibilityRequest asks whether a travel estimate fits a time window.
type FeasibilityRequest struct {
	CurrentTime   time.Time
	Window        TimeWindow
	TravelMinutes float64
}

// FeasibilityReport classifies a window as onTime, tight, or late, with the
// slack remaining in minutes (negative when late).
type FeasibilityReport struct {
	Status       string
	SlackMinutes float64
}

// ETAService is the external ETA collaborator. Calls may suspend and must
// honor the context deadline; any error is treated as ErrETAUnavailable and
// triggers the fixed-rate fallback.
type ETAService interface {
	CalculateETA(ctx context.Context, req ETARequest) (ETAResult, error)
	CheckTimeWindowFeasibility(ctx context.Context, req FeasibilityRequest) (FeasibilityReport, error)
}

// fallbackTravelMinutes is the fixed-rate estimate: ceil(km * 3).
func fallbackTravelMinutes(distanceKm float64) float64 {
	return math.Ceil(distanceKm * fallbackMinutesPerKm)
}

// fallbackFeasibility classifies the window locally: late when the arrival
// misses the latest bound, tight when under 10 minutes of slack remain.
func fallbackFeasibility(req FeasibilityRequest) FeasibilityReport {
	arrival := req.CurrentTime.Add(time.Duration(req.TravelMinutes * float64(time.Minute)))
	slack := req.Window.Latest.Sub(arrival).Minutes()
	status := FeasibilityOnTime
	switch {
	case slack < 0:
		status = FeasibilityLate
	case slack < tightSlackMinutes:
		status = FeasibilityTight
	}
	return FeasibilityReport{Status: status, SlackMinutes: slack}
}
