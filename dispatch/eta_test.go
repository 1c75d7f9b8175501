package dispatch

import (
	"testing"
	"time"
)

func TestFallbackTravelMinutes(t *testing.T) {
	tests := []struct {
		km   float64
		want float64
	}{
		{0, 0},
		{1, 3},
		{2.4, 8}, // ceil(7.2)
		{3.33, 10},
	}
	for _, tt := range tests {
		if got := fallbackTravelMinutes(tt.km); got != tt.want {
			t.Errorf("fallbackTravelMinutes(%f) = %f, want %f", tt.km, got, tt.want)
		}
	}
}

func TestFallbackFeasibility(t *testing.T) {
	window := func(minLater float64) TimeWindow {
		return TimeWindow{
			Earliest: testNow,
			Latest:   testNow.Add(time.Duration(minLater * float64(time.Minute))),
		}
	}

	tests := []struct {
		name       string
		window     TimeWindow
		travelMin  float64
		wantStatus string
	}{
		{"plenty of slack", window(60), 20, FeasibilityOnTime},
		{"exactly 10 min slack", window(30), 20, FeasibilityOnTime},
		{"under 10 min slack", window(25), 20, FeasibilityTight},
		{"zero slack is tight", window(20), 20, FeasibilityTight},
		{"arrival past the window", window(15), 20, FeasibilityLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := fallbackFeasibility(FeasibilityRequest{
				CurrentTime:   testNow,
				Window:        tt.window,
				TravelMinutes: tt.travelMin,
			})
			if report.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q (slack %f)", report.Status, tt.wantStatus, report.SlackMinutes)
			}
		})
	}
}

func TestFallbackFeasibility_SlackSign(t *testing.T) {
	report := fallbackFeasibility(FeasibilityRequest{
		CurrentTime:   testNow,
		Window:        TimeWindow{Latest: testNow.Add(10 * time.Minute)},
		TravelMinutes: 25,
	})
	if report.SlackMinutes >= 0 {
		t.Errorf("late window must report negative slack, got %f", report.SlackMinutes)
	}
}
