package route

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

var testWaypoints = []geo.Point{
	{Lat: 24.60, Lng: 46.50},
	{Lat: 24.80, Lng: 46.70},
}

func TestOSRMClient_RequestShape(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotQuery = req.URL.RawQuery
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":1000,"duration":60,"geometry":"g"}]}`)
	}))
	defer srv.Close()

	c := NewOSRMClient(srv.URL, time.Second)
	if _, err := c.Route(context.Background(), testWaypoints); err != nil {
		t.Fatalf("Route: %v", err)
	}

	// OSRM takes lng,lat pairs joined by semicolons
	if !strings.HasPrefix(gotPath, "/route/v1/driving/") {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotPath, "46.500000,24.600000;46.700000,24.800000") {
		t.Errorf("coordinates malformed or in lat,lng order: %q", gotPath)
	}
	for _, param := range []string{"overview=full", "alternatives=true", "steps=true", "geometries=polyline"} {
		if !strings.Contains(gotQuery, param) {
			t.Errorf("query missing %q: %q", param, gotQuery)
		}
	}
}

func TestOSRMClient_ParsesAlternatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[
			{"distance":10000,"duration":900,"geometry":"main"},
			{"distance":12000,"duration":840,"geometry":"alt"}
		]}`)
	}))
	defer srv.Close()

	res, err := NewOSRMClient(srv.URL, time.Second).Route(context.Background(), testWaypoints)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if res.DistanceKm != 10 || res.DurationMin != 15 {
		t.Errorf("primary = %f km / %f min, want 10 / 15", res.DistanceKm, res.DurationMin)
	}
	if len(res.Alternatives) != 1 {
		t.Fatalf("expected 1 alternative, got %d", len(res.Alternatives))
	}
	alt := res.Alternatives[0]
	if alt.DistanceKm != 12 || alt.DurationMin != 14 || alt.Geometry != "alt" {
		t.Errorf("alternative parsed wrong: %+v", alt)
	}
}

func TestOSRMClient_TooFewWaypoints(t *testing.T) {
	c := NewOSRMClient("http://unused", time.Second)
	_, err := c.Route(context.Background(), testWaypoints[:1])
	if !errors.Is(err, ErrRouterBadPayload) {
		t.Errorf("expected ErrRouterBadPayload, got %v", err)
	}
}

// A 5xx answer is a router failure, retried once before giving up.
func TestOSRMClient_ServerErrorRetriesOnce(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOSRMClient(srv.URL, time.Second).Route(context.Background(), testWaypoints)
	if !errors.Is(err, ErrRouterFailure) {
		t.Fatalf("expected ErrRouterFailure, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestOSRMClient_NonOkCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","routes":[]}`)
	}))
	defer srv.Close()

	_, err := NewOSRMClient(srv.URL, time.Second).Route(context.Background(), testWaypoints)
	if !errors.Is(err, ErrRouterFailure) {
		t.Errorf("expected ErrRouterFailure for non-Ok code, got %v", err)
	}
}

func TestOSRMClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	_, err := NewOSRMClient(srv.URL, time.Second).Route(context.Background(), testWaypoints)
	if !errors.Is(err, ErrRouterBadPayload) {
		t.Errorf("expected ErrRouterBadPayload, got %v", err)
	}
}

func TestNewOSRMClient_Defaults(t *testing.T) {
	t.Setenv(osrmEnvVar, "")
	c := NewOSRMClient("", 0)
	if c.baseURL != defaultOSRMBaseURL {
		t.Errorf("base url = %q, want default", c.baseURL)
	}
	if c.timeout != defaultOSRMTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, defaultOSRMTimeout)
	}

	trimmed := NewOSRMClient("http://router.local/", time.Second)
	if trimmed.baseURL != "http://router.local" {
		t.Errorf("trailing slash not trimmed: %q", trimmed.baseURL)
	}

	t.Setenv(osrmEnvVar, "http://env.local")
	fromEnv := NewOSRMClient("", 0)
	if fromEnv.baseURL != "http://env.local" {
		t.Errorf("environment override ignored: %q", fromEnv.baseURL)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: deadline", ErrRouterTimeout), "timeout"},
		{fmt.Errorf("%w: bad json", ErrRouterBadPayload), "bad_payload"},
		{fmt.Errorf("%w: status 503", ErrRouterFailure), "failure"},
	}
	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
