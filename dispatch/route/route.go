// Package route implements route enhancement: restricted-area filtering of
// stops and drivable-route lookup against an external OSRM-compatible
// router, with graceful degradation when the router is unavailable.
package route

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// Fallback route attributes applied when the router cannot be reached.
const (
	fallbackDistanceKm  = 5.0
	fallbackDurationMin = 30.0

	// closeWaypointKm: consecutive serviceable stops closer than 25 m
	// produce a warning but do not abort the call.
	closeWaypointKm = 0.025

	metricEfficiency     = 0.85
	metricServiceQuality = 0.9
)

// ErrInvalidGeometry marks inputs the enhancer cannot work with: fewer
// than two stops carrying usable coordinates, or a restricted polygon with
// fewer than three vertices. It is surfaced to the enhancer's caller only.
var ErrInvalidGeometry = errors.New("invalid geometry")

// LatLng is the nested coordinate encoding some upstream payloads use.
type LatLng struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
}

// Stop is one route stop as received from upstream. Payloads arrive in
// three positional encodings; Coordinate unifies them into a geo.Point at
// this boundary so only one point type flows inward.
type Stop struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	Location  *LatLng  `yaml:"location,omitempty" json:"location,omitempty"`
	Lat       *float64 `yaml:"lat,omitempty" json:"lat,omitempty"`
	Lng       *float64 `yaml:"lng,omitempty" json:"lng,omitempty"`
	Latitude  *float64 `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty" json:"longitude,omitempty"`
}

// Coordinate resolves the stop's position, trying location.latitude/
// longitude, then lat/lng, then latitude/longitude. False means the stop
// carries no usable coordinates and is dropped.
func (s Stop) Coordinate() (geo.Point, bool) {
	switch {
	case s.Location != nil:
		return geo.Point{Lat: s.Location.Latitude, Lng: s.Location.Longitude}, true
	case s.Lat != nil && s.Lng != nil:
		return geo.Point{Lat: *s.Lat, Lng: *s.Lng}, true
	case s.Latitude != nil && s.Longitude != nil:
		return geo.Point{Lat: *s.Latitude, Lng: *s.Longitude}, true
	default:
		return geo.Point{}, false
	}
}

// Route is the ordered stop list to enhance, with the load/capacity pair
// feeding the utilization metric.
type Route struct {
	ID       string  `yaml:"id" json:"id"`
	Stops    []Stop  `yaml:"stops" json:"stops"`
	Load     float64 `yaml:"load" json:"load"`
	Capacity float64 `yaml:"capacity" json:"capacity"`
}

// ExcludedStop records a stop dropped by the restricted-area filter and
// the offending area.
type ExcludedStop struct {
	Stop Stop   `json:"stop"`
	Area string `json:"area"`
}

// Metrics is the quality block attached to an enhanced route.
type Metrics struct {
	Efficiency     float64 `json:"efficiency"`
	Utilization    float64 `json:"utilization"`
	ServiceQuality float64 `json:"serviceQuality"`
	StopDensity    float64 `json:"stopDensity"` // stops per km
}

// Alternative is one alternative route returned by the router.
type Alternative struct {
	DistanceKm  float64 `json:"distanceKm"`
	DurationMin float64 `json:"durationMin"`
	Geometry    string  `json:"geometry"`
}

// EnhancedRoute is the enhancement output. When the router fails the
// fallback fields are filled and OSRMError is set; the error never reaches
// the caller.
type EnhancedRoute struct {
	Route              Route          `json:"route"`
	ServiceableStops   []Stop         `json:"serviceableStops"`
	ExcludedStops      []ExcludedStop `json:"excludedStops,omitempty"`
	FullyUnserviceable bool           `json:"fullyUnserviceable,omitempty"`

	DistanceKm   float64       `json:"distanceKm"`
	DurationMin  float64       `json:"durationMin"`
	Geometry     string        `json:"geometry,omitempty"` // encoded polyline
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Metrics      Metrics       `json:"metrics"`

	Warnings []string `json:"warnings,omitempty"`
	OSRMError string  `json:"osrmError,omitempty"`
	Fallback  bool    `json:"fallback,omitempty"`
}

// Router is the external routing collaborator.
type Router interface {
	Route(ctx context.Context, waypoints []geo.Point) (*RouterResult, error)
}

// Enhancer turns ordered stops into a drivable route, excluding stops
// inside restricted polygons.
type Enhancer struct {
	router Router
}

// NewEnhancer builds an enhancer. Panics on a nil router: the enhancer has
// no meaning without one (fallback handling is for failing routers, not
// absent ones).
func NewEnhancer(router Router) *Enhancer {
	if router == nil {
		panic("NewEnhancer: router must not be nil")
	}
	return &Enhancer{router: router}
}

// Enhance filters the route's stops against the restricted areas and asks
// the router for the drivable route through the survivors.
//
// Router failures are fully contained: the returned route carries the
// fallback distance/duration and an osrmError annotation. The only errors
// returned are ErrInvalidGeometry for unusable input.
func (e *Enhancer) Enhance(ctx context.Context, r Route, areas []geo.RestrictedArea) (EnhancedRoute, error) {
	for _, area := range areas {
		if err := area.Polygon.Validate(); err != nil {
			return EnhancedRoute{}, fmt.Errorf("%w: restricted area %q: %v", ErrInvalidGeometry, area.Name, err)
		}
	}

	out := EnhancedRoute{Route: r}

	// Resolve coordinates, dropping stops without any.
	type located struct {
		stop  Stop
		point geo.Point
	}
	var resolved []located
	for _, s := range r.Stops {
		p, ok := s.Coordinate()
		if !ok {
			logrus.Debugf("route %s: stop %s has no usable coordinates, dropped", r.ID, s.ID)
			continue
		}
		resolved = append(resolved, located{stop: s, point: p})
	}
	if len(resolved) < 2 {
		return EnhancedRoute{}, fmt.Errorf("%w: route %s has %d stop(s) with usable coordinates, need 2", ErrInvalidGeometry, r.ID, len(resolved))
	}

	// Restricted-area filter.
	var waypoints []geo.Point
	for _, loc := range resolved {
		if name, hit := restrictedBy(loc.point, areas); hit {
			out.ExcludedStops = append(out.ExcludedStops, ExcludedStop{Stop: loc.stop, Area: name})
			continue
		}
		out.ServiceableStops = append(out.ServiceableStops, loc.stop)
		waypoints = append(waypoints, loc.point)
	}

	if len(out.ServiceableStops) < 2 {
		out.FullyUnserviceable = true
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("%d of %d stops fall inside restricted areas; route is not drivable", len(out.ExcludedStops), len(resolved)))
		return out, nil
	}

	for i := 1; i < len(waypoints); i++ {
		if geo.HaversineKm(waypoints[i-1], waypoints[i]) < closeWaypointKm {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("stops %s and %s are closer than 25 m", out.ServiceableStops[i-1].ID, out.ServiceableStops[i].ID))
		}
	}

	res, err := e.router.Route(ctx, waypoints)
	if err != nil {
		logrus.Warnf("router failed for route %s, returning fallback: %v", r.ID, err)
		out.DistanceKm = fallbackDistanceKm
		out.DurationMin = fallbackDurationMin
		out.OSRMError = err.Error()
		out.Fallback = true
		out.Metrics = e.metrics(out, len(out.ServiceableStops))
		return out, nil
	}

	out.DistanceKm = res.DistanceKm
	out.DurationMin = res.DurationMin
	out.Geometry = res.Geometry
	out.Alternatives = res.Alternatives
	out.Metrics = e.metrics(out, len(out.ServiceableStops))
	return out, nil
}

// metrics fills the quality block: fixed efficiency and service quality,
// utilization from the load/capacity pair, stop density per km.
func (e *Enhancer) metrics(out EnhancedRoute, stops int) Metrics {
	m := Metrics{
		Efficiency:     metricEfficiency,
		ServiceQuality: metricServiceQuality,
	}
	if out.Route.Capacity > 0 {
		m.Utilization = out.Route.Load / out.Route.Capacity
		if m.Utilization > 1 {
			m.Utilization = 1
		}
	}
	if out.DistanceKm > 0 {
		m.StopDensity = float64(stops) / out.DistanceKm
	}
	return m
}

// restrictedBy returns the first restricted area containing p.
func restrictedBy(p geo.Point, areas []geo.RestrictedArea) (string, bool) {
	for _, area := range areas {
		if area.Polygon.Contains(p) {
			return area.Name, true
		}
	}
	return "", false
}
