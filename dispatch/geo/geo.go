// Package geo holds the shared geographic primitives of the dispatch
// engine: WGS84 points, Haversine distances, and polygon containment
// tests used for restricted-area filtering.
package geo

import (
	"errors"
	"math"
)

// earthRadiusKm is the mean Earth radius used by the Haversine formula.
const earthRadiusKm = 6371.0

// ErrInvalidPolygon is returned for polygons with fewer than 3 vertices.
var ErrInvalidPolygon = errors.New("polygon must have at least 3 vertices")

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// PathLengthKm returns the total Haversine length of the polyline through points.
// Fewer than two points yield zero.
func PathLengthKm(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1], points[i])
	}
	return total
}

// Polygon is an implicitly-closed sequence of vertices.
type Polygon []Point

// Validate checks the minimum vertex count.
func (pg Polygon) Validate() error {
	if len(pg) < 3 {
		return ErrInvalidPolygon
	}
	return nil
}

// Contains reports whether p lies inside the polygon using ray casting.
// The edge rule is (lat_i > lat) != (lat_j > lat), so points exactly on a
// horizontal edge follow the half-open convention and results are stable
// for adjacent polygons sharing an edge.
func (pg Polygon) Contains(p Point) bool {
	inside := false
	n := len(pg)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, xi := pg[i].Lat, pg[i].Lng
		yj, xj := pg[j].Lat, pg[j].Lng
		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lng < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// BoundingBox is an axis-aligned lat/lng rectangle.
type BoundingBox struct {
	MinLat float64 `yaml:"minLat" json:"minLat"`
	MinLng float64 `yaml:"minLng" json:"minLng"`
	MaxLat float64 `yaml:"maxLat" json:"maxLat"`
	MaxLng float64 `yaml:"maxLng" json:"maxLng"`
}

// Contains reports whether p lies inside the box (inclusive of edges).
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Bounds returns the bounding box of the polygon vertices.
func (pg Polygon) Bounds() BoundingBox {
	if len(pg) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{
		MinLat: pg[0].Lat, MaxLat: pg[0].Lat,
		MinLng: pg[0].Lng, MaxLng: pg[0].Lng,
	}
	for _, p := range pg[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return b
}

// RestrictedArea is a named no-service polygon. Stops inside it are
// unserviceable and routes should avoid it where possible.
type RestrictedArea struct {
	Name    string  `yaml:"name" json:"name"`
	Polygon Polygon `yaml:"polygon" json:"polygon"`
}
