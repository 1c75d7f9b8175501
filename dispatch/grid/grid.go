// Package grid implements the fleet rebalancer: a discrete coverage grid
// over the service area, periodic coverage analysis, and repositioning of
// idle drivers toward underserved cells.
package grid

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/barqfleet/dispatch-engine/dispatch"
	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// HistoricalDemand is the per-cell demand profile supplied by the demand
// store, with per-tier intensities in [0,1].
type HistoricalDemand struct {
	BARQ          float64 `yaml:"barq" json:"barq"`
	BULLET        float64 `yaml:"bullet" json:"bullet"`
	PeakHours     []int   `yaml:"peakHours,omitempty" json:"peakHours,omitempty"`
	AverageOrders float64 `yaml:"averageOrders" json:"averageOrders"`
}

// Cell is one rectangle of the coverage grid. Cells are created at grid
// construction, mutated only by the rebalancer during a cycle, and never
// destroyed during a run.
type Cell struct {
	ID            string
	Row, Col      int
	Center        geo.Point
	Drivers       []string
	PendingOrders int
	Demand        HistoricalDemand
	CoverageScore float64
	LastUpdated   time.Time
}

// Grid maps the city bounding box linearly onto Rows x Cols cells.
// Locations outside the box are dropped: the grid represents the served
// city and off-grid drivers are irrelevant to coverage.
type Grid struct {
	rows, cols int
	bounds     geo.BoundingBox
	cells      [][]*Cell
}

// NewGrid builds an empty grid. Dimensions must be positive and the bounds
// non-degenerate; violations are bootstrap errors.
func NewGrid(rows, cols int, bounds geo.BoundingBox) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", rows, cols)
	}
	if bounds.MinLat >= bounds.MaxLat || bounds.MinLng >= bounds.MaxLng {
		return nil, fmt.Errorf("grid bounds are degenerate: %+v", bounds)
	}

	latStep := (bounds.MaxLat - bounds.MinLat) / float64(rows)
	lngStep := (bounds.MaxLng - bounds.MinLng) / float64(cols)

	cells := make([][]*Cell, rows)
	for r := range cells {
		cells[r] = make([]*Cell, cols)
		for c := range cells[r] {
			cells[r][c] = &Cell{
				ID:  fmt.Sprintf("cell_%d_%d", r, c),
				Row: r,
				Col: c,
				Center: geo.Point{
					Lat: bounds.MinLat + (float64(r)+0.5)*latStep,
					Lng: bounds.MinLng + (float64(c)+0.5)*lngStep,
				},
			}
		}
	}
	return &Grid{rows: rows, cols: cols, bounds: bounds, cells: cells}, nil
}

// Rows returns the grid row count.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the grid column count.
func (g *Grid) Cols() int { return g.cols }

// Cell returns the cell at (row, col). Panics on out-of-range indices.
func (g *Grid) Cell(row, col int) *Cell {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		panic(fmt.Sprintf("Grid.Cell: index (%d,%d) out of range %dx%d", row, col, g.rows, g.cols))
	}
	return g.cells[row][col]
}

// Cells returns all cells in row-major order.
func (g *Grid) Cells() []*Cell {
	out := make([]*Cell, 0, g.rows*g.cols)
	for _, row := range g.cells {
		out = append(out, row...)
	}
	return out
}

// CellAt maps a location to its cell, or false when off-grid.
func (g *Grid) CellAt(p geo.Point) (*Cell, bool) {
	if !g.bounds.Contains(p) {
		return nil, false
	}
	row := int((p.Lat - g.bounds.MinLat) / (g.bounds.MaxLat - g.bounds.MinLat) * float64(g.rows))
	col := int((p.Lng - g.bounds.MinLng) / (g.bounds.MaxLng - g.bounds.MinLng) * float64(g.cols))
	// A location exactly on the max edge belongs to the last cell.
	if row == g.rows {
		row = g.rows - 1
	}
	if col == g.cols {
		col = g.cols - 1
	}
	return g.cells[row][col], true
}

// Reset clears the driver occupancy of every cell for a new cycle.
func (g *Grid) Reset() {
	for _, row := range g.cells {
		for _, cell := range row {
			cell.Drivers = cell.Drivers[:0]
		}
	}
}

// Place maps every driver in the snapshot to a cell and records its id.
// Off-grid drivers are silently dropped.
func (g *Grid) Place(snap dispatch.FleetSnapshot, now time.Time) {
	dropped := 0
	for _, d := range snap.All() {
		cell, ok := g.CellAt(d.Location)
		if !ok {
			dropped++
			continue
		}
		cell.Drivers = append(cell.Drivers, d.ID)
		cell.LastUpdated = now
	}
	if dropped > 0 {
		logrus.Debugf("grid update dropped %d off-grid driver(s)", dropped)
	}
}

// SetDemand installs the demand profile for a cell.
func (g *Grid) SetDemand(row, col int, demand HistoricalDemand) {
	g.Cell(row, col).Demand = demand
}

// SetPendingOrders installs the pending-order count for a cell, read
// through from the order store.
func (g *Grid) SetPendingOrders(row, col, pending int) {
	g.Cell(row, col).PendingOrders = pending
}
