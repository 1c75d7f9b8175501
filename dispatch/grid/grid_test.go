package grid

import (
	"testing"

	"github.com/barqfleet/dispatch-engine/dispatch"
	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

func TestNewGrid_Validation(t *testing.T) {
	if _, err := NewGrid(0, 10, testBounds); err == nil {
		t.Errorf("expected error for zero rows")
	}
	bad := testBounds
	bad.MaxLat = bad.MinLat
	if _, err := NewGrid(10, 10, bad); err == nil {
		t.Errorf("expected error for degenerate bounds")
	}
}

func TestGrid_CellsRowMajor(t *testing.T) {
	g := mustGrid(t, 3, 4)
	cells := g.Cells()
	if len(cells) != 12 {
		t.Fatalf("expected 12 cells, got %d", len(cells))
	}
	if cells[0].ID != "cell_0_0" || cells[11].ID != "cell_2_3" {
		t.Errorf("unexpected row-major order: first %s, last %s", cells[0].ID, cells[11].ID)
	}
	// cell centers sit mid-rectangle
	want := geo.Point{
		Lat: testBounds.MinLat + 0.5*(testBounds.MaxLat-testBounds.MinLat)/3,
		Lng: testBounds.MinLng + 0.5*(testBounds.MaxLng-testBounds.MinLng)/4,
	}
	if got := g.Cell(0, 0).Center; got != want {
		t.Errorf("cell_0_0 center = %+v, want %+v", got, want)
	}
}

func TestGrid_CellAt(t *testing.T) {
	g := mustGrid(t, 10, 10)

	t.Run("maps a center back to its cell", func(t *testing.T) {
		for _, id := range []string{"cell_0_0", "cell_3_4", "cell_9_9"} {
			var cell *Cell
			for _, c := range g.Cells() {
				if c.ID == id {
					cell = c
				}
			}
			got, ok := g.CellAt(cell.Center)
			if !ok || got.ID != id {
				t.Errorf("CellAt(center of %s) = %v, ok=%v", id, got, ok)
			}
		}
	})
	t.Run("max edge belongs to the last cell", func(t *testing.T) {
		got, ok := g.CellAt(geo.Point{Lat: testBounds.MaxLat, Lng: testBounds.MaxLng})
		if !ok || got.ID != "cell_9_9" {
			t.Errorf("CellAt(max corner) = %v, ok=%v", got, ok)
		}
	})
	t.Run("off-grid locations report false", func(t *testing.T) {
		if _, ok := g.CellAt(geo.Point{Lat: 30.0, Lng: 50.0}); ok {
			t.Errorf("expected off-grid location to miss")
		}
	})
}

// Every on-grid driver in the snapshot lands in exactly one cell; off-grid
// drivers vanish from coverage accounting.
func TestGrid_Place(t *testing.T) {
	g := mustGrid(t, 10, 10)
	inCell34 := g.Cell(3, 4).Center

	snap := dispatch.FleetSnapshot{
		Available: []dispatch.Driver{idleDriver("d1", inCell34, 900)},
		Busy:      []dispatch.Driver{idleDriver("d2", inCell34, 0)},
		Offline:   []dispatch.Driver{idleDriver("d3", g.Cell(0, 0).Center, 0)},
	}
	offGrid := idleDriver("d4", geo.Point{Lat: 30, Lng: 50}, 900)
	snap.Available = append(snap.Available, offGrid)

	g.Place(snap, testNow)

	placed := 0
	for _, cell := range g.Cells() {
		placed += len(cell.Drivers)
	}
	if placed != 3 {
		t.Errorf("expected 3 placed drivers (1 dropped), got %d", placed)
	}
	if got := len(g.Cell(3, 4).Drivers); got != 2 {
		t.Errorf("cell_3_4 should hold both partitions, got %d", got)
	}
	if got := len(g.Cell(0, 0).Drivers); got != 1 {
		t.Errorf("offline drivers still occupy cells, got %d", got)
	}

	g.Reset()
	for _, cell := range g.Cells() {
		if len(cell.Drivers) != 0 {
			t.Fatalf("Reset left drivers in %s", cell.ID)
		}
	}
}

func TestGrid_CellPanicsOutOfRange(t *testing.T) {
	g := mustGrid(t, 2, 2)
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for out-of-range index")
		}
	}()
	g.Cell(2, 0)
}
