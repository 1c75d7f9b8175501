package dispatch

import (
	"context"
	"time"
)

// FleetSnapshot is an immutable view of the fleet consumed by a single
// dispatch or rebalance cycle. The engine never mutates a snapshot;
// assignment and rebalance output are new values.
type FleetSnapshot struct {
	Available []Driver  `yaml:"available" json:"available"`
	Busy      []Driver  `yaml:"busy" json:"busy"`
	Offline   []Driver  `yaml:"offline" json:"offline"`
	TakenAt   time.Time `yaml:"takenAt" json:"takenAt"`
}

// All returns every driver in the snapshot, available first, then busy,
// then offline. The returned slice is freshly allocated.
func (s FleetSnapshot) All() []Driver {
	out := make([]Driver, 0, len(s.Available)+len(s.Busy)+len(s.Offline))
	out = append(out, s.Available...)
	out = append(out, s.Busy...)
	out = append(out, s.Offline...)
	return out
}

// Driver looks a driver up by id across all partitions.
func (s FleetSnapshot) Driver(id string) (Driver, bool) {
	for _, part := range [][]Driver{s.Available, s.Busy, s.Offline} {
		for _, d := range part {
			if d.ID == id {
				return d, true
			}
		}
	}
	return Driver{}, false
}

// FleetStatusProvider supplies fleet snapshots. Acquisition may suspend;
// implementations must honor the context deadline.
type FleetStatusProvider interface {
	GetFleetStatus(ctx context.Context) (FleetSnapshot, error)
}

// StaticFleetProvider serves a fixed snapshot. Used by the CLI fixture
// loader and by tests.
type StaticFleetProvider struct {
	Snapshot FleetSnapshot
}

// GetFleetStatus implements FleetStatusProvider.
func (p *StaticFleetProvider) GetFleetStatus(_ context.Context) (FleetSnapshot, error) {
	return p.Snapshot, nil
}
