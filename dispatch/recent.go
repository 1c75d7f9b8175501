package dispatch

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// recentWindow is how long an assignment stays in the advisory log.
	recentWindow = time.Hour
	// maxTrackedDrivers bounds the per-driver log cache.
	maxTrackedDrivers = 4096
)

// RecentAssignment is one advisory bookkeeping entry.
type RecentAssignment struct {
	OrderID string
	Tier    ServiceType
	At      time.Time
}

// RecentAssignments tracks per-driver assignments over the last hour.
// Entries are pruned on every write; the backing cache additionally expires
// idle drivers wholesale. Used as an advisory tie-break input to scoring
// and for statistics; it never gates an assignment.
type RecentAssignments struct {
	mu    sync.Mutex
	cache *lru.LRU[string, []RecentAssignment]
}

// NewRecentAssignments creates an empty log.
func NewRecentAssignments() *RecentAssignments {
	return &RecentAssignments{
		cache: lru.NewLRU[string, []RecentAssignment](maxTrackedDrivers, nil, recentWindow),
	}
}

// Record appends an entry for driverID, pruning entries older than the
// one-hour window.
func (r *RecentAssignments) Record(driverID, orderID string, tier ServiceType, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, _ := r.cache.Get(driverID)
	kept := entries[:0]
	cutoff := at.Add(-recentWindow)
	for _, e := range entries {
		if e.At.After(cutoff) {
			kept = append(kept, e)
		}
	}
	kept = append(kept, RecentAssignment{OrderID: orderID, Tier: tier, At: at})
	r.cache.Add(driverID, kept)
}

// CountSince returns the number of entries for driverID newer than since.
func (r *RecentAssignments) CountSince(driverID string, since time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, _ := r.cache.Get(driverID)
	n := 0
	for _, e := range entries {
		if e.At.After(since) {
			n++
		}
	}
	return n
}

// Entries returns a copy of the driver's current log.
func (r *RecentAssignments) Entries(driverID string) []RecentAssignment {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, _ := r.cache.Get(driverID)
	out := make([]RecentAssignment, len(entries))
	copy(out, entries)
	return out
}

// TrackedDrivers returns the number of drivers with live entries.
func (r *RecentAssignments) TrackedDrivers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
