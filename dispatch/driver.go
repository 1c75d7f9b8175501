package dispatch

import (
	"time"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// Per-driver slot ceilings per tier. A driver's remaining capacity plus the
// orders currently carried for that tier always equals the ceiling.
const (
	MaxBARQCapacity   = 5
	MaxBULLETCapacity = 10
)

// DriverStatus is the operational state of a driver.
type DriverStatus string

const (
	DriverIdle      DriverStatus = "idle"
	DriverAvailable DriverStatus = "available"
	DriverBusy      DriverStatus = "busy"
	DriverOffline   DriverStatus = "offline"
)

// FatigueLevel is the coarse fatigue classification reported for a driver.
type FatigueLevel string

const (
	FatigueLow    FatigueLevel = "low"
	FatigueMedium FatigueLevel = "medium"
	FatigueHigh   FatigueLevel = "high"
)

// Score maps the fatigue level onto [0,1] for scoring.
// Unknown or missing levels score 0.5.
func (f FatigueLevel) Score() float64 {
	switch f {
	case FatigueLow:
		return 1.0
	case FatigueMedium:
		return 0.7
	case FatigueHigh:
		return 0.4
	default:
		return 0.5
	}
}

// Capacity holds the remaining order slots per tier.
type Capacity struct {
	BARQ   int `yaml:"barq" json:"barq"`
	BULLET int `yaml:"bullet" json:"bullet"`
}

// Driver is a read-only view of a fleet driver taken from the fleet-status
// provider. BARQ capability is restricted to vetted drivers; BULLET
// capability is universal.
type Driver struct {
	ID                string        `yaml:"id" json:"id"`
	ServiceCapability []ServiceType `yaml:"serviceCapability" json:"serviceCapability"`
	Location          geo.Point     `yaml:"location" json:"location"`
	Status            DriverStatus  `yaml:"status" json:"status"`
	Available         bool          `yaml:"available" json:"available"`
	Capacity          Capacity      `yaml:"capacity" json:"capacity"`
	CurrentOrders     []Order       `yaml:"currentOrders,omitempty" json:"currentOrders,omitempty"`
	IdleSeconds       int64         `yaml:"idleTime" json:"idleTime"`
	Rating            float64       `yaml:"rating" json:"rating"` // [0,5]
	Fatigue           FatigueLevel  `yaml:"fatigue" json:"fatigue"`
	PerformanceRating float64       `yaml:"performanceRating" json:"performanceRating"` // [0,1], 0 = unreported

	// EstimatedAvailability is nil when the driver is immediately
	// available, otherwise the future instant they free up.
	EstimatedAvailability *time.Time `yaml:"estimatedAvailability,omitempty" json:"estimatedAvailability,omitempty"`
}

// CanServe reports whether the driver is capable of serving tier t.
func (d Driver) CanServe(t ServiceType) bool {
	for _, c := range d.ServiceCapability {
		if c == t {
			return true
		}
	}
	return false
}

// RemainingCapacity returns the driver's remaining slots for tier t.
func (d Driver) RemainingCapacity(t ServiceType) int {
	switch t {
	case BARQ:
		return d.Capacity.BARQ
	case BULLET:
		return d.Capacity.BULLET
	default:
		return 0
	}
}

// CanTakeMore reports whether the driver can accept one more order of tier t.
func (d Driver) CanTakeMore(t ServiceType) bool {
	return d.CanServe(t) && d.RemainingCapacity(t) > 0
}

// OrdersOf returns the driver's current orders belonging to tier t,
// preserving stop order.
func (d Driver) OrdersOf(t ServiceType) []Order {
	var orders []Order
	for _, o := range d.CurrentOrders {
		if o.ServiceType == t {
			orders = append(orders, o)
		}
	}
	return orders
}

// ImmediatelyAvailable reports whether the driver can start right away.
func (d Driver) ImmediatelyAvailable(now time.Time) bool {
	return d.EstimatedAvailability == nil || !d.EstimatedAvailability.After(now)
}
