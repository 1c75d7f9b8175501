package dispatch

import (
	"time"

	"github.com/barqfleet/dispatch-engine/dispatch/geo"
)

// ServiceType identifies the delivery tier an order belongs to.
type ServiceType string

const (
	// BARQ is the on-demand tier: single pickup, tight SLA, small radius.
	BARQ ServiceType = "BARQ"
	// BULLET is the batched tier: multi-pickup, relaxed SLA, wide radius.
	BULLET ServiceType = "BULLET"
)

// validServiceTypes maps service types to validity. Unexported to prevent mutation.
var validServiceTypes = map[ServiceType]bool{
	BARQ:   true,
	BULLET: true,
}

// Valid returns true if t is a recognized service type.
func (t ServiceType) Valid() bool { return validServiceTypes[t] }

// Priority is the caller-declared urgency of an order.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderAssigned   OrderStatus = "ASSIGNED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// TimeWindow is the delivery window an order must be completed within.
type TimeWindow struct {
	Earliest time.Time `yaml:"earliest" json:"earliest"`
	Latest   time.Time `yaml:"latest" json:"latest"`
}

// Order is a read-only view of a delivery order obtained from the order
// store. A non-terminal order has at most one assigned driver; the engine
// publishes assignments through the assignment sink rather than mutating
// the order.
type Order struct {
	ID          string      `yaml:"id" json:"id"`
	ServiceType ServiceType `yaml:"serviceType" json:"serviceType"`
	Pickup      geo.Point   `yaml:"pickup" json:"pickup"`
	Dropoff     geo.Point   `yaml:"dropoff" json:"dropoff"`
	TimeWindow  *TimeWindow `yaml:"timeWindow,omitempty" json:"timeWindow,omitempty"`
	Priority    Priority    `yaml:"priority" json:"priority"`
	CreatedAt   time.Time   `yaml:"createdAt" json:"createdAt"`
	Status      OrderStatus `yaml:"status" json:"status"`
}
