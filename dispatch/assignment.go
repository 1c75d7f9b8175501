package dispatch

import "time"

// AssignmentType classifies how an order was placed.
type AssignmentType string

const (
	// AssignImmediate: an available driver was selected by scoring.
	AssignImmediate AssignmentType = "immediate"
	// AssignBatched: the order joined an existing BULLET trip.
	AssignBatched AssignmentType = "batched"
	// AssignAddedToRoute: a busy-but-capable driver absorbed the order.
	AssignAddedToRoute AssignmentType = "added_to_route"
	// AssignEmergency: the BARQ radius was widened to 10 km to find a driver.
	AssignEmergency AssignmentType = "emergency"
	// AssignQueued: no eligible driver; the order goes to the external queue.
	AssignQueued AssignmentType = "queued"
	// AssignQueuedPriority: BARQ order queued after emergency escalation failed.
	AssignQueuedPriority AssignmentType = "queued_priority"
)

// Time-window feasibility annotations attached to assignments with a window.
const (
	FeasibilityOnTime = "onTime"
	FeasibilityTight  = "tight"
	FeasibilityLate   = "late"
)

// BackupDriver is a ranked fallback candidate retained on the assignment.
type BackupDriver struct {
	DriverID string  `json:"driverId"`
	Score    float64 `json:"score"`
}

// Assignment is the output record of one Assign call. AssignedDriver is
// empty for queued outcomes.
type Assignment struct {
	OrderID               string         `json:"orderId"`
	AssignedDriver        string         `json:"assignedDriver,omitempty"`
	Type                  AssignmentType `json:"assignmentType"`
	BatchID               string         `json:"batchId,omitempty"`
	EstimatedPickupTime   time.Time      `json:"estimatedPickupTime,omitzero"`
	EstimatedDeliveryTime time.Time      `json:"estimatedDeliveryTime,omitzero"`
	Confidence            float64        `json:"confidence"`
	Score                 float64        `json:"score"`
	BackupDrivers         []BackupDriver `json:"backupDrivers,omitempty"`
	Reasoning             []string       `json:"reasoning,omitempty"`
	Warnings              []string       `json:"warnings,omitempty"`

	// TimeWindowFeasibility is set only when the order carries a window:
	// onTime, tight, or late.
	TimeWindowFeasibility string `json:"timeWindowFeasibility,omitempty"`
}

// Assigned reports whether a driver was selected.
func (a Assignment) Assigned() bool { return a.AssignedDriver != "" }

// Queued reports whether the order was deferred to the external queue.
func (a Assignment) Queued() bool {
	return a.Type == AssignQueued || a.Type == AssignQueuedPriority
}
