package domain

import "time"

// TripStatus represents the current status of a trip.
type TripStatus string

const (
	TripStatusScheduled  TripStatus = "SCHEDULED"
	TripStatusInProgress TripStatus = "IN_PROGRESS"
	TripStatusCompleted  TripStatus = "COMPLETED"
	TripStatusCancelled  TripStatus = "CANCELLED"
)

// Trip represents the execution record of an accepted cargo request,
// from scheduling through delivery. Completed and Cancelled trips are
// retained forever for audit.
type Trip struct {
	ID             string
	CargoRequestID string
	VehicleID      string
	DriverID       string
	Status         TripStatus

	// AgreedPrice is copied from the cargo request at creation and is
	// the single source of truth for settlement.
	AgreedPrice int64

	EstimatedDistanceKm  float64
	EstimatedDurationMin int
	EstimatedFuelLiters  float64
	EstimatedCost        int64

	ActualDistanceKm  float64
	ActualDurationMin int
	ActualFuelLiters  float64
	ActualCost        int64

	ScheduledAt  time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	CancelledAt  time.Time
	CancelReason string
}

// TripTerminal reports whether the status admits no further transitions.
func TripTerminal(status TripStatus) bool {
	return status == TripStatusCompleted || status == TripStatusCancelled
}

// TrackingPoint is an opaque position sample recorded while a trip is
// in progress.
type TrackingPoint struct {
	TripID     string    `json:"trip_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}
