package domain

import "time"

// NotificationEvent names a lifecycle event delivered to a user.
type NotificationEvent string

const (
	EventCargoAccepted    NotificationEvent = "CARGO_ACCEPTED"
	EventCargoRejected    NotificationEvent = "CARGO_REJECTED"
	EventCargoCancelled   NotificationEvent = "CARGO_CANCELLED"
	EventTripScheduled    NotificationEvent = "TRIP_SCHEDULED"
	EventTripStarted      NotificationEvent = "TRIP_STARTED"
	EventTripCompleted    NotificationEvent = "TRIP_COMPLETED"
	EventTripCancelled    NotificationEvent = "TRIP_CANCELLED"
	EventDriverStatus     NotificationEvent = "DRIVER_STATUS_CHANGED"
	EventPaymentCompleted NotificationEvent = "PAYMENT_COMPLETED"
	EventPaymentFailed    NotificationEvent = "PAYMENT_FAILED"
	EventPaymentRefunded  NotificationEvent = "PAYMENT_REFUNDED"
)

// NotificationHistory is an append-only audit record of a delivered
// notification.
type NotificationHistory struct {
	ID          string
	RecipientID string
	Event       NotificationEvent
	Payload     map[string]any
	CreatedAt   time.Time
}
