package domain

import "time"

// CargoStatus represents the current status of a cargo request.
type CargoStatus string

const (
	CargoStatusPending   CargoStatus = "PENDING"
	CargoStatusAccepted  CargoStatus = "ACCEPTED"
	CargoStatusRejected  CargoStatus = "REJECTED"
	CargoStatusCancelled CargoStatus = "CANCELLED"
)

// CargoRequest represents a shipment posting by a cargo owner awaiting
// driver acceptance. Once accepted it is superseded by a Trip; Rejected
// and Cancelled are terminal.
type CargoRequest struct {
	ID               string
	OwnerID          string
	Title            string
	WeightKg         float64
	PickupLocation   string
	DeliveryLocation string
	PickupAt         time.Time
	DeliverBy        time.Time
	Price            int64 // agreed price in the smallest currency unit (IRR)
	Status           CargoStatus
	Notes            string
	AcceptedBy       string
	AcceptedAt       time.Time
	RejectedBy       string
	RejectedAt       time.Time
	RejectReason     string
	CancelledAt      time.Time
	CancelReason     string
	CreatedAt        time.Time
}

// CargoCancellable reports whether a cargo request in the given status
// may still be cancelled by its owner.
func CargoCancellable(status CargoStatus) bool {
	return status == CargoStatusPending || status == CargoStatusAccepted
}
