package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// PaymentGateway identifies the external payment provider.
type PaymentGateway string

const (
	GatewayZarinpal PaymentGateway = "zarinpal"
	GatewayNextPay  PaymentGateway = "nextpay"
	GatewayMellat   PaymentGateway = "mellat"
)

// ValidGateway reports whether the given value is a known gateway.
func ValidGateway(g PaymentGateway) bool {
	switch g {
	case GatewayZarinpal, GatewayNextPay, GatewayMellat:
		return true
	}
	return false
}

// Payment represents a settlement attempt for a trip. A payment is
// immutable once Completed except for a single refund transition.
type Payment struct {
	ID             string
	TripID         string
	Amount         int64
	RefundedAmount int64
	Currency       string
	Gateway        PaymentGateway
	Status         PaymentStatus

	// GatewayToken is the authority the provider issues at creation and
	// the key used to verify the payment after redirect.
	GatewayToken string
	// ReferenceID is the provider's final payment id, set on verification.
	ReferenceID string
	RedirectURL string

	PayerID       string
	PayerPhone    string
	Description   string
	FailureReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentTerminal reports whether the status admits no further
// transitions other than Completed's one-shot refund.
func PaymentTerminal(status PaymentStatus) bool {
	return status == PaymentStatusFailed || status == PaymentStatusRefunded
}

// PaymentActive reports whether the payment still occupies the
// one-non-terminal-payment-per-trip slot.
func PaymentActive(status PaymentStatus) bool {
	return status == PaymentStatusPending || status == PaymentStatusProcessing
}

// PaymentHistory is an append-only audit record of a payment status
// change.
type PaymentHistory struct {
	ID         string
	PaymentID  string
	FromStatus PaymentStatus
	ToStatus   PaymentStatus
	ActorID    string
	Note       string
	CreatedAt  time.Time
}
