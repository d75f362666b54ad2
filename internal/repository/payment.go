package repository

import (
	"context"

	"freight/internal/domain"
)

// PaymentRepository defines the persistence operations for payments and
// their append-only history.
type PaymentRepository interface {
	// CreateIfNoActive inserts the payment only if the trip has no
	// payment in Pending or Processing status. Returns ErrActiveExists
	// when the invariant would be violated. The check and the insert
	// are a single atomic statement.
	CreateIfNoActive(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByToken retrieves a payment by its gateway authority token.
	GetByToken(ctx context.Context, token string) (*domain.Payment, error)

	// GetByTripID retrieves all payments for a trip, newest first.
	GetByTripID(ctx context.Context, tripID string) ([]*domain.Payment, error)

	// UpdateIfStatus writes the mutable payment fields only if the
	// persisted status equals expected. Returns ErrStatusConflict when
	// the conditional write matches no row.
	UpdateIfStatus(ctx context.Context, payment *domain.Payment, expected domain.PaymentStatus) error

	// AppendHistory records a status change. History rows are never
	// updated or deleted.
	AppendHistory(ctx context.Context, entry *domain.PaymentHistory) error

	// GetHistory retrieves the audit trail for a payment, oldest first.
	GetHistory(ctx context.Context, paymentID string) ([]*domain.PaymentHistory, error)
}
