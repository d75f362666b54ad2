package redis

import (
	"context"
	"time"

	"freight/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
// Acquire returns an owner token; release is a no-op unless the token
// still holds the lock.
type LockStoreInterface interface {
	AcquirePaymentLock(ctx context.Context, paymentID string, ttl time.Duration) (string, error)
	ReleasePaymentLock(ctx context.Context, paymentID, token string) error
}

// TrackingStoreInterface defines the interface for the tracking sink.
type TrackingStoreInterface interface {
	Append(ctx context.Context, point *domain.TrackingPoint) error
	GetByTrip(ctx context.Context, tripID string) ([]*domain.TrackingPoint, error)
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface     = (*LockStore)(nil)
	_ TrackingStoreInterface = (*TrackingStore)(nil)
)
