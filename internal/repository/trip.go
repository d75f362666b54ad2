package repository

import (
	"context"

	"freight/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// CreateIfDriverFree inserts the trip only if the driver's persisted
	// status is Active and the driver holds no trip in a non-terminal
	// status. Returns ErrActiveExists when the driver is already
	// assigned and ErrDriverNotActive when the driver is not Active.
	// Both checks and the insert are a single atomic statement.
	CreateIfDriverFree(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetAll retrieves recent trips.
	GetAll(ctx context.Context) ([]*domain.Trip, error)

	// GetActiveByDriverID retrieves the driver's non-terminal trip, or
	// ErrNotFound if none exists.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error)

	// UpdateIfStatus writes the full row only if the persisted status
	// equals expected. Returns ErrStatusConflict when the conditional
	// write matches no row and ErrNotFound when the id does not exist.
	UpdateIfStatus(ctx context.Context, trip *domain.Trip, expected domain.TripStatus) error
}
