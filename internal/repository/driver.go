package repository

import (
	"context"

	"freight/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByUserID retrieves the driver owned by the given user.
	GetByUserID(ctx context.Context, userID string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// UpdateStatusIf sets the driver's status, reason and timestamp only
	// if the persisted status equals expected. Returns ErrStatusConflict
	// when the conditional write matches no row.
	UpdateStatusIf(ctx context.Context, id string, expected, next domain.DriverStatus, reason string) error
}
