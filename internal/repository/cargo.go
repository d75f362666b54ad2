package repository

import (
	"context"

	"freight/internal/domain"
)

// CargoRepository defines the persistence operations for cargo requests.
type CargoRepository interface {
	// Create persists a new cargo request.
	Create(ctx context.Context, cargo *domain.CargoRequest) error

	// GetByID retrieves a cargo request by ID.
	GetByID(ctx context.Context, id string) (*domain.CargoRequest, error)

	// GetAll retrieves cargo requests, optionally filtered by status
	// and owner. Empty filter values match everything.
	GetAll(ctx context.Context, status domain.CargoStatus, ownerID string) ([]*domain.CargoRequest, error)

	// UpdateIfStatus writes the full row only if the persisted status
	// equals expected. Returns ErrStatusConflict when the conditional
	// write matches no row and ErrNotFound when the id does not exist.
	UpdateIfStatus(ctx context.Context, cargo *domain.CargoRequest, expected domain.CargoStatus) error

	// DeleteIfStatus hard-deletes the request only while it holds the
	// expected status.
	DeleteIfStatus(ctx context.Context, id string, expected domain.CargoStatus) error
}
