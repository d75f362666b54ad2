package postgres

import (
	"context"
	"database/sql"
	"errors"

	"freight/internal/domain"
	"freight/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// Create adds a new vehicle.
func (r *VehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `
		INSERT INTO vehicles (id, driver_id, plate, model, capacity_kg, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		vehicle.ID,
		vehicle.DriverID,
		vehicle.Plate,
		vehicle.Model,
		vehicle.CapacityKg,
		vehicle.CreatedAt,
	)

	return err
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT id, driver_id, plate, model, capacity_kg, created_at FROM vehicles WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByPlate retrieves a vehicle by plate number.
func (r *VehicleRepository) GetByPlate(ctx context.Context, plate string) (*domain.Vehicle, error) {
	query := `SELECT id, driver_id, plate, model, capacity_kg, created_at FROM vehicles WHERE plate = $1`
	return r.getOne(ctx, query, plate)
}

func (r *VehicleRepository) getOne(ctx context.Context, query string, arg string) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&vehicle.ID,
		&vehicle.DriverID,
		&vehicle.Plate,
		&vehicle.Model,
		&vehicle.CapacityKg,
		&vehicle.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &vehicle, nil
}

// Ensure VehicleRepository implements repository.VehicleRepository.
var _ repository.VehicleRepository = (*VehicleRepository)(nil)
