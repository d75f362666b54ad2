package postgres

import (
	"context"
	"database/sql"
	"errors"

	"freight/internal/domain"
	"freight/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `
	id, cargo_request_id, vehicle_id, driver_id, status, agreed_price,
	est_distance_km, est_duration_min, est_fuel_liters, est_cost,
	actual_distance_km, actual_duration_min, actual_fuel_liters, actual_cost,
	scheduled_at, started_at, completed_at, cancelled_at, cancel_reason
`

// CreateIfDriverFree inserts the trip unless the driver already holds a
// non-terminal trip or is not Active. Both checks run in the insert
// statement itself, so a suspension or a concurrent assignment
// committing between a caller's read and this insert still blocks it.
func (r *TripRepository) CreateIfDriverFree(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		WHERE NOT EXISTS (
			SELECT 1 FROM trips
			WHERE driver_id = $4 AND status IN ($20, $21)
		)
		AND EXISTS (
			SELECT 1 FROM drivers
			WHERE id = $4 AND status = $22
		)
	`

	result, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.CargoRequestID,
		trip.VehicleID,
		trip.DriverID,
		trip.Status,
		trip.AgreedPrice,
		trip.EstimatedDistanceKm,
		trip.EstimatedDurationMin,
		trip.EstimatedFuelLiters,
		trip.EstimatedCost,
		trip.ActualDistanceKm,
		trip.ActualDurationMin,
		trip.ActualFuelLiters,
		trip.ActualCost,
		trip.ScheduledAt,
		toNullTime(trip.StartedAt),
		toNullTime(trip.CompletedAt),
		toNullTime(trip.CancelledAt),
		trip.CancelReason,
		domain.TripStatusScheduled,
		domain.TripStatusInProgress,
		domain.DriverStatusActive,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Determine which predicate blocked the insert.
		var active bool
		err = r.q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1 AND status = $2)`,
			trip.DriverID, domain.DriverStatusActive).Scan(&active)
		if err != nil {
			return err
		}
		if !active {
			return repository.ErrDriverNotActive
		}
		return repository.ErrActiveExists
	}

	return nil
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// GetAll retrieves recent trips.
func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips ORDER BY scheduled_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// GetActiveByDriverID retrieves the driver's non-terminal trip.
func (r *TripRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE driver_id = $1 AND status IN ($2, $3)
		LIMIT 1
	`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, driverID,
		domain.TripStatusScheduled, domain.TripStatusInProgress))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// UpdateIfStatus writes the full row only when the persisted status
// matches the expected one.
func (r *TripRepository) UpdateIfStatus(ctx context.Context, trip *domain.Trip, expected domain.TripStatus) error {
	query := `
		UPDATE trips
		SET status = $1,
		    actual_distance_km = $2, actual_duration_min = $3,
		    actual_fuel_liters = $4, actual_cost = $5,
		    started_at = $6, completed_at = $7, cancelled_at = $8, cancel_reason = $9
		WHERE id = $10 AND status = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		trip.Status,
		trip.ActualDistanceKm,
		trip.ActualDurationMin,
		trip.ActualFuelLiters,
		trip.ActualCost,
		toNullTime(trip.StartedAt),
		toNullTime(trip.CompletedAt),
		toNullTime(trip.CancelledAt),
		trip.CancelReason,
		trip.ID,
		expected,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, trip.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStatusConflict
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.CargoRequestID,
		&trip.VehicleID,
		&trip.DriverID,
		&trip.Status,
		&trip.AgreedPrice,
		&trip.EstimatedDistanceKm,
		&trip.EstimatedDurationMin,
		&trip.EstimatedFuelLiters,
		&trip.EstimatedCost,
		&trip.ActualDistanceKm,
		&trip.ActualDurationMin,
		&trip.ActualFuelLiters,
		&trip.ActualCost,
		&trip.ScheduledAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&trip.CancelReason,
	)
	if err != nil {
		return nil, err
	}

	trip.StartedAt = fromNullTime(startedAt)
	trip.CompletedAt = fromNullTime(completedAt)
	trip.CancelledAt = fromNullTime(cancelledAt)

	return &trip, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
