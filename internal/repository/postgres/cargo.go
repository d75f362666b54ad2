package postgres

import (
	"context"
	"database/sql"
	"errors"

	"freight/internal/domain"
	"freight/internal/repository"
)

// CargoRepository is a PostgreSQL implementation of repository.CargoRepository.
type CargoRepository struct {
	q Querier
}

// NewCargoRepository creates a new PostgreSQL cargo repository.
func NewCargoRepository(db *sql.DB) *CargoRepository {
	return &CargoRepository{q: db}
}

// NewCargoRepositoryWithTx creates a cargo repository using a transaction.
func NewCargoRepositoryWithTx(tx *sql.Tx) *CargoRepository {
	return &CargoRepository{q: tx}
}

const cargoColumns = `
	id, owner_id, title, weight_kg, pickup_location, delivery_location,
	pickup_at, deliver_by, price, status, notes,
	accepted_by, accepted_at, rejected_by, rejected_at, reject_reason,
	cancelled_at, cancel_reason, created_at
`

// Create persists a new cargo request.
func (r *CargoRepository) Create(ctx context.Context, cargo *domain.CargoRequest) error {
	query := `
		INSERT INTO cargo_requests (` + cargoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.q.ExecContext(ctx, query,
		cargo.ID,
		cargo.OwnerID,
		cargo.Title,
		cargo.WeightKg,
		cargo.PickupLocation,
		cargo.DeliveryLocation,
		cargo.PickupAt,
		cargo.DeliverBy,
		cargo.Price,
		cargo.Status,
		cargo.Notes,
		cargo.AcceptedBy,
		toNullTime(cargo.AcceptedAt),
		cargo.RejectedBy,
		toNullTime(cargo.RejectedAt),
		cargo.RejectReason,
		toNullTime(cargo.CancelledAt),
		cargo.CancelReason,
		cargo.CreatedAt,
	)

	return err
}

// GetByID retrieves a cargo request by ID.
func (r *CargoRepository) GetByID(ctx context.Context, id string) (*domain.CargoRequest, error) {
	query := `SELECT ` + cargoColumns + ` FROM cargo_requests WHERE id = $1`

	cargo, err := scanCargo(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return cargo, nil
}

// GetAll retrieves cargo requests filtered by status and owner.
func (r *CargoRepository) GetAll(ctx context.Context, status domain.CargoStatus, ownerID string) ([]*domain.CargoRequest, error) {
	query := `
		SELECT ` + cargoColumns + `
		FROM cargo_requests
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR owner_id = $2)
		ORDER BY created_at DESC LIMIT 100
	`

	rows, err := r.q.QueryContext(ctx, query, string(status), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.CargoRequest
	for rows.Next() {
		cargo, err := scanCargo(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, cargo)
	}

	return requests, rows.Err()
}

// UpdateIfStatus writes the full row only when the persisted status
// matches the expected one.
func (r *CargoRepository) UpdateIfStatus(ctx context.Context, cargo *domain.CargoRequest, expected domain.CargoStatus) error {
	query := `
		UPDATE cargo_requests
		SET status = $1, notes = $2,
		    accepted_by = $3, accepted_at = $4,
		    rejected_by = $5, rejected_at = $6, reject_reason = $7,
		    cancelled_at = $8, cancel_reason = $9
		WHERE id = $10 AND status = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		cargo.Status,
		cargo.Notes,
		cargo.AcceptedBy,
		toNullTime(cargo.AcceptedAt),
		cargo.RejectedBy,
		toNullTime(cargo.RejectedAt),
		cargo.RejectReason,
		toNullTime(cargo.CancelledAt),
		cargo.CancelReason,
		cargo.ID,
		expected,
	)
	if err != nil {
		return err
	}

	return r.checkConditional(ctx, result, cargo.ID)
}

// DeleteIfStatus hard-deletes the request only while it holds the
// expected status.
func (r *CargoRepository) DeleteIfStatus(ctx context.Context, id string, expected domain.CargoStatus) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM cargo_requests WHERE id = $1 AND status = $2`, id, expected)
	if err != nil {
		return err
	}

	return r.checkConditional(ctx, result, id)
}

// checkConditional distinguishes a missing row from a lost conditional
// write after a zero-row result.
func (r *CargoRepository) checkConditional(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	err = r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cargo_requests WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStatusConflict
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCargo(row rowScanner) (*domain.CargoRequest, error) {
	var cargo domain.CargoRequest
	var acceptedAt, rejectedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&cargo.ID,
		&cargo.OwnerID,
		&cargo.Title,
		&cargo.WeightKg,
		&cargo.PickupLocation,
		&cargo.DeliveryLocation,
		&cargo.PickupAt,
		&cargo.DeliverBy,
		&cargo.Price,
		&cargo.Status,
		&cargo.Notes,
		&cargo.AcceptedBy,
		&acceptedAt,
		&cargo.RejectedBy,
		&rejectedAt,
		&cargo.RejectReason,
		&cancelledAt,
		&cargo.CancelReason,
		&cargo.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	cargo.AcceptedAt = fromNullTime(acceptedAt)
	cargo.RejectedAt = fromNullTime(rejectedAt)
	cargo.CancelledAt = fromNullTime(cancelledAt)

	return &cargo, nil
}

// Ensure CargoRepository implements repository.CargoRepository.
var _ repository.CargoRepository = (*CargoRepository)(nil)
