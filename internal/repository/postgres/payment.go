package postgres

import (
	"context"
	"database/sql"
	"errors"

	"freight/internal/domain"
	"freight/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `
	id, trip_id, amount, refunded_amount, currency, gateway, status,
	gateway_token, reference_id, redirect_url,
	payer_id, payer_phone, description, failure_reason,
	created_at, updated_at
`

// CreateIfNoActive inserts the payment unless the trip already has a
// Pending or Processing payment. The invariant check and the insert are
// one statement.
func (r *PaymentRepository) CreateIfNoActive(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		WHERE NOT EXISTS (
			SELECT 1 FROM payments
			WHERE trip_id = $2 AND status IN ($17, $18)
		)
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.TripID,
		payment.Amount,
		payment.RefundedAmount,
		payment.Currency,
		payment.Gateway,
		payment.Status,
		payment.GatewayToken,
		payment.ReferenceID,
		payment.RedirectURL,
		payment.PayerID,
		payment.PayerPhone,
		payment.Description,
		payment.FailureReason,
		payment.CreatedAt,
		payment.UpdatedAt,
		domain.PaymentStatusPending,
		domain.PaymentStatusProcessing,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrActiveExists
	}

	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByToken retrieves a payment by its gateway authority token.
func (r *PaymentRepository) GetByToken(ctx context.Context, token string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_token = $1`
	return r.getOne(ctx, query, token)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg string) (*domain.Payment, error) {
	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

// GetByTripID retrieves all payments for a trip, newest first.
func (r *PaymentRepository) GetByTripID(ctx context.Context, tripID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE trip_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// UpdateIfStatus writes the mutable fields only when the persisted
// status matches the expected one.
func (r *PaymentRepository) UpdateIfStatus(ctx context.Context, payment *domain.Payment, expected domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $1, refunded_amount = $2,
		    gateway_token = $3, reference_id = $4, redirect_url = $5,
		    failure_reason = $6, updated_at = $7
		WHERE id = $8 AND status = $9
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		payment.RefundedAmount,
		payment.GatewayToken,
		payment.ReferenceID,
		payment.RedirectURL,
		payment.FailureReason,
		payment.UpdatedAt,
		payment.ID,
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
		`SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, payment.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStatusConflict
}

// AppendHistory records a status change in the append-only audit log.
func (r *PaymentRepository) AppendHistory(ctx context.Context, entry *domain.PaymentHistory) error {
	query := `
		INSERT INTO payment_history (id, payment_id, from_status, to_status, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		entry.ID,
		entry.PaymentID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorID,
		entry.Note,
		entry.CreatedAt,
	)

	return err
}

// GetHistory retrieves the audit trail for a payment, oldest first.
func (r *PaymentRepository) GetHistory(ctx context.Context, paymentID string) ([]*domain.PaymentHistory, error) {
	query := `
		SELECT id, payment_id, from_status, to_status, actor_id, note, created_at
		FROM payment_history WHERE payment_id = $1 ORDER BY created_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*domain.PaymentHistory
	for rows.Next() {
		var entry domain.PaymentHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.PaymentID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.ActorID,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		history = append(history, &entry)
	}

	return history, rows.Err()
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment

	err := row.Scan(
		&payment.ID,
		&payment.TripID,
		&payment.Amount,
		&payment.RefundedAmount,
		&payment.Currency,
		&payment.Gateway,
		&payment.Status,
		&payment.GatewayToken,
		&payment.ReferenceID,
		&payment.RedirectURL,
		&payment.PayerID,
		&payment.PayerPhone,
		&payment.Description,
		&payment.FailureReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
