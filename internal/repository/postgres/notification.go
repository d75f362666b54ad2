package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"freight/internal/domain"
	"freight/internal/repository"
)

// NotificationRepository is a PostgreSQL implementation of
// repository.NotificationRepository. The table is append-only.
type NotificationRepository struct {
	q Querier
}

// NewNotificationRepository creates a new PostgreSQL notification repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{q: db}
}

// Append records a delivered notification.
func (r *NotificationRepository) Append(ctx context.Context, entry *domain.NotificationHistory) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notification_history (id, recipient_id, event, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.q.ExecContext(ctx, query,
		entry.ID,
		entry.RecipientID,
		entry.Event,
		payload,
		entry.CreatedAt,
	)

	return err
}

// GetByRecipient retrieves recent notifications for a user.
func (r *NotificationRepository) GetByRecipient(ctx context.Context, recipientID string, limit int) ([]*domain.NotificationHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, recipient_id, event, payload, created_at
		FROM notification_history
		WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.NotificationHistory
	for rows.Next() {
		var entry domain.NotificationHistory
		var payload []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.RecipientID,
			&entry.Event,
			&payload,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &entry.Payload); err != nil {
				return nil, err
			}
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Ensure NotificationRepository implements repository.NotificationRepository.
var _ repository.NotificationRepository = (*NotificationRepository)(nil)
