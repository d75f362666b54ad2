package repository

import (
	"context"

	"freight/internal/domain"
)

// NotificationRepository persists the append-only notification audit log.
type NotificationRepository interface {
	// Append records a delivered notification. Rows are never updated
	// or deleted.
	Append(ctx context.Context, entry *domain.NotificationHistory) error

	// GetByRecipient retrieves recent notifications for a user.
	GetByRecipient(ctx context.Context, recipientID string, limit int) ([]*domain.NotificationHistory, error)
}
