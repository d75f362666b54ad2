package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freight/internal/domain"
	"freight/internal/repository"
)

// Notifier delivers lifecycle events to users. Delivery is
// fire-and-forget: failures are logged and never block or fail the
// state transition that produced the event. Every delivered event is
// appended to the notification audit log.
type Notifier struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

// NewNotifier creates a Notifier. repo may be nil in tests; events are
// then only logged.
func NewNotifier(repo repository.NotificationRepository, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{repo: repo, logger: logger}
}

// SendAsync dispatches an event to a user without blocking the caller.
func (n *Notifier) SendAsync(recipientID string, event domain.NotificationEvent, payload map[string]any) {
	if recipientID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		n.logger.Info("notification dispatched",
			zap.String("recipient_id", recipientID),
			zap.String("event", string(event)),
			zap.Any("payload", payload),
		)

		if n.repo == nil {
			return
		}

		entry := &domain.NotificationHistory{
			ID:          uuid.New().String(),
			RecipientID: recipientID,
			Event:       event,
			Payload:     payload,
			CreatedAt:   time.Now(),
		}
		if err := n.repo.Append(ctx, entry); err != nil {
			n.logger.Warn("notification history append failed",
				zap.String("recipient_id", recipientID),
				zap.String("event", string(event)),
				zap.Error(err),
			)
		}
	}()
}
