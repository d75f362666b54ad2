package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"freight/internal/middleware"
	"freight/internal/repository"
)

const defaultNotificationLimit = 50

// NotificationHandler serves the notification audit log.
type NotificationHandler struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationRepo repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notificationRepo: notificationRepo}
}

// NotificationResponse is the HTTP representation of a delivered event.
type NotificationResponse struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// GetMine handles GET /v1/notifications. It returns the acting user's
// recent notifications, newest first.
func (h *NotificationHandler) GetMine(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.notificationRepo.GetByRecipient(c.Request.Context(), actor.UserID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]NotificationResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, NotificationResponse{
			ID:        entry.ID,
			Event:     string(entry.Event),
			Payload:   entry.Payload,
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
	}

	respondJSON(c, http.StatusOK, responses)
}
