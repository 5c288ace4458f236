// Package notifications stores the per-user notification history.
package notifications

import (
	"context"

	"github.com/campusfeed/campusfeed/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	// ListByUser returns at most limit notifications of userID, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}
