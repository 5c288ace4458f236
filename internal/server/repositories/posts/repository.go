// Package posts stores hashtag posts and their like sets.
package posts

import (
	"context"
	"time"

	"github.com/campusfeed/campusfeed/internal/server/models"
)

// Repository persists posts. Every read and the like toggle take the
// caller's clock reading and treat rows with expires_at <= now as absent,
// so an expired post is never observable even before it is swept.
type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string, now time.Time) (*models.Post, error)
	// ListVisible returns unexpired posts sharing a tag with tags or written
	// by viewerID, newest first.
	ListVisible(ctx context.Context, viewerID string, tags []string, now time.Time) ([]models.PostView, error)
	Delete(ctx context.Context, id string) error
	// ToggleLike adds userID to the like set, or removes it when present, in
	// one statement.
	ToggleLike(ctx context.Context, id, userID string, now time.Time) (*models.Post, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
