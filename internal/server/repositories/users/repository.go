// Package users declares the account repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/campusfeed/campusfeed/internal/server/models"
)

// Repository stores accounts. Lookups return common.ErrorNotFound for a
// missing row; inserts and username changes return common.ErrConflict when a
// unique key is already taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Taken reports whether username or email already belongs to an account.
	Taken(ctx context.Context, username, email string) (bool, error)
	Delete(ctx context.Context, id string) error

	MarkVerified(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	CompleteProfile(ctx context.Context, id string, p models.ProfileFields) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) (*models.User, error)
	UpdateBio(ctx context.Context, id, bio string) (*models.User, error)
	UpdateUsername(ctx context.Context, id, username string) (*models.User, error)
	UpdateHashtags(ctx context.Context, id string, hashtags []string) (*models.User, error)
	UpdateProfilePic(ctx context.Context, id, url string) (*models.User, error)
	UpdateDeviceToken(ctx context.Context, id, token string) (*models.User, error)

	// InterestedIn returns the ids of users whose hashtags overlap tags.
	InterestedIn(ctx context.Context, tags []string) ([]string, error)
}
