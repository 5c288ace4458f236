// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/campusfeed/campusfeed/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Upsert stores token as the refresh token of userID with an expiry of
	// now+validity. A user holds at most one refresh token: issuing a new one
	// replaces the previous token, so logging in on a second device ends the
	// refresh ability of the first.
	Upsert(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string and returns its metadata.
	// Implementations should return a not-found error when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a non-existent
	// token should not be considered an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes the refresh token of userID, if any.
	DeleteByUser(ctx context.Context, userID string) error
}
