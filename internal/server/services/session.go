// Package services contains server-side business logic: accounts and
// sessions, OTP verification, posts with their expiry, and notification
// fanout. Services talk to storage only through repomanager and to the
// outside world through small collaborator interfaces.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/server/auth"
	"github.com/campusfeed/campusfeed/internal/server/config"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/campusfeed/campusfeed/internal/server/repositories/repomanager"
)

// SessionService issues and revokes access/refresh token pairs.
//
// A user holds at most one refresh token: every issuance overwrites the
// stored one, so only the most recently issued refresh token is valid.
type SessionService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

// NewSessionService constructs a SessionService using repositories and server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// IssueSessionPair mints an access token and stores a fresh refresh token
// for userID, replacing any previous one.
func (s *SessionService) IssueSessionPair(ctx context.Context, userID string) (*models.TokenPair, error) {
	access, err := s.AccessToken(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("%w: generate refresh token: %v", common.ErrorInternal, err)
	}
	if err := s.repomanager.RefreshTokens(s.db).Upsert(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// AccessToken mints a bare access token for userID.
func (s *SessionService) AccessToken(userID string) (string, error) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("%w: sign access token: %v", common.ErrorInternal, err)
	}
	return token, nil
}

// RefreshSession exchanges a valid refresh token for a new pair. The old
// refresh token stops working because the new one overwrites it.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrMissingToken
	}

	repo := s.repomanager.RefreshTokens(s.db)
	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown refresh token", common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		if err := repo.Delete(ctx, refreshToken); err != nil {
			return nil, fmt.Errorf("error deleting refresh token: %w", err)
		}
		return nil, common.ErrRefreshTokenExpired
	}

	return s.IssueSessionPair(ctx, token.UserID)
}

// InvalidateSession drops the stored refresh token of userID.
func (s *SessionService) InvalidateSession(ctx context.Context, userID string) error {
	if err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// SessionGate resolves bearer tokens to caller identities.
type SessionGate struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
}

func NewSessionGate(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionGate {
	return &SessionGate{db: db, repomanager: m, jwtSecret: []byte(cfg.SecretKey)}
}

// Authorize validates token and loads the user it names. The returned
// identity never carries the password hash.
func (g *SessionGate) Authorize(ctx context.Context, token string) (*models.PublicUser, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}

	userID, err := auth.GetUserIDFromToken(token, g.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	user, err := g.repomanager.Users(g.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user.Public(), nil
}

// RequireCompleteProfile gates actions that need a finished profile.
func (g *SessionGate) RequireCompleteProfile(identity *models.PublicUser) error {
	if identity == nil || !identity.IsProfileComplete {
		return fmt.Errorf("%w: please complete your profile first", common.ErrIncompleteProfile)
	}
	return nil
}
