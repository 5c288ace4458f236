// Package httpapi exposes the services over a JSON HTTP API built on gin.
// Handlers translate requests into service calls and service errors into
// status codes; they hold no business rules of their own.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/campusfeed/campusfeed/internal/logging"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/campusfeed/campusfeed/internal/server/push"
	"github.com/campusfeed/campusfeed/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type accountService interface {
	Register(ctx context.Context, username, email, password string) (*models.PublicUser, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	RefreshSession(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	InvalidateSession(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error
	CompleteProfile(ctx context.Context, userID string, in services.ProfileInput) (*models.PublicUser, error)
	UpdateName(ctx context.Context, userID, name string) (*models.PublicUser, error)
	UpdateBio(ctx context.Context, userID, bio string) (*models.PublicUser, error)
	UpdateUsername(ctx context.Context, userID, username string) (*models.PublicUser, error)
	UpdateHashtags(ctx context.Context, userID string, hashtags []string) (*models.PublicUser, error)
	UpdateProfilePic(ctx context.Context, userID, picPath string) (*models.PublicUser, error)
	UpdateDeviceToken(ctx context.Context, userID, token string) (*models.PublicUser, error)
	GetProfile(ctx context.Context, userID string) (*models.PublicUser, error)
	GetPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error)
}

type otpService interface {
	Verify(ctx context.Context, email, code string) (*models.TokenPair, error)
	Resend(ctx context.Context, email string) error
}

type postService interface {
	CreatePost(ctx context.Context, authorID, content string, hashtags []string) (*models.Post, error)
	ListVisiblePosts(ctx context.Context, viewerID string) ([]models.PostView, error)
	DeletePost(ctx context.Context, postID, requesterID string) error
	ToggleLike(ctx context.Context, postID, userID string) (*services.LikeResult, error)
}

type notificationService interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

type authorizer interface {
	Authorize(ctx context.Context, token string) (*models.PublicUser, error)
	RequireCompleteProfile(identity *models.PublicUser) error
}

type subscriber interface {
	Subscribe(ctx context.Context, userID string) (*push.Subscription, error)
}

// Deps are the collaborators the API dispatches to.
type Deps struct {
	Accounts      accountService
	OTP           otpService
	Posts         postService
	Notifications notificationService
	Gate          authorizer
	Feed          subscriber
	UploadDir     string
}

type Server struct {
	address string
	deps    Deps
	logger  logging.Logger
	engine  *gin.Engine

	closing     chan struct{}
	closingOnce sync.Once
}

func NewServer(address string, l logging.Logger, d Deps) *Server {
	s := &Server{
		address: address,
		deps:    d,
		logger:  l.With("module", "http_server"),
		closing: make(chan struct{}),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// Open event streams are told to finish before the drain starts.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	srv.RegisterOnShutdown(s.closeStreams)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) closeStreams() {
	s.closingOnce.Do(func() { close(s.closing) })
}
