package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/logging"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/campusfeed/campusfeed/internal/server/push"
	"github.com/campusfeed/campusfeed/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFanoutConcurrency = 16
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// Fanout stages at which a single recipient can fail.
const (
	StagePersist = "persist"
	StagePush    = "push"
)

// RecipientFailure records why one recipient missed part of a fanout.
type RecipientFailure struct {
	UserID string
	Stage  string
	Err    error
}

// FanoutReport aggregates the per-recipient outcomes of one fanout.
type FanoutReport struct {
	Recipients int
	Persisted  int
	Pushed     int
	Failures   []RecipientFailure
}

// FanoutService tells interested users about new posts.
type FanoutService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	pusher      push.Pusher
	logger      logging.Logger
	concurrency int
}

func NewFanoutService(db *sql.DB, m repomanager.RepositoryManager, pusher push.Pusher, logger logging.Logger) *FanoutService {
	return &FanoutService{
		db:          db,
		repomanager: m,
		pusher:      pusher,
		logger:      logger.With("module", "fanout"),
		concurrency: defaultFanoutConcurrency,
	}
}

// NotificationMessage is the text stored for a post tagged with hashtags.
func NotificationMessage(hashtags []string) string {
	return "New post related to your interests: " + strings.Join(hashtags, ", ")
}

// NotifyInterested persists a notification for, and pushes an event to,
// every user whose interests overlap post's hashtags, the author included.
// Recipients are handled independently: a failure for one is recorded in
// the report and never stops the others, and a failed push leaves the
// persisted notification in place. Only the recipient lookup itself fails
// the call.
func (s *FanoutService) NotifyInterested(ctx context.Context, post *models.Post) (*FanoutReport, error) {
	recipients, err := s.repomanager.Users(s.db).InterestedIn(ctx, post.Hashtags)
	if err != nil {
		return nil, fmt.Errorf("error selecting recipients: %w", err)
	}

	report := &FanoutReport{Recipients: len(recipients)}
	var mu sync.Mutex
	fail := func(userID, stage string, err error) {
		mu.Lock()
		report.Failures = append(report.Failures, RecipientFailure{UserID: userID, Stage: stage, Err: err})
		mu.Unlock()
		s.logger.Warn(ctx, "fanout delivery failed", "post_id", post.ID, "user_id", userID, "stage", stage, "error", err)
	}

	notifications := s.repomanager.Notifications(s.db)
	message := NotificationMessage(post.Hashtags)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, userID := range recipients {
		g.Go(func() error {
			n, err := notifications.Create(ctx, &models.Notification{UserID: userID, PostID: post.ID, Message: message})
			if err != nil {
				fail(userID, StagePersist, err)
				return nil
			}
			mu.Lock()
			report.Persisted++
			mu.Unlock()

			if err := s.pusher.Emit(ctx, userID, common.NotificationEvent, n); err != nil {
				fail(userID, StagePush, err)
				return nil
			}
			mu.Lock()
			report.Pushed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info(ctx, "fanout finished", "post_id", post.ID,
		"recipients", report.Recipients, "persisted", report.Persisted, "pushed", report.Pushed)
	return report, nil
}

// ListNotifications returns the newest notifications of userID. limit is
// clamped to a sane range; zero or less means the default.
func (s *FanoutService) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	switch {
	case limit <= 0:
		limit = defaultNotificationLimit
	case limit > maxNotificationLimit:
		limit = maxNotificationLimit
	}
	list, err := s.repomanager.Notifications(s.db).ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	return list, nil
}
