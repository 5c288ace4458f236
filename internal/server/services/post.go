package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/logging"
	"github.com/campusfeed/campusfeed/internal/server/config"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/campusfeed/campusfeed/internal/server/repositories/repomanager"
	"github.com/campusfeed/campusfeed/internal/server/validation"
)

type notifier interface {
	NotifyInterested(ctx context.Context, post *models.Post) (*FanoutReport, error)
}

type expiryScheduler interface {
	Schedule(postID string, expiresAt time.Time)
	Cancel(postID string)
}

// LikeResult is the state of a like set after a toggle.
type LikeResult struct {
	PostID     string `json:"postId"`
	Liked      bool   `json:"liked"`
	LikesCount int    `json:"likesCount"`
}

// PostService creates, lists, deletes and likes posts.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	fanout      notifier
	expiry      expiryScheduler
	ttl         time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, fanout notifier, expiry expiryScheduler,
	cfg *config.Config, logger logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		fanout:      fanout,
		expiry:      expiry,
		ttl:         cfg.PostTTL,
		logger:      logger.With("module", "posts"),
		now:         time.Now,
	}
}

// CreatePost publishes a post that lives for the configured TTL and
// notifies interested users. Fanout problems are logged and never fail the
// request.
func (s *PostService) CreatePost(ctx context.Context, authorID, content string, hashtags []string) (*models.Post, error) {
	author, err := s.repomanager.Users(s.db).GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !author.IsVerified {
		return nil, fmt.Errorf("%w: please complete your registration before posting", common.ErrUnverified)
	}
	if !author.IsProfileComplete {
		return nil, fmt.Errorf("%w: please complete your profile before posting", common.ErrIncompleteProfile)
	}

	content, err = validation.PostContent(content)
	if err != nil {
		return nil, err
	}
	tags, err := validation.PostHashtags(hashtags)
	if err != nil {
		return nil, err
	}

	now := s.now()
	post, err := s.repomanager.Posts(s.db).Create(ctx, &models.Post{
		AuthorID:  authorID,
		Content:   content,
		Hashtags:  tags,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	s.expiry.Schedule(post.ID, post.ExpiresAt)

	report, err := s.fanout.NotifyInterested(ctx, post)
	switch {
	case err != nil:
		s.logger.Error(ctx, "fanout failed", "post_id", post.ID, "error", err)
	case len(report.Failures) > 0:
		s.logger.Warn(ctx, "fanout partially failed", "post_id", post.ID, "failures", len(report.Failures))
	}

	s.logger.Info(ctx, "post created", "post_id", post.ID, "author_id", authorID)
	return post, nil
}

// ListVisiblePosts returns live posts sharing a tag with the viewer's
// interests plus the viewer's own posts, newest first.
func (s *PostService) ListVisiblePosts(ctx context.Context, viewerID string) ([]models.PostView, error) {
	viewer, err := s.repomanager.Users(s.db).GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsVerified {
		return nil, fmt.Errorf("%w: please complete your registration first", common.ErrUnverified)
	}

	views, err := s.repomanager.Posts(s.db).ListVisible(ctx, viewerID, viewer.Hashtags, s.now())
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return views, nil
}

// GetPost returns a live post.
func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, postID, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: post not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error loading post: %w", err)
	}
	return post, nil
}

// DeletePost removes a post on behalf of its author and disarms its timer.
func (s *PostService) DeletePost(ctx context.Context, postID, requesterID string) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != requesterID {
		return fmt.Errorf("%w: you can only delete your own posts", common.ErrForbidden)
	}

	if err := s.repomanager.Posts(s.db).Delete(ctx, postID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: post not found", common.ErrorNotFound)
		}
		return fmt.Errorf("error deleting post: %w", err)
	}
	s.expiry.Cancel(postID)

	s.logger.Info(ctx, "post deleted", "post_id", postID)
	return nil
}

// ToggleLike likes the post for userID, or unlikes it if already liked.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (*LikeResult, error) {
	post, err := s.repomanager.Posts(s.db).ToggleLike(ctx, postID, userID, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: post not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error toggling like: %w", err)
	}
	return &LikeResult{PostID: post.ID, Liked: post.LikedByUser(userID), LikesCount: len(post.LikedBy)}, nil
}
