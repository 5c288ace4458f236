package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/logging"
	"github.com/campusfeed/campusfeed/internal/server/repositories/repomanager"
)

const expiryDeleteTimeout = 10 * time.Second

// stopper is the part of *time.Timer the scheduler keeps.
type stopper interface {
	Stop() bool
}

// ExpiryScheduler deletes posts when their lifetime ends. Each post gets a
// fire-once timer; a periodic sweep removes whatever the timers missed, for
// example posts whose timers were lost in a restart. Failed deletions are
// logged and left for the next sweep.
type ExpiryScheduler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
	afterFunc   func(d time.Duration, f func()) stopper

	mu      sync.Mutex
	timers  map[string]stopper
	stopped bool
	wg      sync.WaitGroup
}

func NewExpiryScheduler(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "expiry"),
		now:         time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		timers: make(map[string]stopper),
	}
}

// Schedule arranges for postID to be deleted at expiresAt, replacing any
// timer already set for it. Past deadlines fire immediately.
func (s *ExpiryScheduler) Schedule(postID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[postID]; ok {
		t.Stop()
	}
	d := expiresAt.Sub(s.now())
	if d < 0 {
		d = 0
	}
	s.timers[postID] = s.afterFunc(d, func() { s.fire(postID) })
}

// Cancel drops the timer of postID, if any.
func (s *ExpiryScheduler) Cancel(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[postID]; ok {
		t.Stop()
		delete(s.timers, postID)
	}
}

// Pending returns the number of armed timers.
func (s *ExpiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *ExpiryScheduler) fire(postID string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, postID)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), expiryDeleteTimeout)
	defer cancel()

	err := s.repomanager.Posts(s.db).Delete(ctx, postID)
	switch {
	case err == nil:
		s.logger.Info(ctx, "post expired", "post_id", postID)
	case errors.Is(err, common.ErrorNotFound):
		// Deleted by its author or by a sweep.
	default:
		s.logger.Error(ctx, "failed to delete expired post", "post_id", postID, "error", err)
	}
}

// Sweep deletes every post whose lifetime has ended.
func (s *ExpiryScheduler) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Posts(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error(ctx, "expiry sweep failed", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info(ctx, "expiry sweep removed posts", "count", n)
	}
	return n, nil
}

// Run sweeps once immediately and then every interval until ctx ends. A
// non-positive interval disables the periodic sweep.
func (s *ExpiryScheduler) Run(ctx context.Context, interval time.Duration) {
	_, _ = s.Sweep(ctx)
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}

// Stop disarms all timers and waits for deletions already in flight.
// Schedule is a no-op afterwards.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
