package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/cryptox"
	"github.com/campusfeed/campusfeed/internal/dbx"
	"github.com/campusfeed/campusfeed/internal/server/config"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/campusfeed/campusfeed/internal/server/repositories/notifications"
	"github.com/campusfeed/campusfeed/internal/server/repositories/posts"
	"github.com/campusfeed/campusfeed/internal/server/repositories/refreshtokens"
	"github.com/campusfeed/campusfeed/internal/server/repositories/users"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: baseTime} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		OTPValidityDuration:          10 * time.Minute,
		PostTTL:                      time.Hour,
	}
}

// --- users ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	nextID  int
	err     error // returned by every call when set
	failDel error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (r *fakeUsersRepo) add(u models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		r.nextID++
		u.ID = fmt.Sprintf("u-%d", r.nextID)
	}
	if u.Hashtags == nil {
		u.Hashtags = []string{}
	}
	cp := u
	r.byID[u.ID] = &cp
	return &cp
}

func (r *fakeUsersRepo) get(id string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (r *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	for _, e := range r.byID {
		if e.Username == u.Username || e.Email == u.Email {
			r.mu.Unlock()
			return nil, fmt.Errorf("%w: users_email_key", common.ErrConflict)
		}
	}
	r.mu.Unlock()
	return r.add(*u), nil
}

func (r *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	if u := r.get(id); u != nil {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) Taken(ctx context.Context, username, email string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	if r.failDel != nil {
		return r.failDel
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakeUsersRepo) mutate(id string, fn func(u *models.User) error) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsersRepo) MarkVerified(ctx context.Context, email string) (*models.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return r.mutate(u.ID, func(u *models.User) error { u.IsVerified = true; return nil })
}

func (r *fakeUsersRepo) UpdatePassword(ctx context.Context, id string, hash string) error {
	_, err := r.mutate(id, func(u *models.User) error { u.PasswordHash = hash; return nil })
	return err
}

func (r *fakeUsersRepo) CompleteProfile(ctx context.Context, id string, p models.ProfileFields) (*models.User, error) {
	return r.mutate(id, func(u *models.User) error {
		u.Name, u.Bio, u.Hashtags, u.ProfilePic, u.IsProfileComplete = p.Name, p.Bio, p.Hashtags, p.ProfilePic, true
		return nil
	})
}

func (r *fakeUsersRepo) UpdateName(ctx context.Context, id, v string) (*models.User, error) {
	return r.mutate(id, func(u *models.User) error { u.Name = v; return nil })
}

func (r *fakeUsersRepo) UpdateBio(ctx context.Context, id, v string) (*models.User, error) {
	return r.mutate(id, func(u *models.User) error { u.Bio = v; return nil })
}

func (r *fakeUsersRepo) UpdateUsername(ctx context.Context, id, v string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	for _, e := range r.byID {
		if e.ID != id && e.Username == v {
			r.mu.Unlock()
			return nil, fmt.Errorf("%w: users_username_key", common.ErrConflict)
		}
	}
	r.mu.Unlock()
	return r.mutate(id, func(u *models.User) error { u.Username = v; return nil })
}

func (r *fakeUsersRepo) UpdateHashtags(ctx context.Context, id string, v []string) (*models.User, error) {
	return r.mutate(id, func(u *models.User) error { u.Hashtags = v; return nil })
}

func (r *fakeUsersRepo) UpdateProfilePic(ctx context.Context, id, v string) (*models.User, error) {
	return r.mutate(id, func(u *models.User) error { u.ProfilePic = v; return nil })
}

func (r *fakeUsersRepo) UpdateDeviceToken(ctx context.Context, id, v string) (*models.User, error) {
	return r.mutate(id, func(u *models.User) error { u.DeviceToken = v; return nil })
}

func (r *fakeUsersRepo) InterestedIn(ctx context.Context, tags []string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []string{}
	for _, u := range r.byID {
		for _, t := range u.Hashtags {
			if slices.Contains(tags, t) {
				ids = append(ids, u.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu        sync.Mutex
	byUser    map[string]models.RefreshToken
	upsertErr error
	findErr   error
	delErr    error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{byUser: map[string]models.RefreshToken{}}
}

func (r *fakeRefreshRepo) Upsert(ctx context.Context, userID, token string, validity time.Duration) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byUser {
		if t.Token == token {
			cp := t
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if r.delErr != nil {
		return r.delErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for u, t := range r.byUser {
		if t.Token == token {
			delete(r.byUser, u)
		}
	}
	return nil
}

func (r *fakeRefreshRepo) DeleteByUser(ctx context.Context, userID string) error {
	if r.delErr != nil {
		return r.delErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

func (r *fakeRefreshRepo) tokenOf(userID string) (models.RefreshToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byUser[userID]
	return t, ok
}

// --- posts ---

type fakePostsRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.Post
	users   *fakeUsersRepo
	nextID  int
	err     error
	delErr  error
	deleted []string
}

func newFakePostsRepo(users *fakeUsersRepo) *fakePostsRepo {
	return &fakePostsRepo{byID: map[string]*models.Post{}, users: users}
}

func (r *fakePostsRepo) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = fmt.Sprintf("p-%d", r.nextID)
	p.LikedBy = []string{}
	cp := *p
	r.byID[p.ID] = &cp
	return p, nil
}

func (r *fakePostsRepo) GetByID(ctx context.Context, id string, now time.Time) (*models.Post, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Expired(now) {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostsRepo) ListVisible(ctx context.Context, viewerID string, tags []string, now time.Time) ([]models.PostView, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	views := []models.PostView{}
	for _, p := range r.byID {
		if p.Expired(now) {
			continue
		}
		match := p.AuthorID == viewerID
		for _, t := range p.Hashtags {
			match = match || slices.Contains(tags, t)
		}
		if !match {
			continue
		}
		v := models.PostView{ID: p.ID, Content: p.Content, Hashtags: p.Hashtags, LikesCount: len(p.LikedBy),
			LikedByMe: p.LikedByUser(viewerID), CreatedAt: p.CreatedAt, ExpiresAt: p.ExpiresAt}
		if a := r.users.get(p.AuthorID); a != nil {
			v.Author = models.AuthorSummary{ID: a.ID, Name: a.Name, ProfilePic: a.ProfilePic}
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	return views, nil
}

func (r *fakePostsRepo) Delete(ctx context.Context, id string) error {
	if r.delErr != nil {
		return r.delErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakePostsRepo) ToggleLike(ctx context.Context, id, userID string, now time.Time) (*models.Post, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.Expired(now) {
		return nil, common.ErrorNotFound
	}
	if i := slices.Index(p.LikedBy, userID); i >= 0 {
		p.LikedBy = slices.Delete(p.LikedBy, i, i+1)
	} else {
		p.LikedBy = append(p.LikedBy, userID)
	}
	cp := *p
	cp.LikedBy = slices.Clone(p.LikedBy)
	return &cp, nil
}

func (r *fakePostsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if r.delErr != nil {
		return 0, r.delErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, p := range r.byID {
		if p.Expired(now) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *fakePostsRepo) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok
}

// --- notifications ---

type fakeNotificationsRepo struct {
	mu      sync.Mutex
	list    []models.Notification
	failFor map[string]bool
	listErr error
}

func newFakeNotificationsRepo() *fakeNotificationsRepo {
	return &fakeNotificationsRepo{failFor: map[string]bool{}}
}

func (r *fakeNotificationsRepo) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[n.UserID] {
		return nil, errors.New("insert failed")
	}
	n.ID = fmt.Sprintf("n-%d", len(r.list)+1)
	r.list = append(r.list, *n)
	return n, nil
}

func (r *fakeNotificationsRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Notification{}
	for i := len(r.list) - 1; i >= 0 && len(out) < limit; i-- {
		if r.list[i].UserID == userID {
			out = append(out, r.list[i])
		}
	}
	return out, nil
}

func (r *fakeNotificationsRepo) forUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.list {
		if x.UserID == userID {
			n++
		}
	}
	return n
}

// --- manager ---

type fakeRepoManager struct {
	users         *fakeUsersRepo
	refresh       *fakeRefreshRepo
	posts         *fakePostsRepo
	notifications *fakeNotificationsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	u := newFakeUsersRepo()
	return &fakeRepoManager{
		users:         u,
		refresh:       newFakeRefreshRepo(),
		posts:         newFakePostsRepo(u),
		notifications: newFakeNotificationsRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeRepoManager) Posts(dbx.DBTX) posts.Repository                 { return m.posts }
func (m *fakeRepoManager) Notifications(dbx.DBTX) notifications.Repository { return m.notifications }

// --- collaborators ---

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

type fakeOTPIssuer struct {
	issued    []string
	discarded []string
	err       error
}

func (f *fakeOTPIssuer) Issue(ctx context.Context, email string) error {
	if f.err != nil {
		return f.err
	}
	f.issued = append(f.issued, email)
	return nil
}

func (f *fakeOTPIssuer) Discard(ctx context.Context, email string) error {
	f.discarded = append(f.discarded, email)
	return nil
}

type fakeUploader struct {
	uploaded []string
	err      error
}

func (f *fakeUploader) UploadFile(ctx context.Context, localPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, localPath)
	return "https://cdn.example/" + localPath, nil
}

type pushed struct {
	UserID string
	Event  string
}

type fakePusher struct {
	mu      sync.Mutex
	events  []pushed
	failFor map[string]bool
}

func newFakePusher() *fakePusher { return &fakePusher{failFor: map[string]bool{}} }

func (p *fakePusher) Emit(ctx context.Context, userID, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[userID] {
		return errors.New("push failed")
	}
	p.events = append(p.events, pushed{UserID: userID, Event: event})
	return nil
}

func (p *fakePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeScheduler struct {
	scheduled map[string]time.Time
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[string]time.Time{}}
}

func (f *fakeScheduler) Schedule(postID string, expiresAt time.Time) { f.scheduled[postID] = expiresAt }
func (f *fakeScheduler) Cancel(postID string)                        { f.cancelled = append(f.cancelled, postID) }

type fakeNotifier struct {
	posts  []string
	report *FanoutReport
	err    error
}

func (f *fakeNotifier) NotifyInterested(ctx context.Context, post *models.Post) (*FanoutReport, error) {
	f.posts = append(f.posts, post.ID)
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &FanoutReport{}, nil
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := cryptox.HashSecretWithCost(plain, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

// ignoreDBOpener skips the connection opener goroutine of sqlmock databases,
// which lives until the test cleanup closes them.
var ignoreDBOpener = goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")
