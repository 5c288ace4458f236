package httpapi

import (
	"context"
	"os"
	"sync"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/campusfeed/campusfeed/internal/server/services"
)

const (
	aliceID = "6f1c2b9e-8a31-4d6e-9b7a-2f4c1d0e5a11"
	bobID   = "0b9d7e6c-5a4f-4e3d-8c2b-1a0f9e8d7c65"
	postID  = "3e2d1c0b-9a8f-4e7d-b6c5-a4b3c2d1e0f9"
)

type fakeGate struct {
	tokens map[string]*models.PublicUser
}

func (g *fakeGate) Authorize(ctx context.Context, token string) (*models.PublicUser, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}
	u, ok := g.tokens[token]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return u, nil
}

func (g *fakeGate) RequireCompleteProfile(identity *models.PublicUser) error {
	if identity == nil || !identity.IsProfileComplete {
		return common.ErrIncompleteProfile
	}
	return nil
}

type profileCall struct {
	UserID  string
	Input   services.ProfileInput
	PicData string
}

type fakeAccounts struct {
	mu       sync.Mutex
	err      error
	user     *models.PublicUser
	calls    []string
	profile  *profileCall
	picPath  string
	hashtags []string
}

func (f *fakeAccounts) record(name string) (*models.PublicUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	if f.user != nil {
		return f.user, nil
	}
	return &models.PublicUser{ID: aliceID, Username: "alice", Hashtags: []string{}}, nil
}

func (f *fakeAccounts) Register(ctx context.Context, username, email, password string) (*models.PublicUser, error) {
	return f.record("register:" + username)
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	u, err := f.record("login:" + email)
	if err != nil {
		return nil, err
	}
	return &services.LoginResult{TokenPair: models.TokenPair{AccessToken: "a", RefreshToken: "r"}, User: u}, nil
}

func (f *fakeAccounts) RefreshSession(ctx context.Context, token string) (*models.TokenPair, error) {
	if _, err := f.record("refresh:" + token); err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (f *fakeAccounts) InvalidateSession(ctx context.Context, userID string) error {
	_, err := f.record("logout:" + userID)
	return err
}

func (f *fakeAccounts) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error {
	_, err := f.record("password:" + userID)
	return err
}

func (f *fakeAccounts) CompleteProfile(ctx context.Context, userID string, in services.ProfileInput) (*models.PublicUser, error) {
	call := &profileCall{UserID: userID, Input: in}
	if in.PicPath != "" {
		b, _ := os.ReadFile(in.PicPath)
		call.PicData = string(b)
	}
	f.mu.Lock()
	f.profile = call
	f.mu.Unlock()
	return f.record("completeProfile")
}

func (f *fakeAccounts) UpdateName(ctx context.Context, userID, name string) (*models.PublicUser, error) {
	return f.record("name:" + name)
}

func (f *fakeAccounts) UpdateBio(ctx context.Context, userID, bio string) (*models.PublicUser, error) {
	return f.record("bio:" + bio)
}

func (f *fakeAccounts) UpdateUsername(ctx context.Context, userID, username string) (*models.PublicUser, error) {
	return f.record("username:" + username)
}

func (f *fakeAccounts) UpdateHashtags(ctx context.Context, userID string, hashtags []string) (*models.PublicUser, error) {
	f.mu.Lock()
	f.hashtags = hashtags
	f.mu.Unlock()
	return f.record("hashtags")
}

func (f *fakeAccounts) UpdateProfilePic(ctx context.Context, userID, picPath string) (*models.PublicUser, error) {
	f.mu.Lock()
	f.picPath = picPath
	f.mu.Unlock()
	return f.record("pic")
}

func (f *fakeAccounts) UpdateDeviceToken(ctx context.Context, userID, token string) (*models.PublicUser, error) {
	return f.record("device:" + token)
}

func (f *fakeAccounts) GetProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	return f.record("me:" + userID)
}

func (f *fakeAccounts) GetPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	if _, err := f.record("profile:" + userID); err != nil {
		return nil, err
	}
	return &models.PublicProfile{ID: userID, Username: "bob", Hashtags: []string{"fun"}}, nil
}

type fakeOTP struct {
	err      error
	verified []string
}

func (f *fakeOTP) Verify(ctx context.Context, email, code string) (*models.TokenPair, error) {
	f.verified = append(f.verified, email+"/"+code)
	if f.err != nil {
		return nil, f.err
	}
	return &models.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeOTP) Resend(ctx context.Context, email string) error {
	return f.err
}

type fakePosts struct {
	err     error
	created []string
	liked   bool
}

func (f *fakePosts) CreatePost(ctx context.Context, authorID, content string, hashtags []string) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, content)
	return &models.Post{ID: postID, AuthorID: authorID, Content: content, Hashtags: hashtags, LikedBy: []string{}}, nil
}

func (f *fakePosts) ListVisiblePosts(ctx context.Context, viewerID string) ([]models.PostView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.PostView{{ID: postID, Content: "hi", Hashtags: []string{"fun"}, LikesCount: 2}}, nil
}

func (f *fakePosts) DeletePost(ctx context.Context, id, requesterID string) error {
	return f.err
}

func (f *fakePosts) ToggleLike(ctx context.Context, id, userID string) (*services.LikeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.liked = !f.liked
	n := 0
	if f.liked {
		n = 1
	}
	return &services.LikeResult{PostID: id, Liked: f.liked, LikesCount: n}, nil
}

type fakeNotifications struct {
	limit int
}

func (f *fakeNotifications) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	f.limit = limit
	return []models.Notification{{ID: "n-1", UserID: userID, PostID: postID, Message: "m"}}, nil
}
