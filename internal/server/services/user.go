package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/cryptox"
	"github.com/campusfeed/campusfeed/internal/dbx"
	"github.com/campusfeed/campusfeed/internal/logging"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/campusfeed/campusfeed/internal/server/storage"
	"github.com/campusfeed/campusfeed/internal/server/validation"
)

// removeFile is a seam for tests.
var removeFile = os.Remove

// otpIssuer is the part of OTPService registration needs.
type otpIssuer interface {
	Issue(ctx context.Context, email string) error
	Discard(ctx context.Context, email string) error
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	models.TokenPair
	IsProfileComplete bool
	User              *models.PublicUser
}

// ProfileInput carries the fields of CompleteProfile. PicPath, when set,
// is a staged local file to upload as the avatar.
type ProfileInput struct {
	Name     string
	Bio      string
	Hashtags []string
	PicPath  string
}

// UserService owns accounts: registration, login, password changes and
// profile edits. Session issuance is inherited from SessionService.
type UserService struct {
	*SessionService
	otp      otpIssuer
	uploader storage.Uploader
	emails   *validation.EmailValidator
	logger   logging.Logger
}

// NewUserService constructs a UserService.
func NewUserService(sessions *SessionService, otp otpIssuer, uploader storage.Uploader,
	emails *validation.EmailValidator, logger logging.Logger) *UserService {
	return &UserService{
		SessionService: sessions,
		otp:            otp,
		uploader:       uploader,
		emails:         emails,
		logger:         logger.With("module", "users"),
	}
}

// Register creates an unverified account and sends it an OTP. If the OTP
// cannot be delivered the account and the code are removed again.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.PublicUser, error) {
	for _, f := range [][2]string{{"username", username}, {"email", email}, {"password", password}} {
		if err := validation.Required(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	email, err := s.emails.Validate(email)
	if err != nil {
		return nil, err
	}
	username, err = validation.Username(username)
	if err != nil {
		return nil, err
	}
	if err := validation.Password(password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	taken, err := repo.Taken(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("error checking user: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: user with email or username already exists", common.ErrConflict)
	}

	hash, err := cryptox.HashSecret(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	user, err := repo.Create(ctx, &models.User{Username: username, Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("%w: user with email or username already exists", common.ErrConflict)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	if err := s.otp.Issue(ctx, email); err != nil {
		s.logger.Error(ctx, "otp delivery failed, rolling back registration", "user_id", user.ID, "error", err)
		if delErr := repo.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error(ctx, "failed to delete unverified user", "user_id", user.ID, "error", delErr)
		}
		if discErr := s.otp.Discard(ctx, email); discErr != nil {
			s.logger.Error(ctx, "failed to discard otp", "user_id", user.ID, "error", discErr)
		}
		return nil, fmt.Errorf("%w: failed to send OTP, please try again later", common.ErrorInternal)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user.Public(), nil
}

// Login checks credentials and opens a session.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := validation.Required("email", email); err != nil {
		return nil, err
	}
	if err := validation.Required("password", password); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, s.emails.Normalize(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !user.IsVerified {
		return nil, fmt.Errorf("%w: please verify your email before logging in", common.ErrUnverified)
	}
	if err := cryptox.VerifySecret(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: verify password: %v", common.ErrorInternal, err)
	}

	pair, err := s.IssueSessionPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{TokenPair: *pair, IsProfileComplete: user.IsProfileComplete, User: user.Public()}, nil
}

// ChangePassword replaces the password after checking the old one and ends
// the current session.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifySecret(oldPassword, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return fmt.Errorf("%w: old password is incorrect", common.ErrInvalidCredentials)
		}
		return fmt.Errorf("%w: verify password: %v", common.ErrorInternal, err)
	}
	if err := validation.NewPassword(newPassword, confirm); err != nil {
		return err
	}

	hash, err := cryptox.HashSecret(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, userID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		return nil
	})
}

// CompleteProfile fills in name, bio, interests and optionally the avatar,
// and marks the profile complete. Only verified accounts may do this.
func (s *UserService) CompleteProfile(ctx context.Context, userID string, in ProfileInput) (*models.PublicUser, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		s.discardUpload(ctx, in.PicPath)
		return nil, err
	}
	if !user.IsVerified {
		s.discardUpload(ctx, in.PicPath)
		return nil, fmt.Errorf("%w: please complete your registration first", common.ErrUnverified)
	}
	if err := validation.Required("name", in.Name); err != nil {
		s.discardUpload(ctx, in.PicPath)
		return nil, err
	}
	tags, err := validation.InterestHashtags(in.Hashtags)
	if err != nil {
		s.discardUpload(ctx, in.PicPath)
		return nil, err
	}

	pic := user.ProfilePic
	if in.PicPath != "" {
		if pic, err = s.uploader.UploadFile(ctx, in.PicPath); err != nil {
			return nil, fmt.Errorf("%w: upload profile picture: %v", common.ErrorInternal, err)
		}
	}

	updated, err := s.repomanager.Users(s.db).CompleteProfile(ctx, userID, models.ProfileFields{
		Name:       in.Name,
		Bio:        in.Bio,
		Hashtags:   tags,
		ProfilePic: pic,
	})
	if err != nil {
		return nil, fmt.Errorf("error completing profile: %w", err)
	}
	return updated.Public(), nil
}

// discardUpload removes a staged file that will not be uploaded.
func (s *UserService) discardUpload(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := removeFile(path); err != nil {
		s.logger.Warn(ctx, "failed to remove staged upload", "path", path, "error", err)
	}
}

func (s *UserService) UpdateName(ctx context.Context, userID, name string) (*models.PublicUser, error) {
	if err := validation.Required("name", name); err != nil {
		return nil, err
	}
	return s.publicOrErr(s.repomanager.Users(s.db).UpdateName(ctx, userID, name))
}

func (s *UserService) UpdateBio(ctx context.Context, userID, bio string) (*models.PublicUser, error) {
	if err := validation.Required("bio", bio); err != nil {
		return nil, err
	}
	return s.publicOrErr(s.repomanager.Users(s.db).UpdateBio(ctx, userID, bio))
}

// UpdateUsername changes the handle. Setting the current handle is a no-op.
func (s *UserService) UpdateUsername(ctx context.Context, userID, username string) (*models.PublicUser, error) {
	username, err := validation.Username(username)
	if err != nil {
		return nil, err
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Username == username {
		return user.Public(), nil
	}

	updated, err := s.repomanager.Users(s.db).UpdateUsername(ctx, userID, username)
	if errors.Is(err, common.ErrConflict) {
		return nil, fmt.Errorf("%w: username is already taken", common.ErrConflict)
	}
	return s.publicOrErr(updated, err)
}

func (s *UserService) UpdateHashtags(ctx context.Context, userID string, hashtags []string) (*models.PublicUser, error) {
	tags, err := validation.InterestHashtags(hashtags)
	if err != nil {
		return nil, err
	}
	return s.publicOrErr(s.repomanager.Users(s.db).UpdateHashtags(ctx, userID, tags))
}

// UpdateProfilePic uploads the staged file at picPath and stores its URL.
func (s *UserService) UpdateProfilePic(ctx context.Context, userID, picPath string) (*models.PublicUser, error) {
	if err := validation.Required("profile picture", picPath); err != nil {
		return nil, err
	}
	url, err := s.uploader.UploadFile(ctx, picPath)
	if err != nil {
		return nil, fmt.Errorf("%w: upload profile picture: %v", common.ErrorInternal, err)
	}
	return s.publicOrErr(s.repomanager.Users(s.db).UpdateProfilePic(ctx, userID, url))
}

// UpdateDeviceToken stores the push device token of the caller.
func (s *UserService) UpdateDeviceToken(ctx context.Context, userID, token string) (*models.PublicUser, error) {
	if err := validation.Required("device token", token); err != nil {
		return nil, err
	}
	return s.publicOrErr(s.repomanager.Users(s.db).UpdateDeviceToken(ctx, userID, token))
}

// GetProfile returns the caller's own account view.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	return s.publicOrErr(s.repomanager.Users(s.db).GetByID(ctx, userID))
}

// GetPublicProfile returns what other users may see of userID.
func (s *UserService) GetPublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

func (s *UserService) publicOrErr(u *models.User, err error) (*models.PublicUser, error) {
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return u.Public(), nil
}
