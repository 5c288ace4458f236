package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/campusfeed/campusfeed/internal/logging"
	"github.com/campusfeed/campusfeed/internal/server/config"
	"github.com/campusfeed/campusfeed/internal/server/mailer"
	"github.com/campusfeed/campusfeed/internal/server/models"
	"github.com/campusfeed/campusfeed/internal/server/otpstore"
	"github.com/campusfeed/campusfeed/internal/server/repositories/repomanager"
	"github.com/campusfeed/campusfeed/internal/server/validation"
)

// OTPService issues email verification codes and redeems them.
type OTPService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       otpstore.Store
	mail        mailer.Sender
	sessions    *SessionService
	ttl         time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewOTPService(db *sql.DB, m repomanager.RepositoryManager, store otpstore.Store, mail mailer.Sender,
	sessions *SessionService, cfg *config.Config, logger logging.Logger) *OTPService {
	return &OTPService{
		db:          db,
		repomanager: m,
		store:       store,
		mail:        mail,
		sessions:    sessions,
		ttl:         cfg.OTPValidityDuration,
		logger:      logger.With("module", "otp"),
		now:         time.Now,
	}
}

// Issue stores a new code for email, replacing any pending one, and mails
// it. The code itself is never returned.
func (s *OTPService) Issue(ctx context.Context, email string) error {
	code, err := common.GenerateNumericCode(common.OTPLength)
	if err != nil {
		return fmt.Errorf("%w: generate otp: %v", common.ErrorInternal, err)
	}
	now := s.now()
	otp := &models.OTP{Email: email, Code: code, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}

	if err := s.store.Save(ctx, otp, s.ttl); err != nil {
		return fmt.Errorf("error storing otp: %w", err)
	}

	subject, body, err := mailer.OTPMessage(otp.Code, int(s.ttl/time.Minute))
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, email, subject, body); err != nil {
		return fmt.Errorf("error sending otp: %w", err)
	}

	s.logger.Info(ctx, "otp issued", "email", email, "expires_at", otp.ExpiresAt)
	return nil
}

// Verify redeems code for email, marks the account verified and opens a
// session. A code can be redeemed once, and only together with the email it
// was sent to; repeated wrong codes discard it.
func (s *OTPService) Verify(ctx context.Context, email, code string) (*models.TokenPair, error) {
	if err := validation.Required("email", email); err != nil {
		return nil, err
	}
	if err := validation.Required("otp", code); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)

	ok, err := s.store.Consume(ctx, email, code)
	if err != nil {
		return nil, fmt.Errorf("error consuming otp: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidOrExpiredOTP
	}

	user, err := s.repomanager.Users(s.db).MarkVerified(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user not found", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error verifying user: %w", err)
	}

	s.logger.Info(ctx, "email verified", "user_id", user.ID)
	return s.sessions.IssueSessionPair(ctx, user.ID)
}

// Discard drops any pending code of email.
func (s *OTPService) Discard(ctx context.Context, email string) error {
	return s.store.Discard(ctx, email)
}

// Resend issues a new code to an account that is still unverified.
func (s *OTPService) Resend(ctx context.Context, email string) error {
	if err := validation.Required("email", email); err != nil {
		return err
	}
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: user not found", common.ErrorNotFound)
		}
		return fmt.Errorf("error loading user: %w", err)
	}
	if user.IsVerified {
		return fmt.Errorf("%w: account is already verified", common.ErrValidation)
	}
	return s.Issue(ctx, user.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
