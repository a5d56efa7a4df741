package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
	apperrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/metrics"
)

// DefaultResetTokenTTL is how long an emailed reset link stays valid.
const DefaultResetTokenTTL = 10 * time.Minute

// PasswordResetConfig tunes reset token lifetime and hashing.
type PasswordResetConfig struct {
	TokenTTL    time.Duration
	BcryptCost  int
	FrontendURL string
}

// PasswordResetOption customises a PasswordResetService.
type PasswordResetOption func(*PasswordResetService)

// WithResetClock overrides the time source.
func WithResetClock(clock func() time.Time) PasswordResetOption {
	return func(s *PasswordResetService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// PasswordResetService handles forgot-password and reset-password.
type PasswordResetService struct {
	db       *gorm.DB
	notifier Notifier
	cfg      PasswordResetConfig
	now      func() time.Time
	log      *zap.Logger
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(db *gorm.DB, notifier Notifier, cfg PasswordResetConfig, opts ...PasswordResetOption) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}
	if notifier == nil {
		return nil, errors.New("password reset service: notifier is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultResetTokenTTL
	}
	if cfg.BcryptCost < crypto.MinPasswordCost {
		cfg.BcryptCost = crypto.MinPasswordCost
	}

	svc := &PasswordResetService{
		db:       db,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.WithModule("password_reset"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestReset mints a reset token for the account behind email and mails
// the link. Unknown emails and delivery failures are logged but not reported,
// so callers respond identically either way.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)
	masked := zap.String("email", logger.MaskEmail(email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.PasswordResets.WithLabelValues("unknown_email").Inc()
			s.log.Info("password reset requested for unknown email", masked)
			return nil
		}
		return apperrors.Wrap(err, "failed to load user")
	}

	now := s.now().UTC()
	token, err := auth.NewResetToken(now, s.cfg.TokenTTL)
	if err != nil {
		return apperrors.Wrap(err, "failed to create reset token")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND used = ?", user.ID, false).
			Updates(map[string]any{"used": true, "used_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: token.Hash,
			ExpiresAt: token.ExpiresAt,
		}).Error
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to store reset token")
	}
	metrics.PasswordResets.WithLabelValues("requested").Inc()

	recipient := Recipient{UserID: user.ID, Email: email, FirstName: user.FirstName}
	if err := s.notifier.SendPasswordReset(ctx, recipient, token.Raw); err != nil {
		metrics.DeliveryFailures.WithLabelValues("email").Inc()
		s.log.Warn("password reset email delivery failed", masked, zap.Error(err))
		return nil
	}

	s.log.Info("password reset email sent", zap.String("user_id", user.ID))
	return nil
}

// ResetPassword redeems rawToken and sets the new password. The token is
// consumed by a conditional update in the same transaction as the password
// change, so a token can succeed at most once.
func (s *PasswordResetService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	ctx = ensureContext(ctx)
	if rawToken == "" {
		return ErrResetTokenInvalid
	}
	if newPassword == "" {
		return apperrors.ErrValidation.WithMessage("Password is required")
	}

	now := s.now().UTC()
	hash := crypto.HashToken(rawToken)

	var token models.PasswordResetToken
	if err := s.db.WithContext(ctx).Where("token_hash = ?", hash).Take(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.rejectToken("unknown")
		}
		return apperrors.Wrap(err, "failed to load reset token")
	}
	if !token.Redeemable(now) {
		return s.rejectToken("expired_or_used")
	}

	passwordHash, err := crypto.HashPasswordWithCost(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.Wrap(err, "failed to hash password")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used = ? AND expires_at > ?", token.ID, false, now).
			Updates(map[string]any{"used": true, "used_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrResetTokenInvalid
		}

		userResult := tx.Model(&models.User{}).Where("id = ?", token.UserID).Update("password", passwordHash)
		if userResult.Error != nil {
			return userResult.Error
		}
		if userResult.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			return s.rejectToken("raced")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.Wrap(err, "failed to reset password")
	}

	metrics.PasswordResets.WithLabelValues("consumed").Inc()
	s.log.Info("password reset completed", zap.String("user_id", token.UserID))
	return nil
}

func (s *PasswordResetService) rejectToken(reason string) error {
	metrics.PasswordResets.WithLabelValues("rejected").Inc()
	s.log.Debug("reset token rejected", zap.String("reason", reason))
	return ErrResetTokenInvalid
}
