package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
	apperrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/metrics"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/phone"
)

// UserServiceConfig tunes password hashing.
type UserServiceConfig struct {
	BcryptCost int
}

// WelcomeIssuer issues the first email verification code after sign-up.
type WelcomeIssuer interface {
	IssueWelcome(ctx context.Context, user *models.User, ipAddress string) (*models.VerificationRequest, error)
}

// SignUpInput captures the fields accepted when registering.
type SignUpInput struct {
	FirstName  string
	MiddleName string
	LastName   string
	Email      string
	Password   string
	Phone      string
	Country    string
	Role       string
	IPAddress  string
}

// ChangePasswordInput captures a password change for a signed in user.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// UserService manages local accounts.
type UserService struct {
	db      *gorm.DB
	welcome WelcomeIssuer
	cost    int
	now     func() time.Time
	log     *zap.Logger
}

// NewUserService constructs a UserService. welcome may be nil, in which case
// sign-up does not issue a verification code.
func NewUserService(db *gorm.DB, welcome WelcomeIssuer, cfg UserServiceConfig) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	cost := cfg.BcryptCost
	if cost < crypto.MinPasswordCost {
		cost = crypto.MinPasswordCost
	}
	return &UserService{
		db:      db,
		welcome: welcome,
		cost:    cost,
		now:     time.Now,
		log:     logger.WithModule("users"),
	}, nil
}

// SignUp creates a local account and issues the welcome verification code.
// The returned request is nil when no WelcomeIssuer is configured. When the
// welcome email cannot be delivered the user is still returned together with
// ErrDeliveryFailed so the caller can point the client at resend.
func (s *UserService) SignUp(ctx context.Context, in SignUpInput) (*models.User, *models.VerificationRequest, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, nil, apperrors.ErrValidation.WithMessage("Email and password are required")
	}

	role := models.RoleClient
	if strings.TrimSpace(in.Role) != "" {
		parsed, ok := models.ParseRole(in.Role)
		if !ok || parsed == models.RoleAdmin {
			return nil, nil, ErrRoleNotAssignable
		}
		role = parsed
	}

	var phoneValue *string
	if raw := strings.TrimSpace(in.Phone); raw != "" {
		normalised, err := phone.Normalize(raw, in.Country)
		if err != nil {
			return nil, nil, ErrInvalidPhone.WithInternal(err)
		}
		phoneValue = &normalised
	}

	if err := s.ensureAvailable(ctx, email, phoneValue); err != nil {
		return nil, nil, err
	}

	hash, err := crypto.HashPasswordWithCost(in.Password, s.cost)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		FirstName:  strings.TrimSpace(in.FirstName),
		MiddleName: strings.TrimSpace(in.MiddleName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      &email,
		Phone:      phoneValue,
		Password:   hash,
		Role:       role,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, nil, s.classifyConflict(ctx, err, email, phoneValue)
		}
		return nil, nil, apperrors.Wrap(err, "failed to create user")
	}

	s.log.Info("user signed up",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(email)),
		zap.String("role", string(role)),
	)

	if s.welcome == nil {
		return user, nil, nil
	}
	req, err := s.welcome.IssueWelcome(ctx, user, in.IPAddress)
	return user, req, err
}

func (s *UserService) ensureAvailable(ctx context.Context, email string, phoneValue *string) error {
	exists, err := s.exists(ctx, "email", email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailTaken
	}
	if phoneValue == nil {
		return nil
	}
	exists, err = s.exists(ctx, "phone", *phoneValue)
	if err != nil {
		return err
	}
	if exists {
		return ErrPhoneTaken
	}
	return nil
}

func (s *UserService) exists(ctx context.Context, column, value string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where(column+" = ?", value).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(err, "failed to check existing users")
	}
	return count > 0, nil
}

// classifyConflict maps a unique violation that slipped past the pre-check
// (a concurrent sign-up) to the matching domain error.
func (s *UserService) classifyConflict(ctx context.Context, err error, email string, phoneValue *string) error {
	switch database.ViolatedColumn(err, "email", "phone") {
	case "email":
		return ErrEmailTaken
	case "phone":
		return ErrPhoneTaken
	}
	if availErr := s.ensureAvailable(ctx, email, phoneValue); availErr != nil {
		return availErr
	}
	return ErrEmailTaken
}

// Authenticate checks an email and password pair. Unknown emails, OAuth-only
// accounts and wrong passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(err, "failed to load user")
	}
	if err != nil || !user.HasPassword() || !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		s.log.Info("login rejected", zap.String("email", logger.MaskEmail(email)))
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return &user, nil
}

// GetByID returns the user or ErrUserNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load user")
	}
	return &user, nil
}

// ChangePassword replaces the password of a user who knows the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	ctx = ensureContext(ctx)

	if in.NewPassword == "" {
		return apperrors.ErrValidation.WithMessage("New password is required")
	}
	if in.NewPassword != in.ConfirmPassword {
		return ErrPasswordMismatch
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return ErrPasswordNotSet
	}
	if !crypto.VerifyPassword(user.Password, in.CurrentPassword) {
		return ErrCurrentPasswordInvalid
	}

	hash, err := crypto.HashPasswordWithCost(in.NewPassword, s.cost)
	if err != nil {
		return apperrors.Wrap(err, "failed to hash password")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return apperrors.Wrap(err, "failed to update password")
	}

	s.log.Info("password changed", zap.String("user_id", user.ID))
	return nil
}

// SetRole lets a user pick between the client and vendor roles.
func (s *UserService) SetRole(ctx context.Context, userID, role string) (*models.User, error) {
	ctx = ensureContext(ctx)

	parsed, ok := models.ParseRole(role)
	if !ok || parsed == models.RoleAdmin {
		return nil, ErrRoleNotAssignable
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return nil, apperrors.ErrForbidden.WithMessage("Administrators cannot change their role")
	}
	if user.Role == parsed {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Update("role", parsed).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to update role")
	}
	user.Role = parsed
	return user, nil
}
