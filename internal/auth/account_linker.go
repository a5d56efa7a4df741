package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth/providers"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
)

var (
	// ErrInvalidProfile indicates the provider profile lacks the data needed to resolve a user.
	ErrInvalidProfile = errors.New("account linker: profile has no email")
	// ErrIdentityConflict is returned when the email belongs to an account already
	// linked to a different external identity.
	ErrIdentityConflict = errors.New("account linker: email linked to another identity")
	// ErrEmailNotVerified is returned when an unverified provider email matches
	// an existing account.
	ErrEmailNotVerified = errors.New("account linker: provider email is not verified")
)

// LinkOutcome describes how an external identity was resolved.
type LinkOutcome string

const (
	LinkReturning LinkOutcome = "returning"
	LinkLinked    LinkOutcome = "linked"
	LinkCreated   LinkOutcome = "created"
)

// AccountLinker maps external provider identities onto local users.
type AccountLinker struct {
	db    *gorm.DB
	clock func() time.Time
	log   *zap.Logger
}

// NewAccountLinker constructs an AccountLinker.
func NewAccountLinker(db *gorm.DB, clock func() time.Time) (*AccountLinker, error) {
	if db == nil {
		return nil, errors.New("account linker: db is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &AccountLinker{db: db, clock: clock, log: logger.WithModule("oauth")}, nil
}

// Link resolves identity to a user: first by (provider, subject), then by email
// for accounts without an external identity when the provider vouches for the
// email, and finally by creating a new account. Repeating Link for the same identity always yields the same user.
func (l *AccountLinker) Link(ctx context.Context, identity providers.Identity) (*models.User, LinkOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	provider := strings.ToLower(strings.TrimSpace(identity.Provider))
	subject := strings.TrimSpace(identity.Subject)
	if email == "" {
		return nil, "", ErrInvalidProfile
	}
	if provider == "" || subject == "" {
		return nil, "", fmt.Errorf("%w: provider and subject are required", ErrInvalidProfile)
	}
	identity.Email, identity.Provider, identity.Subject = email, provider, subject

	user, outcome, err := l.resolve(ctx, identity)
	if err != nil && database.IsUniqueViolation(err) {
		// A concurrent login for the same identity won the insert.
		user, outcome, err = l.resolve(ctx, identity)
	}
	if err != nil {
		return nil, "", err
	}

	l.touchLogin(ctx, user)
	l.log.Info("external identity resolved",
		zap.String("provider", provider),
		zap.String("user_id", user.ID),
		zap.String("outcome", string(outcome)),
	)
	return user, outcome, nil
}

func (l *AccountLinker) resolve(ctx context.Context, identity providers.Identity) (*models.User, LinkOutcome, error) {
	var user models.User
	err := l.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", identity.Provider, identity.Subject).
		Take(&user).Error
	switch {
	case err == nil:
		return &user, LinkReturning, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, "", fmt.Errorf("account linker: find by identity: %w", err)
	}

	err = l.db.WithContext(ctx).Where("email = ?", identity.Email).Take(&user).Error
	switch {
	case err == nil:
		if user.IsLinked() {
			return nil, "", ErrIdentityConflict
		}
		if !identity.EmailVerified {
			return nil, "", ErrEmailNotVerified
		}
		return l.linkExisting(ctx, &user, identity)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return l.create(ctx, identity)
	default:
		return nil, "", fmt.Errorf("account linker: find by email: %w", err)
	}
}

func (l *AccountLinker) linkExisting(ctx context.Context, user *models.User, identity providers.Identity) (*models.User, LinkOutcome, error) {
	updates := map[string]any{
		"provider":         identity.Provider,
		"provider_id":      identity.Subject,
		"provider_profile": profileJSON(identity),
	}
	if !user.EmailVerified {
		updates["email_verified"] = true
	}
	if user.AvatarURL == "" && identity.AvatarURL != "" {
		updates["avatar_url"] = identity.AvatarURL
	}

	// provider_id IS NULL guards against a concurrent link to a different identity.
	result := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND provider_id IS NULL", user.ID).
		Updates(updates)
	if result.Error != nil {
		return nil, "", fmt.Errorf("account linker: link user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, "", ErrIdentityConflict
	}

	if err := l.db.WithContext(ctx).Take(user, "id = ?", user.ID).Error; err != nil {
		return nil, "", fmt.Errorf("account linker: reload user: %w", err)
	}
	return user, LinkLinked, nil
}

func (l *AccountLinker) create(ctx context.Context, identity providers.Identity) (*models.User, LinkOutcome, error) {
	email, provider, subject := identity.Email, identity.Provider, identity.Subject
	firstName, lastName := identity.FirstName, identity.LastName
	if firstName == "" && lastName == "" {
		firstName, lastName = splitDisplayName(identity.DisplayName)
	}

	user := &models.User{
		FirstName:       firstName,
		LastName:        lastName,
		Email:           &email,
		Role:            models.RoleClient,
		Provider:        &provider,
		ProviderID:      &subject,
		ProviderProfile: profileJSON(identity),
		AvatarURL:       identity.AvatarURL,
		EmailVerified:   true,
	}
	if err := l.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, "", fmt.Errorf("account linker: create user: %w", err)
	}
	return user, LinkCreated, nil
}

func (l *AccountLinker) touchLogin(ctx context.Context, user *models.User) {
	now := l.clock().UTC()
	if err := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login_at", now).Error; err != nil {
		l.log.Warn("record login time", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.LastLoginAt = &now
}

func profileJSON(identity providers.Identity) datatypes.JSON {
	if len(identity.RawClaims) == 0 {
		return nil
	}
	raw, err := json.Marshal(identity.RawClaims)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func splitDisplayName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
