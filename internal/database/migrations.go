package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
)

// SeedOptions controls optional start-up data. An administrator is created only
// when both AdminEmail and AdminPassword are set.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	BcryptCost    int
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.VerificationRequest{},
		&models.PasswordResetToken{},
		&models.CacheEntry{},
	)
}

// SeedData ensures the bootstrap administrator exists. Existing accounts are
// left untouched so rotating the configured password never overwrites a
// password changed through the API.
func SeedData(db *gorm.DB, opts SeedOptions) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" || opts.AdminPassword == "" {
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := crypto.HashPasswordWithCost(opts.AdminPassword, opts.BcryptCost)
	if err != nil {
		return err
	}

	admin := models.User{
		FirstName:     "Admin",
		Email:         &email,
		Password:      hash,
		Role:          models.RoleAdmin,
		EmailVerified: true,
	}
	return db.Create(&admin).Error
}
