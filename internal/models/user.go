package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Role is the marketplace role attached to a user account.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleVendor Role = "VENDOR"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole parses a role case-insensitively.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	return role, role.Valid()
}

// User is the root identity record. Email and phone stay nil until supplied
// and are unique when set. Password is empty only for accounts created through
// an external provider.
type User struct {
	BaseModel

	FirstName  string `gorm:"size:128" json:"firstName"`
	MiddleName string `gorm:"size:128" json:"middleName,omitempty"`
	LastName   string `gorm:"size:128" json:"lastName"`

	Email    *string `gorm:"uniqueIndex;size:320" json:"email,omitempty"`
	Phone    *string `gorm:"uniqueIndex;size:32" json:"phone,omitempty"`
	Password string  `gorm:"size:255" json:"-"`
	Role     Role    `gorm:"size:16;not null;default:CLIENT;index" json:"role"`

	Provider        *string        `gorm:"size:32;uniqueIndex:idx_users_provider_identity" json:"provider,omitempty"`
	ProviderID      *string        `gorm:"size:255;uniqueIndex:idx_users_provider_identity" json:"providerId,omitempty"`
	ProviderProfile datatypes.JSON `json:"-"`
	AvatarURL       string         `gorm:"size:512" json:"avatarUrl,omitempty"`

	EmailVerified bool `gorm:"not null;default:false" json:"emailVerified"`
	PhoneVerified bool `gorm:"not null;default:false" json:"phoneVerified"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// EmailAddress returns the email or an empty string.
func (u *User) EmailAddress() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u != nil && u.Password != ""
}

// IsLinked reports whether an external identity is attached.
func (u *User) IsLinked() bool {
	return u != nil && u.ProviderID != nil && *u.ProviderID != ""
}
