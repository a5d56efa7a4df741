package models

import "time"

// PasswordResetToken is a single-use reset credential. Only the SHA-256 of the
// emailed token is stored.
type PasswordResetToken struct {
	BaseModel

	UserID    string     `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`
	Used      bool       `gorm:"not null;default:false" json:"used"`
	UsedAt    *time.Time `json:"used_at"`
}

// Redeemable reports whether the token can still be consumed at now.
func (t *PasswordResetToken) Redeemable(now time.Time) bool {
	return t != nil && !t.Used && t.ExpiresAt.After(now)
}
