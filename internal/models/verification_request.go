package models

import "time"

// VerificationChannel identifies what a verification request proves ownership of.
type VerificationChannel string

const (
	ChannelEmail VerificationChannel = "EMAIL"
	ChannelPhone VerificationChannel = "PHONE"
)

// VerificationStatus is the ledger state of a request.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
)

// VerificationRequest is the single outstanding verification for one email
// address or one international phone number. Rows are reused by resends and
// never deleted.
type VerificationRequest struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;index" json:"userId"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	Email *string `gorm:"uniqueIndex;size:320" json:"email,omitempty"`
	Phone *string `gorm:"uniqueIndex;size:32" json:"phone,omitempty"`

	// OTPHash is the SHA-256 of the emailed code. Phone requests leave it nil
	// because the SMS provider keeps the code.
	OTPHash   *string    `gorm:"size:64" json:"-"`
	OTPExpiry *time.Time `json:"otpExpiry,omitempty"`
	PinID     *string    `gorm:"size:128" json:"-"`

	Status     VerificationStatus  `gorm:"size:16;not null;default:pending;index" json:"status"`
	Verified   bool                `gorm:"not null;default:false" json:"verified"`
	VerifiedAt *time.Time          `json:"verifiedAt,omitempty"`
	IPAddress  string              `gorm:"size:64" json:"-"`
	IDType     VerificationChannel `gorm:"size:8;not null" json:"idType"`
}

// Key returns the channel value the request is keyed by.
func (r *VerificationRequest) Key() string {
	switch {
	case r == nil:
		return ""
	case r.Email != nil:
		return *r.Email
	case r.Phone != nil:
		return *r.Phone
	}
	return ""
}
