package app

import (
	"time"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/otp"
)

const (
	defaultResendCooldown    = time.Minute
	defaultMaxVerifyAttempts = 5
	defaultVerifyWindow      = 15 * time.Minute
)

// VerificationConfig converts OTPConfig into VerificationService parameters.
func (c OTPConfig) VerificationConfig() services.VerificationConfig {
	length := c.Length
	if length == 0 {
		length = otp.DefaultLength
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = otp.DefaultValidity
	}
	cooldown := c.ResendCooldown
	if cooldown < 0 {
		cooldown = 0
	} else if cooldown == 0 {
		cooldown = defaultResendCooldown
	}
	attempts := c.MaxVerifyAttempts
	if attempts <= 0 {
		attempts = defaultMaxVerifyAttempts
	}
	window := c.VerifyWindow
	if window <= 0 {
		window = defaultVerifyWindow
	}

	return services.VerificationConfig{
		CodeLength:        length,
		CodeTTL:           ttl,
		ResendCooldown:    cooldown,
		MaxVerifyAttempts: attempts,
		VerifyWindow:      window,
	}
}
