package app

import (
	"strings"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/sms"
)

// TermiiSettings converts SMSConfig into the sms package representation.
func (c Config) TermiiSettings() sms.TermiiSettings {
	t := c.SMS.Termii
	return sms.TermiiSettings{
		Enabled:     t.Enabled,
		BaseURL:     strings.TrimRight(strings.TrimSpace(t.BaseURL), "/"),
		APIKey:      strings.TrimSpace(t.APIKey),
		SenderID:    t.SenderID,
		Channel:     t.Channel,
		PinAttempts: t.PinAttempts,
		PinTTL:      t.PinTTL,
		PinLength:   c.OTP.VerificationConfig().CodeLength,
		Timeout:     t.Timeout,
	}
}
