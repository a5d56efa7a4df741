package app

import (
	"strings"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// NotifierConfig describes the links embedded in outbound emails.
func (c Config) NotifierConfig() services.NotifierConfig {
	return services.NotifierConfig{
		FrontendURL: strings.TrimRight(strings.TrimSpace(c.Server.FrontendURL), "/"),
		OTPValidity: c.OTP.TTL,
		ResetTTL:    c.PasswordResetConfig().TokenTTL,
	}
}
