package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/otp"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://app.ajarra.test"}, cfg.Server.CORS.AllowedOrigins)
	require.Equal(t, 12, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, "ajarra", cfg.Database.Postgres.Database)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, "test:", cfg.Cache.Redis.Prefix)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "marketplace-test", cfg.Auth.JWT.Audience)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 12, cfg.Auth.BcryptCost)
	require.Equal(t, 15*time.Minute, cfg.Auth.PasswordReset.TTL)

	require.Equal(t, 45*time.Second, cfg.OTP.ResendCooldown)
	require.Equal(t, 3, cfg.OTP.MaxVerifyAttempts)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.True(t, cfg.SMS.Termii.Enabled)
	require.Equal(t, "termii-key", cfg.SMS.Termii.APIKey)
	require.Equal(t, "Ajarra", cfg.SMS.Termii.SenderID)
	require.Equal(t, "dnd", cfg.SMS.Termii.Channel)
	require.Equal(t, 5, cfg.SMS.Termii.PinAttempts)
	require.Equal(t, 10*time.Minute, cfg.SMS.Termii.PinTTL)

	require.True(t, cfg.OAuth.Google.Enabled)
	require.Equal(t, "google-client", cfg.OAuth.Google.ClientID)
	require.Equal(t, []string{"openid", "email", "profile"}, cfg.OAuth.Google.Scopes)

	require.Equal(t, "@every 30m", cfg.Maintenance.CleanupSchedule)
	require.True(t, cfg.Maintenance.Enabled)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 6, cfg.OTP.Length)
	require.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	require.Equal(t, 10*time.Minute, cfg.Auth.PasswordReset.TTL)
	require.Equal(t, "https://api.ng.termii.com", cfg.SMS.Termii.BaseURL)
	require.False(t, cfg.OAuth.Google.Enabled)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("AJARRA_SERVER_PORT", "7001")
	t.Setenv("AJARRA_OTP_RESEND_COOLDOWN", "2m")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7001, cfg.Server.Port)
	require.Equal(t, 2*time.Minute, cfg.OTP.ResendCooldown)
}

func TestLoadConfigRejectsWeakBcryptCost(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("auth:\n  bcrypt_cost: 4\n"), 0o600))

	_, err := LoadConfig(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bcrypt_cost")
}

func TestLoadConfigGoogleRequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("oauth:\n  google:\n    enabled: true\n"), 0o600))

	_, err := LoadConfig(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "oauth.google")
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{FrontendURL: "https://app.ajarra.test/"},
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret:   "secret",
				Issuer:   "issuer",
				Audience: "aud",
				TTL:      30 * time.Minute,
			},
			BcryptCost:    12,
			PasswordReset: PasswordResetSettings{TTL: 20 * time.Minute},
		},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		Audience:       "aud",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.Auth.JWTServiceConfig())

	reset := cfg.PasswordResetConfig()
	require.Equal(t, 20*time.Minute, reset.TokenTTL)
	require.Equal(t, 12, reset.BcryptCost)
	require.Equal(t, "https://app.ajarra.test", reset.FrontendURL)
	require.Equal(t, 12, cfg.Auth.UserServiceConfig().BcryptCost)
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg Config

	require.Equal(t, auth.DefaultAccessTokenTTL, cfg.Auth.JWTServiceConfig().AccessTokenTTL)
	require.Equal(t, defaultPasswordResetTTL, cfg.PasswordResetConfig().TokenTTL)
	require.Equal(t, 10, cfg.Auth.UserServiceConfig().BcryptCost)
}

func TestOTPConfigAdapter(t *testing.T) {
	var empty OTPConfig
	vc := empty.VerificationConfig()
	require.Equal(t, otp.DefaultLength, vc.CodeLength)
	require.Equal(t, otp.DefaultValidity, vc.CodeTTL)
	require.Equal(t, defaultResendCooldown, vc.ResendCooldown)
	require.Equal(t, defaultMaxVerifyAttempts, vc.MaxVerifyAttempts)
	require.Equal(t, defaultVerifyWindow, vc.VerifyWindow)

	disabled := OTPConfig{ResendCooldown: -1}
	require.Zero(t, disabled.VerificationConfig().ResendCooldown)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     "smtp.example.com",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestTermiiSettingsAdapter(t *testing.T) {
	cfg := Config{
		OTP: OTPConfig{Length: 6},
		SMS: SMSConfig{Termii: TermiiConfig{
			Enabled:  true,
			BaseURL:  " https://api.ng.termii.com/ ",
			APIKey:   " key ",
			SenderID: "N-Alert",
			Channel:  "dnd",
		}},
	}

	settings := cfg.TermiiSettings()
	require.Equal(t, "https://api.ng.termii.com", settings.BaseURL)
	require.Equal(t, "key", settings.APIKey)
	require.Equal(t, 6, settings.PinLength)
}

func TestGoogleAdapters(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{FrontendURL: "https://app.ajarra.test"},
		OAuth: OAuthConfig{
			StateSecret: "s3cret",
			StateTTL:    5 * time.Minute,
			Google: GoogleOAuthConfig{
				ClientID:     " client ",
				ClientSecret: "secret",
				RedirectURL:  "https://api.ajarra.test/cb",
				Scopes:       []string{"openid", " ", "email"},
			},
		},
	}

	g := cfg.OAuth.GoogleProviderConfig()
	require.Equal(t, "client", g.ClientID)
	require.Equal(t, []string{"openid", "email"}, g.Scopes)

	state := cfg.OAuth.StateCodecConfig()
	require.Equal(t, "s3cret", state.Secret)
	require.Equal(t, 5*time.Minute, state.TTL)

	success, failure := cfg.GoogleRedirects()
	require.Equal(t, "https://app.ajarra.test/auth/google/success", success)
	require.Equal(t, "https://app.ajarra.test/auth/google/error", failure)
}

func TestRedisStoreConfigAdapter(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{
		Enabled: true,
		Address: " redis:6379 ",
		DB:      2,
		TLS:     true,
		Timeout: time.Second,
		Prefix:  " otp: ",
	}}

	redis := cfg.RedisStoreConfig()
	require.Equal(t, "redis:6379", redis.Address)
	require.Equal(t, 2, redis.DB)
	require.True(t, redis.TLS)
	require.Equal(t, time.Second, redis.Timeout)
	require.Equal(t, "otp:", redis.Prefix)
}
