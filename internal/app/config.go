package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Ajarra backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Auth        AuthConfig        `mapstructure:"auth"`
	OTP         OTPConfig         `mapstructure:"otp"`
	Email       EmailConfig       `mapstructure:"email"`
	SMS         SMSConfig         `mapstructure:"sms"`
	OAuth       OAuthConfig       `mapstructure:"oauth"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	LogLevel        string          `mapstructure:"log_level"`
	LogFormat       string          `mapstructure:"log_format"`
	FrontendURL     string          `mapstructure:"frontend_url"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig bounds requests per client IP on the auth routes.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver"`
	Path            string            `mapstructure:"path"`
	DSN             string            `mapstructure:"dsn"`
	Postgres        DBAuthConfig      `mapstructure:"postgres"`
	MySQL           DBAuthConfig      `mapstructure:"mysql"`
	Options         map[string]string `mapstructure:"options"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Prefix   string        `mapstructure:"prefix"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT           JWTSettings           `mapstructure:"jwt"`
	BcryptCost    int                   `mapstructure:"bcrypt_cost"`
	PasswordReset PasswordResetSettings `mapstructure:"password_reset"`
	Admin         AdminSettings         `mapstructure:"admin"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"access_token_ttl"`
}

// PasswordResetSettings controls reset link lifetime.
type PasswordResetSettings struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AdminSettings seeds a bootstrap administrator when both values are set.
type AdminSettings struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// OTPConfig controls emailed code issuance and verification throttling.
type OTPConfig struct {
	Length            int           `mapstructure:"length"`
	TTL               time.Duration `mapstructure:"ttl"`
	ResendCooldown    time.Duration `mapstructure:"resend_cooldown"`
	MaxVerifyAttempts int           `mapstructure:"max_verify_attempts"`
	VerifyWindow      time.Duration `mapstructure:"verify_window"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SMSConfig captures the SMS OTP provider settings.
type SMSConfig struct {
	Termii TermiiConfig `mapstructure:"termii"`
}

// TermiiConfig configures the Termii token API.
type TermiiConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	SenderID    string        `mapstructure:"sender_id"`
	Channel     string        `mapstructure:"channel"`
	PinAttempts int           `mapstructure:"pin_attempts"`
	PinTTL      time.Duration `mapstructure:"pin_ttl"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// OAuthConfig configures external identity providers.
type OAuthConfig struct {
	StateSecret string            `mapstructure:"state_secret"`
	StateTTL    time.Duration     `mapstructure:"state_ttl"`
	Google      GoogleOAuthConfig `mapstructure:"google"`
}

// GoogleOAuthConfig configures Google sign-in.
type GoogleOAuthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURL  string        `mapstructure:"redirect_url"`
	SuccessURL   string        `mapstructure:"success_url"`
	ErrorURL     string        `mapstructure:"error_url"`
	Scopes       []string      `mapstructure:"scopes"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// MaintenanceConfig schedules background cleanup.
type MaintenanceConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CleanupSchedule string `mapstructure:"cleanup_schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("AJARRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings that would make the service insecure or unusable.
func (c *Config) Validate() error {
	if c.Auth.BcryptCost != 0 && c.Auth.BcryptCost < 10 {
		return fmt.Errorf("config: auth.bcrypt_cost must be at least 10, got %d", c.Auth.BcryptCost)
	}
	if c.OTP.Length != 0 && (c.OTP.Length < 6 || c.OTP.Length > 9) {
		return fmt.Errorf("config: otp.length must be between 6 and 9, got %d", c.OTP.Length)
	}
	if c.OAuth.Google.Enabled {
		if c.OAuth.Google.ClientID == "" || c.OAuth.Google.ClientSecret == "" || c.OAuth.Google.RedirectURL == "" {
			return errors.New("config: oauth.google requires client_id, client_secret and redirect_url when enabled")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.frontend_url", "http://localhost:3000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 30)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/ajarra.sqlite")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.prefix", "ajarra:")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("auth.jwt.issuer", "ajarra")
	v.SetDefault("auth.jwt.audience", "ajarra-marketplace")
	v.SetDefault("auth.jwt.access_token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.password_reset.ttl", "10m")

	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.ttl", "5m")
	v.SetDefault("otp.resend_cooldown", "60s")
	v.SetDefault("otp.max_verify_attempts", 5)
	v.SetDefault("otp.verify_window", "15m")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", false)
	v.SetDefault("email.smtp.from", "Ajarra Marketplace <no-reply@ajarra.com>")
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("sms.termii.enabled", false)
	v.SetDefault("sms.termii.base_url", "https://api.ng.termii.com")
	v.SetDefault("sms.termii.sender_id", "N-Alert")
	v.SetDefault("sms.termii.channel", "dnd")
	v.SetDefault("sms.termii.pin_attempts", 10)
	v.SetDefault("sms.termii.pin_ttl", "10m")
	v.SetDefault("sms.termii.timeout", "10s")

	v.SetDefault("oauth.state_ttl", "10m")
	v.SetDefault("oauth.google.enabled", false)
	v.SetDefault("oauth.google.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("oauth.google.timeout", "10s")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.cleanup_schedule", "@hourly")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
