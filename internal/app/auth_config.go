package app

import (
	"strings"
	"time"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
)

const defaultPasswordResetTTL = 10 * time.Minute

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		Audience:       c.JWT.Audience,
		AccessTokenTTL: ttl,
	}
}

// UserServiceConfig converts AuthConfig into UserService parameters.
func (c AuthConfig) UserServiceConfig() services.UserServiceConfig {
	return services.UserServiceConfig{BcryptCost: c.bcryptCost()}
}

// PasswordResetConfig converts AuthConfig into PasswordResetService parameters.
func (c Config) PasswordResetConfig() services.PasswordResetConfig {
	ttl := c.Auth.PasswordReset.TTL
	if ttl <= 0 {
		ttl = defaultPasswordResetTTL
	}

	return services.PasswordResetConfig{
		TokenTTL:    ttl,
		BcryptCost:  c.Auth.bcryptCost(),
		FrontendURL: strings.TrimRight(strings.TrimSpace(c.Server.FrontendURL), "/"),
	}
}

func (c AuthConfig) bcryptCost() int {
	if c.BcryptCost < crypto.MinPasswordCost {
		return crypto.MinPasswordCost
	}
	return c.BcryptCost
}
