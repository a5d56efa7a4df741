package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
)

// runtimeSecret names a config field that must never be empty at runtime.
type runtimeSecret struct {
	key   string
	field func(*Config) *string
	bytes int
}

var runtimeSecrets = []runtimeSecret{
	{key: "auth.jwt.secret", field: func(c *Config) *string { return &c.Auth.JWT.Secret }, bytes: 48},
	{key: "oauth.state_secret", field: func(c *Config) *string { return &c.OAuth.StateSecret }, bytes: 32},
}

// ApplyRuntimeDefaults fills missing signing secrets with random values and
// returns the config keys it generated. Generated secrets live only for this
// process, so issued JWTs and in-flight Google logins do not survive a restart.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var generated []string
	for _, secret := range runtimeSecrets {
		target := secret.field(cfg)
		if strings.TrimSpace(*target) != "" {
			continue
		}
		value, err := crypto.GenerateToken(secret.bytes)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", secret.key, err)
		}
		*target = value
		generated = append(generated, secret.key)
	}
	return generated, nil
}
