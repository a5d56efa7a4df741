package app

import (
	"strings"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth/providers"
)

// GoogleProviderConfig converts the Google OAuth section into provider parameters.
func (c OAuthConfig) GoogleProviderConfig() providers.GoogleConfig {
	scopes := make([]string, 0, len(c.Google.Scopes))
	for _, scope := range c.Google.Scopes {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}

	return providers.GoogleConfig{
		ClientID:     strings.TrimSpace(c.Google.ClientID),
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  strings.TrimSpace(c.Google.RedirectURL),
		Scopes:       scopes,
		Timeout:      c.Google.Timeout,
	}
}

// StateCodecConfig converts the OAuth section into parameters for signed state values.
func (c OAuthConfig) StateCodecConfig() auth.StateConfig {
	return auth.StateConfig{
		Secret: c.StateSecret,
		TTL:    c.StateTTL,
	}
}

// GoogleRedirects resolves where the browser lands after the callback.
func (c Config) GoogleRedirects() (success, failure string) {
	frontend := strings.TrimRight(strings.TrimSpace(c.Server.FrontendURL), "/")
	success = strings.TrimSpace(c.OAuth.Google.SuccessURL)
	if success == "" {
		success = frontend + "/auth/google/success"
	}
	failure = strings.TrimSpace(c.OAuth.Google.ErrorURL)
	if failure == "" {
		failure = frontend + "/auth/google/error"
	}
	return success, failure
}
