package providers

import (
	"context"
	"errors"
)

// ErrAuthorizationDenied is returned when the user cancels consent or the
// provider reports an error on the callback.
var ErrAuthorizationDenied = errors.New("provider: authorization denied")

// BeginAuthRequest captures the values bound into the authorization redirect.
type BeginAuthRequest struct {
	State         string
	Nonce         string
	PKCEChallenge string
	Prompt        string
}

// CallbackRequest carries the query values returned by the provider together
// with the secrets recovered from the state.
type CallbackRequest struct {
	Code          string
	Error         string
	PKCEVerifier  string
	ExpectedNonce string
}

// Identity represents the profile returned from an external provider.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	DisplayName   string
	AvatarURL     string
	RawClaims     map[string]any
}

// Provider defines an interactive redirect based identity provider.
type Provider interface {
	Name() string
	AuthCodeURL(req BeginAuthRequest) (string, error)
	Callback(ctx context.Context, req CallbackRequest) (*Identity, error)
}
