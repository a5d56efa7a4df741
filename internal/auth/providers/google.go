package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/oauth2"
)

const (
	// GoogleName is the provider value stored on linked users.
	GoogleName = "google"

	defaultGoogleIssuer  = "https://accounts.google.com"
	defaultGoogleTimeout = 10 * time.Second
)

// GoogleConfig configures the Google sign-in provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration
	// Issuer overrides the discovery URL. Empty means Google.
	Issuer     string
	HTTPClient *http.Client
}

// GoogleProvider authenticates users through Google's OpenID Connect endpoints.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	httpClient  *http.Client
	timeout     time.Duration
}

type googleClaims struct {
	Subject       string `mapstructure:"sub"`
	Email         string `mapstructure:"email"`
	EmailVerified bool   `mapstructure:"email_verified"`
	Name          string `mapstructure:"name"`
	GivenName     string `mapstructure:"given_name"`
	FamilyName    string `mapstructure:"family_name"`
	Picture       string `mapstructure:"picture"`
}

// NewGoogleProvider performs OIDC discovery and returns a ready provider.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig) (*GoogleProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("google provider: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("google provider: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("google provider: redirect url is required")
	}

	issuerURL := strings.TrimSpace(cfg.Issuer)
	if issuerURL == "" {
		issuerURL = defaultGoogleIssuer
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGoogleTimeout
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("google provider: discovery failed: %w", err)
	}

	return &GoogleProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     issuer.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier:   issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		httpClient: cfg.HTTPClient,
		timeout:    timeout,
	}, nil
}

// Name implements Provider.
func (p *GoogleProvider) Name() string {
	return GoogleName
}

// AuthCodeURL builds the consent redirect with nonce and S256 PKCE challenge.
func (p *GoogleProvider) AuthCodeURL(req BeginAuthRequest) (string, error) {
	if strings.TrimSpace(req.State) == "" {
		return "", errors.New("google provider: state is required")
	}
	if strings.TrimSpace(req.Nonce) == "" {
		return "", errors.New("google provider: nonce is required")
	}
	if strings.TrimSpace(req.PKCEChallenge) == "" {
		return "", errors.New("google provider: pkce challenge is required")
	}

	opts := []oauth2.AuthCodeOption{
		oidc.Nonce(req.Nonce),
		oauth2.SetAuthURLParam("code_challenge", req.PKCEChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if req.Prompt != "" {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", req.Prompt))
	}

	return p.oauthConfig.AuthCodeURL(req.State, opts...), nil
}

// Callback exchanges the authorization code and returns the verified identity.
func (p *GoogleProvider) Callback(ctx context.Context, req CallbackRequest) (*Identity, error) {
	if req.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrAuthorizationDenied, req.Error)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, errors.New("google provider: authorization code missing")
	}
	if strings.TrimSpace(req.PKCEVerifier) == "" {
		return nil, errors.New("google provider: pkce verifier is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if p.httpClient != nil {
		ctx = oidc.ClientContext(ctx, p.httpClient)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(ctx, req.Code, oauth2.VerifierOption(req.PKCEVerifier))
	if err != nil {
		return nil, fmt.Errorf("google provider: exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google provider: id token missing")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google provider: verify id token: %w", err)
	}
	if req.ExpectedNonce != "" && idToken.Nonce != req.ExpectedNonce {
		return nil, errors.New("google provider: nonce mismatch")
	}

	var raw map[string]any
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("google provider: decode claims: %w", err)
	}

	claims, err := decodeGoogleClaims(raw)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Provider:      GoogleName,
		Subject:       idToken.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
		FirstName:     strings.TrimSpace(claims.GivenName),
		LastName:      strings.TrimSpace(claims.FamilyName),
		DisplayName:   strings.TrimSpace(claims.Name),
		AvatarURL:     claims.Picture,
		RawClaims:     raw,
	}, nil
}

// decodeGoogleClaims maps the loosely typed claim set onto googleClaims.
// Google has historically sent email_verified as both bool and string.
func decodeGoogleClaims(raw map[string]any) (googleClaims, error) {
	var claims googleClaims
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &claims,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return claims, fmt.Errorf("google provider: claims decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return claims, fmt.Errorf("google provider: decode claims: %w", err)
	}
	return claims, nil
}
