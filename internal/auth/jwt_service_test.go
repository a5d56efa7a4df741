package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "ajarra",
		Audience:       "ajarra-marketplace",
		AccessTokenTTL: time.Hour,
		Clock:          now,
	})
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID: "user-123",
		Role:   "VENDOR",
		Email:  "vendor@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.Equal(current.Add(time.Hour)))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "VENDOR", claims.Role)
	require.Equal(t, "vendor@example.com", claims.Email)
	require.Equal(t, "ajarra", claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{"ajarra-marketplace"}, claims.Audience)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestGenerateAccessTokenRequiresUser(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, _, err = svc.GenerateAccessToken(AccessTokenInput{})
	require.Error(t, err)
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{
		Secret:         "issuer-secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{
		Secret:         "other-secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	token, _, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestValidateAccessTokenRejectsForeignAudienceAndIssuer(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC) }

	other, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "someone-else", Audience: "other-app", Clock: now})
	require.NoError(t, err)
	token, _, err := other.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	wrongAudience, err := NewJWTService(JWTConfig{Secret: "shared", Audience: "ajarra-marketplace", Clock: now})
	require.NoError(t, err)
	_, err = wrongAudience.ValidateAccessToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)

	wrongIssuer, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "ajarra", Clock: now})
	require.NoError(t, err)
	_, err = wrongIssuer.ValidateAccessToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}
