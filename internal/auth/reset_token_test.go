package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
)

func TestNewResetToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	token, err := NewResetToken(now, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, token.Raw, 43)
	require.Equal(t, crypto.HashToken(token.Raw), token.Hash)
	require.NotEqual(t, token.Raw, token.Hash)
	require.True(t, token.ExpiresAt.Equal(now.Add(10*time.Minute)))

	other, err := NewResetToken(now, time.Minute)
	require.NoError(t, err)
	require.NotEqual(t, token.Raw, other.Raw)
}

func TestNewResetTokenRejectsNonPositiveTTL(t *testing.T) {
	_, err := NewResetToken(time.Now(), 0)
	require.Error(t, err)
}
