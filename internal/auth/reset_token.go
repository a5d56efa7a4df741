package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
)

const resetTokenBytes = 32

// ResetToken is a freshly minted password reset credential. Raw is emailed to
// the user; only Hash is persisted.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// NewResetToken creates a random reset token valid for ttl from now.
func NewResetToken(now time.Time, ttl time.Duration) (ResetToken, error) {
	if ttl <= 0 {
		return ResetToken{}, errors.New("reset token: ttl must be positive")
	}
	raw, err := crypto.GenerateToken(resetTokenBytes)
	if err != nil {
		return ResetToken{}, fmt.Errorf("reset token: generate: %w", err)
	}
	return ResetToken{
		Raw:       raw,
		Hash:      crypto.HashToken(raw),
		ExpiresAt: now.Add(ttl),
	}, nil
}
