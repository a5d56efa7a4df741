package auth

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
)

// DefaultStateTTL bounds how long a user may take on the provider consent screen.
const DefaultStateTTL = 10 * time.Minute

var (
	// ErrStateExpired is returned when the callback arrives after the state lifetime.
	ErrStateExpired = errors.New("oauth state: expired")
	// ErrStateInvalid is returned for tampered, foreign or malformed state values.
	ErrStateInvalid = errors.New("oauth state: invalid")
)

// StateConfig configures a StateCodec.
type StateConfig struct {
	Secret string
	TTL    time.Duration
}

// StatePayload captures the data needed to validate the callback and finish the login.
type StatePayload struct {
	Provider string    `json:"p"`
	Nonce    string    `json:"n"`
	PKCE     string    `json:"k"`
	IssuedAt time.Time `json:"iat"`
}

// StateCodec seals OAuth state payloads with AES-GCM so the PKCE verifier never
// leaves the server in clear text.
type StateCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStateCodec derives a 256-bit key from the configured secret.
func NewStateCodec(cfg StateConfig, now func() time.Time) (*StateCodec, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("oauth state: secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if now == nil {
		now = time.Now
	}
	sum := sha256.Sum256([]byte(secret))
	return &StateCodec{key: sum[:], ttl: ttl, now: now}, nil
}

// TTL reports the state lifetime.
func (c *StateCodec) TTL() time.Duration {
	return c.ttl
}

// Encode encrypts the supplied payload into a compact state string.
func (c *StateCodec) Encode(payload StatePayload) (string, error) {
	payload.Provider = strings.ToLower(strings.TrimSpace(payload.Provider))
	if payload.Provider == "" {
		return "", errors.New("oauth state: provider is required")
	}
	payload.IssuedAt = c.now().UTC()

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("oauth state: marshal payload: %w", err)
	}

	encoded, err := crypto.Encrypt(raw, c.key)
	if err != nil {
		return "", fmt.Errorf("oauth state: encrypt payload: %w", err)
	}

	return encoded, nil
}

// Decode decrypts the state string back into a payload while enforcing expiry.
func (c *StateCodec) Decode(token string) (StatePayload, error) {
	var payload StatePayload
	if strings.TrimSpace(token) == "" {
		return payload, ErrStateInvalid
	}

	raw, err := crypto.Decrypt(token, c.key)
	if err != nil {
		return payload, ErrStateInvalid
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, ErrStateInvalid
	}

	if payload.Provider == "" || payload.IssuedAt.IsZero() {
		return payload, ErrStateInvalid
	}

	if c.now().UTC().After(payload.IssuedAt.Add(c.ttl)) {
		return payload, ErrStateExpired
	}

	return payload, nil
}
