// Package otp issues numeric one-time codes for the email verification channel.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"
)

const (
	// DefaultLength is the canonical code length. Four digit codes are not issued.
	DefaultLength = 6
	// MinLength and MaxLength bound the configurable code length.
	MinLength = 6
	MaxLength = 9
	// DefaultValidity is how long an emailed code stays redeemable.
	DefaultValidity = 5 * time.Minute
)

// Generator produces codes from a cryptographically secure source.
type Generator struct {
	length int
	random io.Reader
}

// Option customises a Generator.
type Option func(*Generator)

// WithRandom overrides the entropy source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.random = r
		}
	}
}

// NewGenerator returns a Generator for the given length. Lengths outside
// [MinLength, MaxLength] are rejected.
func NewGenerator(length int, opts ...Option) (*Generator, error) {
	if length == 0 {
		length = DefaultLength
	}
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("otp: length must be between %d and %d, got %d", MinLength, MaxLength, length)
	}
	g := &Generator{length: length, random: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Length reports the number of digits issued.
func (g *Generator) Length() int {
	return g.length
}

// Generate draws a code uniformly from [10^(n-1), 10^n - 1], so codes never
// start with zero and always have exactly n digits.
func (g *Generator) Generate() (string, error) {
	low := pow10(g.length - 1)
	span := new(big.Int).Sub(pow10(g.length), low)

	n, err := rand.Int(g.random, span)
	if err != nil {
		return "", fmt.Errorf("otp: read random: %w", err)
	}
	n.Add(n, low)
	return n.String(), nil
}

// Generate is a convenience wrapper using the system CSPRNG.
func Generate(length int) (string, error) {
	g, err := NewGenerator(length)
	if err != nil {
		return "", err
	}
	return g.Generate()
}

// ExpiryFrom returns now + minutesValid minutes.
func ExpiryFrom(now time.Time, minutesValid int) time.Time {
	return now.Add(time.Duration(minutesValid) * time.Minute)
}

// IsWellFormed reports whether code is exactly length ASCII digits.
func IsWellFormed(code string, length int) bool {
	if len(code) != length {
		return false
	}
	_, err := strconv.ParseUint(code, 10, 64)
	return err == nil
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
