// Package sms talks to SMS OTP providers. The provider owns code generation
// and expiry for the phone channel; callers only keep the returned pin id.
package sms

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSMSDisabled signals that SMS delivery is disabled via configuration.
	ErrSMSDisabled = errors.New("sms: delivery disabled")
	// ErrProvider wraps failures reported by the upstream provider.
	ErrProvider = errors.New("sms: provider error")
)

// SendOptions tune a single OTP dispatch.
type SendOptions struct {
	PinLength   int
	TTL         time.Duration
	PinAttempts int
	MessageText string
}

// SendResult is the provider acknowledgement of a dispatched OTP.
type SendResult struct {
	Status string
	PinID  string
	To     string
}

// VerifyResult reports the provider decision for a code.
type VerifyResult struct {
	Verified bool
	Reason   string
	MSISDN   string
}

// Provider sends and verifies provider-managed one-time pins.
type Provider interface {
	SendOTP(ctx context.Context, to string, opts SendOptions) (SendResult, error)
	VerifyOTP(ctx context.Context, pinID, code string) (VerifyResult, error)
}
