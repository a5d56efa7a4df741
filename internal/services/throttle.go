package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
)

// otpThrottle enforces the resend cooldown and the verify attempt budget per
// channel value. A nil store disables both checks. Store failures are logged
// and let the request through.
type otpThrottle struct {
	store       cache.Store
	cooldown    time.Duration
	maxAttempts int
	window      time.Duration
	log         *zap.Logger
}

func cooldownKey(key string) string { return "otp:cooldown:" + key }
func attemptsKey(key string) string { return "otp:attempts:" + key }

// acquireCooldown reserves the issuance slot for key. It fails with
// ErrResendCooldown while a previous reservation is still live.
func (t *otpThrottle) acquireCooldown(ctx context.Context, key string) error {
	if t == nil || t.store == nil || t.cooldown <= 0 {
		return nil
	}
	ok, err := t.store.SetNX(ctx, cooldownKey(key), []byte("1"), t.cooldown)
	if err != nil {
		t.log.Warn("otp cooldown check failed", zap.Error(err))
		return nil
	}
	if ok {
		return nil
	}

	appErr := ErrResendCooldown
	if remaining, found, ttlErr := t.store.TTL(ctx, cooldownKey(key)); ttlErr == nil && found && remaining > 0 {
		secs := int((remaining + time.Second - 1) / time.Second)
		appErr = ErrResendCooldown.WithMessage(cooldownMessage(secs))
	}
	return appErr
}

// releaseCooldown lets the caller retry immediately after a failed delivery.
func (t *otpThrottle) releaseCooldown(ctx context.Context, key string) {
	if t == nil || t.store == nil || t.cooldown <= 0 {
		return
	}
	if err := t.store.Delete(ctx, cooldownKey(key)); err != nil {
		t.log.Warn("otp cooldown release failed", zap.Error(err))
	}
}

// registerAttempt counts a verification attempt for key.
func (t *otpThrottle) registerAttempt(ctx context.Context, key string) error {
	if t == nil || t.store == nil || t.maxAttempts <= 0 {
		return nil
	}
	count, _, err := t.store.IncrementWithTTL(ctx, attemptsKey(key), t.window)
	if err != nil {
		t.log.Warn("otp attempt counter failed", zap.Error(err))
		return nil
	}
	if count > int64(t.maxAttempts) {
		return ErrTooManyAttempts
	}
	return nil
}

// resetAttempts clears the attempt counter once a code was accepted or reissued.
func (t *otpThrottle) resetAttempts(ctx context.Context, key string) {
	if t == nil || t.store == nil {
		return
	}
	if err := t.store.Delete(ctx, attemptsKey(key)); err != nil {
		t.log.Warn("otp attempt reset failed", zap.Error(err))
	}
}

func cooldownMessage(seconds int) string {
	if seconds == 1 {
		return "Please wait 1 second before requesting another OTP"
	}
	return fmt.Sprintf("Please wait %d seconds before requesting another OTP", seconds)
}
