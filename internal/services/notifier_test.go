package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmailNotifierWelcome(t *testing.T) {
	mailer := &recordingMailer{}
	notifier, err := NewEmailNotifier(mailer, NotifierConfig{FrontendURL: "https://ajarra.example/", OTPValidity: 5 * time.Minute})
	require.NoError(t, err)

	err = notifier.SendVerificationCode(context.Background(), Recipient{UserID: "u-1", Email: "ada+1@example.com", FirstName: "Ada"}, "123456", true)
	require.NoError(t, err)
	require.Len(t, mailer.messages, 1)

	msg := mailer.messages[0]
	require.Equal(t, []string{"ada+1@example.com"}, msg.To)
	require.Equal(t, "Welcome to Ajarra Marketplace!", msg.Subject)
	require.Contains(t, msg.Text, "Hi Ada,")
	require.Contains(t, msg.Text, "123456")
	require.Contains(t, msg.Text, "https://ajarra.example/auth/verify-otp?email=ada%2B1%40example.com")
	require.Contains(t, msg.Text, "5 minutes")
	require.Contains(t, msg.HTML, "u-1")
}

func TestEmailNotifierPlainCodeAndReset(t *testing.T) {
	mailer := &recordingMailer{}
	notifier, err := NewEmailNotifier(mailer, NotifierConfig{FrontendURL: "https://ajarra.example", ResetTTL: 10 * time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, notifier.SendVerificationCode(ctx, Recipient{Email: "a@example.com"}, "654321", false))
	require.Equal(t, "Your Ajarra verification code", mailer.messages[0].Subject)
	require.Contains(t, mailer.messages[0].Text, "Hi there,")

	require.NoError(t, notifier.SendPasswordReset(ctx, Recipient{Email: "a@example.com"}, "raw-token"))
	reset := mailer.messages[1]
	require.Equal(t, "Ajarra Password Reset Request", reset.Subject)
	require.Contains(t, reset.Text, "https://ajarra.example/reset-password/raw-token")
	require.Contains(t, reset.HTML, "10 minutes")
}

func TestEmailNotifierPropagatesMailerErrors(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("boom")}
	notifier, err := NewEmailNotifier(mailer, NotifierConfig{})
	require.NoError(t, err)

	require.Error(t, notifier.SendPasswordReset(context.Background(), Recipient{Email: "a@example.com"}, "t"))

	_, err = NewEmailNotifier(nil, NotifierConfig{})
	require.Error(t, err)
}
