package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	testutil "github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database/testutil"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
)

func newResetHarness(t *testing.T) (*PasswordResetService, *gorm.DB, *fakeNotifier, *testClock) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	notifier := &fakeNotifier{}
	clock := newTestClock()
	svc, err := NewPasswordResetService(db, notifier, PasswordResetConfig{TokenTTL: 10 * time.Minute}, WithResetClock(clock.Now))
	require.NoError(t, err)
	return svc, db, notifier, clock
}

func TestPasswordResetIsSingleUse(t *testing.T) {
	svc, db, notifier, _ := newResetHarness(t)
	ctx := context.Background()
	user := createUser(t, db, "reset@example.com", "")

	require.NoError(t, svc.RequestReset(ctx, "Reset@Example.com"))
	sent := notifier.lastReset(t)
	require.Equal(t, user.ID, sent.to.UserID)

	var stored models.PasswordResetToken
	require.NoError(t, db.Take(&stored, "user_id = ?", user.ID).Error)
	require.Equal(t, crypto.HashToken(sent.token), stored.TokenHash)
	require.NotEqual(t, sent.token, stored.TokenHash)

	require.NoError(t, svc.ResetPassword(ctx, sent.token, "Br4ndNew!"))
	require.True(t, crypto.VerifyPassword(reloadUser(t, db, user.ID).Password, "Br4ndNew!"))

	err := svc.ResetPassword(ctx, sent.token, "Another1!")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
	require.True(t, crypto.VerifyPassword(reloadUser(t, db, user.ID).Password, "Br4ndNew!"))
}

func TestPasswordResetExpires(t *testing.T) {
	svc, db, notifier, clock := newResetHarness(t)
	ctx := context.Background()
	createUser(t, db, "slow@example.com", "")

	require.NoError(t, svc.RequestReset(ctx, "slow@example.com"))
	token := notifier.lastReset(t).token

	clock.Advance(10 * time.Minute)
	require.ErrorIs(t, svc.ResetPassword(ctx, token, "Br4ndNew!"), ErrResetTokenInvalid)
}

func TestPasswordResetInvalidatesEarlierTokens(t *testing.T) {
	svc, db, notifier, _ := newResetHarness(t)
	ctx := context.Background()
	createUser(t, db, "twice@example.com", "")

	require.NoError(t, svc.RequestReset(ctx, "twice@example.com"))
	first := notifier.lastReset(t).token
	require.NoError(t, svc.RequestReset(ctx, "twice@example.com"))
	second := notifier.lastReset(t).token

	require.ErrorIs(t, svc.ResetPassword(ctx, first, "Br4ndNew!"), ErrResetTokenInvalid)
	require.NoError(t, svc.ResetPassword(ctx, second, "Br4ndNew!"))
}

func TestRequestResetDoesNotRevealAccounts(t *testing.T) {
	svc, db, notifier, _ := newResetHarness(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "nobody@example.com"))
	require.Empty(t, notifier.resets)

	createUser(t, db, "bounce@example.com", "")
	notifier.err = errors.New("smtp down")
	require.NoError(t, svc.RequestReset(ctx, "bounce@example.com"))
}

func TestResetPasswordRejectsUnknownToken(t *testing.T) {
	svc, _, _, _ := newResetHarness(t)

	require.ErrorIs(t, svc.ResetPassword(context.Background(), "not-a-token", "Br4ndNew!"), ErrResetTokenInvalid)
	require.ErrorIs(t, svc.ResetPassword(context.Background(), "", "Br4ndNew!"), ErrResetTokenInvalid)
}

func TestResetPasswordAllowsOAuthOnlyAccounts(t *testing.T) {
	svc, db, notifier, _ := newResetHarness(t)
	ctx := context.Background()

	email := "google@example.com"
	user := &models.User{Email: &email, Role: models.RoleClient}
	require.NoError(t, db.Create(user).Error)

	require.NoError(t, svc.RequestReset(ctx, email))
	require.NoError(t, svc.ResetPassword(ctx, notifier.lastReset(t).token, "Br4ndNew!"))
	stored := reloadUser(t, db, user.ID)
	require.True(t, stored.HasPassword())
}
