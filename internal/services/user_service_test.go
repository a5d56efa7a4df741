package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
	apperrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
)

func newUserHarness(t *testing.T) (*UserService, *verificationHarness) {
	t.Helper()
	h := newVerificationHarness(t, VerificationConfig{})
	svc, err := NewUserService(h.db, h.svc, UserServiceConfig{BcryptCost: crypto.MinPasswordCost})
	require.NoError(t, err)
	return svc, h
}

func signUpInput() SignUpInput {
	return SignUpInput{
		FirstName: "Tunde",
		LastName:  "Bello",
		Email:     "Tunde@Example.com",
		Password:  "Sup3rSecret!",
		Phone:     "08031234567",
		Country:   "nga",
		Role:      "vendor",
		IPAddress: "10.1.1.1",
	}
}

func TestSignUpCreatesUserAndWelcomeRequest(t *testing.T) {
	svc, h := newUserHarness(t)
	ctx := context.Background()

	user, req, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)
	require.Equal(t, "tunde@example.com", user.EmailAddress())
	require.Equal(t, "2348031234567", *user.Phone)
	require.Equal(t, models.RoleVendor, user.Role)
	require.False(t, user.EmailVerified)
	require.NotEqual(t, "Sup3rSecret!", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "Sup3rSecret!"))

	require.NotNil(t, req)
	require.Equal(t, user.ID, req.UserID)
	require.Equal(t, "tunde@example.com", *req.Email)
	require.Equal(t, "10.1.1.1", req.IPAddress)

	sent := h.notifier.lastCode(t)
	require.True(t, sent.welcome)
	require.Equal(t, "Tunde", sent.to.FirstName)

	_, err = h.svc.Verify(ctx, VerifyInput{ChannelInput: ChannelInput{Email: "tunde@example.com"}, Code: sent.code})
	require.NoError(t, err)
	require.True(t, reloadUser(t, h.db, user.ID).EmailVerified)
}

func TestSignUpRejectsDuplicates(t *testing.T) {
	svc, _ := newUserHarness(t)
	ctx := context.Background()

	_, _, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)

	dupEmail := signUpInput()
	dupEmail.Phone = ""
	dupEmail.Email = "TUNDE@example.com"
	_, _, err = svc.SignUp(ctx, dupEmail)
	require.ErrorIs(t, err, ErrEmailTaken)

	dupPhone := signUpInput()
	dupPhone.Email = "other@example.com"
	dupPhone.Phone = "+2348031234567"
	_, _, err = svc.SignUp(ctx, dupPhone)
	require.ErrorIs(t, err, ErrPhoneTaken)
}

func TestSignUpValidatesRoleAndPhone(t *testing.T) {
	svc, _ := newUserHarness(t)
	ctx := context.Background()

	in := signUpInput()
	in.Role = "admin"
	_, _, err := svc.SignUp(ctx, in)
	require.ErrorIs(t, err, ErrRoleNotAssignable)

	in = signUpInput()
	in.Phone = "12"
	_, _, err = svc.SignUp(ctx, in)
	require.ErrorIs(t, err, ErrInvalidPhone)

	in = signUpInput()
	in.Role = ""
	in.Phone = ""
	user, _, err := svc.SignUp(ctx, in)
	require.NoError(t, err)
	require.Equal(t, models.RoleClient, user.Role)
	require.Nil(t, user.Phone)
}

func TestSignUpWithoutWelcomeIssuer(t *testing.T) {
	h := newVerificationHarness(t, VerificationConfig{})
	svc, err := NewUserService(h.db, nil, UserServiceConfig{})
	require.NoError(t, err)

	user, req, err := svc.SignUp(context.Background(), signUpInput())
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Nil(t, req)
}

func TestAuthenticate(t *testing.T) {
	svc, h := newUserHarness(t)
	ctx := context.Background()

	_, _, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "TUNDE@example.com", "Sup3rSecret!")
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)

	_, err = svc.Authenticate(ctx, "tunde@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "missing@example.com", "Sup3rSecret!")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	oauthEmail := "google-only@example.com"
	require.NoError(t, h.db.Create(&models.User{Email: &oauthEmail, Role: models.RoleClient}).Error)
	_, err = svc.Authenticate(ctx, oauthEmail, "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	svc, h := newUserHarness(t)
	ctx := context.Background()

	user, _, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "Sup3rSecret!", NewPassword: "N3wSecret!", ConfirmPassword: "other"})
	require.ErrorIs(t, err, ErrPasswordMismatch)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "bad", NewPassword: "N3wSecret!", ConfirmPassword: "N3wSecret!"})
	require.ErrorIs(t, err, ErrCurrentPasswordInvalid)

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "Sup3rSecret!", NewPassword: "N3wSecret!", ConfirmPassword: "N3wSecret!"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "tunde@example.com", "N3wSecret!")
	require.NoError(t, err)

	oauthEmail := "oauth@example.com"
	oauthUser := &models.User{Email: &oauthEmail, Role: models.RoleClient}
	require.NoError(t, h.db.Create(oauthUser).Error)
	err = svc.ChangePassword(ctx, oauthUser.ID, ChangePasswordInput{NewPassword: "N3wSecret!", ConfirmPassword: "N3wSecret!"})
	require.ErrorIs(t, err, ErrPasswordNotSet)
}

func TestSetRole(t *testing.T) {
	svc, h := newUserHarness(t)
	ctx := context.Background()

	user, _, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)

	updated, err := svc.SetRole(ctx, user.ID, "client")
	require.NoError(t, err)
	require.Equal(t, models.RoleClient, updated.Role)
	require.Equal(t, models.RoleClient, reloadUser(t, h.db, user.ID).Role)

	_, err = svc.SetRole(ctx, user.ID, "ADMIN")
	require.ErrorIs(t, err, ErrRoleNotAssignable)

	_, err = svc.SetRole(ctx, "00000000-0000-0000-0000-000000000000", "vendor")
	require.ErrorIs(t, err, ErrUserNotFound)

	adminEmail := "admin@example.com"
	admin := &models.User{Email: &adminEmail, Role: models.RoleAdmin}
	require.NoError(t, h.db.Create(admin).Error)
	_, err = svc.SetRole(ctx, admin.ID, "vendor")
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetByID(t *testing.T) {
	svc, _ := newUserHarness(t)
	ctx := context.Background()

	user, _, err := svc.SignUp(ctx, signUpInput())
	require.NoError(t, err)

	found, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	_, err = svc.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
