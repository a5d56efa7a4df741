package services

import (
	"net/http"

	apperrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "An account with this email already exists", http.StatusBadRequest)
	// ErrPhoneTaken is returned when signing up with a registered phone number.
	ErrPhoneTaken = apperrors.New("PHONE_TAKEN", "An account with this phone number already exists", http.StatusBadRequest)
	// ErrInvalidPhone is returned when a phone number cannot be normalised for its country.
	ErrInvalidPhone = apperrors.New("INVALID_PHONE", "Invalid phone number for the selected country", http.StatusBadRequest)
	// ErrChannelRequired is returned when a request carries neither or both of email and phone.
	ErrChannelRequired = apperrors.New("CHANNEL_REQUIRED", "Provide either an email or a phone number", http.StatusBadRequest)

	// ErrInvalidOrExpiredOTP covers wrong, expired and unknown codes alike.
	ErrInvalidOrExpiredOTP = apperrors.New("OTP_INVALID", "Invalid or expired OTP.", http.StatusNotFound)
	// ErrNoPendingRequest is returned by resend when nothing was ever issued for the channel.
	ErrNoPendingRequest = apperrors.New("OTP_REQUEST_NOT_FOUND", "No OTP request found. Please restart the onboarding process.", http.StatusNotFound)
	// ErrAlreadyVerified is returned when issuing a code for a verified channel.
	ErrAlreadyVerified = apperrors.New("OTP_ALREADY_VERIFIED", "OTP has already been verified", http.StatusConflict)
	// ErrResendCooldown is returned when a new code is requested too soon.
	ErrResendCooldown = apperrors.New("OTP_RESEND_COOLDOWN", "Please wait before requesting another OTP", http.StatusTooManyRequests)
	// ErrTooManyAttempts is returned when verification attempts exceed the window budget.
	ErrTooManyAttempts = apperrors.New("OTP_TOO_MANY_ATTEMPTS", "Too many verification attempts, please try again later", http.StatusTooManyRequests)
	// ErrDeliveryFailed is returned when the email or SMS provider rejects a message.
	ErrDeliveryFailed = apperrors.ErrDelivery.WithMessage("Failed to deliver OTP, please request a new one")

	// ErrResetTokenInvalid covers unknown, used and expired reset tokens alike.
	ErrResetTokenInvalid = apperrors.New("RESET_TOKEN_INVALID", "Invalid or expired reset token.", http.StatusNotFound)
	// ErrPasswordMismatch is returned when the confirmation differs from the new password.
	ErrPasswordMismatch = apperrors.New("PASSWORD_MISMATCH", "Passwords do not match", http.StatusBadRequest)
	// ErrCurrentPasswordInvalid is returned when the supplied current password is wrong.
	ErrCurrentPasswordInvalid = apperrors.New("CURRENT_PASSWORD_INVALID", "Current password is incorrect", http.StatusBadRequest)
	// ErrPasswordNotSet is returned for accounts that only sign in through an external provider.
	ErrPasswordNotSet = apperrors.New("PASSWORD_NOT_SET", "This account signs in with Google and has no password", http.StatusBadRequest)
	// ErrRoleNotAssignable is returned for roles users may not pick themselves.
	ErrRoleNotAssignable = apperrors.New("ROLE_NOT_ASSIGNABLE", "Role must be CLIENT or VENDOR", http.StatusBadRequest)
)
