package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
	apperrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
)

// AuthHandler manages local accounts: sign-up, login and profile changes.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type signUpRequest struct {
	FirstName  string `json:"firstName" validate:"required,max=128"`
	MiddleName string `json:"middleName" validate:"max=128"`
	LastName   string `json:"lastName" validate:"required,max=128"`
	Email      string `json:"email" validate:"required,email,max=320"`
	Password   string `json:"password" validate:"required,password,max=128"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Country    string `json:"country" validate:"required_with=Phone"`
	Role       string `json:"role" validate:"omitempty,oneof=CLIENT VENDOR client vendor"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user,omitempty"`
}

type verificationSummary struct {
	ID        string                     `json:"id"`
	Status    models.VerificationStatus  `json:"status"`
	IDType    models.VerificationChannel `json:"idType"`
	OTPExpiry *time.Time                 `json:"otpExpiry,omitempty"`
}

func summarise(req *models.VerificationRequest) *verificationSummary {
	if req == nil {
		return nil
	}
	return &verificationSummary{ID: req.ID, Status: req.Status, IDType: req.IDType, OTPExpiry: req.OTPExpiry}
}

// POST /api/v1/auth/sign-up
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, verification, err := h.users.SignUp(requestContext(c), services.SignUpInput{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		Country:    req.Country,
		Role:       req.Role,
		IPAddress:  c.ClientIP(),
	})

	payload := gin.H{"user": user, "verification": summarise(verification)}
	switch {
	case err == nil:
		response.SuccessWithMessage(c, http.StatusCreated, "Account created. Check your email for the verification code.", payload)
	case user != nil && errors.Is(err, services.ErrDeliveryFailed):
		// The account exists; the client recovers through resend-otp.
		logger.WithModule("auth").Warn("welcome email not delivered", zap.String("user_id", user.ID), zap.Error(err))
		response.SuccessWithMessage(c, http.StatusCreated, "Account created, but the verification email could not be sent. Please request a new OTP.", payload)
	default:
		response.Error(c, err)
	}
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithToken(c, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, user *models.User) {
	token, expiresAt, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Role:   string(user.Role),
		Email:  user.EmailAddress(),
	})
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "failed to issue token"))
		return
	}
	response.Success(c, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,password,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.users.ChangePassword(requestContext(c), userID, services.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "Password changed successfully", nil)
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// PATCH /api/v1/auth/set-role
func (h *AuthHandler) SetRole(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req setRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetRole(requestContext(c), userID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The role claim changed, so hand back a fresh token.
	h.respondWithToken(c, user)
}
