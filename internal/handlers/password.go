package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
)

const forgotPasswordMessage = "If an account exists for this email, a password reset link has been sent."

// PasswordHandler serves forgot-password and reset-password.
type PasswordHandler struct {
	resets *services.PasswordResetService
}

func NewPasswordHandler(resets *services.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" validate:"required,password,max=128"`
	ConfirmPassword string `json:"confirmPassword"`
}

// POST /api/v1/auth/forgot-password
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.resets.RequestReset(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, forgotPasswordMessage, nil)
}

// POST /api/v1/auth/reset-password/:token
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		response.Error(c, services.ErrPasswordMismatch)
		return
	}

	token := strings.TrimSpace(c.Param("token"))
	if err := h.resets.ResetPassword(requestContext(c), token, req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "Password reset successful", nil)
}
