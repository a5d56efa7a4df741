package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
	apperrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
)

// OTPHandler exposes the verification ledger: send, verify and resend.
type OTPHandler struct {
	verification *services.VerificationService
}

func NewOTPHandler(verification *services.VerificationService) *OTPHandler {
	return &OTPHandler{verification: verification}
}

// channelRequest names one channel; the service rejects neither-or-both.
type channelRequest struct {
	Email   string `json:"email" validate:"omitempty,email,max=320"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Country string `json:"country" validate:"required_with=Phone"`
}

func (r channelRequest) input(ip string) services.ChannelInput {
	return services.ChannelInput{Email: r.Email, Phone: r.Phone, Country: r.Country, IPAddress: ip}
}

type verifyOTPRequest struct {
	channelRequest
	OTP string `json:"otp" validate:"omitempty,digits,max=12"`
	// Token is accepted as an alias of otp for the phone flow.
	Token string `json:"token" validate:"omitempty,digits,max=12"`
}

// POST /api/v1/auth/send-otp
func (h *OTPHandler) Send(c *gin.Context) {
	var req channelRequest
	if !bindAndValidate(c, &req) {
		return
	}

	verification, err := h.verification.Send(requestContext(c), req.input(c.ClientIP()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusCreated, "OTP sent successfully", summarise(verification))
}

// POST /api/v1/auth/verify-otp
func (h *OTPHandler) Verify(c *gin.Context) {
	var req verifyOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	code := strings.TrimSpace(req.OTP)
	if code == "" {
		code = strings.TrimSpace(req.Token)
	}
	if code == "" {
		response.Error(c, apperrors.ErrValidation.WithMessage("otp is required"))
		return
	}

	verification, err := h.verification.Verify(requestContext(c), services.VerifyInput{
		ChannelInput: req.input(c.ClientIP()),
		Code:         code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "OTP verified successfully", summarise(verification))
}

// POST /api/v1/auth/resend-otp
func (h *OTPHandler) Resend(c *gin.Context) {
	var req channelRequest
	if !bindAndValidate(c, &req) {
		return
	}

	verification, err := h.verification.Resend(requestContext(c), req.input(c.ClientIP()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "OTP resent successfully", summarise(verification))
}
