package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth/providers"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
	apperrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/metrics"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
)

// OAuthStateCookie holds the sealed state between the redirect and the callback.
const OAuthStateCookie = "ajarra_oauth_state"

const oauthCookiePath = "/api/v1/auth/google"

// GoogleHandlerConfig holds the redirect targets of the Google flow.
type GoogleHandlerConfig struct {
	SuccessURL   string
	ErrorURL     string
	FrontendURL  string
	SecureCookie bool
}

// GoogleHandler runs the Google sign-in redirect flow.
type GoogleHandler struct {
	provider providers.Provider
	linker   *iauth.AccountLinker
	jwt      *iauth.JWTService
	codec    *iauth.StateCodec
	cfg      GoogleHandlerConfig
	log      *zap.Logger
}

// NewGoogleHandler constructs a GoogleHandler. provider may be nil when Google
// sign-in is disabled; the flow then fails with 503.
func NewGoogleHandler(provider providers.Provider, linker *iauth.AccountLinker, jwt *iauth.JWTService, codec *iauth.StateCodec, cfg GoogleHandlerConfig) *GoogleHandler {
	return &GoogleHandler{
		provider: provider,
		linker:   linker,
		jwt:      jwt,
		codec:    codec,
		cfg:      cfg,
		log:      logger.WithModule("oauth"),
	}
}

var errGoogleDisabled = apperrors.New("OAUTH_DISABLED", "Google sign-in is not enabled", http.StatusServiceUnavailable)

// GET /api/v1/auth/google
func (h *GoogleHandler) Begin(c *gin.Context) {
	if h.provider == nil || h.codec == nil {
		response.Error(c, errGoogleDisabled)
		return
	}

	pkce, err := iauth.GeneratePKCE()
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "failed to start Google sign-in"))
		return
	}
	nonce, err := crypto.GenerateToken(32)
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "failed to start Google sign-in"))
		return
	}

	state, err := h.codec.Encode(iauth.StatePayload{
		Provider: h.provider.Name(),
		Nonce:    nonce,
		PKCE:     pkce.Verifier,
	})
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "failed to start Google sign-in"))
		return
	}

	redirect, err := h.provider.AuthCodeURL(providers.BeginAuthRequest{
		State:         state,
		Nonce:         nonce,
		PKCEChallenge: pkce.Challenge,
		Prompt:        c.Query("prompt"),
	})
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "failed to start Google sign-in"))
		return
	}

	h.setStateCookie(c, state, int(h.codec.TTL().Seconds()))
	c.Redirect(http.StatusFound, redirect)
}

// GET /api/v1/auth/google/callback
func (h *GoogleHandler) Callback(c *gin.Context) {
	if h.provider == nil || h.codec == nil {
		response.Error(c, errGoogleDisabled)
		return
	}

	stateToken := c.Query("state")
	cookie, cookieErr := c.Cookie(OAuthStateCookie)
	h.setStateCookie(c, "", -1)

	if stateToken == "" || cookieErr != nil || !crypto.ConstantTimeEqual(stateToken, cookie) {
		h.fail(c, "state_mismatch", iauth.ErrStateInvalid)
		return
	}

	payload, err := h.codec.Decode(stateToken)
	if err != nil {
		reason := "state_invalid"
		if errors.Is(err, iauth.ErrStateExpired) {
			reason = "state_expired"
		}
		h.fail(c, reason, err)
		return
	}

	identity, err := h.provider.Callback(requestContext(c), providers.CallbackRequest{
		Code:          c.Query("code"),
		Error:         c.Query("error"),
		PKCEVerifier:  payload.PKCE,
		ExpectedNonce: payload.Nonce,
	})
	if err != nil {
		reason := "provider_error"
		if errors.Is(err, providers.ErrAuthorizationDenied) {
			reason = "access_denied"
		}
		h.fail(c, reason, err)
		return
	}

	user, outcome, err := h.linker.Link(requestContext(c), *identity)
	if err != nil {
		reason := "link_failed"
		switch {
		case errors.Is(err, iauth.ErrInvalidProfile):
			reason = "invalid_profile"
		case errors.Is(err, iauth.ErrIdentityConflict):
			reason = "identity_conflict"
		case errors.Is(err, iauth.ErrEmailNotVerified):
			reason = "email_unverified"
		}
		h.fail(c, reason, err)
		return
	}

	token, _, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Role:   string(user.Role),
		Email:  user.EmailAddress(),
	})
	if err != nil {
		h.fail(c, "token_failed", err)
		return
	}

	metrics.AuthAttempts.WithLabelValues("google", "success").Inc()
	h.log.Info("google sign-in completed", zap.String("user_id", user.ID), zap.String("outcome", string(outcome)))
	c.Redirect(http.StatusFound, withQuery(h.cfg.SuccessURL, "token", token))
}

// GET /api/v1/auth/google/success
func (h *GoogleHandler) Success(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, apperrors.ErrUnauthorized.WithMessage("Not authenticated"))
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized.WithMessage("Not authenticated"))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":  token,
		"userId": claims.UserID,
		"role":   claims.Role,
		"email":  claims.Email,
	})
}

// GET /api/v1/auth/google/error
func (h *GoogleHandler) Error(c *gin.Context) {
	message := "Error logging in via Google"
	if reason := strings.TrimSpace(c.Query("error")); reason != "" {
		message += ": " + reason
	}
	response.Error(c, apperrors.New("OAUTH_FAILED", message, http.StatusUnauthorized))
}

// GET /api/v1/auth/google/signout
func (h *GoogleHandler) SignOut(c *gin.Context) {
	h.setStateCookie(c, "", -1)
	target := h.cfg.FrontendURL
	if target == "" {
		target = "/"
	}
	c.Redirect(http.StatusFound, target)
}

func (h *GoogleHandler) fail(c *gin.Context, reason string, err error) {
	metrics.AuthAttempts.WithLabelValues("google", "failure").Inc()
	h.log.Warn("google sign-in failed", zap.String("reason", reason), zap.Error(err))
	c.Redirect(http.StatusFound, withQuery(h.cfg.ErrorURL, "error", reason))
}

func (h *GoogleHandler) setStateCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(OAuthStateCookie, value, maxAge, oauthCookiePath, "", h.cfg.SecureCookie, true)
}

func withQuery(target, key, value string) string {
	parsed, err := url.Parse(target)
	if err != nil || target == "" {
		parsed = &url.URL{Path: "/"}
	}
	q := parsed.Query()
	q.Set(key, value)
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
