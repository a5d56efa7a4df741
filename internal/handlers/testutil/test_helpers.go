package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/api"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/app"
	iauth "github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth/providers"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
	sharedtestutil "github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database/testutil"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/sms"
)

const (
	FrontendURL = "https://app.ajarra.test"
	SuccessURL  = FrontendURL + "/auth/google/success"
	ErrorURL    = FrontendURL + "/auth/google/error"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Config   *app.Config
	Notifier *Notifier
	SMS      *SMS
	Google   *GoogleProvider
}

// EnvOption tweaks the configuration before the router is built.
type EnvOption func(*app.Config)

// WithRateLimit enables the per-route limiter.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Enabled: true, Requests: requests, Window: window}
	}
}

// WithResendCooldown sets the OTP resend cooldown.
func WithResendCooldown(d time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.OTP.ResendCooldown = d
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Server: app.ServerConfig{FrontendURL: FrontendURL},
		Monitoring: app.MonitoringConfig{
			Health:     app.HealthConfig{Enabled: true},
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "ajarra-test",
				TTL:    time.Hour,
			},
			BcryptCost: crypto.MinPasswordCost,
		},
		OTP: app.OTPConfig{Length: 6, TTL: 5 * time.Minute, ResendCooldown: -1},
		OAuth: app.OAuthConfig{
			StateSecret: "0123456789abcdef0123456789abcdef",
			StateTTL:    10 * time.Minute,
			Google: app.GoogleOAuthConfig{
				Enabled:    true,
				SuccessURL: SuccessURL,
				ErrorURL:   ErrorURL,
			},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	store := cache.NewDatabaseStore(db)
	notifier := &Notifier{}
	smsProvider := NewSMS()
	google := &GoogleProvider{}

	verification, err := services.NewVerificationService(db, notifier, smsProvider, store, cfg.OTP.VerificationConfig())
	require.NoError(t, err)
	users, err := services.NewUserService(db, verification, cfg.Auth.UserServiceConfig())
	require.NoError(t, err)
	resets, err := services.NewPasswordResetService(db, notifier, cfg.PasswordResetConfig())
	require.NoError(t, err)
	linker, err := iauth.NewAccountLinker(db, nil)
	require.NoError(t, err)
	codec, err := iauth.NewStateCodec(cfg.OAuth.StateCodecConfig(), nil)
	require.NoError(t, err)

	deps := api.Dependencies{
		Config:       cfg,
		DB:           db,
		Cache:        store,
		JWT:          jwtSvc,
		Users:        users,
		Verification: verification,
		Resets:       resets,
		Linker:       linker,
		StateCodec:   codec,
	}
	if cfg.OAuth.Google.Enabled {
		deps.Google = google
	}
	router, err := api.NewRouter(deps)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Config:   cfg,
		Notifier: notifier,
		SMS:      smsProvider,
		Google:   google,
	}
}

// CreateUser inserts a client account with the given password and returns the record.
func (e *Env) CreateUser(email, password string) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		FirstName: "Ngozi",
		LastName:  "Okafor",
		Email:     &email,
		Password:  hashed,
		Role:      models.RoleClient,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// TokenFor issues an access token for user without going through login.
func (e *Env) TokenFor(user *models.User) string {
	e.T.Helper()
	token, _, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Role:   string(user.Role),
		Email:  user.EmailAddress(),
	})
	require.NoError(e.T, err)
	return token
}

// LoginResult mirrors the token payload returned by login and set-role.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserPayload `json:"user"`
}

// UserPayload captures the subset of user fields returned from auth endpoints.
type UserPayload struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	PhoneVerified bool   `json:"phoneVerified"`
}

// Login authenticates with email and password and returns the issued token.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.Equal(e.T, response.StatusOK, resp.Status, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Cookie returns the named cookie set by the response, or nil.
func Cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// RedirectQuery parses the Location header of a redirect response.
func RedirectQuery(t *testing.T, w *httptest.ResponseRecorder) (*url.URL, url.Values) {
	t.Helper()
	location := w.Header().Get("Location")
	require.NotEmpty(t, location, "missing Location header")
	parsed, err := url.Parse(location)
	require.NoError(t, err)
	return parsed, parsed.Query()
}

// SentCode records one delivered verification email.
type SentCode struct {
	To      services.Recipient
	Code    string
	Welcome bool
}

// Notifier captures outgoing emails instead of sending them.
type Notifier struct {
	mu     sync.Mutex
	Codes  []SentCode
	Resets []string
	Err    error
}

func (n *Notifier) SendVerificationCode(_ context.Context, to services.Recipient, code string, welcome bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Codes = append(n.Codes, SentCode{To: to, Code: code, Welcome: welcome})
	return nil
}

func (n *Notifier) SendPasswordReset(_ context.Context, _ services.Recipient, rawToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Resets = append(n.Resets, rawToken)
	return nil
}

// LastCode returns the most recent code sent to email.
func (n *Notifier) LastCode(t *testing.T, email string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.Codes) - 1; i >= 0; i-- {
		if n.Codes[i].To.Email == email {
			return n.Codes[i].Code
		}
	}
	t.Fatalf("no verification code sent to %s", email)
	return ""
}

// LastReset returns the most recent raw reset token.
func (n *Notifier) LastReset(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.Resets, "no reset email sent")
	return n.Resets[len(n.Resets)-1]
}

// SMS is an in-memory token provider that accepts Code for every pin.
type SMS struct {
	mu     sync.Mutex
	SentTo []string
	Code   string
	pins   map[string]string
}

func NewSMS() *SMS {
	return &SMS{Code: "731905", pins: map[string]string{}}
}

func (s *SMS) SendOTP(_ context.Context, to string, _ sms.SendOptions) (sms.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SentTo = append(s.SentTo, to)
	pinID := fmt.Sprintf("pin-%d", len(s.SentTo))
	s.pins[pinID] = s.Code
	return sms.SendResult{Status: "Message Sent", PinID: pinID, To: to}, nil
}

func (s *SMS) VerifyOTP(_ context.Context, pinID, code string) (sms.VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expected, ok := s.pins[pinID]; ok && expected == code {
		return sms.VerifyResult{Verified: true, MSISDN: pinID}, nil
	}
	return sms.VerifyResult{Verified: false, Reason: "Invalid"}, nil
}

// GoogleProvider stands in for Google. Callback returns Identity, or Err when set.
type GoogleProvider struct {
	mu        sync.Mutex
	Identity  providers.Identity
	Err       error
	LastBegin providers.BeginAuthRequest
	LastCall  providers.CallbackRequest
}

func (g *GoogleProvider) Name() string { return providers.GoogleName }

func (g *GoogleProvider) AuthCodeURL(req providers.BeginAuthRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.LastBegin = req
	q := url.Values{}
	q.Set("state", req.State)
	q.Set("nonce", req.Nonce)
	q.Set("code_challenge", req.PKCEChallenge)
	return "https://accounts.google.test/o/oauth2/auth?" + q.Encode(), nil
}

func (g *GoogleProvider) Callback(_ context.Context, req providers.CallbackRequest) (*providers.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.LastCall = req
	if req.Error != "" {
		return nil, providers.ErrAuthorizationDenied
	}
	if g.Err != nil {
		return nil, g.Err
	}
	identity := g.Identity
	return &identity, nil
}
