package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
	apperrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/metrics"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/otp"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/phone"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/sms"
)

// VerificationConfig tunes OTP issuance and verification.
type VerificationConfig struct {
	CodeLength        int
	CodeTTL           time.Duration
	ResendCooldown    time.Duration
	MaxVerifyAttempts int
	VerifyWindow      time.Duration
}

// ChannelInput names the email address or phone number a request is about.
// Exactly one of Email and Phone must be set; Country qualifies Phone.
type ChannelInput struct {
	Email     string
	Phone     string
	Country   string
	IPAddress string
}

// VerifyInput carries the code submitted for a channel.
type VerifyInput struct {
	ChannelInput
	Code string
}

// VerificationOption customises a VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationClock overrides the time source.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithCodeGenerator overrides the OTP generator.
func WithCodeGenerator(generator *otp.Generator) VerificationOption {
	return func(s *VerificationService) {
		if generator != nil {
			s.generator = generator
		}
	}
}

// VerificationService owns the verification request ledger. Every email
// address and every international phone number has at most one request,
// which moves from pending to verified exactly once.
type VerificationService struct {
	db        *gorm.DB
	notifier  Notifier
	sms       sms.Provider
	generator *otp.Generator
	throttle  *otpThrottle
	cfg       VerificationConfig
	now       func() time.Time
	log       *zap.Logger
}

// NewVerificationService constructs a VerificationService. The SMS provider
// and the cache store are optional: without a provider phone channels fail
// with ErrDeliveryFailed, without a store cooldowns and attempt limits are off.
func NewVerificationService(db *gorm.DB, notifier Notifier, smsProvider sms.Provider, store cache.Store, cfg VerificationConfig, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}
	if notifier == nil {
		return nil, errors.New("verification service: notifier is required")
	}

	if cfg.CodeLength <= 0 {
		cfg.CodeLength = otp.DefaultLength
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = otp.DefaultValidity
	}

	generator, err := otp.NewGenerator(cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("verification service: %w", err)
	}

	log := logger.WithModule("verification")
	svc := &VerificationService{
		db:        db,
		notifier:  notifier,
		sms:       smsProvider,
		generator: generator,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
		throttle: &otpThrottle{
			store:       store,
			cooldown:    cfg.ResendCooldown,
			maxAttempts: cfg.MaxVerifyAttempts,
			window:      cfg.VerifyWindow,
			log:         log,
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type issueKind int

const (
	issueWelcome issueKind = iota
	issueSend
	issueResend
)

func (k issueKind) event() string {
	if k == issueResend {
		return "resent"
	}
	return "issued"
}

// channelTarget is a resolved channel: a lowercased email or an
// international phone number.
type channelTarget struct {
	kind  models.VerificationChannel
	value string
}

func (t channelTarget) column() string {
	if t.kind == models.ChannelPhone {
		return "phone"
	}
	return "email"
}

func (t channelTarget) label() string { return t.column() }

func (t channelTarget) throttleKey() string { return t.column() + ":" + t.value }

func (t channelTarget) masked() zap.Field {
	if t.kind == models.ChannelPhone {
		return zap.String("phone", logger.MaskPhone(t.value))
	}
	return zap.String("email", logger.MaskEmail(t.value))
}

// IssueWelcome creates or refreshes the email request for a freshly signed up
// user and sends the welcome email carrying the code.
func (s *VerificationService) IssueWelcome(ctx context.Context, user *models.User, ipAddress string) (*models.VerificationRequest, error) {
	ctx = ensureContext(ctx)
	if user == nil || user.EmailAddress() == "" {
		return nil, ErrUserNotFound
	}
	target := channelTarget{kind: models.ChannelEmail, value: normaliseEmail(user.EmailAddress())}
	return s.issue(ctx, user, target, ipAddress, issueWelcome)
}

// Send issues a code for an existing account's email or phone.
func (s *VerificationService) Send(ctx context.Context, in ChannelInput) (*models.VerificationRequest, error) {
	ctx = ensureContext(ctx)
	target, err := resolveChannel(in)
	if err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, target)
	if err != nil {
		return nil, err
	}
	if channelVerified(user, target) {
		return nil, ErrAlreadyVerified
	}
	return s.issue(ctx, user, target, in.IPAddress, issueSend)
}

// Resend reissues a code for a channel that already has a pending request.
func (s *VerificationService) Resend(ctx context.Context, in ChannelInput) (*models.VerificationRequest, error) {
	ctx = ensureContext(ctx)
	target, err := resolveChannel(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.findRequest(ctx, s.db, target)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingRequest
		}
		return nil, apperrors.Wrap(err, "failed to load verification request")
	}
	if existing.Status == models.VerificationVerified {
		return nil, ErrAlreadyVerified
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", existing.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingRequest
		}
		return nil, apperrors.Wrap(err, "failed to load user")
	}
	return s.issue(ctx, &user, target, in.IPAddress, issueResend)
}

func (s *VerificationService) issue(ctx context.Context, user *models.User, target channelTarget, ipAddress string, kind issueKind) (*models.VerificationRequest, error) {
	key := target.throttleKey()
	// The welcome code is not a client request and does not hold the slot.
	throttled := kind != issueWelcome
	if throttled {
		if err := s.throttle.acquireCooldown(ctx, key); err != nil {
			return nil, err
		}
	}

	var (
		req *models.VerificationRequest
		err error
	)
	switch target.kind {
	case models.ChannelPhone:
		req, err = s.issuePhone(ctx, user, target, ipAddress)
	default:
		req, err = s.issueEmail(ctx, user, target, ipAddress, kind)
	}
	if err != nil {
		if throttled {
			s.throttle.releaseCooldown(ctx, key)
		}
		return req, err
	}

	s.throttle.resetAttempts(ctx, key)
	metrics.OTPEvents.WithLabelValues(target.label(), kind.event()).Inc()
	s.log.Info("verification code issued",
		zap.String("user_id", user.ID),
		zap.String("event", kind.event()),
		target.masked(),
	)
	return req, nil
}

// issueEmail writes the ledger first and delivers second. A failed delivery
// leaves a fresh pending request behind for resend to pick up.
func (s *VerificationService) issueEmail(ctx context.Context, user *models.User, target channelTarget, ipAddress string, kind issueKind) (*models.VerificationRequest, error) {
	code, err := s.generator.Generate()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate verification code")
	}
	hash := crypto.HashToken(code)
	expiry := s.now().UTC().Add(s.cfg.CodeTTL)

	req, err := s.upsert(ctx, user.ID, target, ledgerFields{
		otpHash:   &hash,
		otpExpiry: &expiry,
		ipAddress: ipAddress,
	})
	if err != nil {
		return nil, err
	}

	recipient := Recipient{UserID: user.ID, Email: target.value, FirstName: user.FirstName}
	if err := s.notifier.SendVerificationCode(ctx, recipient, code, kind == issueWelcome); err != nil {
		metrics.DeliveryFailures.WithLabelValues(target.label()).Inc()
		s.log.Warn("verification email delivery failed", target.masked(), zap.Error(err))
		return req, ErrDeliveryFailed.WithInternal(err)
	}
	return req, nil
}

// issuePhone asks the SMS provider for a pin before touching the ledger, so a
// provider failure leaves the previous request untouched.
func (s *VerificationService) issuePhone(ctx context.Context, user *models.User, target channelTarget, ipAddress string) (*models.VerificationRequest, error) {
	if s.sms == nil {
		return nil, ErrDeliveryFailed.WithInternal(sms.ErrSMSDisabled)
	}

	result, err := s.sms.SendOTP(ctx, target.value, sms.SendOptions{PinLength: s.generator.Length()})
	if err != nil {
		metrics.DeliveryFailures.WithLabelValues(target.label()).Inc()
		s.log.Warn("verification sms delivery failed", target.masked(), zap.Error(err))
		return nil, ErrDeliveryFailed.WithInternal(err)
	}

	pinID := result.PinID
	return s.upsert(ctx, user.ID, target, ledgerFields{
		pinID:     &pinID,
		ipAddress: ipAddress,
	})
}

type ledgerFields struct {
	otpHash   *string
	otpExpiry *time.Time
	pinID     *string
	ipAddress string
}

// upsert keeps a single request per channel value. Existing pending rows are
// refreshed with a conditional update so a concurrent verify is never undone;
// missing rows are created, retrying once when a parallel insert wins.
func (s *VerificationService) upsert(ctx context.Context, userID string, target channelTarget, fields ledgerFields) (*models.VerificationRequest, error) {
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.findRequest(ctx, db, target)
		switch {
		case err == nil:
			if existing.Status == models.VerificationVerified {
				return nil, ErrAlreadyVerified
			}
			result := db.Model(&models.VerificationRequest{}).
				Where("id = ? AND status = ?", existing.ID, models.VerificationPending).
				Updates(map[string]any{
					"user_id":    userID,
					"otp_hash":   fields.otpHash,
					"otp_expiry": fields.otpExpiry,
					"pin_id":     fields.pinID,
					"ip_address": fields.ipAddress,
				})
			if result.Error != nil {
				return nil, apperrors.Wrap(result.Error, "failed to update verification request")
			}
			if result.RowsAffected == 0 {
				return nil, ErrAlreadyVerified
			}
			return s.findRequest(ctx, db, target)

		case errors.Is(err, gorm.ErrRecordNotFound):
			req := &models.VerificationRequest{
				UserID:    userID,
				OTPHash:   fields.otpHash,
				OTPExpiry: fields.otpExpiry,
				PinID:     fields.pinID,
				Status:    models.VerificationPending,
				IPAddress: fields.ipAddress,
				IDType:    target.kind,
			}
			value := target.value
			if target.kind == models.ChannelPhone {
				req.Phone = &value
			} else {
				req.Email = &value
			}

			if err := db.Create(req).Error; err != nil {
				if database.IsUniqueViolation(err) {
					continue
				}
				return nil, apperrors.Wrap(err, "failed to create verification request")
			}
			return req, nil

		default:
			return nil, apperrors.Wrap(err, "failed to load verification request")
		}
	}
	return nil, apperrors.ErrConflict.WithMessage("Verification request is being updated, please retry")
}

// Verify checks a submitted code and, on success, marks the request verified
// and flips the owning user's flag in one transaction. Wrong, expired and
// unknown codes all fail with ErrInvalidOrExpiredOTP.
func (s *VerificationService) Verify(ctx context.Context, in VerifyInput) (*models.VerificationRequest, error) {
	ctx = ensureContext(ctx)
	target, err := resolveChannel(in.ChannelInput)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.Code)

	key := target.throttleKey()
	if err := s.throttle.registerAttempt(ctx, key); err != nil {
		return nil, err
	}

	req, err := s.findRequest(ctx, s.db, target)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.reject(target, "unknown")
		}
		return nil, apperrors.Wrap(err, "failed to load verification request")
	}
	if req.Status != models.VerificationPending {
		return nil, s.reject(target, "not_pending")
	}

	var guard clause
	switch target.kind {
	case models.ChannelPhone:
		guard, err = s.checkPhoneCode(ctx, req, target, code)
	default:
		guard, err = s.checkEmailCode(req, target, code)
	}
	if err != nil {
		return nil, err
	}

	verifiedAt := s.now().UTC()
	flag := "email_verified"
	if target.kind == models.ChannelPhone {
		flag = "phone_verified"
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.VerificationRequest{}).
			Where("id = ? AND status = ?", req.ID, models.VerificationPending).
			Where(guard.query, guard.args...).
			Updates(map[string]any{
				"status":      models.VerificationVerified,
				"verified":    true,
				"verified_at": verifiedAt,
				"otp_hash":    nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidOrExpiredOTP
		}

		userResult := tx.Model(&models.User{}).Where("id = ?", req.UserID).Update(flag, true)
		if userResult.Error != nil {
			return userResult.Error
		}
		if userResult.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredOTP) {
			return nil, s.reject(target, "raced")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Wrap(err, "failed to verify OTP")
	}

	s.throttle.resetAttempts(ctx, key)
	metrics.OTPEvents.WithLabelValues(target.label(), "verified").Inc()
	s.log.Info("verification code accepted", zap.String("user_id", req.UserID), target.masked())

	req.Status = models.VerificationVerified
	req.Verified = true
	req.VerifiedAt = &verifiedAt
	req.OTPHash = nil
	return req, nil
}

type clause struct {
	query string
	args  []any
}

func (s *VerificationService) checkEmailCode(req *models.VerificationRequest, target channelTarget, code string) (clause, error) {
	if req.OTPHash == nil || req.OTPExpiry == nil {
		return clause{}, s.reject(target, "missing_code")
	}
	if !otp.IsWellFormed(code, s.generator.Length()) {
		return clause{}, s.reject(target, "malformed")
	}
	if s.now().After(*req.OTPExpiry) {
		return clause{}, s.reject(target, "expired")
	}
	if !crypto.ConstantTimeEqual(*req.OTPHash, crypto.HashToken(code)) {
		return clause{}, s.reject(target, "mismatch")
	}
	return clause{query: "otp_hash = ?", args: []any{*req.OTPHash}}, nil
}

func (s *VerificationService) checkPhoneCode(ctx context.Context, req *models.VerificationRequest, target channelTarget, code string) (clause, error) {
	if req.PinID == nil || *req.PinID == "" {
		return clause{}, s.reject(target, "missing_pin")
	}
	if code == "" {
		return clause{}, s.reject(target, "malformed")
	}
	if s.sms == nil {
		return clause{}, ErrDeliveryFailed.WithInternal(sms.ErrSMSDisabled)
	}

	result, err := s.sms.VerifyOTP(ctx, *req.PinID, code)
	if err != nil {
		metrics.DeliveryFailures.WithLabelValues(target.label()).Inc()
		s.log.Warn("sms pin verification failed", target.masked(), zap.Error(err))
		return clause{}, ErrDeliveryFailed.WithInternal(err)
	}
	if !result.Verified {
		return clause{}, s.reject(target, "provider_rejected")
	}
	return clause{query: "pin_id = ?", args: []any{*req.PinID}}, nil
}

func (s *VerificationService) reject(target channelTarget, reason string) error {
	metrics.OTPEvents.WithLabelValues(target.label(), "rejected").Inc()
	s.log.Debug("verification code rejected", zap.String("reason", reason), target.masked())
	return ErrInvalidOrExpiredOTP
}

func (s *VerificationService) findUser(ctx context.Context, target channelTarget) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(target.column()+" = ?", target.value).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load user")
	}
	return &user, nil
}

func (s *VerificationService) findRequest(ctx context.Context, db *gorm.DB, target channelTarget) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	if err := db.WithContext(ctx).Where(target.column()+" = ?", target.value).Take(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func channelVerified(user *models.User, target channelTarget) bool {
	if target.kind == models.ChannelPhone {
		return user.PhoneVerified
	}
	return user.EmailVerified
}

// resolveChannel validates the email/phone choice and normalises the value.
// Phone numbers are always stored and looked up in international form.
func resolveChannel(in ChannelInput) (channelTarget, error) {
	email := normaliseEmail(in.Email)
	rawPhone := strings.TrimSpace(in.Phone)

	switch {
	case email != "" && rawPhone != "":
		return channelTarget{}, ErrChannelRequired
	case email != "":
		return channelTarget{kind: models.ChannelEmail, value: email}, nil
	case rawPhone != "":
		normalised, err := phone.Normalize(rawPhone, in.Country)
		if err != nil {
			return channelTarget{}, ErrInvalidPhone.WithInternal(err)
		}
		return channelTarget{kind: models.ChannelPhone, value: normalised}, nil
	}
	return channelTarget{}, ErrChannelRequired
}
