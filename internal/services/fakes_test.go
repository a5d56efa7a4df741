package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
	testutil "github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database/testutil"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/crypto"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/mail"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/sms"
)

type sentCode struct {
	to      Recipient
	code    string
	welcome bool
}

type sentReset struct {
	to    Recipient
	token string
}

type fakeNotifier struct {
	mu     sync.Mutex
	codes  []sentCode
	resets []sentReset
	err    error
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, to Recipient, code string, welcome bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.codes = append(f.codes, sentCode{to: to, code: code, welcome: welcome})
	return nil
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, to Recipient, rawToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, sentReset{to: to, token: rawToken})
	return nil
}

func (f *fakeNotifier) lastCode(t *testing.T) sentCode {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.codes, "no verification code sent")
	return f.codes[len(f.codes)-1]
}

func (f *fakeNotifier) lastReset(t *testing.T) sentReset {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.resets, "no reset email sent")
	return f.resets[len(f.resets)-1]
}

// fakeSMS hands out sequential pin ids that all accept the same code.
type fakeSMS struct {
	mu        sync.Mutex
	sentTo    []string
	pins      map[string]string
	code      string
	sendErr   error
	verifyErr error
}

func newFakeSMS() *fakeSMS {
	return &fakeSMS{pins: map[string]string{}, code: "482913"}
}

func (f *fakeSMS) SendOTP(_ context.Context, to string, _ sms.SendOptions) (sms.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return sms.SendResult{}, f.sendErr
	}
	f.sentTo = append(f.sentTo, to)
	pinID := fmt.Sprintf("pin-%d", len(f.sentTo))
	f.pins[pinID] = f.code
	return sms.SendResult{Status: "Message Sent", PinID: pinID, To: to}, nil
}

func (f *fakeSMS) VerifyOTP(_ context.Context, pinID, code string) (sms.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return sms.VerifyResult{}, f.verifyErr
	}
	expected, ok := f.pins[pinID]
	if !ok || expected != code {
		return sms.VerifyResult{Verified: false, Reason: "Invalid"}, nil
	}
	return sms.VerifyResult{Verified: true, MSISDN: pinID}, nil
}

type recordingMailer struct {
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) (mail.Receipt, error) {
	if m.err != nil {
		return mail.Receipt{}, m.err
	}
	m.messages = append(m.messages, msg)
	return mail.Receipt{}, nil
}

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

type verificationHarness struct {
	db       *gorm.DB
	svc      *VerificationService
	notifier *fakeNotifier
	sms      *fakeSMS
	clock    *testClock
}

func newVerificationHarness(t *testing.T, cfg VerificationConfig) *verificationHarness {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	h := &verificationHarness{
		db:       db,
		notifier: &fakeNotifier{},
		sms:      newFakeSMS(),
		clock:    newTestClock(),
	}
	svc, err := NewVerificationService(db, h.notifier, h.sms, cache.NewDatabaseStore(db), cfg, WithVerificationClock(h.clock.Now))
	require.NoError(t, err)
	h.svc = svc
	return h
}

func createUser(t *testing.T, db *gorm.DB, email, phoneNumber string) *models.User {
	t.Helper()
	hash, err := crypto.HashPassword("Secret123!")
	require.NoError(t, err)
	user := &models.User{FirstName: "Amaka", LastName: "Eze", Password: hash, Role: models.RoleClient}
	if email != "" {
		user.Email = &email
	}
	if phoneNumber != "" {
		user.Phone = &phoneNumber
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.Take(&user, "id = ?", id).Error)
	return user
}
