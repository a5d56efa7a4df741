package services

import (
	"bytes"
	"context"
	"errors"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/mail"
)

// NotifierConfig controls the links and validity text embedded in emails.
type NotifierConfig struct {
	FrontendURL string
	OTPValidity time.Duration
	ResetTTL    time.Duration
}

// Recipient identifies who an email is addressed to.
type Recipient struct {
	UserID    string
	Email     string
	FirstName string
}

// Notifier renders and sends the transactional emails of the auth flows.
type Notifier interface {
	SendVerificationCode(ctx context.Context, to Recipient, code string, welcome bool) error
	SendPasswordReset(ctx context.Context, to Recipient, rawToken string) error
}

// EmailNotifier implements Notifier on top of a mail.Mailer.
type EmailNotifier struct {
	mailer mail.Mailer
	cfg    NotifierConfig
}

type emailTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

type emailData struct {
	Name        string
	UserID      string
	Code        string
	Link        string
	ValidityMin int
}

var (
	welcomeEmail = emailTemplate{
		subject: "Welcome to Ajarra Marketplace!",
		text:    texttemplate.Must(texttemplate.New("welcome.txt").Parse(welcomeText)),
		html:    htmltemplate.Must(htmltemplate.New("welcome.html").Parse(welcomeHTML)),
	}
	codeEmail = emailTemplate{
		subject: "Your Ajarra verification code",
		text:    texttemplate.Must(texttemplate.New("code.txt").Parse(codeText)),
		html:    htmltemplate.Must(htmltemplate.New("code.html").Parse(codeHTML)),
	}
	resetEmail = emailTemplate{
		subject: "Ajarra Password Reset Request",
		text:    texttemplate.Must(texttemplate.New("reset.txt").Parse(resetText)),
		html:    htmltemplate.Must(htmltemplate.New("reset.html").Parse(resetHTML)),
	}
)

// NewEmailNotifier constructs an EmailNotifier.
func NewEmailNotifier(mailer mail.Mailer, cfg NotifierConfig) (*EmailNotifier, error) {
	if mailer == nil {
		return nil, errors.New("notifier: mailer is required")
	}
	cfg.FrontendURL = strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/")
	return &EmailNotifier{mailer: mailer, cfg: cfg}, nil
}

// SendVerificationCode emails an OTP together with a link to the verification page.
func (n *EmailNotifier) SendVerificationCode(ctx context.Context, to Recipient, code string, welcome bool) error {
	tpl := codeEmail
	if welcome {
		tpl = welcomeEmail
	}
	return n.send(ctx, to.Email, tpl, emailData{
		Name:        displayName(to),
		UserID:      to.UserID,
		Code:        code,
		Link:        n.cfg.FrontendURL + "/auth/verify-otp?email=" + url.QueryEscape(to.Email),
		ValidityMin: minutes(n.cfg.OTPValidity),
	})
}

// SendPasswordReset emails the one-time reset link.
func (n *EmailNotifier) SendPasswordReset(ctx context.Context, to Recipient, rawToken string) error {
	return n.send(ctx, to.Email, resetEmail, emailData{
		Name:        displayName(to),
		UserID:      to.UserID,
		Link:        n.cfg.FrontendURL + "/reset-password/" + url.PathEscape(rawToken),
		ValidityMin: minutes(n.cfg.ResetTTL),
	})
}

func (n *EmailNotifier) send(ctx context.Context, to string, tpl emailTemplate, data emailData) error {
	var text, html bytes.Buffer
	if err := tpl.text.Execute(&text, data); err != nil {
		return err
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return err
	}

	_, err := n.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: tpl.subject,
		Text:    text.String(),
		HTML:    html.String(),
	})
	return err
}

func displayName(to Recipient) string {
	if name := strings.TrimSpace(to.FirstName); name != "" {
		return name
	}
	return "there"
}

func minutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	m := int(d / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

const welcomeText = `Hi {{.Name}},

Welcome to Ajarra Marketplace! We're excited to have you join our platform for discovering, booking, and managing top vendors and services for your events and business needs.

Your OTP is: {{.Code}}
{{if .ValidityMin}}It expires in {{.ValidityMin}} minutes.
{{end}}
Verify your email: {{.Link}}

Your user ID is: {{.UserID}}

Best regards,
The Ajarra Team
`

const welcomeHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; background: #f9f6f2; border-radius: 8px; padding: 32px 24px;">
  <h2 style="color: #C97A40; margin-bottom: 8px;">Welcome to Ajarra Marketplace!</h2>
  <p style="color: #3A2E25;">Hi {{.Name}},</p>
  <p style="color: #3A2E25;">We're excited to have you join <strong>Ajarra</strong>, your platform for discovering, booking, and managing top vendors and services for your events.</p>
  <p style="color: #3A2E25;"><strong>Your OTP:</strong> <span style="font-size: 1.2em; color: #C97A40;">{{.Code}}</span></p>
  {{if .ValidityMin}}<p style="color: #3A2E25;">It expires in {{.ValidityMin}} minutes.</p>{{end}}
  <p><a href="{{.Link}}" style="background-color: #C97A40; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; font-weight: bold;">Verify Email</a></p>
  <p style="color: #3A2E25;"><strong>Your User ID:</strong> {{.UserID}}</p>
  <p style="color: #3A2E25;">Best regards,<br />The Ajarra Team</p>
</div>
`

const codeText = `Hi {{.Name}},

Your Ajarra verification code is: {{.Code}}
{{if .ValidityMin}}It expires in {{.ValidityMin}} minutes.
{{end}}
Verify your email: {{.Link}}

If you didn't request this code, you can ignore this email.

The Ajarra Team
`

const codeHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; background: #f9f6f2; border-radius: 8px; padding: 32px 24px;">
  <p style="color: #3A2E25;">Hi {{.Name}},</p>
  <p style="color: #3A2E25;"><strong>Your verification code:</strong> <span style="font-size: 1.2em; color: #C97A40;">{{.Code}}</span></p>
  {{if .ValidityMin}}<p style="color: #3A2E25;">It expires in {{.ValidityMin}} minutes.</p>{{end}}
  <p><a href="{{.Link}}" style="background-color: #C97A40; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; font-weight: bold;">Verify Email</a></p>
  <p style="color: #3A2E25;">If you didn't request this code, you can ignore this email.</p>
</div>
`

const resetText = `Hi {{.Name}},

You requested a password reset for your Ajarra account. Click the link below to reset your password:
{{.Link}}

This link is valid for {{.ValidityMin}} minutes. If you didn't request this, you can ignore the email.

Best regards,
The Ajarra Team
`

const resetHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; background: #f9f6f2; border-radius: 8px; padding: 32px 24px;">
  <h2 style="color: #C97A40;">Password Reset Request</h2>
  <p style="color: #3A2E25;">Hi {{.Name}},</p>
  <p style="color: #3A2E25;">You requested a password reset for your <strong>Ajarra</strong> account. Click below to reset your password:</p>
  <div style="margin: 30px 0;"><a href="{{.Link}}" style="background-color: #C97A40; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; font-weight: bold;">Reset Password</a></div>
  <p style="color: #3A2E25;">This link is valid for {{.ValidityMin}} minutes. If you didn't request this, you can ignore the email.</p>
  <p style="color: #3A2E25;">Best regards,<br />The Ajarra Team</p>
</div>
`
