package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// ErrSMTPDisabled signals that SMTP delivery is disabled via configuration.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// Message represents an outbound email. At least one of Text or HTML must be set;
// when both are present the HTML part is sent as an alternative.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Receipt describes an accepted delivery.
type Receipt struct {
	MessageID  string
	Provider   string
	AcceptedAt time.Time
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// SMTPSettings capture the runtime configuration required by the SMTP mailer.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

type sendFunc func(cfg SMTPSettings, msg *gomail.Message) error

type smtpMailer struct {
	cfg    SMTPSettings
	sendFn sendFunc
	now    func() time.Time
}

// NewSMTPMailer builds a Mailer backed by gomail's SMTP dialer.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if err := validateSMTPConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &smtpMailer{
		cfg:    cfg,
		sendFn: dialAndSend,
		now:    time.Now,
	}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) (Receipt, error) {
	if !m.cfg.Enabled {
		return Receipt{}, ErrSMTPDisabled
	}

	built, messageID, err := m.build(msg)
	if err != nil {
		return Receipt{}, err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.sendFn(m.cfg, built)
	}()

	select {
	case <-ctx.Done():
		return Receipt{}, fmt.Errorf("smtp: send: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return Receipt{}, fmt.Errorf("smtp: send: %w", err)
		}
	}

	return Receipt{
		MessageID:  messageID,
		Provider:   "smtp",
		AcceptedAt: m.now().UTC(),
	}, nil
}

func (m *smtpMailer) build(msg Message) (*gomail.Message, string, error) {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return nil, "", errors.New("smtp: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}
	if from == "" {
		return nil, "", errors.New("smtp: sender address is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, "", fmt.Errorf("smtp: invalid from address: %w", err)
	}
	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return nil, "", fmt.Errorf("smtp: invalid recipient address %q: %w", rcpt, err)
		}
	}

	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) == "" {
		return nil, "", errors.New("smtp: message body is required")
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host)

	out := gomail.NewMessage()
	out.SetHeader("From", from)
	out.SetHeader("To", recipients...)
	out.SetHeader("Subject", escapeHeader(msg.Subject))
	out.SetHeader("Message-ID", messageID)

	switch {
	case msg.Text != "" && msg.HTML != "":
		out.SetBody("text/plain", msg.Text)
		out.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		out.SetBody("text/html", msg.HTML)
	default:
		out.SetBody("text/plain", msg.Text)
	}

	return out, messageID, nil
}

func dialAndSend(cfg SMTPSettings, msg *gomail.Message) error {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.UseTLS
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	return dialer.DialAndSend(msg)
}

func validateSMTPConfig(cfg SMTPSettings) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return errors.New("smtp: host is required when enabled")
	}
	if cfg.Port == 0 {
		return errors.New("smtp: port is required when enabled")
	}
	return nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
