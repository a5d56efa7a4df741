package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	termiiSendPath   = "/api/sms/otp/send"
	termiiVerifyPath = "/api/sms/otp/verify"
	termiiSent       = "Message Sent"
	pinPlaceholder   = "< 1234 >"
)

// TermiiSettings configure the Termii token API client.
type TermiiSettings struct {
	Enabled     bool
	BaseURL     string
	APIKey      string
	SenderID    string
	Channel     string
	PinAttempts int
	PinTTL      time.Duration
	PinLength   int
	Timeout     time.Duration
}

// TermiiClient implements Provider against the Termii token API.
type TermiiClient struct {
	cfg  TermiiSettings
	http *http.Client
}

// TermiiOption customises a TermiiClient.
type TermiiOption func(*TermiiClient)

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) TermiiOption {
	return func(c *TermiiClient) {
		if client != nil {
			c.http = client
		}
	}
}

// NewTermiiClient validates settings and applies defaults.
func NewTermiiClient(cfg TermiiSettings, opts ...TermiiOption) (*TermiiClient, error) {
	if cfg.Enabled {
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, errors.New("termii: base url is required when enabled")
		}
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("termii: api key is required when enabled")
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SenderID == "" {
		cfg.SenderID = "N-Alert"
	}
	if cfg.Channel == "" {
		cfg.Channel = "dnd"
	}
	if cfg.PinAttempts <= 0 {
		cfg.PinAttempts = 10
	}
	if cfg.PinTTL <= 0 {
		cfg.PinTTL = 10 * time.Minute
	}
	if cfg.PinLength <= 0 {
		cfg.PinLength = 6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := &TermiiClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type termiiSendRequest struct {
	APIKey         string `json:"api_key"`
	MessageType    string `json:"message_type"`
	To             string `json:"to"`
	From           string `json:"from"`
	Channel        string `json:"channel"`
	PinAttempts    int    `json:"pin_attempts"`
	PinTimeToLive  int    `json:"pin_time_to_live"`
	PinLength      int    `json:"pin_length"`
	PinPlaceholder string `json:"pin_placeholder"`
	MessageText    string `json:"message_text"`
	PinType        string `json:"pin_type"`
}

type termiiSendResponse struct {
	PinID     string `json:"pinId"`
	To        string `json:"to"`
	SMSStatus string `json:"smsStatus"`
	Message   string `json:"message"`
}

type termiiVerifyRequest struct {
	APIKey string `json:"api_key"`
	PinID  string `json:"pin_id"`
	Pin    string `json:"pin"`
}

type termiiVerifyResponse struct {
	PinID    string     `json:"pinId"`
	Verified flexString `json:"verified"`
	MSISDN   string     `json:"msisdn"`
	Message  string     `json:"message"`
}

// flexString accepts JSON strings, booleans and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.Trim(string(data), `"`))
	return nil
}

// SendOTP asks Termii to generate and deliver a pin to the international number.
func (c *TermiiClient) SendOTP(ctx context.Context, to string, opts SendOptions) (SendResult, error) {
	if !c.cfg.Enabled {
		return SendResult{}, ErrSMSDisabled
	}

	length := opts.PinLength
	if length <= 0 {
		length = c.cfg.PinLength
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.cfg.PinTTL
	}
	attempts := opts.PinAttempts
	if attempts <= 0 {
		attempts = c.cfg.PinAttempts
	}
	minutes := int(ttl / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	text := opts.MessageText
	if text == "" {
		text = fmt.Sprintf("Hey there, Ajarra will like to verify your phone number. Your confirmation code is %s. The code expires in %d minutes.", pinPlaceholder, minutes)
	}

	body := termiiSendRequest{
		APIKey:         c.cfg.APIKey,
		MessageType:    "NUMERIC",
		To:             to,
		From:           c.cfg.SenderID,
		Channel:        c.cfg.Channel,
		PinAttempts:    attempts,
		PinTimeToLive:  minutes,
		PinLength:      length,
		PinPlaceholder: pinPlaceholder,
		MessageText:    text,
		PinType:        "NUMERIC",
	}

	var resp termiiSendResponse
	status, err := c.post(ctx, termiiSendPath, body, &resp)
	if err != nil {
		return SendResult{}, err
	}
	if status >= http.StatusBadRequest {
		return SendResult{}, fmt.Errorf("%w: send returned %d: %s", ErrProvider, status, resp.Message)
	}
	if resp.SMSStatus != termiiSent || resp.PinID == "" {
		return SendResult{}, fmt.Errorf("%w: unexpected sms status %q", ErrProvider, resp.SMSStatus)
	}

	return SendResult{Status: resp.SMSStatus, PinID: resp.PinID, To: resp.To}, nil
}

// VerifyOTP checks a pin against Termii. Client errors (wrong, expired or
// exhausted pins) come back as an unverified result rather than an error.
func (c *TermiiClient) VerifyOTP(ctx context.Context, pinID, code string) (VerifyResult, error) {
	if !c.cfg.Enabled {
		return VerifyResult{}, ErrSMSDisabled
	}
	if pinID == "" || code == "" {
		return VerifyResult{Reason: "pin id and code are required"}, nil
	}

	var resp termiiVerifyResponse
	status, err := c.post(ctx, termiiVerifyPath, termiiVerifyRequest{
		APIKey: c.cfg.APIKey,
		PinID:  pinID,
		Pin:    code,
	}, &resp)
	if err != nil {
		return VerifyResult{}, err
	}
	if status >= http.StatusInternalServerError {
		return VerifyResult{}, fmt.Errorf("%w: verify returned %d", ErrProvider, status)
	}

	verified, _ := strconv.ParseBool(strings.TrimSpace(string(resp.Verified)))
	result := VerifyResult{Verified: verified && status < http.StatusBadRequest, MSISDN: resp.MSISDN}
	if !result.Verified {
		result.Reason = resp.Message
		if result.Reason == "" {
			result.Reason = string(resp.Verified)
		}
	}
	return result, nil
}

func (c *TermiiClient) post(ctx context.Context, path string, payload any, out any) (int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("termii: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("termii: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return res.StatusCode, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil && res.StatusCode < http.StatusBadRequest {
			return res.StatusCode, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
		}
	}
	return res.StatusCode, nil
}
