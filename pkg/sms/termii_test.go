package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTermiiTestClient(t *testing.T, handler http.HandlerFunc) *TermiiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewTermiiClient(TermiiSettings{
		Enabled: true,
		BaseURL: srv.URL + "/",
		APIKey:  "test-key",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewTermiiClientValidates(t *testing.T) {
	_, err := NewTermiiClient(TermiiSettings{Enabled: true})
	require.Error(t, err)

	client, err := NewTermiiClient(TermiiSettings{})
	require.NoError(t, err)
	_, err = client.SendOTP(context.Background(), "2348012345678", SendOptions{})
	require.ErrorIs(t, err, ErrSMSDisabled)
}

func TestTermiiSendOTP(t *testing.T) {
	var got map[string]any
	client := newTermiiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, termiiSendPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"pinId":     "pin-123",
			"to":        "2348012345678",
			"smsStatus": "Message Sent",
		})
	})

	res, err := client.SendOTP(context.Background(), "2348012345678", SendOptions{TTL: 5 * time.Minute})
	require.NoError(t, err)
	require.Equal(t, "pin-123", res.PinID)
	require.Equal(t, "Message Sent", res.Status)

	require.Equal(t, "test-key", got["api_key"])
	require.Equal(t, "2348012345678", got["to"])
	require.Equal(t, "NUMERIC", got["pin_type"])
	require.EqualValues(t, 6, got["pin_length"])
	require.EqualValues(t, 5, got["pin_time_to_live"])
	require.Contains(t, got["message_text"], pinPlaceholder)
}

func TestTermiiSendOTPProviderFailure(t *testing.T) {
	client := newTermiiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Insufficient balance"}`))
	})

	_, err := client.SendOTP(context.Background(), "2348012345678", SendOptions{})
	require.ErrorIs(t, err, ErrProvider)
	require.Contains(t, err.Error(), "Insufficient balance")
}

func TestTermiiVerifyOTP(t *testing.T) {
	client := newTermiiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body termiiVerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		verified := "False"
		if body.Pin == "123456" && body.PinID == "pin-123" {
			verified = "True"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"pinId":    body.PinID,
			"verified": verified,
			"msisdn":   "2348012345678",
		})
	})

	res, err := client.VerifyOTP(context.Background(), "pin-123", "123456")
	require.NoError(t, err)
	require.True(t, res.Verified)

	res, err = client.VerifyOTP(context.Background(), "pin-123", "000000")
	require.NoError(t, err)
	require.False(t, res.Verified)
}

func TestTermiiVerifyOTPExpiredPinIsNotAnError(t *testing.T) {
	client := newTermiiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"verified":"Expired","status":400}`))
	})

	res, err := client.VerifyOTP(context.Background(), "pin-123", "123456")
	require.NoError(t, err)
	require.False(t, res.Verified)
	require.Equal(t, "Expired", res.Reason)
}

func TestTermiiVerifyOTPServerError(t *testing.T) {
	client := newTermiiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.VerifyOTP(context.Background(), "pin-123", "123456")
	require.ErrorIs(t, err, ErrProvider)
}

func TestTermiiTimeout(t *testing.T) {
	client := newTermiiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	client.cfg.Timeout = 20 * time.Millisecond

	_, err := client.SendOTP(context.Background(), "2348012345678", SendOptions{})
	require.ErrorIs(t, err, ErrProvider)
}
