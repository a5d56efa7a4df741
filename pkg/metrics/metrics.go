package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by method (password|google) and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ajarra_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	// OTPEvents counts ledger transitions per channel (email|phone) and event (issued|resent|verified|rejected).
	OTPEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ajarra_otp_events_total",
			Help: "Total number of OTP ledger events",
		},
		[]string{"channel", "event"},
	)

	// DeliveryFailures counts failed calls to the email and SMS providers.
	DeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ajarra_delivery_failures_total",
			Help: "Total number of failed outbound deliveries",
		},
		[]string{"channel"},
	)

	// PasswordResets counts reset lifecycle events (requested|consumed|rejected).
	PasswordResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ajarra_password_resets_total",
			Help: "Total number of password reset events",
		},
		[]string{"event"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ajarra_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
