package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pos_auth_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// OTPIssued tracks issued verification codes
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_auth_otp_issued_total",
			Help: "Number of verification codes issued",
		},
		[]string{"purpose", "country"},
	)

	// OTPSendFailures tracks SMS dispatch failures
	OTPSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_auth_otp_send_failures_total",
			Help: "Number of verification codes that could not be dispatched",
		},
		[]string{"country"},
	)

	// OTPVerifications tracks verification outcomes
	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_auth_otp_verifications_total",
			Help: "Number of verification attempts",
		},
		[]string{"status"},
	)

	// PINVerifications tracks PIN verification outcomes
	PINVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_auth_pin_verifications_total",
			Help: "Number of PIN verification attempts",
		},
		[]string{"status"},
	)

	// PINLockouts tracks accounts entering the locked state
	PINLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_auth_pin_lockouts_total",
			Help: "Number of PIN lockouts triggered",
		},
	)

	// SessionBridgeFailures tracks failures bridging verified identities
	// into backend sessions
	SessionBridgeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_auth_session_bridge_failures_total",
			Help: "Number of session bridge failures",
		},
		[]string{"stage"},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_auth_active_connections",
			Help: "Number of active connections",
		},
	)
)
