package observability

import (
	"github.com/tendapos/auth-service/internal/logging"
)

// Logger returns the global safe logger instance. Before InitLogger runs it
// returns a no-op logger rather than a typed nil.
func Logger() *logging.SafeLogger {
	if logging.Logger == nil {
		return logging.NewSafeLogger(nil)
	}
	return logging.Logger
}

// MaskPhone masks a canonical phone number for logging, keeping the calling
// code and the last two digits.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return "********"
	}
	return phone[:4] + "******" + phone[len(phone)-2:]
}
