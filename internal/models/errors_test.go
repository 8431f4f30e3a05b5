package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthErrorHTTPStatus(t *testing.T) {
	locked := time.Now().Add(15 * time.Minute)

	tests := []struct {
		name     string
		err      *AuthError
		expected int
	}{
		{
			name:     "validation",
			err:      NewValidationError("phone and country are required"),
			expected: http.StatusBadRequest,
		},
		{
			name:     "rate limited",
			err:      NewRateLimitedError(42),
			expected: http.StatusTooManyRequests,
		},
		{
			name:     "invalid code",
			err:      NewInvalidCodeError(),
			expected: http.StatusNotFound,
		},
		{
			name:     "account not found",
			err:      NewNotFoundError("account not found"),
			expected: http.StatusNotFound,
		},
		{
			name:     "pin mismatch reports bad request with attempts",
			err:      NewPINMismatchError(3),
			expected: http.StatusBadRequest,
		},
		{
			name:     "locked",
			err:      NewLockedError(locked, nil),
			expected: http.StatusLocked,
		},
		{
			name:     "upstream",
			err:      NewUpstreamError("failed to establish session, please try again"),
			expected: http.StatusBadGateway,
		},
		{
			name:     "internal",
			err:      NewInternalError(),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.HTTPStatus())
		})
	}
}

func TestAuthErrorDetails(t *testing.T) {
	rate := NewRateLimitedError(30)
	assert.Equal(t, 30, rate.WaitSeconds)

	mismatch := NewPINMismatchError(2)
	require.NotNil(t, mismatch.AttemptsRemaining)
	assert.Equal(t, 2, *mismatch.AttemptsRemaining)
	assert.Equal(t, "incorrect PIN", mismatch.Message)

	until := time.Now().Add(15 * time.Minute)
	zero := 0
	locked := NewLockedError(until, &zero)
	require.NotNil(t, locked.LockedUntil)
	assert.Equal(t, until, *locked.LockedUntil)
	require.NotNil(t, locked.AttemptsRemaining)
	assert.Zero(t, *locked.AttemptsRemaining)

	// Invalid code and expired code share one message so callers cannot
	// probe which codes exist.
	assert.Equal(t, "invalid or expired code", NewInvalidCodeError().Message)
}

func TestAsAuthError(t *testing.T) {
	ae := NewValidationError("bad input")
	assert.Same(t, ae, AsAuthError(ae))

	wrapped := fmt.Errorf("handler: %w", ae)
	assert.Same(t, ae, AsAuthError(wrapped))

	plain := errors.New("mongo: connection reset")
	got := AsAuthError(plain)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus())
}
