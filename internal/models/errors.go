package models

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies an AuthError for boundary handling. Security-relevant
// causes (why a code or PIN failed) are collapsed into generic messages;
// only non-security details (wait time, unlock time, attempts remaining)
// carry extra fields.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindRateLimited
	KindNotFoundOrInvalid
	KindLocked
	KindUpstreamFailure
	KindInternal
)

// AuthError is the error taxonomy for the authentication subsystem. Every
// failure path in the services terminates in one of these.
type AuthError struct {
	Kind    ErrorKind
	Message string

	// WaitSeconds is set for KindRateLimited
	WaitSeconds int
	// LockedUntil is set for KindLocked
	LockedUntil *time.Time
	// AttemptsRemaining is set on failed PIN comparisons
	AttemptsRemaining *int
}

func (e *AuthError) Error() string {
	return e.Message
}

// HTTPStatus maps the error kind to the status the boundary should return.
func (e *AuthError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFoundOrInvalid:
		if e.AttemptsRemaining != nil {
			return http.StatusBadRequest
		}
		return http.StatusNotFound
	case KindLocked:
		return http.StatusLocked
	case KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError reports malformed or missing input; safe to show verbatim.
func NewValidationError(format string, args ...interface{}) *AuthError {
	return &AuthError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewRateLimitedError carries the remaining cooldown in whole seconds.
func NewRateLimitedError(waitSeconds int) *AuthError {
	return &AuthError{
		Kind:        KindRateLimited,
		Message:     fmt.Sprintf("please wait %d seconds before requesting a new code", waitSeconds),
		WaitSeconds: waitSeconds,
	}
}

// NewInvalidCodeError is deliberately generic: wrong, expired and already
// used codes are indistinguishable to the caller.
func NewInvalidCodeError() *AuthError {
	return &AuthError{Kind: KindNotFoundOrInvalid, Message: "invalid or expired code"}
}

// NewNotFoundError reports an unknown account without detailing why.
func NewNotFoundError(message string) *AuthError {
	return &AuthError{Kind: KindNotFoundOrInvalid, Message: message}
}

// NewPINMismatchError reports a failed PIN comparison with the attempts left
// before lockout.
func NewPINMismatchError(attemptsRemaining int) *AuthError {
	return &AuthError{
		Kind:              KindNotFoundOrInvalid,
		Message:           "incorrect PIN",
		AttemptsRemaining: &attemptsRemaining,
	}
}

// NewLockedError reports an active lockout and when it ends.
func NewLockedError(lockedUntil time.Time, attemptsRemaining *int) *AuthError {
	return &AuthError{
		Kind:              KindLocked,
		Message:           "too many failed attempts, account temporarily locked",
		LockedUntil:       &lockedUntil,
		AttemptsRemaining: attemptsRemaining,
	}
}

// NewUpstreamError reports a retryable provider or auth-backend failure.
func NewUpstreamError(message string) *AuthError {
	return &AuthError{Kind: KindUpstreamFailure, Message: message}
}

// NewInternalError hides storage or auth-primitive errors behind a generic
// message; the underlying error is logged server-side only.
func NewInternalError() *AuthError {
	return &AuthError{Kind: KindInternal, Message: "internal error, please try again"}
}

// AsAuthError extracts an AuthError, or wraps unknown errors as internal.
func AsAuthError(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return NewInternalError()
}
