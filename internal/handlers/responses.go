package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tendapos/auth-service/internal/models"
)

// ErrorResponse is the failure envelope. Non-security details that aid
// legitimate users (wait time, unlock time, attempts remaining) are the only
// extras ever included.
type ErrorResponse struct {
	Success           bool       `json:"success"`
	Error             string     `json:"error"`
	WaitSeconds       *int       `json:"wait_seconds,omitempty"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	AttemptsRemaining *int       `json:"attempts_remaining,omitempty"`
}

// IssueOTPResponse confirms a code was issued. Code is populated in the
// development environment only.
type IssueOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SessionResponse returns a bridged session after OTP or PIN verification.
type SessionResponse struct {
	Success           bool            `json:"success"`
	Session           *models.Session `json:"session"`
	UserID            string          `json:"user_id"`
	NeedsProfileSetup bool            `json:"needs_profile_setup"`
}

// SetPINResponse confirms a PIN update.
type SetPINResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// writeError maps an error onto the envelope, collapsing anything that is
// not an AuthError into a generic internal failure.
func writeError(c *gin.Context, err error) {
	ae := models.AsAuthError(err)

	resp := ErrorResponse{Success: false, Error: ae.Message}
	if ae.Kind == models.KindRateLimited {
		wait := ae.WaitSeconds
		resp.WaitSeconds = &wait
	}
	resp.LockedUntil = ae.LockedUntil
	resp.AttemptsRemaining = ae.AttemptsRemaining

	c.JSON(ae.HTTPStatus(), resp)
}
