package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/middleware"
	"github.com/tendapos/auth-service/internal/models"
	"github.com/tendapos/auth-service/internal/services"
)

// IssueOTPRequest is the body for requesting a verification code.
type IssueOTPRequest struct {
	Phone   string         `json:"phone" binding:"required"`
	Country string         `json:"country" binding:"required"`
	Purpose models.Purpose `json:"purpose"`
}

// VerifyOTPRequest is the body for submitting a verification code.
type VerifyOTPRequest struct {
	Phone   string         `json:"phone" binding:"required"`
	Country string         `json:"country" binding:"required"`
	OTP     string         `json:"otp" binding:"required"`
	Purpose models.Purpose `json:"purpose"`
}

// SetPINRequest is the body for setting a PIN (authenticated).
type SetPINRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// VerifyPINRequest is the body for verifying a PIN.
type VerifyPINRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Country string `json:"country" binding:"required"`
	PIN     string `json:"pin" binding:"required"`
}

// AuthHandler exposes the phone/PIN authentication endpoints.
type AuthHandler struct {
	otp    *services.OTPService
	pin    *services.PINService
	logger *logging.SafeLogger
}

// NewAuthHandler creates the handler over the injected services.
func NewAuthHandler(otp *services.OTPService, pin *services.PINService, logger *logging.SafeLogger) *AuthHandler {
	return &AuthHandler{otp: otp, pin: pin, logger: logger}
}

// RequestOTP godoc
// @Summary Request a verification code
// @Description Issues a one-time code to the given phone via SMS, subject to a per-phone cooldown
// @Tags auth
// @Accept json
// @Produce json
// @Param data body IssueOTPRequest true "Phone, country and optional purpose"
// @Success 200 {object} IssueOTPResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /auth/otp/request [post]
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req IssueOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewValidationError("invalid request body: %s", err.Error()))
		return
	}

	result, err := h.otp.Issue(c.Request.Context(), req.Phone, req.Country, req.Purpose)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, IssueOTPResponse{
		Success: true,
		Message: result.Message,
		Code:    result.DevCode,
	})
}

// VerifyOTP godoc
// @Summary Verify a code and obtain a session
// @Description Consumes the outstanding code for the phone and bridges the identity into a session
// @Tags auth
// @Accept json
// @Produce json
// @Param data body VerifyOTPRequest true "Phone, country, 6-digit code and optional purpose"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewValidationError("invalid request body: %s", err.Error()))
		return
	}

	result, err := h.otp.Verify(c.Request.Context(), req.Phone, req.Country, req.OTP, req.Purpose)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Success:           true,
		Session:           result.Session,
		UserID:            result.UserID,
		NeedsProfileSetup: result.NeedsProfileSetup,
	})
}

// SetPIN godoc
// @Summary Set the caller's PIN
// @Description Stores a new PIN for the authenticated user, resetting any lockout
// @Tags auth
// @Accept json
// @Produce json
// @Param data body SetPINRequest true "New 4-6 digit PIN"
// @Security BearerAuth
// @Success 200 {object} SetPINResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/pin [post]
func (h *AuthHandler) SetPIN(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Success: false, Error: "authentication required"})
		return
	}

	var req SetPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewValidationError("invalid request body: %s", err.Error()))
		return
	}

	updatedAt, err := h.pin.Set(c.Request.Context(), userID, req.PIN)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SetPINResponse{
		Success:   true,
		Message:   "PIN updated",
		UpdatedAt: updatedAt,
	})
}

// VerifyPIN godoc
// @Summary Verify a PIN and obtain a session
// @Description Checks the PIN for a phone-identified user, enforcing the failed-attempt lockout
// @Tags auth
// @Accept json
// @Produce json
// @Param data body VerifyPINRequest true "Phone, country and PIN"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Router /auth/pin/verify [post]
func (h *AuthHandler) VerifyPIN(c *gin.Context) {
	var req VerifyPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewValidationError("invalid request body: %s", err.Error()))
		return
	}

	result, err := h.pin.Verify(c.Request.Context(), req.Phone, req.Country, req.PIN)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Success:           true,
		Session:           result.Session,
		UserID:            result.UserID,
		NeedsProfileSetup: result.NeedsProfileSetup,
	})
}
