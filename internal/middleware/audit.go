package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tendapos/auth-service/internal/observability"
	"github.com/tendapos/auth-service/internal/utils"
)

// auditActions maps the auth endpoints to their audit action names. Paths
// outside the table are not audited.
var auditActions = map[string]string{
	"/v1/auth/otp/request": utils.AuditActionOTPRequest,
	"/v1/auth/otp/verify":  utils.AuditActionOTPVerify,
	"/v1/auth/pin":         utils.AuditActionPINSet,
	"/v1/auth/pin/verify":  utils.AuditActionPINVerify,
}

// Audit records every authentication attempt, successful or not, to the
// audit trail. The phone number is masked before it leaves the request path.
func Audit(trail *utils.AuditTrail) gin.HandlerFunc {
	return func(c *gin.Context) {
		action, ok := auditActions[c.Request.URL.Path]
		if !ok || c.Request.Method != "POST" {
			c.Next()
			return
		}

		phone := maskedPhoneFromBody(c)

		c.Next()

		trail.Record(utils.AuditEntry{
			Action:    action,
			Phone:     phone,
			UserID:    c.GetString(ContextUserID),
			Status:    c.Writer.Status(),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: c.GetString("RequestID"),
			Timestamp: time.Now().UTC(),
		})
	}
}

// maskedPhoneFromBody peeks at the request body for a phone field, restoring
// the body for the handler.
func maskedPhoneFromBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var probe struct {
		Phone string `json:"phone"`
	}
	if json.Unmarshal(bodyBytes, &probe) != nil || probe.Phone == "" {
		return ""
	}
	return observability.MaskPhone(probe.Phone)
}
