package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/utils"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []utils.AuditEntry
}

func (s *recordingSink) Write(_ context.Context, entries []utils.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func newAuditedRouter(trail *utils.AuditTrail) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Audit(trail))
	router.POST("/v1/auth/otp/request", func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false})
	})
	router.POST("/v1/auth/pin/verify", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	router.GET("/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	return router
}

func TestAuditRecordsAuthAttempts(t *testing.T) {
	sink := &recordingSink{}
	trail := utils.NewAuditTrail(sink, 16, logging.NewSafeLogger(nil))
	router := newAuditedRouter(trail)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/otp/request",
		strings.NewReader(`{"phone":"+233241234567","country":"GH"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	trail.Close()

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, utils.AuditActionOTPRequest, entry.Action)
	assert.Equal(t, http.StatusTooManyRequests, entry.Status)
	assert.NotContains(t, entry.Phone, "241234567", "phone must be masked")
	assert.NotEmpty(t, entry.Phone)
}

func TestAuditPreservesRequestBody(t *testing.T) {
	sink := &recordingSink{}
	trail := utils.NewAuditTrail(sink, 16, logging.NewSafeLogger(nil))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Audit(trail))

	var seenPhone string
	router.POST("/v1/auth/pin/verify", func(c *gin.Context) {
		var body struct {
			Phone string `json:"phone"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		seenPhone = body.Phone
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/pin/verify",
		strings.NewReader(`{"phone":"+233241234567","country":"GH","pin":"2580"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+233241234567", seenPhone, "handler must still see the body")
	trail.Close()
}

func TestAuditSkipsUnauditedPaths(t *testing.T) {
	sink := &recordingSink{}
	trail := utils.NewAuditTrail(sink, 16, logging.NewSafeLogger(nil))
	router := newAuditedRouter(trail)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	trail.Close()
	assert.Empty(t, sink.entries)
}
