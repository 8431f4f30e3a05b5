package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendapos/auth-service/internal/config"
	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/middleware"
	"github.com/tendapos/auth-service/internal/models"
	"github.com/tendapos/auth-service/internal/redisclient"
	"github.com/tendapos/auth-service/internal/services"
)

const testJWTSecret = "handler-test-secret"

type stubGateway struct {
	sends []string
}

func (g *stubGateway) Send(_ context.Context, phone, _, _ string) bool {
	g.sends = append(g.sends, phone)
	return true
}

type stubAuthBackend struct {
	users map[string]string
}

func (b *stubAuthBackend) UpsertPasswordUser(_ context.Context, _, email, password string) error {
	b.users[email] = password
	return nil
}

func (b *stubAuthBackend) SignInWithPassword(_ context.Context, email, password string) (*models.Session, error) {
	if stored, ok := b.users[email]; !ok || stored != password {
		return nil, fmt.Errorf("auth backend sign-in failed with status 400")
	}
	return &models.Session{
		AccessToken:  "access-" + email,
		RefreshToken: "refresh-" + email,
		TokenType:    "bearer",
		ExpiresIn:    3600,
	}, nil
}

// newTestRouter wires the real services over in-memory stores, the way main
// wires them over Mongo and Redis.
func newTestRouter(t *testing.T, environment string) (*gin.Engine, *stubGateway, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:        environment,
		OTPHashSecret:      "handler-test-otp-secret",
		OTPCodeTTL:         5 * time.Minute,
		OTPIssueCooldown:   60 * time.Second,
		PINMaxAttempts:     5,
		PINLockoutDuration: 15 * time.Minute,
		AuthJWTSecret:      testJWTSecret,
	}
	logger := logging.NewSafeLogger(nil)

	mr := miniredis.RunT(t)
	rdb := redisclient.NewClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	gateway := &stubGateway{}
	backend := &stubAuthBackend{users: make(map[string]string)}
	bridge := services.NewSessionBridge(backend, logger)

	otpStore := services.NewMemoryOTPStore()
	identities := services.NewMemoryIdentityStore()
	creds := services.NewMemoryCredentialStore()

	otp := services.NewOTPService(cfg, otpStore, identities, creds, bridge, gateway, rdb, logger)
	pin := services.NewPINService(cfg, identities, creds, bridge, logger)
	handler := NewAuthHandler(otp, pin, logger)

	router := gin.New()
	v1 := router.Group("/v1")
	auth := v1.Group("/auth")
	auth.POST("/otp/request", handler.RequestOTP)
	auth.POST("/otp/verify", handler.VerifyOTP)
	auth.POST("/pin", middleware.RequireSession(cfg.AuthJWTSecret), handler.SetPIN)
	auth.POST("/pin/verify", handler.VerifyPIN)

	return router, gateway, mr
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func TestRequestOTPValidation(t *testing.T) {
	router, _, _ := newTestRouter(t, config.EnvDevelopment)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing phone", gin.H{"country": "GH", "purpose": "login"}},
		{"missing country", gin.H{"phone": "0241234567", "purpose": "login"}},
		{"empty body", gin.H{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/v1/auth/otp/request", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			decodeBody(t, w, &resp)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestRequestOTPUnknownPurpose(t *testing.T) {
	router, _, _ := newTestRouter(t, config.EnvDevelopment)

	w := postJSON(t, router, "/v1/auth/otp/request",
		gin.H{"phone": "0241234567", "country": "GH", "purpose": "takeover"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestOTPCooldown(t *testing.T) {
	router, gateway, mr := newTestRouter(t, config.EnvStaging)

	body := gin.H{"phone": "0241234567", "country": "GH", "purpose": "login"}

	w := postJSON(t, router, "/v1/auth/otp/request", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gateway.sends, 1)

	w = postJSON(t, router, "/v1/auth/otp/request", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	require.NotNil(t, resp.WaitSeconds)
	assert.Greater(t, *resp.WaitSeconds, 0)

	mr.FastForward(61 * time.Second)
	w = postJSON(t, router, "/v1/auth/otp/request", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gateway.sends, 2)
}

func TestFullOTPFlow(t *testing.T) {
	router, gateway, _ := newTestRouter(t, config.EnvDevelopment)

	w := postJSON(t, router, "/v1/auth/otp/request",
		gin.H{"phone": "0241234567", "country": "GH", "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var issued IssueOTPResponse
	decodeBody(t, w, &issued)
	require.True(t, issued.Success)
	require.Regexp(t, `^[0-9]{6}$`, issued.Code, "development responses carry the code")
	assert.Empty(t, gateway.sends, "development mode must not dispatch SMS")

	w = postJSON(t, router, "/v1/auth/otp/verify",
		gin.H{"phone": "0241234567", "country": "GH", "otp": issued.Code, "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var session SessionResponse
	decodeBody(t, w, &session)
	assert.True(t, session.Success)
	assert.NotEmpty(t, session.UserID)
	require.NotNil(t, session.Session)
	assert.NotEmpty(t, session.Session.AccessToken)
	assert.True(t, session.NeedsProfileSetup, "fresh identity needs profile setup")

	// Single use: the same code must not verify twice.
	w = postJSON(t, router, "/v1/auth/otp/verify",
		gin.H{"phone": "0241234567", "country": "GH", "otp": issued.Code, "purpose": "login"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var replay ErrorResponse
	decodeBody(t, w, &replay)
	assert.Equal(t, "invalid or expired code", replay.Error)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	router, _, _ := newTestRouter(t, config.EnvDevelopment)

	w := postJSON(t, router, "/v1/auth/otp/request",
		gin.H{"phone": "0241234567", "country": "GH", "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/v1/auth/otp/verify",
		gin.H{"phone": "0241234567", "country": "GH", "otp": "000000", "purpose": "login"}, nil)
	// A wrong guess and an expired code are indistinguishable to the caller.
	if w.Code == http.StatusOK {
		t.Skip("guessed the issued code")
	}
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "invalid or expired code", resp.Error)
}

func TestVerifyOTPMalformedCode(t *testing.T) {
	router, _, _ := newTestRouter(t, config.EnvDevelopment)

	w := postJSON(t, router, "/v1/auth/otp/verify",
		gin.H{"phone": "0241234567", "country": "GH", "otp": "12ab56", "purpose": "login"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetPINRequiresSession(t *testing.T) {
	router, _, _ := newTestRouter(t, config.EnvDevelopment)

	w := postJSON(t, router, "/v1/auth/pin", gin.H{"pin": "2580"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, router, "/v1/auth/pin", gin.H{"pin": "2580"},
		map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	badSig := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := badSig.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	w = postJSON(t, router, "/v1/auth/pin", gin.H{"pin": "2580"},
		map[string]string{"Authorization": "Bearer " + signed})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetAndVerifyPINFlow(t *testing.T) {
	router, _, _ := newTestRouter(t, config.EnvDevelopment)

	// Register through the OTP flow so the phone has a canonical identity.
	w := postJSON(t, router, "/v1/auth/otp/request",
		gin.H{"phone": "0241234567", "country": "GH", "purpose": "registration"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var issued IssueOTPResponse
	decodeBody(t, w, &issued)

	w = postJSON(t, router, "/v1/auth/otp/verify",
		gin.H{"phone": "0241234567", "country": "GH", "otp": issued.Code, "purpose": "registration"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session SessionResponse
	decodeBody(t, w, &session)
	userID := session.UserID

	token := signedToken(t, userID)
	authz := map[string]string{"Authorization": "Bearer " + token}

	// Trivial PINs are rejected at set time.
	w = postJSON(t, router, "/v1/auth/pin", gin.H{"pin": "1234"}, authz)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/v1/auth/pin", gin.H{"pin": "2580"}, authz)
	require.Equal(t, http.StatusOK, w.Code)
	var set SetPINResponse
	decodeBody(t, w, &set)
	assert.True(t, set.Success)
	assert.False(t, set.UpdatedAt.IsZero())

	w = postJSON(t, router, "/v1/auth/pin/verify",
		gin.H{"phone": "0241234567", "country": "GH", "pin": "2580"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pinSession SessionResponse
	decodeBody(t, w, &pinSession)
	assert.Equal(t, userID, pinSession.UserID)
	require.NotNil(t, pinSession.Session)
	assert.NotEmpty(t, pinSession.Session.AccessToken)
}

func TestVerifyPINErrorSurface(t *testing.T) {
	router, _, _ := newTestRouter(t, config.EnvDevelopment)

	// Unknown phone.
	w := postJSON(t, router, "/v1/auth/pin/verify",
		gin.H{"phone": "0249999999", "country": "GH", "pin": "2580"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Register but never set a PIN.
	w = postJSON(t, router, "/v1/auth/otp/request",
		gin.H{"phone": "0241234567", "country": "GH", "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var issued IssueOTPResponse
	decodeBody(t, w, &issued)
	w = postJSON(t, router, "/v1/auth/otp/verify",
		gin.H{"phone": "0241234567", "country": "GH", "otp": issued.Code, "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// No PIN on file reads as a missing credential, not a bad guess, so it
	// carries no attempts detail and stays a 404.
	w = postJSON(t, router, "/v1/auth/pin/verify",
		gin.H{"phone": "0241234567", "country": "GH", "pin": "2580"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "PIN not set", resp.Error)
	assert.Nil(t, resp.AttemptsRemaining)
}

func TestVerifyPINMismatchCarriesAttempts(t *testing.T) {
	router, _, _ := newTestRouter(t, config.EnvDevelopment)

	w := postJSON(t, router, "/v1/auth/otp/request",
		gin.H{"phone": "0241234567", "country": "GH", "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var issued IssueOTPResponse
	decodeBody(t, w, &issued)
	w = postJSON(t, router, "/v1/auth/otp/verify",
		gin.H{"phone": "0241234567", "country": "GH", "otp": issued.Code, "purpose": "login"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session SessionResponse
	decodeBody(t, w, &session)

	authz := map[string]string{"Authorization": "Bearer " + signedToken(t, session.UserID)}
	w = postJSON(t, router, "/v1/auth/pin", gin.H{"pin": "2580"}, authz)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/v1/auth/pin/verify",
		gin.H{"phone": "0241234567", "country": "GH", "pin": "8052"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	require.NotNil(t, resp.AttemptsRemaining)
	assert.Equal(t, 4, *resp.AttemptsRemaining)
	assert.Equal(t, "incorrect PIN", resp.Error)
}
