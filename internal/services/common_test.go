package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/tendapos/auth-service/internal/config"
	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/models"
	"github.com/tendapos/auth-service/internal/redisclient"
)

// fakeGateway records sends and returns a configurable outcome.
type fakeGateway struct {
	sends    []string
	lastBody string
	lastCtry string
	failNext bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{}
}

func (g *fakeGateway) Send(_ context.Context, phone, message, country string) bool {
	if g.failNext {
		g.failNext = false
		return false
	}
	g.sends = append(g.sends, phone)
	g.lastBody = message
	g.lastCtry = country
	return true
}

// fakeAuthBackend implements AuthBackend in memory, recording the synthetic
// credentials it was driven with.
type fakeAuthBackend struct {
	users     map[string]string // email -> password
	upserts   int
	signIns   int
	failLogin bool
}

func newFakeAuthBackend() *fakeAuthBackend {
	return &fakeAuthBackend{users: make(map[string]string)}
}

func (b *fakeAuthBackend) UpsertPasswordUser(_ context.Context, userID, email, password string) error {
	b.upserts++
	b.users[email] = password
	return nil
}

func (b *fakeAuthBackend) SignInWithPassword(_ context.Context, email, password string) (*models.Session, error) {
	b.signIns++
	if b.failLogin {
		return nil, fmt.Errorf("auth backend sign-in failed with status 400")
	}
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

func testConfig(env string) *config.Config {
	return &config.Config{
		Environment:        env,
		OTPHashSecret:      "test-otp-secret",
		OTPCodeTTL:         5 * time.Minute,
		OTPIssueCooldown:   60 * time.Second,
		PINMaxAttempts:     5,
		PINLockoutDuration: 15 * time.Minute,
	}
}

func testRedis(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.NewClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	return client, mr
}

type testEnv struct {
	cfg        *config.Config
	otpStore   *MemoryOTPStore
	identities *MemoryIdentityStore
	creds      *MemoryCredentialStore
	gateway    *fakeGateway
	backend    *fakeAuthBackend
	redis      *miniredis.Miniredis
	otp        *OTPService
	pin        *PINService
}

func newTestEnv(t *testing.T, environment string) *testEnv {
	t.Helper()

	cfg := testConfig(environment)
	logger := logging.NewSafeLogger(nil)

	otpStore := NewMemoryOTPStore()
	identities := NewMemoryIdentityStore()
	creds := NewMemoryCredentialStore()
	gateway := newFakeGateway()
	backend := newFakeAuthBackend()
	bridge := NewSessionBridge(backend, logger)

	rdb, mr := testRedis(t)

	return &testEnv{
		cfg:        cfg,
		otpStore:   otpStore,
		identities: identities,
		creds:      creds,
		gateway:    gateway,
		backend:    backend,
		redis:      mr,
		otp:        NewOTPService(cfg, otpStore, identities, creds, bridge, gateway, rdb, logger),
		pin:        NewPINService(cfg, identities, creds, bridge, logger),
	}
}
