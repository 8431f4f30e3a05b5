package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/models"
	"github.com/tendapos/auth-service/internal/observability"
	"go.uber.org/zap"
)

// syntheticEmailDomain is reserved under RFC 6761-style internal naming, so
// a synthetic identifier can never collide with an address a human could
// register.
const syntheticEmailDomain = "accounts.internal"

// SessionBridge converts a verified phone identity into a backend session.
// The backend's session primitive only accepts password credentials, so the
// bridge registers a synthetic pair (a stable internal email plus a fresh
// random password), signs in with it once, and discards the password.
type SessionBridge struct {
	backend AuthBackend
	logger  *logging.SafeLogger
}

// NewSessionBridge creates a session bridge over the given backend.
func NewSessionBridge(backend AuthBackend, logger *logging.SafeLogger) *SessionBridge {
	return &SessionBridge{backend: backend, logger: logger}
}

// SyntheticEmail returns the internal-only identifier for a user. It is
// deterministic so the backend credential is overwritten, not duplicated,
// on every login.
func SyntheticEmail(userID string) string {
	return fmt.Sprintf("u-%s@%s", userID, syntheticEmailDomain)
}

// Bridge issues a session for the identity. The random password exists only
// for the duration of the single sign-in call and is never logged or
// returned.
func (b *SessionBridge) Bridge(ctx context.Context, userID string) (*models.Session, error) {
	email := SyntheticEmail(userID)

	password, err := randomPassword()
	if err != nil {
		b.logger.Error("failed to generate synthetic password", zap.Error(err))
		observability.SessionBridgeFailures.WithLabelValues("generate").Inc()
		return nil, models.NewInternalError()
	}

	if err := b.backend.UpsertPasswordUser(ctx, userID, email, password); err != nil {
		b.logger.Error("failed to register synthetic credential",
			zap.String("user_id", userID),
			zap.Error(err))
		observability.SessionBridgeFailures.WithLabelValues("upsert").Inc()
		return nil, models.NewUpstreamError("failed to establish session, please try again")
	}

	session, err := b.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		b.logger.Error("failed to sign in with synthetic credential",
			zap.String("user_id", userID),
			zap.Error(err))
		observability.SessionBridgeFailures.WithLabelValues("signin").Inc()
		return nil, models.NewUpstreamError("failed to establish session, please try again")
	}

	return session, nil
}

// randomPassword returns 32 bytes of CSPRNG output, base64url encoded.
func randomPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
