package services

import (
	"context"
	"time"

	"github.com/tendapos/auth-service/internal/config"
	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/models"
	"github.com/tendapos/auth-service/internal/observability"
	"github.com/tendapos/auth-service/internal/utils"
	"go.uber.org/zap"
)

// PINService handles the secondary PIN credential: authenticated PIN set,
// and phone-keyed PIN verification with brute-force lockout.
//
// The lockout state machine per identity: Unlocked (attempts below
// threshold) -> Locked (attempts at threshold, until the expiry passes) ->
// Unlocked again, with the counter reset only by a successful verification
// or an explicit PIN set, never by the passage of time.
type PINService struct {
	identities IdentityStore
	creds      CredentialStore
	bridge     *SessionBridge
	logger     *logging.SafeLogger

	maxAttempts int
	lockoutFor  time.Duration

	now func() time.Time
}

// NewPINService wires the PIN set and verify services.
func NewPINService(
	cfg *config.Config,
	identities IdentityStore,
	creds CredentialStore,
	bridge *SessionBridge,
	logger *logging.SafeLogger,
) *PINService {
	return &PINService{
		identities:  identities,
		creds:       creds,
		bridge:      bridge,
		logger:      logger,
		maxAttempts: cfg.PINMaxAttempts,
		lockoutFor:  cfg.PINLockoutDuration,
		now:         time.Now,
	}
}

// Set stores a new PIN for an authenticated caller. The subject is always
// the session's identity, never a phone number, so knowing a phone is not
// enough to reset someone's PIN. Setting a PIN resets the failure counter
// and clears any lockout.
func (s *PINService) Set(ctx context.Context, userID, pin string) (time.Time, error) {
	if err := utils.ValidatePIN(pin); err != nil {
		return time.Time{}, models.NewValidationError("%s", err.Error())
	}

	hash, err := utils.HashPIN(pin)
	if err != nil {
		s.logger.Error("failed to hash PIN", zap.Error(err))
		return time.Time{}, models.NewInternalError()
	}

	now := s.now()
	if err := s.creds.SetPIN(ctx, userID, hash, now); err != nil {
		s.logger.Error("failed to store PIN", zap.String("user_id", userID), zap.Error(err))
		return time.Time{}, models.NewInternalError()
	}

	s.logger.Info("PIN set", zap.String("user_id", userID))
	return now, nil
}

// Verify checks a PIN for a phone-identified user and bridges into a
// session on success.
func (s *PINService) Verify(ctx context.Context, phone, country, pin string) (*VerifyResult, error) {
	if phone == "" || country == "" || pin == "" {
		return nil, models.NewValidationError("phone, country and pin are required")
	}

	normalized := utils.NormalizePhone(phone, country)
	now := s.now()

	identity, err := s.identities.FindByPhone(ctx, normalized)
	if err != nil {
		s.logger.Error("failed to resolve phone identity", zap.Error(err))
		return nil, models.NewInternalError()
	}
	if identity == nil {
		observability.PINVerifications.WithLabelValues("unknown_phone").Inc()
		return nil, models.NewNotFoundError("account not found")
	}

	cred, err := s.creds.GetByUserID(ctx, identity.UserID)
	if err != nil {
		s.logger.Error("failed to load credential", zap.Error(err))
		return nil, models.NewInternalError()
	}
	// "PIN not set" is safe to distinguish: the owner already proved phone
	// ownership via OTP at registration, so this is not an enumeration
	// oracle the way a login form would be.
	if !cred.HasPIN() {
		observability.PINVerifications.WithLabelValues("no_pin").Inc()
		return nil, models.NewNotFoundError("PIN not set")
	}

	// Attempts during an active lockout are free: the lockout is already
	// the penalty, and counting them would let an attacker extend another
	// user's lockout indefinitely.
	if cred.LockedAt(now) {
		observability.PINVerifications.WithLabelValues("locked").Inc()
		return nil, models.NewLockedError(*cred.PINLockedUntil, nil)
	}

	if !utils.VerifyPIN(pin, *cred.PINHash) {
		attempts, lockedUntil, err := s.creds.RecordPINFailure(ctx, identity.UserID, s.maxAttempts, s.lockoutFor, now)
		if err != nil {
			s.logger.Error("failed to record PIN failure", zap.Error(err))
			return nil, models.NewInternalError()
		}

		remaining := s.maxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}

		observability.PINVerifications.WithLabelValues("failed").Inc()
		s.logger.Info("PIN verification failed",
			zap.String("user_id", identity.UserID),
			zap.Int("attempts", attempts),
			zap.Int("remaining", remaining))

		if lockedUntil != nil && lockedUntil.After(now) {
			observability.PINLockouts.Inc()
			return nil, models.NewLockedError(*lockedUntil, &remaining)
		}
		return nil, models.NewPINMismatchError(remaining)
	}

	if err := s.creds.RecordPINSuccess(ctx, identity.UserID, now); err != nil {
		s.logger.Error("failed to record PIN success", zap.Error(err))
		return nil, models.NewInternalError()
	}

	session, err := s.bridge.Bridge(ctx, identity.UserID)
	if err != nil {
		return nil, models.AsAuthError(err)
	}

	observability.PINVerifications.WithLabelValues("verified").Inc()
	s.logger.Info("PIN verified",
		zap.String("user_id", identity.UserID),
		zap.String("phone", observability.MaskPhone(normalized)))

	return &VerifyResult{
		Session:           session,
		UserID:            identity.UserID,
		NeedsProfileSetup: !cred.ProfileCompleted,
	}, nil
}
