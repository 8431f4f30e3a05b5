package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tendapos/auth-service/internal/config"
	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/models"
	"github.com/tendapos/auth-service/internal/observability"
	"github.com/tendapos/auth-service/internal/redisclient"
	"github.com/tendapos/auth-service/internal/sms"
	"github.com/tendapos/auth-service/internal/utils"
	"go.uber.org/zap"
)

// IssueResult is the outcome of a successful code issuance.
type IssueResult struct {
	Message string
	// DevCode carries the raw code in the development environment only.
	DevCode string
}

// VerifyResult is the outcome of a successful OTP or PIN verification.
type VerifyResult struct {
	Session     *models.Session
	UserID      string
	NewIdentity bool
	// NeedsProfileSetup tells downstream flows the identity exists in the
	// auth sense but has no business profile yet.
	NeedsProfileSetup bool
}

// OTPService orchestrates issuance and verification of SMS one-time codes.
// All collaborators, including the environment selector, are injected at
// construction; there is no process-global switch.
type OTPService struct {
	store      OTPStore
	identities IdentityStore
	creds      CredentialStore
	bridge     *SessionBridge
	gateway    sms.Gateway
	cooldown   *CooldownLimiter
	logger     *logging.SafeLogger

	hashSecret  string
	environment string
	codeTTL     time.Duration

	now func() time.Time
}

// NewOTPService wires the OTP issuance and verification services.
func NewOTPService(
	cfg *config.Config,
	store OTPStore,
	identities IdentityStore,
	creds CredentialStore,
	bridge *SessionBridge,
	gateway sms.Gateway,
	redis *redisclient.Client,
	logger *logging.SafeLogger,
) *OTPService {
	return &OTPService{
		store:       store,
		identities:  identities,
		creds:       creds,
		bridge:      bridge,
		gateway:     gateway,
		cooldown:    NewCooldownLimiter(redis, "otp:cooldown:", cfg.OTPIssueCooldown, logger),
		logger:      logger,
		hashSecret:  cfg.OTPHashSecret,
		environment: cfg.Environment,
		codeTTL:     cfg.OTPCodeTTL,
		now:         time.Now,
	}
}

// Issue generates, stores and dispatches a verification code. In the
// development environment the cooldown and the SMS dispatch are skipped and
// the raw code is returned so local flows can complete without a provider;
// the hashed code is still stored so it remains verifiable.
func (s *OTPService) Issue(ctx context.Context, phone, country string, purpose models.Purpose) (*IssueResult, error) {
	if phone == "" || country == "" {
		return nil, models.NewValidationError("phone and country are required")
	}
	if purpose == "" {
		purpose = models.PurposeLogin
	}
	if !models.ValidPurpose(purpose) {
		return nil, models.NewValidationError("unknown purpose %q", purpose)
	}

	normalized := utils.NormalizePhone(phone, country)
	now := s.now()
	devMode := s.environment == config.EnvDevelopment

	if !devMode {
		wait, err := s.cooldown.Remaining(ctx, normalized)
		if err != nil {
			s.logger.Error("failed to check issuance cooldown", zap.Error(err))
			return nil, models.NewInternalError()
		}
		if wait > 0 {
			s.logger.Info("code issuance rate-limited",
				zap.String("phone", observability.MaskPhone(normalized)),
				zap.Int("wait_seconds", wait))
			return nil, models.NewRateLimitedError(wait)
		}
	}

	code, err := utils.GenerateVerificationCode()
	if err != nil {
		s.logger.Error("failed to generate verification code", zap.Error(err))
		return nil, models.NewInternalError()
	}

	pending := &models.PendingCode{
		Phone:     normalized,
		Purpose:   purpose,
		CodeHash:  utils.HashVerificationCode(code, s.hashSecret),
		CreatedAt: now,
		ExpiresAt: now.Add(s.codeTTL),
	}
	if err := s.store.Upsert(ctx, pending); err != nil {
		s.logger.Error("failed to store pending code", zap.Error(err))
		return nil, models.NewInternalError()
	}

	observability.OTPIssued.WithLabelValues(string(purpose), country).Inc()

	if devMode {
		s.logger.Info("dev mode: returning code without dispatch",
			zap.String("phone", observability.MaskPhone(normalized)),
			zap.String("purpose", string(purpose)))
		return &IssueResult{Message: "verification code generated", DevCode: code}, nil
	}

	// Arm the cooldown as soon as the row exists; a failed dispatch still
	// counts against the window since the row stays in place.
	s.cooldown.Arm(ctx, normalized)

	message := fmt.Sprintf("Your TendaPOS verification code is %s. It expires in %d minutes.", code, int(s.codeTTL.Minutes()))
	if !s.gateway.Send(ctx, normalized, message, country) {
		observability.OTPSendFailures.WithLabelValues(country).Inc()
		return nil, models.NewUpstreamError("failed to send verification code, please try again")
	}

	s.logger.Info("verification code issued",
		zap.String("phone", observability.MaskPhone(normalized)),
		zap.String("purpose", string(purpose)))
	return &IssueResult{Message: "verification code sent"}, nil
}

// Verify consumes a code and bridges the phone into a session. Wrong,
// expired and replayed codes are indistinguishable to the caller.
func (s *OTPService) Verify(ctx context.Context, phone, country, code string, purpose models.Purpose) (*VerifyResult, error) {
	if phone == "" || country == "" {
		return nil, models.NewValidationError("phone and country are required")
	}
	if !utils.ValidCodeFormat(code) {
		return nil, models.NewValidationError("code must be exactly %d digits", models.VerificationCodeLength)
	}
	if purpose == "" {
		purpose = models.PurposeLogin
	}
	if !models.ValidPurpose(purpose) {
		return nil, models.NewValidationError("unknown purpose %q", purpose)
	}

	normalized := utils.NormalizePhone(phone, country)
	now := s.now()
	codeHash := utils.HashVerificationCode(code, s.hashSecret)

	consumed, err := s.store.Consume(ctx, normalized, purpose, codeHash, now)
	if err != nil {
		s.logger.Error("failed to consume pending code", zap.Error(err))
		return nil, models.NewInternalError()
	}
	if !consumed {
		observability.OTPVerifications.WithLabelValues("rejected").Inc()
		s.logger.Info("verification rejected",
			zap.String("phone", observability.MaskPhone(normalized)),
			zap.String("purpose", string(purpose)))
		return nil, models.NewInvalidCodeError()
	}

	identity, err := s.identities.FindByPhone(ctx, normalized)
	if err != nil {
		s.logger.Error("failed to resolve phone identity", zap.Error(err))
		return nil, models.NewInternalError()
	}
	created := false
	if identity == nil {
		identity, created, err = s.identities.Create(ctx, normalized, now)
		if err != nil {
			s.logger.Error("failed to create phone identity", zap.Error(err))
			return nil, models.NewInternalError()
		}
	}

	cred, err := s.creds.EnsureForIdentity(ctx, identity, now)
	if err != nil {
		s.logger.Error("failed to ensure credential document", zap.Error(err))
		return nil, models.NewInternalError()
	}

	session, err := s.bridge.Bridge(ctx, identity.UserID)
	if err != nil {
		return nil, models.AsAuthError(err)
	}

	if err := s.creds.TouchLogin(ctx, identity.UserID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	observability.OTPVerifications.WithLabelValues("verified").Inc()
	s.logger.Info("phone verified",
		zap.String("phone", observability.MaskPhone(normalized)),
		zap.String("user_id", identity.UserID),
		zap.Bool("new_identity", created))

	return &VerifyResult{
		Session:           session,
		UserID:            identity.UserID,
		NewIdentity:       created,
		NeedsProfileSetup: created || !cred.ProfileCompleted,
	}, nil
}
