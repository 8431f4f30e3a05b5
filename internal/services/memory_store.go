package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendapos/auth-service/internal/models"
)

// In-memory store implementations mirroring the Mongo semantics. They back
// service tests and local development without a database.

type MemoryOTPStore struct {
	mu    sync.Mutex
	codes map[string]*models.PendingCode
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{codes: make(map[string]*models.PendingCode)}
}

func otpKey(phone string, purpose models.Purpose) string {
	return phone + "|" + string(purpose)
}

func (s *MemoryOTPStore) Upsert(_ context.Context, code *models.PendingCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *code
	s.codes[otpKey(code.Phone, code.Purpose)] = &copied
	return nil
}

func (s *MemoryOTPStore) Consume(_ context.Context, phone string, purpose models.Purpose, codeHash string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.codes[otpKey(phone, purpose)]
	if !ok || code.CodeHash != codeHash || code.VerifiedAt != nil || !code.ExpiresAt.After(now) {
		return false, nil
	}
	verifiedAt := now
	code.VerifiedAt = &verifiedAt
	return true, nil
}

// Expire backdates the stored code's expiry, for tests exercising TTL.
func (s *MemoryOTPStore) Expire(phone string, purpose models.Purpose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.codes[otpKey(phone, purpose)]; ok {
		code.ExpiresAt = time.Now().Add(-time.Second)
	}
}

type MemoryIdentityStore struct {
	mu      sync.Mutex
	byPhone map[string]*models.PhoneIdentity
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{byPhone: make(map[string]*models.PhoneIdentity)}
}

func (s *MemoryIdentityStore) FindByPhone(_ context.Context, phone string) (*models.PhoneIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity, ok := s.byPhone[phone]; ok {
		copied := *identity
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryIdentityStore) Create(_ context.Context, phone string, now time.Time) (*models.PhoneIdentity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byPhone[phone]; ok {
		copied := *existing
		return &copied, false, nil
	}
	identity := &models.PhoneIdentity{
		UserID:    uuid.NewString(),
		Phone:     phone,
		CreatedAt: now,
	}
	s.byPhone[phone] = identity
	copied := *identity
	return &copied, true, nil
}

type MemoryCredentialStore struct {
	mu     sync.Mutex
	byUser map[string]*models.UserCredential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{byUser: make(map[string]*models.UserCredential)}
}

func (s *MemoryCredentialStore) EnsureForIdentity(_ context.Context, identity *models.PhoneIdentity, now time.Time) (*models.UserCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred, ok := s.byUser[identity.UserID]; ok {
		copied := *cred
		return &copied, nil
	}
	cred := &models.UserCredential{
		UserID:    identity.UserID,
		Phone:     identity.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byUser[identity.UserID] = cred
	copied := *cred
	return &copied, nil
}

func (s *MemoryCredentialStore) GetByUserID(_ context.Context, userID string) (*models.UserCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred, ok := s.byUser[userID]; ok {
		copied := *cred
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryCredentialStore) SetPIN(_ context.Context, userID, pinHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byUser[userID]
	if !ok {
		return fmt.Errorf("credential document not found for user %s", userID)
	}
	cred.PINHash = &pinHash
	cred.PINFailedAttempts = 0
	cred.PINLockedUntil = nil
	cred.UpdatedAt = now
	return nil
}

func (s *MemoryCredentialStore) RecordPINFailure(_ context.Context, userID string, threshold int, lockoutFor time.Duration, now time.Time) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byUser[userID]
	if !ok {
		return 0, nil, fmt.Errorf("credential document not found for user %s", userID)
	}
	cred.PINFailedAttempts++
	if cred.PINFailedAttempts >= threshold {
		lockExpiry := now.Add(lockoutFor)
		cred.PINLockedUntil = &lockExpiry
	}
	cred.UpdatedAt = now
	return cred.PINFailedAttempts, cred.PINLockedUntil, nil
}

func (s *MemoryCredentialStore) RecordPINSuccess(_ context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byUser[userID]
	if !ok {
		return fmt.Errorf("credential document not found for user %s", userID)
	}
	cred.PINFailedAttempts = 0
	cred.PINLockedUntil = nil
	cred.LastLoginAt = &now
	cred.UpdatedAt = now
	return nil
}

func (s *MemoryCredentialStore) TouchLogin(_ context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byUser[userID]
	if !ok {
		return fmt.Errorf("credential document not found for user %s", userID)
	}
	cred.LastLoginAt = &now
	cred.UpdatedAt = now
	return nil
}

// MarkProfileCompleted flips the provisioning flag, for tests.
func (s *MemoryCredentialStore) MarkProfileCompleted(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cred, ok := s.byUser[userID]; ok {
		cred.ProfileCompleted = true
	}
}
