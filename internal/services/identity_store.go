package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tendapos/auth-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IdentityStore is the canonical phone -> identity mapping. Only the OTP
// verification path creates entries; every other path resolves read-only.
type IdentityStore interface {
	// FindByPhone returns the identity for a canonical phone, or nil if
	// none exists.
	FindByPhone(ctx context.Context, phone string) (*models.PhoneIdentity, error)

	// Create mints a new identity for the phone. If a concurrent request
	// created one first, the existing identity is returned with
	// created=false.
	Create(ctx context.Context, phone string, now time.Time) (identity *models.PhoneIdentity, created bool, err error)
}

// CredentialStore holds PIN credentials and lockout state, keyed by user ID.
type CredentialStore interface {
	// EnsureForIdentity creates the credential document for a new identity
	// if it does not exist and returns the current document.
	EnsureForIdentity(ctx context.Context, identity *models.PhoneIdentity, now time.Time) (*models.UserCredential, error)

	// GetByUserID returns the credential document, or nil if none exists.
	GetByUserID(ctx context.Context, userID string) (*models.UserCredential, error)

	// SetPIN stores a new PIN hash, resetting the failure counter and
	// clearing any lockout in the same write.
	SetPIN(ctx context.Context, userID, pinHash string, now time.Time) error

	// RecordPINFailure increments the failure counter and, when the new
	// count reaches threshold, sets the lockout expiry in the same
	// atomic update. It returns the new count and the lockout expiry, if
	// one is now active.
	RecordPINFailure(ctx context.Context, userID string, threshold int, lockoutFor time.Duration, now time.Time) (attempts int, lockedUntil *time.Time, err error)

	// RecordPINSuccess resets the failure counter, clears the lockout and
	// stamps last_login_at.
	RecordPINSuccess(ctx context.Context, userID string, now time.Time) error

	// TouchLogin stamps last_login_at without touching PIN state.
	TouchLogin(ctx context.Context, userID string, now time.Time) error
}

// MongoIdentityStore implements IdentityStore over a collection with a
// unique index on phone.
type MongoIdentityStore struct {
	coll *mongo.Collection
}

// NewMongoIdentityStore creates an identity store over the given collection.
func NewMongoIdentityStore(coll *mongo.Collection) *MongoIdentityStore {
	return &MongoIdentityStore{coll: coll}
}

func (s *MongoIdentityStore) FindByPhone(ctx context.Context, phone string) (*models.PhoneIdentity, error) {
	var identity models.PhoneIdentity
	err := s.coll.FindOne(ctx, bson.M{"phone": phone}).Decode(&identity)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find phone identity: %w", err)
	}
	return &identity, nil
}

// Create inserts a fresh identity. A duplicate-key error means a concurrent
// request won the race; the existing mapping is returned instead so two
// resolution paths can never mint two identities for one phone.
func (s *MongoIdentityStore) Create(ctx context.Context, phone string, now time.Time) (*models.PhoneIdentity, bool, error) {
	identity := &models.PhoneIdentity{
		UserID:    uuid.NewString(),
		Phone:     phone,
		CreatedAt: now,
	}

	_, err := s.coll.InsertOne(ctx, identity)
	if err == nil {
		return identity, true, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		existing, ferr := s.FindByPhone(ctx, phone)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("phone identity vanished after duplicate key")
		}
		return existing, false, nil
	}
	return nil, false, fmt.Errorf("failed to create phone identity: %w", err)
}

// MongoCredentialStore implements CredentialStore.
type MongoCredentialStore struct {
	coll *mongo.Collection
}

// NewMongoCredentialStore creates a credential store over the given collection.
func NewMongoCredentialStore(coll *mongo.Collection) *MongoCredentialStore {
	return &MongoCredentialStore{coll: coll}
}

func (s *MongoCredentialStore) EnsureForIdentity(ctx context.Context, identity *models.PhoneIdentity, now time.Time) (*models.UserCredential, error) {
	filter := bson.M{"_id": identity.UserID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"phone":               identity.Phone,
			"pin_failed_attempts": 0,
			"profile_completed":   false,
			"created_at":          now,
			"updated_at":          now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cred models.UserCredential
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cred); err != nil {
		return nil, fmt.Errorf("failed to ensure credential document: %w", err)
	}
	return &cred, nil
}

func (s *MongoCredentialStore) GetByUserID(ctx context.Context, userID string) (*models.UserCredential, error) {
	var cred models.UserCredential
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&cred)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	return &cred, nil
}

func (s *MongoCredentialStore) SetPIN(ctx context.Context, userID, pinHash string, now time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"pin_hash":            pinHash,
			"pin_failed_attempts": 0,
			"updated_at":          now,
		},
		"$unset": bson.M{"pin_locked_until": ""},
	}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to set PIN: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("credential document not found for user %s", userID)
	}
	return nil
}

// RecordPINFailure uses an aggregation-pipeline update so the increment and
// the threshold-triggered lockout land in one atomic write. Concurrent
// failures against the latest stored value can under-count, never
// double-count a single request.
func (s *MongoCredentialStore) RecordPINFailure(ctx context.Context, userID string, threshold int, lockoutFor time.Duration, now time.Time) (int, *time.Time, error) {
	lockExpiry := now.Add(lockoutFor)
	newCount := bson.M{"$add": bson.A{"$pin_failed_attempts", 1}}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"pin_failed_attempts": newCount,
			"pin_locked_until": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{newCount, threshold}},
				lockExpiry,
				"$pin_locked_until",
			}},
			"updated_at": now,
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var cred models.UserCredential
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&cred); err != nil {
		return 0, nil, fmt.Errorf("failed to record PIN failure: %w", err)
	}
	return cred.PINFailedAttempts, cred.PINLockedUntil, nil
}

func (s *MongoCredentialStore) RecordPINSuccess(ctx context.Context, userID string, now time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"pin_failed_attempts": 0,
			"last_login_at":       now,
			"updated_at":          now,
		},
		"$unset": bson.M{"pin_locked_until": ""},
	}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("failed to record PIN success: %w", err)
	}
	return nil
}

func (s *MongoCredentialStore) TouchLogin(ctx context.Context, userID string, now time.Time) error {
	update := bson.M{"$set": bson.M{"last_login_at": now, "updated_at": now}}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
