package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tendapos/auth-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OTPStore is the durable record of outstanding verification codes.
type OTPStore interface {
	// Upsert atomically replaces the pending code for (phone, purpose),
	// superseding any prior code for that pair.
	Upsert(ctx context.Context, code *models.PendingCode) error

	// Consume marks the matching code verified if and only if it is
	// unverified and unexpired. Exactly one of two concurrent calls with
	// the same valid code succeeds; the loser sees false.
	Consume(ctx context.Context, phone string, purpose models.Purpose, codeHash string, now time.Time) (bool, error)
}

// MongoOTPStore stores pending codes in a MongoDB collection with a unique
// (phone, purpose) index.
type MongoOTPStore struct {
	coll *mongo.Collection
}

// NewMongoOTPStore creates an OTP store over the given collection.
func NewMongoOTPStore(coll *mongo.Collection) *MongoOTPStore {
	return &MongoOTPStore{coll: coll}
}

// Upsert uses a single conflict-resolving replace keyed on (phone, purpose)
// rather than delete-then-insert, so concurrent issuances cannot clobber
// each other's TTL bookkeeping.
func (s *MongoOTPStore) Upsert(ctx context.Context, code *models.PendingCode) error {
	filter := bson.M{"phone": code.Phone, "purpose": code.Purpose}
	_, err := s.coll.ReplaceOne(ctx, filter, code, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert pending code: %w", err)
	}
	return nil
}

// Consume performs the single-use transition. The update is conditioned on
// verified_at being unset and expires_at being in the future, so expiry is
// enforced lazily at read time and replays see zero matched documents.
func (s *MongoOTPStore) Consume(ctx context.Context, phone string, purpose models.Purpose, codeHash string, now time.Time) (bool, error) {
	filter := bson.M{
		"phone":       phone,
		"purpose":     purpose,
		"code_hash":   codeHash,
		"verified_at": bson.M{"$exists": false},
		"expires_at":  bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"verified_at": now}}

	result, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to consume pending code: %w", err)
	}
	return result.ModifiedCount == 1, nil
}
