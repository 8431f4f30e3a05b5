package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/redisclient"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

// InitMongoDB initializes the MongoDB connection and ensures the indexes
// this service relies on.
func InitMongoDB(cfg *Config, logger *logging.SafeLogger) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMonitor(otelmongo.NewMonitor()).
		SetMaxPoolSize(100).
		SetMinPoolSize(10).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	db := client.Database(cfg.MongoDatabase)

	if err := ensureIndexes(db, cfg, logger); err != nil {
		logger.Error("failed to ensure indexes on startup", zap.Error(err))
	}

	logger.Info("connected to MongoDB",
		zap.String("database", cfg.MongoDatabase),
	)

	return db, nil
}

// InitRedis initializes the Redis connection
func InitRedis(cfg *Config, logger *logging.SafeLogger) (*redisclient.Client, error) {
	client := redisclient.NewClient(redis.NewClient(&redis.Options{
		Addr:         cfg.RedisURI,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info("connected to Redis", zap.String("uri", cfg.RedisURI))
	return client, nil
}

// ensureIndexes creates required indexes if they don't exist. The TTL index
// on pending codes is storage hygiene only; expiry is always enforced at
// read time.
func ensureIndexes(db *mongo.Database, cfg *Config, logger *logging.SafeLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pendingCodes := db.Collection(cfg.PendingCodeCollection)
	_, err := pendingCodes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phone", Value: 1}, {Key: "purpose", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("phone_purpose_unique"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
		},
	})
	if err != nil {
		return err
	}

	identities := db.Collection(cfg.PhoneIdentityCollection)
	_, err = identities.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("phone_unique"),
	})
	if err != nil {
		return err
	}

	credentials := db.Collection(cfg.CredentialCollection)
	_, err = credentials.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetName("phone_lookup"),
	})
	if err != nil {
		return err
	}

	logger.Info("database indexes ensured")
	return nil
}
