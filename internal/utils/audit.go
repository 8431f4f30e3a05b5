package utils

import (
	"context"
	"sync"
	"time"

	"github.com/tendapos/auth-service/internal/logging"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Audit actions recorded by the authentication endpoints.
const (
	AuditActionOTPRequest = "otp_request"
	AuditActionOTPVerify  = "otp_verify"
	AuditActionPINSet     = "pin_set"
	AuditActionPINVerify  = "pin_verify"
)

// AuditEntry is one recorded authentication event. Phone numbers are stored
// masked; the trail is for operational forensics, not identity lookup.
type AuditEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    string             `bson:"action" json:"action"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	UserID    string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Status    int                `bson:"status" json:"status"`
	IPAddress string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	RequestID string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// AuditSink persists batches of audit entries.
type AuditSink interface {
	Write(ctx context.Context, entries []AuditEntry) error
}

// MongoAuditSink writes entries to a MongoDB collection.
type MongoAuditSink struct {
	collection *mongo.Collection
}

// NewMongoAuditSink creates a sink over the named collection.
func NewMongoAuditSink(db *mongo.Database, collection string) *MongoAuditSink {
	return &MongoAuditSink{collection: db.Collection(collection)}
}

// Write inserts the batch in one call.
func (s *MongoAuditSink) Write(ctx context.Context, entries []AuditEntry) error {
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = e
	}
	_, err := s.collection.InsertMany(ctx, docs)
	return err
}

// AuditTrail buffers entries and flushes them to the sink in the background
// so the request path never blocks on the audit store. Entries are dropped
// with a warning when the buffer is full; audit loss must not turn into
// an authentication outage.
type AuditTrail struct {
	entries    chan AuditEntry
	sink       AuditSink
	logger     *logging.SafeLogger
	batchSize  int
	flushEvery time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewAuditTrail starts the background writer. Close must be called on
// shutdown to flush what is buffered.
func NewAuditTrail(sink AuditSink, bufferSize int, logger *logging.SafeLogger) *AuditTrail {
	t := &AuditTrail{
		entries:    make(chan AuditEntry, bufferSize),
		sink:       sink,
		logger:     logger,
		batchSize:  50,
		flushEvery: 2 * time.Second,
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// Record queues an entry without blocking.
func (t *AuditTrail) Record(entry AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	select {
	case t.entries <- entry:
	default:
		t.logger.Warn("audit buffer full, dropping entry",
			zap.String("action", entry.Action))
	}
}

// Close stops the writer and flushes the remaining entries.
func (t *AuditTrail) Close() {
	t.stopOnce.Do(func() {
		close(t.entries)
	})
	t.wg.Wait()
}

func (t *AuditTrail) run() {
	defer t.wg.Done()

	batch := make([]AuditEntry, 0, t.batchSize)
	ticker := time.NewTicker(t.flushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := t.sink.Write(ctx, batch); err != nil {
			t.logger.Error("failed to persist audit batch",
				zap.Int("entries", len(batch)),
				zap.Error(err))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-t.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= t.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
