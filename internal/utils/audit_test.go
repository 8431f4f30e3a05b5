package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendapos/auth-service/internal/logging"
)

type memorySink struct {
	mu      sync.Mutex
	entries []AuditEntry
	writes  int
}

func (s *memorySink) Write(_ context.Context, entries []AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	s.writes++
	return nil
}

func (s *memorySink) snapshot() ([]AuditEntry, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out, s.writes
}

func TestAuditTrailFlushesOnClose(t *testing.T) {
	sink := &memorySink{}
	trail := NewAuditTrail(sink, 16, logging.NewSafeLogger(nil))

	trail.Record(AuditEntry{Action: AuditActionOTPRequest, Phone: "+233****67", Status: 200})
	trail.Record(AuditEntry{Action: AuditActionPINVerify, UserID: "user-1", Status: 423})
	trail.Close()

	entries, _ := sink.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, AuditActionOTPRequest, entries[0].Action)
	assert.Equal(t, AuditActionPINVerify, entries[1].Action)
	assert.False(t, entries[0].Timestamp.IsZero(), "timestamp is stamped on record")
}

func TestAuditTrailBatchesLargeBursts(t *testing.T) {
	sink := &memorySink{}
	trail := NewAuditTrail(sink, 256, logging.NewSafeLogger(nil))

	for i := 0; i < 120; i++ {
		trail.Record(AuditEntry{Action: AuditActionOTPVerify, Status: 200})
	}
	trail.Close()

	entries, writes := sink.snapshot()
	assert.Len(t, entries, 120)
	assert.GreaterOrEqual(t, writes, 2, "bursts above the batch size split into multiple writes")
}

func TestAuditTrailDropsWhenBufferFull(t *testing.T) {
	sink := &memorySink{}
	trail := &AuditTrail{
		entries:    make(chan AuditEntry, 1),
		sink:       sink,
		logger:     logging.NewSafeLogger(nil),
		batchSize:  50,
		flushEvery: time.Hour,
	}

	// No writer is draining, so the second record must not block.
	done := make(chan struct{})
	go func() {
		trail.Record(AuditEntry{Action: AuditActionPINSet})
		trail.Record(AuditEntry{Action: AuditActionPINSet})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}
