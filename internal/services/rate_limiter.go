package services

import (
	"context"
	"math"
	"time"

	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/redisclient"
	"go.uber.org/zap"
)

// CooldownLimiter enforces a minimum wait between repeat operations on the
// same key. The window lives in Redis as a TTL key so it is shared across
// instances and expires without cleanup.
type CooldownLimiter struct {
	redis  *redisclient.Client
	prefix string
	window time.Duration
	logger *logging.SafeLogger
}

// NewCooldownLimiter creates a limiter whose keys are namespaced under the
// given prefix.
func NewCooldownLimiter(redis *redisclient.Client, prefix string, window time.Duration, logger *logging.SafeLogger) *CooldownLimiter {
	return &CooldownLimiter{
		redis:  redis,
		prefix: prefix,
		window: window,
		logger: logger,
	}
}

func (l *CooldownLimiter) key(k string) string {
	return l.prefix + k
}

// Remaining returns how many whole seconds are left before the key may act
// again. Zero means the key is free. Partial seconds round up so a caller
// that waits the reported time is guaranteed to be past the window. PTTL is
// used because TTL truncates to whole seconds, which would round down instead.
func (l *CooldownLimiter) Remaining(ctx context.Context, key string) (int, error) {
	ttl, err := l.redis.PTTL(ctx, l.key(key)).Result()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return int(math.Ceil(ttl.Seconds())), nil
}

// Arm starts the window for the key. Failures are logged and swallowed: a
// missed cooldown is recoverable, a blocked operation is not.
func (l *CooldownLimiter) Arm(ctx context.Context, key string) {
	if err := l.redis.Set(ctx, l.key(key), "1", l.window).Err(); err != nil {
		l.logger.Warn("failed to arm cooldown",
			zap.String("key", l.key(key)),
			zap.Error(err))
	}
}
