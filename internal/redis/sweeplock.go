package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepLockTTL bounds how long a sweep lock can be held. A
// crashed holder frees the lock by expiry.
const DefaultSweepLockTTL = 10 * time.Minute

// SweepLock serializes batch sweeps across instances. Each sweep kind
// ("escalation", "generation", "wake") gets its own lock key; an
// instance that fails to acquire the lock skips that run instead of
// processing the same reminders twice.
type SweepLock struct {
	client *Client
	logger *zap.Logger
	holder string
	ttl    time.Duration
}

// NewSweepLock creates a sweep lock helper. holder identifies this
// instance in lock values (typically hostname plus pid).
func NewSweepLock(client *Client, holder string, ttl time.Duration, logger *zap.Logger) *SweepLock {
	if ttl <= 0 {
		ttl = DefaultSweepLockTTL
	}
	return &SweepLock{
		client: client,
		logger: logger,
		holder: holder,
		ttl:    ttl,
	}
}

func (l *SweepLock) key(sweep string) string {
	return fmt.Sprintf("sweeplock:%s", sweep)
}

// Acquire attempts to take the lock for one sweep kind.
// Returns true when this instance holds the lock.
func (l *SweepLock) Acquire(ctx context.Context, sweep string) (bool, error) {
	acquired, err := l.client.rdb.SetNX(ctx, l.key(sweep), l.holder, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}

	if !acquired {
		l.logger.Debug("sweep lock held elsewhere",
			zap.String("sweep", sweep),
		)
	}

	return acquired, nil
}

// Release frees the lock if this instance holds it. A lock taken over
// by another holder after expiry is left alone.
func (l *SweepLock) Release(ctx context.Context, sweep string) error {
	key := l.key(sweep)

	val, err := l.client.rdb.Get(ctx, key).Result()
	if err != nil {
		// Already expired or never held.
		return nil
	}
	if val != l.holder {
		l.logger.Warn("sweep lock owned by another holder, not releasing",
			zap.String("sweep", sweep),
			zap.String("holder", val),
		)
		return nil
	}

	if err := l.client.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}

	return nil
}
