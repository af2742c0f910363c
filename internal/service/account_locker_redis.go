package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/otp-auth-service/internal/observability"
)

var redisAccountUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

const redisLockRetryInterval = 25 * time.Millisecond

// RedisAccountLocker holds per-account locks in Redis so several API instances serialize OTP
// operations on the same account. A lock expires after ttl even if its holder dies.
type RedisAccountLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	logger *slog.Logger
}

func NewRedisAccountLocker(client redis.UniversalClient, prefix string, ttl, wait time.Duration, logger *slog.Logger) *RedisAccountLocker {
	if prefix == "" {
		prefix = "otp_auth"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisAccountLocker{client: client, prefix: prefix, ttl: ttl, wait: wait, logger: logger}
}

func (l *RedisAccountLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.client == nil {
		return nil, fmt.Errorf("redis account locker: nil client")
	}
	start := time.Now()
	redisKey := l.lockKey(key)
	owner := uuid.NewString()
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(redisLockRetryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, owner, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			observability.RecordAccountLockEvent(ctx, "redis", "error")
			return nil, fmt.Errorf("acquire account lock: %w", err)
		}
		if ok {
			observability.RecordAccountLockEvent(ctx, "redis", "acquired")
			observability.RecordAccountLockWait(ctx, "redis", time.Since(start))
			return l.unlockFunc(ctx, redisKey, owner), nil
		}
		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				observability.RecordAccountLockEvent(ctx, "redis", "cancelled")
				return nil, ctx.Err()
			}
			observability.RecordAccountLockEvent(ctx, "redis", "timeout")
			return nil, ErrLockTimeout
		}
	}
}

func (l *RedisAccountLocker) unlockFunc(ctx context.Context, redisKey, owner string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := redisAccountUnlockScript.Run(releaseCtx, l.client, []string{redisKey}, owner).Err(); err != nil {
			// The key still expires after ttl.
			l.logger.WarnContext(ctx, "account lock release failed", "error", err)
		}
	}
}

func (l *RedisAccountLocker) lockKey(key string) string {
	return fmt.Sprintf("%s:account_lock:%s", l.prefix, key)
}
