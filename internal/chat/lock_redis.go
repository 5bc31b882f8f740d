package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker serialises a session across server processes sharing one Redis.
// A lock expires after ttl so a crashed holder cannot wedge the session.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	log    *zap.Logger
}

// NewRedisLocker returns a locker backed by client.
func NewRedisLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, retry: 50 * time.Millisecond, log: log}
}

func lockKey(sessionID int64) string {
	return fmt.Sprintf("chat:session:%d:lock", sessionID)
}

// Lock polls until the session lock is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, sessionID int64) (func(), error) {
	key := lockKey(sessionID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire chat lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled; release regardless.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warn("release chat lock", zap.Int64("session_id", sessionID), zap.Error(err))
			}
		})
	}, nil
}
