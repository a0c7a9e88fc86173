package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process talking to the same Redis.
// The key expires after ttl so a crashed holder cannot block generation forever.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *Redis) TryLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", r.key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// The caller's context may already be cancelled; release regardless.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{r.key}, token).Err(); err != nil {
			r.logger.Warn("Failed to release generation lock",
				zap.String("key", r.key),
				zap.Error(err),
			)
		}
	}, nil
}
