package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemory_TryLock(t *testing.T) {
	ctx := context.Background()
	l := NewMemory()

	release, err := l.TryLock(ctx)
	require.NoError(t, err)

	_, err = l.TryLock(ctx)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	release() // second call is a no-op

	again, err := l.TryLock(ctx)
	require.NoError(t, err)
	again()
}

func TestMemory_TryLockCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().TryLock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedis_TryLock(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	key := "test:generation-lock:" + uuid.NewString()
	first := NewRedis(client, key, time.Minute, zap.NewNop())
	second := NewRedis(client, key, time.Minute, zap.NewNop())

	release, err := first.TryLock(ctx)
	require.NoError(t, err)

	_, err = second.TryLock(ctx)
	assert.ErrorIs(t, err, ErrLocked)

	release()

	release2, err := second.TryLock(ctx)
	require.NoError(t, err)
	release2()

	n, err := client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
