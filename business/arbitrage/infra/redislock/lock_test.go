package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

func newLock(t *testing.T) (*Lock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestLock_ExclusiveUntilReleased(t *testing.T) {
	lock, mr := newLock(t)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "flasharb:execution:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("flasharb:execution:a"))

	_, err = lock.Acquire(ctx, "flasharb:execution:a", time.Minute)
	assert.True(t, apperror.HasCode(err, apperror.CodeLockHeld))

	release()
	release()
	assert.False(t, mr.Exists("flasharb:execution:a"))

	release2, err := lock.Acquire(ctx, "flasharb:execution:a", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestLock_ReleaseDoesNotStealForeignLock(t *testing.T) {
	lock, mr := newLock(t)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists("k"))

	other, err := lock.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	release()
	assert.True(t, mr.Exists("k"), "stale release must not drop the new holder's lock")
	other()
	assert.False(t, mr.Exists("k"))
}

func TestLock_RedisDown(t *testing.T) {
	lock, mr := newLock(t)
	mr.Close()

	_, err := lock.Acquire(context.Background(), "k", time.Second)
	assert.True(t, apperror.HasCode(err, apperror.CodeExternalService))
}
