// Package redislock holds the cross-process execution lock in Redis.
package redislock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// Deletes the key only while it still holds the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

var _ app.DistributedLock = (*Lock)(nil)

// Lock is a SET NX PX lock with a token-checked release.
type Lock struct {
	rdb    *redis.Client
	unlock *redis.Script
}

func New(rdb *redis.Client) *Lock {
	return &Lock{rdb: rdb, unlock: redis.NewScript(unlockLua)}
}

// Acquire takes key for ttl. A key held by anyone else is CodeLockHeld.
// The returned release is idempotent and ignores the caller's context.
func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, apperror.New(apperror.CodeExternalService, apperror.WithCause(err), apperror.WithContext("redis lock "+key))
	}
	if !ok {
		return nil, apperror.New(apperror.CodeLockHeld, apperror.WithContext(key))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.unlock.Run(rctx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}
