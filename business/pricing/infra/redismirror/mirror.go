// Package redismirror publishes the reference price to Redis for other processes.
package redismirror

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
)

// Key holds the latest reference price as a hash.
const Key = "flasharb:refprice"

var _ app.PriceSink = (*Mirror)(nil)

// Mirror writes each captured reference price to a Redis hash with a TTL, so a
// stopped bot's price disappears instead of going silently stale.
type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Mirror {
	return &Mirror{rdb: rdb, ttl: ttl}
}

// Publish replaces the hash in one transaction.
func (m *Mirror) Publish(ctx context.Context, p domain.ReferencePrice) error {
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, Key)
		pipe.HSet(ctx, Key, map[string]any{
			"pair":        p.Value.Pair(),
			"rate":        p.Value.Rate().String(),
			"rate_raw":    p.Value.RateRaw().String(),
			"captured_ms": p.CapturedAt.UnixMilli(),
		})
		if m.ttl > 0 {
			pipe.Expire(ctx, Key, m.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: publish reference price: %w", err)
	}
	return nil
}
