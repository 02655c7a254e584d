package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// CacheConfig configures a ReferencePriceCache. Native is the asset gas is
// paid in; the cache always prices it in Quote.
type CacheConfig struct {
	Native   *asset.Asset
	Quote    *asset.Asset
	Interval time.Duration
	Timeout  time.Duration
}

var _ ReferencePrices = (*ReferencePriceCache)(nil)

// ReferencePriceCache holds the latest native/quote rate. Only Run and Refresh write it;
// readers get an immutable value.
type ReferencePriceCache struct {
	src  ReferenceSource
	sink PriceSink
	cfg  CacheConfig
	pair domain.Pair
	log  logger.LoggerInterface

	current  atomic.Pointer[domain.ReferencePrice]
	failures atomic.Int64
	now      func() time.Time
}

// NewReferencePriceCache creates a cold cache. sink may be nil.
func NewReferencePriceCache(src ReferenceSource, sink PriceSink, cfg CacheConfig, log logger.LoggerInterface) (*ReferencePriceCache, error) {
	if cfg.Native == nil || !cfg.Native.IsNative() {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("reference price base must be the native gas asset"))
	}
	if cfg.Quote == nil || cfg.Quote.Equals(cfg.Native) {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("reference price needs a distinct quote asset"))
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &ReferencePriceCache{
		src:  src,
		sink: sink,
		cfg:  cfg,
		pair: domain.NewPair(cfg.Native, cfg.Quote),
		log:  log,
		now:  time.Now,
	}, nil
}

// Current returns the last captured price, or false while cold.
func (c *ReferencePriceCache) Current() (domain.ReferencePrice, bool) {
	p := c.current.Load()
	if p == nil {
		return domain.ReferencePrice{}, false
	}
	return *p, true
}

// Failures counts refreshes that left the previous value in place.
func (c *ReferencePriceCache) Failures() int64 { return c.failures.Load() }

// Refresh queries the source once and replaces the cached value on success.
func (c *ReferencePriceCache) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	rate, err := c.src.ReferenceRate(ctx, c.pair)
	if err != nil {
		c.failures.Add(1)
		return apperror.Wrap(err, apperror.CodeTransientFetch, "reference price refresh")
	}
	if rate.IsZero() {
		c.failures.Add(1)
		return apperror.New(apperror.CodeQuoteUnavailable, apperror.WithContext("reference rate is zero"))
	}

	price := &domain.ReferencePrice{Value: rate, CapturedAt: c.now()}
	c.current.Store(price)

	if c.sink != nil {
		if err := c.sink.Publish(ctx, *price); err != nil {
			c.log.Warn(ctx, "reference price publish failed", "error", err)
		}
	}
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Failures are logged and never stop the loop.
func (c *ReferencePriceCache) Run(ctx context.Context) error {
	c.refreshAndLog(ctx)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.refreshAndLog(ctx)
		}
	}
}

func (c *ReferencePriceCache) refreshAndLog(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		_, warm := c.Current()
		c.log.Warn(ctx, "reference price refresh failed", "error", err, "warm", warm)
		return
	}
	if p, ok := c.Current(); ok {
		c.log.Debug(ctx, "reference price updated", "pair", p.Value.Pair(), "rate", p.Value.Rate().StringFixed(4))
	}
}
