package app

import (
	"context"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
)

// PricingService is the pricing context's public surface: per-block snapshots and
// the reference price used to value gas.
type PricingService struct {
	Fetcher   *RateFetcher
	Reference *ReferencePriceCache
	reserves  ReserveSource
}

// NewPricingService creates a new PricingService. reserves may be nil.
func NewPricingService(fetcher *RateFetcher, reference *ReferencePriceCache, reserves ReserveSource) *PricingService {
	return &PricingService{
		Fetcher:   fetcher,
		Reference: reference,
		reserves:  reserves,
	}
}

// Snapshot fetches all four quotes for block.
func (s *PricingService) Snapshot(ctx context.Context, block uint64) (*domain.RateSnapshot, error) {
	return s.Fetcher.Fetch(ctx, block)
}

// PoolReserves returns the AMM pair's liquidity, used as a startup sanity check.
func (s *PricingService) PoolReserves(ctx context.Context) (domain.Reserves, error) {
	if s.reserves == nil {
		return domain.Reserves{}, nil
	}
	return s.reserves.Reserves(ctx, s.Fetcher.Pair())
}
