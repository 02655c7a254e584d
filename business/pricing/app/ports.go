// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// Venue quotes exact-input swaps on one exchange.
type Venue interface {
	// Name identifies the venue in quotes and logs.
	Name() domain.Venue

	// Quote returns the amount of buy received for selling in, at current state.
	Quote(ctx context.Context, in asset.Amount, buy *asset.Asset) (domain.Quote, error)
}

// ReferenceSource reads a single-unit base/quote rate used to value gas.
type ReferenceSource interface {
	ReferenceRate(ctx context.Context, pair domain.Pair) (asset.Price, error)
}

// ReserveSource exposes an AMM pair's liquidity.
type ReserveSource interface {
	Reserves(ctx context.Context, pair domain.Pair) (domain.Reserves, error)
}

// PriceSink receives every reference price the cache captures.
type PriceSink interface {
	Publish(ctx context.Context, price domain.ReferencePrice) error
}

// ReferencePrices is the read side of the reference price cache.
type ReferencePrices interface {
	// Current returns the last captured price; false while the cache is cold.
	Current() (domain.ReferencePrice, bool)
}
