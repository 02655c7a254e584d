package domain

import (
	"fmt"
	"time"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

// RateSnapshot holds the four quotes of one block. Venue A is the AMM (Uniswap),
// venue B the rate-quoting exchange (Kyber).
//
//	ABuy  : notional quote -> base on A
//	BBuy  : notional quote -> base on B
//	ASell : base from BBuy -> quote on A
//	BSell : base from ABuy -> quote on B
type RateSnapshot struct {
	BlockNumber uint64
	Pair        Pair
	Notional    asset.Amount
	ABuy        Quote
	ASell       Quote
	BBuy        Quote
	BSell       Quote
	TakenAt     time.Time
}

// Validate checks that every leg is present and chained consistently.
func (s RateSnapshot) Validate() error {
	legs := []struct {
		name      string
		q         Quote
		venue     Venue
		sell, buy *asset.Asset
		wantInput asset.Amount
	}{
		{"ABuy", s.ABuy, VenueUniswap, s.Pair.Quote, s.Pair.Base, s.Notional},
		{"BBuy", s.BBuy, VenueKyber, s.Pair.Quote, s.Pair.Base, s.Notional},
		{"ASell", s.ASell, VenueUniswap, s.Pair.Base, s.Pair.Quote, s.BBuy.Output},
		{"BSell", s.BSell, VenueKyber, s.Pair.Base, s.Pair.Quote, s.ABuy.Output},
	}
	for _, l := range legs {
		if l.q.Venue != l.venue {
			return fmt.Errorf("snapshot %s: venue %q, want %q", l.name, l.q.Venue, l.venue)
		}
		if !l.q.Sell.Equals(l.sell) || !l.q.Buy.Equals(l.buy) {
			return fmt.Errorf("snapshot %s: assets %s->%s", l.name, l.q.Sell, l.q.Buy)
		}
		if !l.q.Input.Equals(l.wantInput) {
			return fmt.Errorf("snapshot %s: input %s, want %s", l.name, l.q.Input, l.wantInput)
		}
	}
	return nil
}

// Spread compares the base price implied by the two buy legs.
func (s RateSnapshot) Spread() Spread {
	return CalculateSpread(impliedPrice(s.ABuy), impliedPrice(s.BBuy))
}
