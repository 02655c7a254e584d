// Package domain contains the core domain types for the pricing context.
package domain

import (
	"fmt"
	"time"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

// Venue names a liquidity source.
type Venue string

const (
	VenueUniswap Venue = "uniswap"
	VenueKyber   Venue = "kyber"
)

// Pair is the traded pair: the loan and profit are denominated in Quote.
type Pair struct {
	Base  *asset.Asset
	Quote *asset.Asset
}

func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("pricing: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

func (p Pair) String() string {
	return p.Base.Symbol() + "-" + p.Quote.Symbol()
}

// Quote is one venue's answer for selling Input of one asset into another.
// Input and Output stay in their own assets' smallest units.
type Quote struct {
	Venue     Venue
	Sell      *asset.Asset
	Buy       *asset.Asset
	Input     asset.Amount
	Output    asset.Amount
	FetchedAt time.Time
}

func NewQuote(venue Venue, input, output asset.Amount) Quote {
	return Quote{
		Venue:     venue,
		Sell:      input.Asset(),
		Buy:       output.Asset(),
		Input:     input,
		Output:    output,
		FetchedAt: time.Now(),
	}
}

func (q Quote) String() string {
	return fmt.Sprintf("%s: %s -> %s", q.Venue, q.Input.StringFixed(6), q.Output.StringFixed(6))
}

// Reserves is an AMM pair's liquidity, ordered as Base/Quote of the Pair.
type Reserves struct {
	Pair      Pair
	Base      asset.Amount
	Quote     asset.Amount
	UpdatedAt time.Time
}

// ReferencePrice values gas in quote units. It is replaced wholesale on each refresh.
type ReferencePrice struct {
	Value      asset.Price
	CapturedAt time.Time
}

func (r ReferencePrice) Age(now time.Time) time.Duration {
	return now.Sub(r.CapturedAt)
}
