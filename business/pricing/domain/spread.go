package domain

import "github.com/shopspring/decimal"

// Spread is the display-only difference between the base price implied by each venue.
type Spread struct {
	UniswapPrice decimal.Decimal
	KyberPrice   decimal.Decimal
	Absolute     decimal.Decimal // Kyber - Uniswap
	BasisPoints  decimal.Decimal // Absolute / Uniswap * 10000
	Cheaper      Venue
}

// CalculateSpread compares two quote-per-base prices.
func CalculateSpread(uniswapPrice, kyberPrice decimal.Decimal) Spread {
	absolute := kyberPrice.Sub(uniswapPrice)
	bps := decimal.Zero
	if !uniswapPrice.IsZero() {
		bps = absolute.Div(uniswapPrice).Mul(decimal.NewFromInt(10000))
	}

	var cheaper Venue
	switch {
	case absolute.IsPositive():
		cheaper = VenueUniswap
	case absolute.IsNegative():
		cheaper = VenueKyber
	}

	return Spread{
		UniswapPrice: uniswapPrice,
		KyberPrice:   kyberPrice,
		Absolute:     absolute,
		BasisPoints:  bps,
		Cheaper:      cheaper,
	}
}

// impliedPrice is quote paid per base received.
func impliedPrice(buy Quote) decimal.Decimal {
	out := buy.Output.ToDecimal()
	if out.IsZero() {
		return decimal.Zero
	}
	return buy.Input.ToDecimal().Div(out)
}
