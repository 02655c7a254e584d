package asset

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// PricePrecision is the fixed-point scale of Price rates. It matches the
// 1e18 scale Kyber uses for expected rates.
const PricePrecision = 18

var priceScale = Pow10(PricePrecision)

// Price is quote units per one whole base unit, fixed point at PricePrecision.
type Price struct {
	rate       *big.Int
	base       *Asset
	quote      *Asset
	observedAt time.Time
}

// NewPriceFromBigInt wraps a raw 1e18-scaled rate.
func NewPriceFromBigInt(base, quote *Asset, rate *big.Int, observedAt time.Time) Price {
	if base == nil || quote == nil {
		panic("asset: nil base or quote in price")
	}
	if rate == nil || rate.Sign() < 0 {
		panic("asset: invalid price rate")
	}
	return Price{rate: new(big.Int).Set(rate), base: base, quote: quote, observedAt: observedAt}
}

// NewPrice parses a decimal rate, e.g. 2000.5 DAI per ETH.
func NewPrice(base, quote *Asset, rate decimal.Decimal, observedAt time.Time) Price {
	return NewPriceFromBigInt(base, quote, rate.Shift(PricePrecision).BigInt(), observedAt)
}

func (p Price) RateRaw() *big.Int {
	if p.rate == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(p.rate)
}

func (p Price) Rate() decimal.Decimal {
	return decimal.NewFromBigInt(p.RateRaw(), -PricePrecision)
}

func (p Price) Base() *Asset          { return p.base }
func (p Price) Quote() *Asset         { return p.quote }
func (p Price) ObservedAt() time.Time { return p.observedAt }
func (p Price) IsZero() bool          { return p.rate == nil || p.rate.Sign() == 0 }

func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return p.base.Symbol() + "/" + p.quote.Symbol()
}

// Convert turns a base amount into quote smallest units:
// quoteRaw = baseRaw * rate * 10^quoteDecimals / (10^18 * 10^baseDecimals).
// The single floor division happens last.
func (p Price) Convert(amount Amount) (Amount, error) {
	if amount.Asset() == nil {
		return Amount{}, ErrNilAsset
	}
	if !amount.Asset().Equals(p.base) {
		return Amount{}, fmt.Errorf("%w: expected %s, got %s", ErrAssetMismatch, p.base.Symbol(), amount.Asset().Symbol())
	}

	num := new(big.Int).Mul(amount.Raw(), p.RateRaw())
	num.Mul(num, Pow10(int(p.quote.Decimals())))
	den := new(big.Int).Mul(priceScale, Pow10(int(p.base.Decimals())))

	return NewAmount(p.quote, num.Quo(num, den)), nil
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Rate().String(), p.Pair())
}
