package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: cannot operate on different assets")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrPrecisionLoss   = errors.New("asset: rescale would truncate")
	ErrDivisionByZero  = errors.New("asset: division by zero")
)

// Amount is an immutable non-negative quantity in the asset's smallest unit.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount copies raw. It panics on nil inputs or negative values.
func NewAmount(a *Asset, raw *big.Int) Amount {
	if a == nil {
		panic(ErrNilAsset)
	}
	if raw == nil || raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}
}

func Zero(a *Asset) Amount {
	return NewAmount(a, new(big.Int))
}

// Units builds n whole units of a, e.g. Units(DAI, 20000) is 20000e18.
func Units(a *Asset, n int64) Amount {
	if n < 0 {
		panic(ErrNegativeAmount)
	}
	return NewAmount(a, new(big.Int).Mul(big.NewInt(n), Pow10(int(a.Decimals()))))
}

// Raw returns a copy of the smallest-unit value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) Asset() *Asset    { return a.asset }
func (a Amount) IsZero() bool     { return a.raw == nil || a.raw.Sign() == 0 }
func (a Amount) IsPositive() bool { return a.raw != nil && a.raw.Sign() > 0 }

func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.sameAsset(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.asset, new(big.Int).Add(a.raw, b.raw)), nil
}

func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.sameAsset(b); err != nil {
		return Amount{}, err
	}
	if a.raw.Cmp(b.raw) < 0 {
		return Amount{}, ErrNegativeResult
	}
	return NewAmount(a.asset, new(big.Int).Sub(a.raw, b.raw)), nil
}

// Diff returns a-b as a signed integer in smallest units.
func (a Amount) Diff(b Amount) (*big.Int, error) {
	if err := a.sameAsset(b); err != nil {
		return nil, err
	}
	return new(big.Int).Sub(a.raw, b.raw), nil
}

func (a Amount) MulBig(factor *big.Int) Amount {
	if factor.Sign() < 0 {
		panic(ErrNegativeAmount)
	}
	return NewAmount(a.asset, new(big.Int).Mul(a.raw, factor))
}

func (a Amount) DivBig(divisor *big.Int) (Amount, error) {
	switch divisor.Sign() {
	case 0:
		return Amount{}, ErrDivisionByZero
	case -1:
		return Amount{}, ErrNegativeAmount
	}
	return NewAmount(a.asset, new(big.Int).Div(a.raw, divisor)), nil
}

func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.sameAsset(b); err != nil {
		return 0, err
	}
	return a.raw.Cmp(b.raw), nil
}

func (a Amount) Equals(b Amount) bool {
	return a.asset.Equals(b.asset) && a.Raw().Cmp(b.Raw()) == 0
}

// Rescale expresses the same quantity in another asset's precision.
// Scaling up is always exact. Scaling down fails with ErrPrecisionLoss
// instead of truncating, so a successful round trip returns the original value.
func (a Amount) Rescale(to *Asset) (Amount, error) {
	if a.asset == nil || to == nil {
		return Amount{}, ErrNilAsset
	}
	shift := int(to.Decimals()) - int(a.asset.Decimals())
	raw := a.Raw()

	switch {
	case shift > 0:
		raw.Mul(raw, Pow10(shift))
	case shift < 0:
		q, r := new(big.Int).QuoRem(raw, Pow10(-shift), new(big.Int))
		if r.Sign() != 0 {
			return Amount{}, fmt.Errorf("%w: %s to %d decimals", ErrPrecisionLoss, a, to.Decimals())
		}
		raw = q
	}
	return NewAmount(to, raw), nil
}

// ToDecimal is for display only.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// ParseDecimal converts a human value into smallest units, rejecting sub-unit dust.
func ParseDecimal(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(int32(a.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}
	return NewAmount(a, scaled.BigInt()), nil
}

func ParseString(a *Asset, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	return ParseDecimal(a, d)
}

func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.ToDecimal().String() + " " + a.asset.Symbol()
}

func (a Amount) StringFixed(places int32) string {
	if a.asset == nil {
		return "0 ???"
	}
	return a.ToDecimal().StringFixed(places) + " " + a.asset.Symbol()
}

// FormatSigned renders a signed smallest-unit value of asset for display.
func FormatSigned(a *Asset, raw *big.Int, places int32) string {
	if raw == nil {
		raw = new(big.Int)
	}
	return decimal.NewFromBigInt(raw, -int32(a.Decimals())).StringFixed(places) + " " + a.Symbol()
}

// Pow10 returns 10^n as a new big.Int.
func Pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func (a Amount) sameAsset(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if !a.asset.Equals(b.asset) {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset.Symbol(), b.asset.Symbol())
	}
	return nil
}
