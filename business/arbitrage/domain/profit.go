package domain

import (
	"errors"
	"math/big"

	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// GasCost is a gas estimate valued in the quote asset.
type GasCost struct {
	Estimate blockchainDomain.GasEstimate
	Native   asset.Amount // gasPrice * gasLimit, in the gas asset
	Quote    asset.Amount // Native converted at the reference price
}

// ErrGasAssetNotNative is returned when a reference price does not have the
// native gas asset as its base.
var ErrGasAssetNotNative = errors.New("reference price base is not the native gas asset")

// NewGasCost values est at ref, which must price the native gas asset in the quote asset.
func NewGasCost(est blockchainDomain.GasEstimate, ref asset.Price) (GasCost, error) {
	if ref.Base() == nil || !ref.Base().IsNative() {
		return GasCost{}, ErrGasAssetNotNative
	}
	native := asset.NewAmount(ref.Base(), est.CostWei())
	quote, err := ref.Convert(native)
	if err != nil {
		return GasCost{}, err
	}
	return GasCost{Estimate: est, Native: native, Quote: quote}, nil
}

// Status is the outcome of evaluating one direction.
type Status string

const (
	StatusProfitable   Status = "profitable"
	StatusUnprofitable Status = "unprofitable"
	StatusNotEvaluable Status = "not_evaluable"
)

// ProfitResult is one direction's profit for one snapshot. Gross and Net are
// signed, in the quote asset's smallest unit.
type ProfitResult struct {
	Direction Direction
	Status    Status
	Notional  asset.Amount
	Output    asset.Amount
	Gross     *big.Int
	GasCost   *GasCost
	Net       *big.Int
	Reason    error // set when NotEvaluable
}

// ComputeProfit returns output - notional - gas. All three must share one asset.
func ComputeProfit(notional, output, gas asset.Amount) (gross, net *big.Int, err error) {
	if !notional.Asset().Equals(output.Asset()) || !notional.Asset().Equals(gas.Asset()) {
		return nil, nil, errors.New("profit terms in different assets")
	}
	gross, err = output.Diff(notional)
	if err != nil {
		return nil, nil, err
	}
	net = new(big.Int).Sub(gross, gas.Raw())
	return gross, net, nil
}

// NotEvaluable builds a result excluded from selection.
func NotEvaluable(d Direction, notional, output asset.Amount, reason error) ProfitResult {
	r := ProfitResult{
		Direction: d,
		Status:    StatusNotEvaluable,
		Notional:  notional,
		Output:    output,
		Reason:    reason,
	}
	if gross, err := output.Diff(notional); err == nil {
		r.Gross = gross
	}
	return r
}

// Exceeds reports whether the result is evaluable and its net is strictly above min.
func (r ProfitResult) Exceeds(min *big.Int) bool {
	return r.Status != StatusNotEvaluable && r.Net != nil && r.Net.Cmp(min) > 0
}

// NetString formats Net in whole quote units.
func (r ProfitResult) NetString(places int32) string {
	if r.Net == nil {
		return "n/a"
	}
	return asset.FormatSigned(r.Notional.Asset(), r.Net, places)
}

// GrossString formats Gross in whole quote units.
func (r ProfitResult) GrossString(places int32) string {
	if r.Gross == nil {
		return "n/a"
	}
	return asset.FormatSigned(r.Notional.Asset(), r.Gross, places)
}
