package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
)

// GasEstimate is fetched fresh for every candidate transaction and never cached.
type GasEstimate struct {
	GasPrice *big.Int
	GasLimit uint64
}

// CostWei is gasPrice * gasLimit.
func (g GasEstimate) CostWei() *big.Int {
	if g.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(g.GasPrice, new(big.Int).SetUint64(g.GasLimit))
}

// GasPriceGwei is for display.
func (g GasEstimate) GasPriceGwei() decimal.Decimal {
	if g.GasPrice == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(g.GasPrice, 0).Div(decimal.NewFromInt(params.GWei))
}
