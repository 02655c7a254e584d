package domain

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

func dai(s string) asset.Amount {
	a, err := asset.ParseString(asset.DAI, s)
	if err != nil {
		panic(err)
	}
	return a
}

func TestNewGasCost(t *testing.T) {
	tests := []struct {
		name        string
		gasLimit    uint64
		gasPriceWei string
		ethPrice    string
		wantETH     string
		wantDAI     string
	}{
		{"standard_gas_25gwei_3400", 200_000, "25000000000", "3400", "0.005", "17"},
		{"high_gas_100gwei", 200_000, "100000000000", "3400", "0.02", "68"},
		{"low_gas_5gwei", 200_000, "5000000000", "3400", "0.001", "3.4"},
		{"flashloan_250k_10gwei_2000", 250_000, "10000000000", "2000", "0.0025", "5"},
		{"zero_gas_limit", 0, "25000000000", "3400", "0", "0"},
		{"fractional_price", 200_000, "25000000000", "2000.5", "0.005", "10.0025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, _ := new(big.Int).SetString(tt.gasPriceWei, 10)
			est := blockchainDomain.GasEstimate{GasPrice: price, GasLimit: tt.gasLimit}
			ref := asset.NewPrice(asset.ETH, asset.DAI, decimal.RequireFromString(tt.ethPrice), time.Now())

			cost, err := NewGasCost(est, ref)
			if err != nil {
				t.Fatalf("NewGasCost: %v", err)
			}
			if got := cost.Native.ToDecimal(); !got.Equal(decimal.RequireFromString(tt.wantETH)) {
				t.Errorf("Native = %s, want %s", got, tt.wantETH)
			}
			if got := cost.Quote.ToDecimal(); !got.Equal(decimal.RequireFromString(tt.wantDAI)) {
				t.Errorf("Quote = %s, want %s", got, tt.wantDAI)
			}
			if !cost.Quote.Asset().Equals(asset.DAI) {
				t.Errorf("Quote asset = %s", cost.Quote.Asset())
			}
		})
	}
}

func TestNewGasCost_RejectsNonNativeReference(t *testing.T) {
	est := blockchainDomain.GasEstimate{GasPrice: big.NewInt(25_000_000_000), GasLimit: 200_000}
	ref := asset.NewPrice(asset.USDC, asset.DAI, decimal.NewFromInt(1), time.Now())

	_, err := NewGasCost(est, ref)
	if !errors.Is(err, ErrGasAssetNotNative) {
		t.Fatalf("err = %v, want ErrGasAssetNotNative", err)
	}
}

func TestComputeProfit(t *testing.T) {
	tests := []struct {
		name               string
		notional, out, gas string
		wantGross, wantNet string
	}{
		{"scenario_20000_20050_5", "20000", "20050", "5", "50", "45"},
		{"gas_eats_profit", "20000", "20004", "5", "4", "-1"},
		{"loss", "20000", "19990", "5", "-10", "-15"},
		{"wei_precision", "20000", "20000.000000000000000003", "0.000000000000000001", "0.000000000000000003", "0.000000000000000002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross, net, err := ComputeProfit(dai(tt.notional), dai(tt.out), dai(tt.gas))
			if err != nil {
				t.Fatalf("ComputeProfit: %v", err)
			}
			if got := decimal.NewFromBigInt(gross, -18); !got.Equal(decimal.RequireFromString(tt.wantGross)) {
				t.Errorf("gross = %s, want %s", got, tt.wantGross)
			}
			if got := decimal.NewFromBigInt(net, -18); !got.Equal(decimal.RequireFromString(tt.wantNet)) {
				t.Errorf("net = %s, want %s", got, tt.wantNet)
			}
		})
	}
}

func TestComputeProfit_RejectsMixedAssets(t *testing.T) {
	_, _, err := ComputeProfit(dai("1"), dai("2"), asset.Units(asset.ETH, 0))
	if err == nil {
		t.Fatal("gas in ETH was accepted")
	}
}

func result(d Direction, status Status, net int64) ProfitResult {
	return ProfitResult{
		Direction: d,
		Status:    status,
		Notional:  dai("20000"),
		Net:       new(big.Int).Mul(big.NewInt(net), asset.Pow10(18)),
	}
}

func TestSelectBest(t *testing.T) {
	zero := new(big.Int)

	tests := []struct {
		name    string
		results []ProfitResult
		min     *big.Int
		want    *Direction
	}{
		{
			name:    "higher_net_wins",
			results: []ProfitResult{result(KyberToUniswap, StatusProfitable, 10), result(UniswapToKyber, StatusProfitable, 45)},
			min:     zero,
			want:    ptr(UniswapToKyber),
		},
		{
			name:    "tie_keeps_first",
			results: []ProfitResult{result(KyberToUniswap, StatusProfitable, 45), result(UniswapToKyber, StatusProfitable, 45)},
			min:     zero,
			want:    ptr(KyberToUniswap),
		},
		{
			name:    "not_evaluable_never_wins",
			results: []ProfitResult{result(KyberToUniswap, StatusNotEvaluable, 100), result(UniswapToKyber, StatusUnprofitable, -3)},
			min:     zero,
		},
		{
			name:    "threshold_is_strict",
			results: []ProfitResult{result(KyberToUniswap, StatusProfitable, 45)},
			min:     new(big.Int).Mul(big.NewInt(45), asset.Pow10(18)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectBest(tt.results, tt.min)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("SelectBest = %s, want none", got.Direction.ShortString())
			case tt.want != nil && got == nil:
				t.Errorf("SelectBest = none, want %s", tt.want.ShortString())
			case tt.want != nil && got.Direction != *tt.want:
				t.Errorf("SelectBest = %s, want %s", got.Direction.ShortString(), tt.want.ShortString())
			}
		})
	}
}

func ptr(d Direction) *Direction { return &d }

func TestDirection_Legs(t *testing.T) {
	s := &pricingDomain.RateSnapshot{
		ABuy:  pricingDomain.Quote{Venue: pricingDomain.VenueUniswap, Output: asset.Units(asset.ETH, 1)},
		ASell: pricingDomain.Quote{Venue: pricingDomain.VenueUniswap, Output: dai("1")},
		BBuy:  pricingDomain.Quote{Venue: pricingDomain.VenueKyber, Output: asset.Units(asset.ETH, 2)},
		BSell: pricingDomain.Quote{Venue: pricingDomain.VenueKyber, Output: dai("2")},
	}

	buy, sell := KyberToUniswap.Legs(s)
	if buy.Venue != pricingDomain.VenueKyber || sell.Venue != pricingDomain.VenueUniswap {
		t.Errorf("KyberToUniswap legs = %s/%s", buy.Venue, sell.Venue)
	}
	buy, sell = UniswapToKyber.Legs(s)
	if buy.Venue != pricingDomain.VenueUniswap || sell.Venue != pricingDomain.VenueKyber {
		t.Errorf("UniswapToKyber legs = %s/%s", buy.Venue, sell.Venue)
	}
	if uint8(KyberToUniswap) != 0 || uint8(UniswapToKyber) != 1 {
		t.Error("direction values must match the contract enum")
	}
}

func TestExecution_Complete(t *testing.T) {
	r := result(KyberToUniswap, StatusProfitable, 45)
	contract := common.HexToAddress("0x1")

	tests := []struct {
		name    string
		receipt blockchainDomain.Receipt
		err     error
		want    ExecutionStatus
	}{
		{"confirmed", blockchainDomain.Receipt{Status: blockchainDomain.ReceiptSuccess, GasUsed: 210000}, nil, ExecutionConfirmed},
		{"reverted", blockchainDomain.Receipt{Status: blockchainDomain.ReceiptReverted}, errors.New("reverted"), ExecutionReverted},
		{"rejected", blockchainDomain.Receipt{}, errors.New("nonce too low"), ExecutionFailed},
		{"dry_run", blockchainDomain.Receipt{Status: blockchainDomain.ReceiptSimulated}, nil, ExecutionSimulated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecution(100, r, contract)
			if e.Status != ExecutionSubmitted || e.Status.Final() {
				t.Fatalf("new execution status = %s", e.Status)
			}
			e.Complete(tt.receipt, tt.err)
			if e.Status != tt.want {
				t.Errorf("Status = %s, want %s", e.Status, tt.want)
			}
			if e.PredictedNet.Cmp(r.Net) != 0 {
				t.Error("predicted net changed after completion")
			}
			if (tt.err != nil) != (e.Error != "") {
				t.Errorf("Error = %q", e.Error)
			}
		})
	}
}
