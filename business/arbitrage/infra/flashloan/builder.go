// Package flashloan encodes calls to the deployed flash loan contract.
package flashloan

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

var _ app.TradeBuilder = (*Builder)(nil)

// Builder packs initiateFlashloan calls. The loan is always taken in token.
type Builder struct {
	contract common.Address
	solo     common.Address
	token    *asset.Asset
	abi      abi.ABI
}

// NewBuilder creates a builder for contract borrowing token from the solo margin pool.
func NewBuilder(contract, solo common.Address, token *asset.Asset) (*Builder, error) {
	if token == nil || token.IsNative() {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("flash loan token must be an ERC20"))
	}
	parsed, err := abi.JSON(strings.NewReader(ContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse flashloan ABI: %w", err)
	}
	return &Builder{contract: contract, solo: solo, token: token, abi: parsed}, nil
}

func (b *Builder) Contract() common.Address { return b.contract }

// Calldata encodes initiateFlashloan(solo, token, amount, direction).
func (b *Builder) Calldata(d domain.Direction, notional asset.Amount) ([]byte, error) {
	if !d.Valid() {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("direction "+d.String()))
	}
	if !notional.Asset().Equals(b.token) || !notional.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("loan amount %s, want positive %s", notional, b.token.Symbol())))
	}
	return b.abi.Pack("initiateFlashloan", b.solo, b.token.Address(), notional.Raw(), uint8(d))
}

// CodeReader reads deployed bytecode. *ethclient.Client satisfies it.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Resolve picks the contract deployment for chainID and checks it holds code.
// Any failure is CodeContractUnresolved and must stop startup.
func Resolve(ctx context.Context, reader CodeReader, cfg config.FlashloanConfig, chainID uint64) (common.Address, error) {
	addr, ok := cfg.AddressFor(chainID)
	if !ok {
		return common.Address{}, apperror.New(apperror.CodeContractUnresolved,
			apperror.WithContext(fmt.Sprintf("no flashloan deployment for chain %d", chainID)))
	}

	code, err := reader.CodeAt(ctx, addr, nil)
	if err != nil {
		return common.Address{}, apperror.New(apperror.CodeContractUnresolved,
			apperror.WithCause(err), apperror.WithContext(addr.Hex()))
	}
	if len(code) == 0 {
		return common.Address{}, apperror.New(apperror.CodeContractUnresolved,
			apperror.WithContext("no code at "+addr.Hex()))
	}
	return addr, nil
}
