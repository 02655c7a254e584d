package flashloan

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

var (
	contract = common.HexToAddress("0x1000000000000000000000000000000000000001")
	solo     = common.HexToAddress("0x1E0447b19BB6EcFdAe1e4AE1694b0C3659614e4e")
)

func TestBuilder_Calldata(t *testing.T) {
	b, err := NewBuilder(contract, solo, asset.DAI)
	require.NoError(t, err)
	assert.Equal(t, contract, b.Contract())

	notional := asset.Units(asset.DAI, 20000)
	data, err := b.Calldata(domain.UniswapToKyber, notional)
	require.NoError(t, err)

	method := b.abi.Methods["initiateFlashloan"]
	assert.Equal(t, method.ID, data[:4])

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 4)
	assert.Equal(t, solo, args[0].(common.Address))
	assert.Equal(t, asset.AddrDAI, args[1].(common.Address))
	assert.Equal(t, 0, args[2].(*big.Int).Cmp(notional.Raw()))
	assert.Equal(t, uint8(1), args[3].(uint8))
}

func TestBuilder_RejectsBadInput(t *testing.T) {
	_, err := NewBuilder(contract, solo, asset.ETH)
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))

	b, err := NewBuilder(contract, solo, asset.DAI)
	require.NoError(t, err)

	_, err = b.Calldata(domain.KyberToUniswap, asset.Units(asset.ETH, 1))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	_, err = b.Calldata(domain.KyberToUniswap, asset.Zero(asset.DAI))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))

	_, err = b.Calldata(domain.Direction(7), asset.Units(asset.DAI, 1))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}

type codeMap map[common.Address][]byte

func (m codeMap) CodeAt(_ context.Context, a common.Address, _ *big.Int) ([]byte, error) {
	if code, ok := m[a]; ok {
		return code, nil
	}
	return nil, nil
}

type failingReader struct{}

func (failingReader) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestResolve(t *testing.T) {
	forked := common.HexToAddress("0x2000000000000000000000000000000000000002")
	cfg := config.FlashloanConfig{
		Address:   contract.Hex(),
		Addresses: map[string]string{"1337": forked.Hex()},
	}
	reader := codeMap{contract: {0x60, 0x80}, forked: {0x60, 0x80}}

	tests := []struct {
		name    string
		chainID uint64
		cfg     config.FlashloanConfig
		reader  CodeReader
		want    common.Address
		wantErr bool
	}{
		{name: "per-chain deployment", chainID: 1337, cfg: cfg, reader: reader, want: forked},
		{name: "fallback address", chainID: 1, cfg: cfg, reader: reader, want: contract},
		{name: "nothing configured", chainID: 1, cfg: config.FlashloanConfig{}, reader: reader, wantErr: true},
		{name: "no bytecode", chainID: 1, cfg: cfg, reader: codeMap{}, wantErr: true},
		{name: "node error", chainID: 1, cfg: cfg, reader: failingReader{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(context.Background(), tt.reader, tt.cfg, tt.chainID)
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeContractUnresolved), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
