package uniswap

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var (
	routerAddr  = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	factoryAddr = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	pairAddr    = common.HexToAddress("0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11")
)

func testConfig() config.UniswapConfig {
	return config.UniswapConfig{
		RouterAddress:  routerAddr.Hex(),
		FactoryAddress: factoryAddr.Hex(),
		WETHAddress:    asset.AddrWETH.Hex(),
	}
}

// fakeChain serves the router, factory and one pair from in-memory state.
type fakeChain struct {
	t       *testing.T
	router  abi.ABI
	factory abi.ABI
	pair    abi.ABI

	price    *big.Int // quote wei per base wei, scaled 1e18
	reserve0 *big.Int // DAI
	reserve1 *big.Int // WETH
	revert   bool

	mu       sync.Mutex
	calls    map[string]int
	lastPath []common.Address
}

func newFakeChain(t *testing.T) *fakeChain {
	parse := func(s string) abi.ABI {
		a, err := abi.JSON(strings.NewReader(s))
		require.NoError(t, err)
		return a
	}
	return &fakeChain{
		t:        t,
		router:   parse(RouterV2ABI),
		factory:  parse(FactoryV2ABI),
		pair:     parse(PairV2ABI),
		price:    new(big.Int).Mul(big.NewInt(2000), asset.Pow10(18)),
		reserve0: new(big.Int).Mul(big.NewInt(40_000_000), asset.Pow10(18)),
		reserve1: new(big.Int).Mul(big.NewInt(20_000), asset.Pow10(18)),
		calls:    map[string]int{},
	}
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sel := msg.Data[:4]
	switch *msg.To {
	case routerAddr:
		m := f.router.Methods["getAmountsOut"]
		require.True(f.t, bytes.Equal(sel, m.ID))
		f.calls["getAmountsOut"]++
		if f.revert {
			return nil, errors.New("execution reverted: UniswapV2Library: INSUFFICIENT_LIQUIDITY")
		}
		args, err := m.Inputs.Unpack(msg.Data[4:])
		require.NoError(f.t, err)
		in := args[0].(*big.Int)
		f.lastPath = args[1].([]common.Address)

		var out *big.Int
		if f.lastPath[0] == asset.AddrWETH {
			out = new(big.Int).Div(new(big.Int).Mul(in, f.price), asset.Pow10(18))
		} else {
			out = new(big.Int).Div(new(big.Int).Mul(in, asset.Pow10(18)), f.price)
		}
		return m.Outputs.Pack([]*big.Int{in, out})

	case factoryAddr:
		f.calls["getPair"]++
		return f.factory.Methods["getPair"].Outputs.Pack(pairAddr)

	case pairAddr:
		if bytes.Equal(sel, f.pair.Methods["token0"].ID) {
			f.calls["token0"]++
			return f.pair.Methods["token0"].Outputs.Pack(asset.AddrDAI)
		}
		f.calls["getReserves"]++
		return f.pair.Methods["getReserves"].Outputs.Pack(f.reserve0, f.reserve1, uint32(1700000000))
	}
	f.t.Fatalf("unexpected call to %s", msg.To.Hex())
	return nil, nil
}

func newTestProvider(t *testing.T, caller ContractCaller) *Provider {
	p, err := NewProvider(caller, testConfig(), nil, logger.Nop{})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestProvider_QuoteMapsNativeToWETH(t *testing.T) {
	chain := newFakeChain(t)
	p := newTestProvider(t, chain)

	q, err := p.Quote(context.Background(), asset.Units(asset.ETH, 10), asset.DAI)
	require.NoError(t, err)

	assert.Equal(t, []common.Address{asset.AddrWETH, asset.AddrDAI}, chain.lastPath)
	assert.Equal(t, domain.VenueUniswap, q.Venue)
	assert.True(t, q.Output.Equals(asset.Units(asset.DAI, 20000)), "got %s", q.Output)
	assert.True(t, q.Sell.Equals(asset.ETH))
}

func TestProvider_QuoteBuyLeg(t *testing.T) {
	chain := newFakeChain(t)
	p := newTestProvider(t, chain)

	q, err := p.Quote(context.Background(), asset.Units(asset.DAI, 20000), asset.ETH)
	require.NoError(t, err)

	assert.Equal(t, []common.Address{asset.AddrDAI, asset.AddrWETH}, chain.lastPath)
	assert.True(t, q.Output.Equals(asset.Units(asset.ETH, 10)))
	assert.True(t, q.Buy.Equals(asset.ETH))
}

func TestProvider_RevertIsQuoteUnavailable(t *testing.T) {
	chain := newFakeChain(t)
	chain.revert = true
	p := newTestProvider(t, chain)

	for i := 0; i < 10; i++ {
		_, err := p.Quote(context.Background(), asset.Units(asset.DAI, 20000), asset.ETH)
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeQuoteUnavailable), "attempt %d: %v", i, err)
	}
	assert.Equal(t, 10, chain.calls["getAmountsOut"], "reverts must not open the breaker")
}

func TestProvider_ReservesOrderedByPair(t *testing.T) {
	chain := newFakeChain(t)
	p := newTestProvider(t, chain)
	pair := domain.NewPair(asset.ETH, asset.DAI)

	r, err := p.Reserves(context.Background(), pair)
	require.NoError(t, err)
	assert.True(t, r.Base.Equals(asset.Units(asset.ETH, 20_000)), "base reserve %s", r.Base)
	assert.True(t, r.Quote.Equals(asset.Units(asset.DAI, 40_000_000)), "quote reserve %s", r.Quote)

	_, err = p.Reserves(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, 1, chain.calls["getPair"], "pair address is cached")
	assert.Equal(t, 2, chain.calls["getReserves"])
}

func TestDecodeReserves_RejectsMalformedOutputs(t *testing.T) {
	tests := []struct {
		name    string
		outputs []any
	}{
		{"too few values", []any{big.NewInt(1)}},
		{"wrong type", []any{uint32(1), big.NewInt(2)}},
		{"nil reserve", []any{(*big.Int)(nil), big.NewInt(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, _, err := decodeReserves(tt.outputs)
				assert.Equal(t, apperror.CodeEthereumRPCError, apperror.GetCode(err))
			})
		})
	}

	r0, r1, err := decodeReserves([]any{big.NewInt(5), big.NewInt(7), uint32(1700000000)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), r0.Int64())
	assert.Equal(t, int64(7), r1.Int64())
}
