// Package uniswap implements the AMM venue on Uniswap V2.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/cache"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

const (
	tracerName = "uniswap"
	meterName  = "uniswap"

	pairTTL = time.Hour
)

var (
	_ app.Venue         = (*Provider)(nil)
	_ app.ReserveSource = (*Provider)(nil)
)

// ContractCaller performs read-only calls. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Provider quotes through the V2 router and reads pair reserves.
type Provider struct {
	caller  ContractCaller
	router  common.Address
	factory common.Address
	weth    common.Address

	routerABI  abi.ABI
	factoryABI abi.ABI
	pairABI    abi.ABI

	pairs   *cache.Cache[string, common.Address]
	limiter *ratelimit.Limiter
	logger  logger.LoggerInterface
	cb      *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates a new Uniswap V2 provider. limiter may be nil.
func NewProvider(caller ContractCaller, cfg config.UniswapConfig, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*Provider, error) {
	routerABI, err := abi.JSON(strings.NewReader(RouterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	factoryABI, err := abi.JSON(strings.NewReader(FactoryV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(PairV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair ABI: %w", err)
	}

	p := &Provider{
		caller:     caller,
		router:     cfg.Router(),
		factory:    cfg.Factory(),
		weth:       cfg.WETH(),
		routerABI:  routerABI,
		factoryABI: factoryABI,
		pairABI:    pairABI,
		pairs:      cache.New[string, common.Address](10 * time.Minute),
		limiter:    limiter,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("uniswap-router")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	// Insufficient liquidity reverts are answers, not outages.
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || strings.Contains(err.Error(), "execution reverted")
	}
	p.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return p, nil
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &providerMetrics{}

	p.metrics.quotesTotal, err = meter.Int64Counter(
		"uniswap_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswap_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswap_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Close stops the pair cache janitor.
func (p *Provider) Close() {
	p.pairs.Close()
}

func (p *Provider) Name() domain.Venue { return domain.VenueUniswap }

// Quote calls getAmountsOut over the direct path in->buy.
func (p *Provider) Quote(ctx context.Context, in asset.Amount, buy *asset.Asset) (domain.Quote, error) {
	tokenIn, tokenOut := p.token(in.Asset()), p.token(buy)

	ctx, span := p.tracer.Start(ctx, "uniswap.get_amounts_out",
		trace.WithAttributes(
			attribute.String("token_in", tokenIn.Hex()),
			attribute.String("token_out", tokenOut.Hex()),
			attribute.String("amount_in", in.Raw().String()),
		),
	)
	defer span.End()

	start := time.Now()
	p.metrics.quotesTotal.Add(ctx, 1)

	out, err := p.getAmountsOut(ctx, in.Raw(), tokenIn, tokenOut)
	p.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		p.metrics.quoteErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return domain.Quote{}, err
	}

	q := domain.NewQuote(domain.VenueUniswap, in, asset.NewAmount(buy, out))

	span.SetAttributes(attribute.String("amount_out", out.String()))
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "uniswap quote",
		"token_in", tokenIn.Hex(),
		"token_out", tokenOut.Hex(),
		"amount_in", in.Raw().String(),
		"amount_out", out.String(),
	)

	return q, nil
}

func (p *Provider) getAmountsOut(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) (*big.Int, error) {
	callData, err := p.routerABI.Pack("getAmountsOut", amountIn, []common.Address{tokenIn, tokenOut})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := p.call(ctx, p.router, callData)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeQuoteUnavailable, "uniswap getAmountsOut")
	}

	outputs, err := p.routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return nil, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithCause(err), apperror.WithContext("decode getAmountsOut"))
	}
	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) != 2 {
		return nil, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithContext(fmt.Sprintf("unexpected getAmountsOut result: %v", outputs[0])))
	}
	return amounts[1], nil
}

// Reserves returns the pair's reserves ordered as pair.Base / pair.Quote.
func (p *Provider) Reserves(ctx context.Context, pair domain.Pair) (domain.Reserves, error) {
	ctx, span := p.tracer.Start(ctx, "uniswap.get_reserves",
		trace.WithAttributes(attribute.String("pair", pair.String())))
	defer span.End()

	pairAddr, err := p.pairAddress(ctx, pair)
	if err != nil {
		span.RecordError(err)
		return domain.Reserves{}, err
	}

	data, err := p.pairABI.Pack("getReserves")
	if err != nil {
		return domain.Reserves{}, fmt.Errorf("failed to encode call: %w", err)
	}
	result, err := p.call(ctx, pairAddr, data)
	if err != nil {
		return domain.Reserves{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "uniswap getReserves")
	}
	outputs, err := p.pairABI.Unpack("getReserves", result)
	if err != nil {
		return domain.Reserves{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err), apperror.WithContext("decode getReserves"))
	}
	r0, r1, err := decodeReserves(outputs)
	if err != nil {
		return domain.Reserves{}, err
	}

	token0, err := p.token0(ctx, pairAddr)
	if err != nil {
		return domain.Reserves{}, err
	}

	baseRes, quoteRes := r0, r1
	if token0 != p.token(pair.Base) {
		baseRes, quoteRes = r1, r0
	}

	span.SetAttributes(
		attribute.String("pair_address", pairAddr.Hex()),
		attribute.String("reserve_base", baseRes.String()),
		attribute.String("reserve_quote", quoteRes.String()),
	)

	return domain.Reserves{
		Pair:      pair,
		Base:      asset.NewAmount(pair.Base, baseRes),
		Quote:     asset.NewAmount(pair.Quote, quoteRes),
		UpdatedAt: time.Now(),
	}, nil
}

func (p *Provider) pairAddress(ctx context.Context, pair domain.Pair) (common.Address, error) {
	a, b := p.token(pair.Base), p.token(pair.Quote)
	key := a.Hex() + "/" + b.Hex()
	if addr, ok := p.pairs.Get(ctx, key); ok {
		return addr, nil
	}

	data, err := p.factoryABI.Pack("getPair", a, b)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode call: %w", err)
	}
	result, err := p.call(ctx, p.factory, data)
	if err != nil {
		return common.Address{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "uniswap getPair")
	}
	outputs, err := p.factoryABI.Unpack("getPair", result)
	if err != nil || len(outputs) == 0 {
		return common.Address{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err), apperror.WithContext("decode getPair"))
	}
	addr, _ := outputs[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithContext("no uniswap pair for "+pair.String()))
	}

	p.pairs.Set(ctx, key, addr, pairTTL)
	return addr, nil
}

func (p *Provider) token0(ctx context.Context, pairAddr common.Address) (common.Address, error) {
	data, err := p.pairABI.Pack("token0")
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode call: %w", err)
	}
	result, err := p.call(ctx, pairAddr, data)
	if err != nil {
		return common.Address{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "uniswap token0")
	}
	outputs, err := p.pairABI.Unpack("token0", result)
	if err != nil || len(outputs) == 0 {
		return common.Address{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err), apperror.WithContext("decode token0"))
	}
	addr, _ := outputs[0].(common.Address)
	return addr, nil
}

// call executes a read-only call behind the rate limiter and circuit breaker.
func (p *Provider) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.cb.Execute(func() ([]byte, error) {
		return p.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
}

// token maps native ETH to WETH; the router only trades ERC-20s.
func (p *Provider) token(a *asset.Asset) common.Address {
	if a.IsNative() {
		return p.weth
	}
	return a.Address()
}

// decodeReserves takes reserve0 and reserve1 from unpacked getReserves outputs.
func decodeReserves(outputs []any) (*big.Int, *big.Int, error) {
	if len(outputs) < 2 {
		return nil, nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithContext(fmt.Sprintf("getReserves returned %d values", len(outputs))))
	}
	r0, ok0 := outputs[0].(*big.Int)
	r1, ok1 := outputs[1].(*big.Int)
	if !ok0 || !ok1 || r0 == nil || r1 == nil {
		return nil, nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithContext(fmt.Sprintf("unexpected getReserves outputs %T, %T", outputs[0], outputs[1])))
	}
	return r0, r1, nil
}
