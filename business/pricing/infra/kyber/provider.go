// Package kyber implements the rate-quoting venue on the Kyber network proxy.
package kyber

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
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

const (
	tracerName = "kyber"
	meterName  = "kyber"
)

var (
	_ app.Venue           = (*Provider)(nil)
	_ app.ReferenceSource = (*Provider)(nil)
)

// ContractCaller performs read-only calls. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type providerMetrics struct {
	ratesTotal  metric.Int64Counter
	rateLatency metric.Float64Histogram
	rateErrors  metric.Int64Counter
}

// Provider reads expected rates from the network proxy.
type Provider struct {
	caller   ContractCaller
	proxy    common.Address
	proxyABI abi.ABI

	limiter *ratelimit.Limiter
	logger  logger.LoggerInterface
	cb      *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates a Kyber provider for the proxy at proxy. limiter may be nil.
func NewProvider(caller ContractCaller, proxy common.Address, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*Provider, error) {
	parsed, err := abi.JSON(strings.NewReader(NetworkProxyABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse kyber ABI: %w", err)
	}

	p := &Provider{
		caller:   caller,
		proxy:    proxy,
		proxyABI: parsed,
		limiter:  limiter,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("kyber-proxy")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
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

	p.metrics.ratesTotal, err = meter.Int64Counter(
		"kyber_rates_total",
		metric.WithDescription("Total getExpectedRate calls"),
	)
	if err != nil {
		return err
	}

	p.metrics.rateLatency, err = meter.Float64Histogram(
		"kyber_rate_latency_ms",
		metric.WithDescription("getExpectedRate latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.metrics.rateErrors, err = meter.Int64Counter(
		"kyber_rate_errors_total",
		metric.WithDescription("Failed or zero-rate getExpectedRate calls"),
	)
	return err
}

func (p *Provider) Name() domain.Venue { return domain.VenueKyber }

// Quote prices selling in for buy at the expected rate for that size.
func (p *Provider) Quote(ctx context.Context, in asset.Amount, buy *asset.Asset) (domain.Quote, error) {
	price, err := p.expectedRate(ctx, in.Asset(), buy, in.Raw())
	if err != nil {
		return domain.Quote{}, err
	}

	out, err := price.Convert(in)
	if err != nil {
		return domain.Quote{}, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithCause(err), apperror.WithContext("kyber output conversion"))
	}

	p.logger.Debug(ctx, "kyber quote",
		"sell", in.Asset().Symbol(),
		"buy", buy.Symbol(),
		"amount_in", in.Raw().String(),
		"rate", price.RateRaw().String(),
		"amount_out", out.Raw().String(),
	)
	return domain.NewQuote(domain.VenueKyber, in, out), nil
}

// ReferenceRate returns the rate for exactly one whole base unit.
func (p *Provider) ReferenceRate(ctx context.Context, pair domain.Pair) (asset.Price, error) {
	return p.expectedRate(ctx, pair.Base, pair.Quote, asset.Pow10(int(pair.Base.Decimals())))
}

func (p *Provider) expectedRate(ctx context.Context, src, dest *asset.Asset, qty *big.Int) (asset.Price, error) {
	srcAddr, destAddr := token(src), token(dest)

	ctx, span := p.tracer.Start(ctx, "kyber.get_expected_rate",
		trace.WithAttributes(
			attribute.String("src", srcAddr.Hex()),
			attribute.String("dest", destAddr.Hex()),
			attribute.String("src_qty", qty.String()),
		),
	)
	defer span.End()

	start := time.Now()
	p.metrics.ratesTotal.Add(ctx, 1)

	rate, err := p.getExpectedRate(ctx, srcAddr, destAddr, qty)
	p.metrics.rateLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		p.metrics.rateErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate failed")
		return asset.Price{}, err
	}

	span.SetAttributes(attribute.String("expected_rate", rate.String()))
	span.SetStatus(codes.Ok, "rate received")
	return asset.NewPriceFromBigInt(src, dest, rate, time.Now()), nil
}

func (p *Provider) getExpectedRate(ctx context.Context, src, dest common.Address, qty *big.Int) (*big.Int, error) {
	callData, err := p.proxyABI.Pack("getExpectedRate", src, dest, qty)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := p.cb.Execute(func() ([]byte, error) {
		return p.caller.CallContract(ctx, ethereum.CallMsg{To: &p.proxy, Data: callData}, nil)
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeQuoteUnavailable, "kyber getExpectedRate")
	}

	outputs, err := p.proxyABI.Unpack("getExpectedRate", result)
	if err != nil || len(outputs) < 2 {
		return nil, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithCause(err), apperror.WithContext("decode getExpectedRate"))
	}
	rate, _ := outputs[0].(*big.Int)
	if rate == nil || rate.Sign() == 0 {
		return nil, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithContext("kyber has no rate for this size"))
	}
	return rate, nil
}

func token(a *asset.Asset) common.Address {
	if a.IsNative() {
		return NativeToken
	}
	return a.Address()
}
