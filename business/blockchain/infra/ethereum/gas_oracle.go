package ethereum

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// GasBackend is the part of ethclient.Client the oracle needs.
type GasBackend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	// MaxGasPrice is the highest price the bot will pay. A network price above it
	// fails the estimate. Nil disables the cap.
	MaxGasPrice *big.Int
}

// NewGasOracleConfig caps the price at maxGwei.
func NewGasOracleConfig(maxGwei uint64) GasOracleConfig {
	maxGas := new(big.Int).Mul(new(big.Int).SetUint64(maxGwei), big.NewInt(params.GWei))
	return GasOracleConfig{MaxGasPrice: maxGas}
}

type gasOracleMetrics struct {
	priceGwei       metric.Float64Gauge
	estimates       metric.Int64Counter
	estimateReverts metric.Int64Counter
	overCap         metric.Int64Counter
}

// GasOracle asks the node for a gas price and a gas limit in parallel.
type GasOracle struct {
	config  GasOracleConfig
	backend GasBackend
	logger  logger.LoggerInterface

	priceCB    *circuitbreaker.CircuitBreaker[*big.Int]
	estimateCB *circuitbreaker.CircuitBreaker[uint64]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

var _ app.GasOracle = (*GasOracle)(nil)

func NewGasOracle(backend GasBackend, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:  cfg,
		backend: backend,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := g.initMetrics(); err != nil {
		return nil, err
	}
	g.initCircuitBreakers()
	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.priceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Last suggested gas price"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimates, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateReverts, err = meter.Int64Counter(
		"gas_estimate_reverts_total",
		metric.WithDescription("Gas estimations rejected because the call would revert"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.overCap, err = meter.Int64Counter(
		"gas_price_over_cap_total",
		metric.WithDescription("Estimates refused because the network price exceeded the cap"),
		metric.WithUnit("{estimate}"),
	)
	return err
}

func (g *GasOracle) initCircuitBreakers() {
	onChange := func(name string, from, to gobreaker.State) {
		g.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	priceCfg := circuitbreaker.DefaultConfig("gas-price")
	priceCfg.OnStateChange = onChange
	g.priceCB = circuitbreaker.New[*big.Int](priceCfg)

	// A revert is the contract saying no, not the node failing.
	estCfg := circuitbreaker.DefaultConfig("gas-estimate")
	estCfg.OnStateChange = onChange
	estCfg.IsSuccessful = func(err error) bool { return err == nil || isRevert(err) }
	g.estimateCB = circuitbreaker.New[uint64](estCfg)
}

// Estimate fetches price and limit for the call concurrently.
func (g *GasOracle) Estimate(ctx context.Context, from, to common.Address, data []byte) (domain.GasEstimate, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	g.metrics.estimates.Add(ctx, 1)

	var (
		price *big.Int
		limit uint64
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		p, err := g.priceCB.Execute(func() (*big.Int, error) {
			return g.backend.SuggestGasPrice(egCtx)
		})
		if err != nil {
			return apperror.Wrap(err, apperror.CodeEthereumRPCError, "suggest gas price")
		}
		price = p
		return nil
	})
	eg.Go(func() error {
		l, err := g.estimateCB.Execute(func() (uint64, error) {
			return g.backend.EstimateGas(egCtx, ethereum.CallMsg{From: from, To: &to, Data: data})
		})
		if err != nil {
			if isRevert(err) {
				g.metrics.estimateReverts.Add(ctx, 1)
			}
			return apperror.New(apperror.CodeGasEstimationFailed,
				apperror.WithCause(err),
				apperror.WithContext(to.Hex()))
		}
		limit = l
		return nil
	})

	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return domain.GasEstimate{}, err
	}

	if g.config.MaxGasPrice != nil && price.Cmp(g.config.MaxGasPrice) > 0 {
		g.metrics.overCap.Add(ctx, 1)
		g.logger.Warn(ctx, "gas price above cap", "wei", price.String(), "cap", g.config.MaxGasPrice.String())
		err := apperror.New(apperror.CodeGasPriceAboveCap,
			apperror.WithContext(price.String()+" > "+g.config.MaxGasPrice.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas price above cap")
		return domain.GasEstimate{}, err
	}

	est := domain.GasEstimate{GasPrice: price, GasLimit: limit}
	gwei, _ := est.GasPriceGwei().Float64()
	g.metrics.priceGwei.Record(ctx, gwei)

	span.SetAttributes(
		attribute.Int64("gas_limit", int64(limit)),
		attribute.String("gas_price", price.String()),
	)
	span.SetStatus(codes.Ok, "estimated")
	return est, nil
}

func isRevert(err error) bool {
	if err == nil {
		return false
	}
	var de interface{ ErrorData() interface{} }
	if errors.As(err, &de) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
