package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

// GateConfig configures an ExecutionGate.
type GateConfig struct {
	Notional      asset.Amount
	SubmitTimeout time.Duration
	LockKey       string
	LockTTL       time.Duration
}

type gateMetrics struct {
	submissions metric.Int64Counter
	dropped     metric.Int64Counter
	outcomes    metric.Int64Counter
	inFlight    metric.Int64UpDownCounter
}

// Optional collaborators; nil fields are skipped.
type GateHooks struct {
	Lock     DistributedLock
	Journal  Journal
	Notifier Notifier
}

var _ GasEstimator = (*ExecutionGate)(nil)

// ExecutionGate allows at most one submission in flight. Idle -> InFlight is a
// compare-and-set; InFlight -> Idle happens unconditionally when Submit returns.
type ExecutionGate struct {
	state atomic.Int32

	builder TradeBuilder
	gas     blockchainApp.GasOracle
	sender  blockchainApp.TxSender
	hooks   GateHooks
	cfg     GateConfig
	log     logger.LoggerInterface

	tracer  trace.Tracer
	metrics *gateMetrics
}

func NewExecutionGate(builder TradeBuilder, gas blockchainApp.GasOracle, sender blockchainApp.TxSender,
	hooks GateHooks, cfg GateConfig, log logger.LoggerInterface) (*ExecutionGate, error) {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 3 * time.Minute
	}
	if cfg.LockKey == "" {
		cfg.LockKey = "flasharb:execution:" + sender.From().Hex()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.SubmitTimeout + time.Minute
	}

	g := &ExecutionGate{
		builder: builder,
		gas:     gas,
		sender:  sender,
		hooks:   hooks,
		cfg:     cfg,
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return g, nil
}

func (g *ExecutionGate) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gateMetrics{}

	g.metrics.submissions, err = meter.Int64Counter(
		"arbitrage_submissions_total",
		metric.WithDescription("Transactions admitted through the gate"),
	)
	if err != nil {
		return err
	}

	g.metrics.dropped, err = meter.Int64Counter(
		"arbitrage_dropped_total",
		metric.WithDescription("Profitable results dropped because a trade was in flight"),
	)
	if err != nil {
		return err
	}

	g.metrics.outcomes, err = meter.Int64Counter(
		"arbitrage_outcomes_total",
		metric.WithDescription("Execution outcomes by status"),
	)
	if err != nil {
		return err
	}

	g.metrics.inFlight, err = meter.Int64UpDownCounter(
		"arbitrage_in_flight",
		metric.WithDescription("1 while a submission is outstanding"),
	)
	return err
}

// State returns the current gate state.
func (g *ExecutionGate) State() domain.GateState {
	return domain.GateState(g.state.Load())
}

// Contract returns the flash loan contract the gate submits to.
func (g *ExecutionGate) Contract() common.Address { return g.builder.Contract() }

// EstimateGas builds the call for d at the fixed notional and asks the oracle
// for a price and limit. A call that would revert fails with CodeGasEstimationFailed.
func (g *ExecutionGate) EstimateGas(ctx context.Context, d domain.Direction) (blockchainDomain.GasEstimate, error) {
	data, err := g.builder.Calldata(d, g.cfg.Notional)
	if err != nil {
		return blockchainDomain.GasEstimate{}, err
	}
	return g.gas.Estimate(ctx, g.sender.From(), g.builder.Contract(), data)
}

// Submit sends result as a transaction if the gate is idle. A busy gate drops
// the result and returns CodeGateInFlight; the caller must not retry it.
// The returned execution carries the outcome; err is the sender's failure, if any.
func (g *ExecutionGate) Submit(ctx context.Context, block uint64, result domain.ProfitResult) (*domain.Execution, error) {
	if result.Status != domain.StatusProfitable || result.GasCost == nil {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("only profitable results are submitted"))
	}

	if !g.state.CompareAndSwap(int32(domain.GateIdle), int32(domain.GateInFlight)) {
		g.metrics.dropped.Add(ctx, 1)
		g.log.Info(ctx, "execution gate in flight, dropping opportunity",
			"block", block,
			"direction", result.Direction.ShortString(),
			"net_profit", result.NetString(4))
		return nil, apperror.New(apperror.CodeGateInFlight)
	}
	g.metrics.inFlight.Add(ctx, 1)
	defer func() {
		g.state.Store(int32(domain.GateIdle))
		g.metrics.inFlight.Add(context.Background(), -1)
	}()

	if g.hooks.Lock != nil {
		release, err := g.hooks.Lock.Acquire(ctx, g.cfg.LockKey, g.cfg.LockTTL)
		if err != nil {
			g.metrics.dropped.Add(ctx, 1)
			g.log.Info(ctx, "execution lock unavailable, dropping opportunity",
				"block", block, "direction", result.Direction.ShortString(), "error", err)
			return nil, apperror.Wrap(err, apperror.CodeLockHeld, "execution lock")
		}
		defer release()
	}

	return g.submit(ctx, block, result)
}

func (g *ExecutionGate) submit(ctx context.Context, block uint64, result domain.ProfitResult) (*domain.Execution, error) {
	ctx, span := g.tracer.Start(ctx, "arbitrage.submit",
		trace.WithAttributes(
			attribute.Int64("block", int64(block)),
			attribute.String("direction", result.Direction.ShortString()),
			attribute.String("predicted_net", result.Net.String()),
		),
	)
	defer span.End()

	exec := domain.NewExecution(block, result, g.builder.Contract())
	g.metrics.submissions.Add(ctx, 1)

	data, err := g.builder.Calldata(result.Direction, result.Notional)
	if err != nil {
		exec.Complete(blockchainDomain.Receipt{}, err)
		g.finish(ctx, exec)
		return exec, err
	}

	g.record(ctx, exec)
	g.log.Info(ctx, "submitting flash loan",
		"execution_id", exec.ID.String(),
		"block", block,
		"direction", result.Direction.String(),
		"notional", result.Notional.StringFixed(2),
		"predicted_net", result.NetString(4),
		"gas_limit", exec.Gas.GasLimit,
		"gas_price_gwei", exec.Gas.GasPriceGwei().StringFixed(2))

	sendCtx, cancel := context.WithTimeout(ctx, g.cfg.SubmitTimeout)
	defer cancel()

	receipt, err := g.sender.Send(sendCtx, blockchainDomain.TxRequest{
		To:       g.builder.Contract(),
		Data:     data,
		GasLimit: exec.Gas.GasLimit,
		GasPrice: exec.Gas.GasPrice,
	})
	exec.Complete(receipt, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(exec.Status))
	} else {
		span.SetStatus(codes.Ok, string(exec.Status))
	}
	span.SetAttributes(attribute.String("tx_hash", exec.TxHash.Hex()))

	g.finish(ctx, exec)
	return exec, err
}

func (g *ExecutionGate) finish(ctx context.Context, exec *domain.Execution) {
	g.metrics.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(exec.Status))))
	g.record(ctx, exec)

	if g.hooks.Notifier != nil {
		if err := g.hooks.Notifier.Notify(ctx, exec); err != nil {
			g.log.Warn(ctx, "execution notification failed", "execution_id", exec.ID.String(), "error", err)
		}
	}
}

func (g *ExecutionGate) record(ctx context.Context, exec *domain.Execution) {
	if g.hooks.Journal == nil {
		return
	}
	if err := g.hooks.Journal.Record(ctx, exec); err != nil {
		g.log.Warn(ctx, "execution journal write failed", "execution_id", exec.ID.String(), "error", err)
	}
}
