package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// PipelineConfig holds configuration for the block pipeline.
type PipelineConfig struct {
	// BlockTimeout bounds quote collection and evaluation for one block.
	// Submission has its own timeout.
	BlockTimeout time.Duration
}

type pipelineMetrics struct {
	blocks      metric.Int64Counter
	evaluations metric.Int64Counter
	runLatency  metric.Float64Histogram
}

// Pipeline runs fetch, evaluate and gated submit for every block. Runs for
// different blocks overlap; the gate is the only serialization point.
type Pipeline struct {
	feed      blockchainApp.BlockFeed
	fetcher   Snapshotter
	evaluator *ProfitEvaluator
	gate      *ExecutionGate
	reporter  Reporter
	config    PipelineConfig
	logger    logger.LoggerInterface

	paused  func() bool
	wg      sync.WaitGroup
	metrics *pipelineMetrics
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	feed blockchainApp.BlockFeed,
	fetcher Snapshotter,
	evaluator *ProfitEvaluator,
	gate *ExecutionGate,
	reporter Reporter,
	config PipelineConfig,
	log logger.LoggerInterface,
) (*Pipeline, error) {
	if config.BlockTimeout <= 0 {
		config.BlockTimeout = 10 * time.Second
	}
	p := &Pipeline{
		feed:      feed,
		fetcher:   fetcher,
		evaluator: evaluator,
		gate:      gate,
		reporter:  reporter,
		config:    config,
		logger:    log,
		paused:    func() bool { return false },
	}
	if err := p.initMetrics(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &pipelineMetrics{}

	p.metrics.blocks, err = meter.Int64Counter(
		"arbitrage_blocks_total",
		metric.WithDescription("Blocks dispatched to the pipeline"),
	)
	if err != nil {
		return err
	}

	p.metrics.evaluations, err = meter.Int64Counter(
		"arbitrage_evaluations_total",
		metric.WithDescription("Snapshots evaluated"),
	)
	if err != nil {
		return err
	}

	p.metrics.runLatency, err = meter.Float64Histogram(
		"arbitrage_block_run_ms",
		metric.WithDescription("Block arrival to decision latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// SetPauseFunc installs a check consulted before each block; paused blocks are
// reported but not evaluated.
func (p *Pipeline) SetPauseFunc(fn func() bool) {
	if fn != nil {
		p.paused = fn
	}
}

// Run subscribes to the feed and processes blocks until ctx is done or the feed
// terminates. Feed termination is returned as CodeFeedTerminated.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info(ctx, "starting arbitrage pipeline")

	blocks, errs, err := p.feed.Subscribe(ctx)
	if err != nil {
		return err
	}

	if err := p.reporter.Start(ctx); err != nil {
		return err
	}
	defer p.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "pipeline stopping", "reason", ctx.Err())
			return nil

		case err, ok := <-errs:
			if ok && err != nil {
				p.logger.Error(ctx, "block feed terminated", "error", err)
				return apperror.Wrap(err, apperror.CodeFeedTerminated, "block feed")
			}
			errs = nil

		case block, ok := <-blocks:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				if errs != nil {
					if err, ok := <-errs; ok && err != nil {
						p.logger.Error(ctx, "block feed terminated", "error", err)
						return apperror.Wrap(err, apperror.CodeFeedTerminated, "block feed")
					}
				}
				return apperror.New(apperror.CodeFeedTerminated, apperror.WithContext("block channel closed"))
			}
			p.dispatch(ctx, block)
		}
	}
}

func (p *Pipeline) dispatch(ctx context.Context, block *blockchainDomain.Block) {
	p.metrics.blocks.Add(ctx, 1)
	p.reporter.OnBlock(block)

	if p.paused() {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.ProcessBlock(ctx, block)
	}()
}

// ProcessBlock runs one block to completion. Failures are reported, never returned.
func (p *Pipeline) ProcessBlock(ctx context.Context, block *blockchainDomain.Block) {
	start := time.Now()
	bctx, cancel := context.WithTimeout(ctx, p.config.BlockTimeout)
	defer cancel()

	snap, err := p.fetcher.Fetch(bctx, block.Number)
	if err != nil {
		p.logger.Warn(ctx, "skipping block", "block", block.Number, "code", string(apperror.GetCode(err)), "error", err)
		p.reporter.OnSkip(block.Number, err)
		return
	}

	eval := p.evaluator.Evaluate(bctx, snap)
	p.metrics.evaluations.Add(ctx, 1)
	p.metrics.runLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	p.reporter.OnEvaluation(eval)

	if eval.Best == nil {
		return
	}

	exec, err := p.gate.Submit(ctx, block.Number, *eval.Best)
	switch {
	case apperror.HasCode(err, apperror.CodeGateInFlight), apperror.HasCode(err, apperror.CodeLockHeld):
		p.reporter.OnGateBusy(block.Number, *eval.Best)
		return
	case exec == nil:
		p.logger.Error(ctx, "submission not attempted", "block", block.Number, "error", err)
		return
	}

	if err != nil {
		p.logger.Error(ctx, "flash loan failed",
			"execution_id", exec.ID.String(),
			"status", string(exec.Status),
			"tx_hash", exec.TxHash.Hex(),
			"error", err)
	} else {
		p.logger.Info(ctx, "flash loan finished",
			"execution_id", exec.ID.String(),
			"status", string(exec.Status),
			"tx_hash", exec.TxHash.Hex(),
			"gas_used", exec.GasUsed)
	}
	p.reporter.OnExecution(exec)
}

// Stop waits for in-flight block runs, then stops the reporter.
func (p *Pipeline) Stop() error {
	p.wg.Wait()
	return p.reporter.Stop()
}

// GateState exposes the gate for status displays and health checks.
func (p *Pipeline) GateState() domain.GateState {
	return p.gate.State()
}
