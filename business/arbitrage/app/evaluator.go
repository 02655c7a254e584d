package app

import (
	"context"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	pricingApp "github.com/fd1az/flashloan-arb/business/pricing/app"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// EvaluatorConfig holds the evaluator's thresholds.
type EvaluatorConfig struct {
	// MinNetProfit is the strict lower bound for submission, in quote smallest units.
	MinNetProfit *big.Int
	GasTimeout   time.Duration
}

// ProfitEvaluator turns a snapshot into per-direction profit results.
type ProfitEvaluator struct {
	prices pricingApp.ReferencePrices
	gas    GasEstimator
	cfg    EvaluatorConfig
	log    logger.LoggerInterface
}

func NewProfitEvaluator(prices pricingApp.ReferencePrices, gas GasEstimator, cfg EvaluatorConfig, log logger.LoggerInterface) *ProfitEvaluator {
	if cfg.MinNetProfit == nil {
		cfg.MinNetProfit = new(big.Int)
	}
	if cfg.GasTimeout <= 0 {
		cfg.GasTimeout = 4 * time.Second
	}
	return &ProfitEvaluator{prices: prices, gas: gas, cfg: cfg, log: log}
}

// MinNetProfit returns the submission threshold.
func (e *ProfitEvaluator) MinNetProfit() *big.Int { return new(big.Int).Set(e.cfg.MinNetProfit) }

// Evaluate computes both directions concurrently. It never fails: problems
// surface as NotEvaluable results.
func (e *ProfitEvaluator) Evaluate(ctx context.Context, snap *pricingDomain.RateSnapshot) *domain.Evaluation {
	eval := &domain.Evaluation{
		BlockNumber: snap.BlockNumber,
		Snapshot:    snap,
	}

	ref, warm := e.prices.Current()
	if warm {
		eval.Reference = &ref
	}

	dirs := domain.Directions()
	eval.Results = make([]domain.ProfitResult, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range dirs {
		g.Go(func() error {
			eval.Results[i] = e.evaluate(gctx, snap, d, eval.Reference)
			return nil
		})
	}
	_ = g.Wait()

	eval.Best = domain.SelectBest(eval.Results, e.cfg.MinNetProfit)
	eval.EvaluatedAt = time.Now()
	return eval
}

func (e *ProfitEvaluator) evaluate(ctx context.Context, snap *pricingDomain.RateSnapshot, d domain.Direction, ref *pricingDomain.ReferencePrice) domain.ProfitResult {
	_, sell := d.Legs(snap)
	notional, output := snap.Notional, sell.Output

	if ref == nil {
		return domain.NotEvaluable(d, notional, output, apperror.New(apperror.CodeReferencePriceCold))
	}

	gross, err := output.Diff(notional)
	if err != nil {
		return domain.NotEvaluable(d, notional, output, apperror.New(apperror.CodeInvalidState, apperror.WithCause(err)))
	}
	if gross.Sign() <= 0 {
		// Gas can only lower a non-positive gross; no estimate needed.
		return domain.ProfitResult{
			Direction: d,
			Status:    domain.StatusUnprofitable,
			Notional:  notional,
			Output:    output,
			Gross:     gross,
			Net:       gross,
		}
	}

	gctx, cancel := context.WithTimeout(ctx, e.cfg.GasTimeout)
	defer cancel()

	est, err := e.gas.EstimateGas(gctx, d)
	if err != nil {
		e.log.Debug(ctx, "gas estimate failed", "block", snap.BlockNumber, "direction", d.ShortString(), "error", err)
		return domain.NotEvaluable(d, notional, output, err)
	}

	cost, err := domain.NewGasCost(est, ref.Value)
	if err != nil {
		return domain.NotEvaluable(d, notional, output, apperror.New(apperror.CodeInvalidState, apperror.WithCause(err)))
	}

	gross, net, err := domain.ComputeProfit(notional, output, cost.Quote)
	if err != nil {
		return domain.NotEvaluable(d, notional, output, apperror.New(apperror.CodeInvalidState, apperror.WithCause(err)))
	}

	status := domain.StatusUnprofitable
	if net.Cmp(e.cfg.MinNetProfit) > 0 {
		status = domain.StatusProfitable
	}

	return domain.ProfitResult{
		Direction: d,
		Status:    status,
		Notional:  notional,
		Output:    output,
		Gross:     gross,
		GasCost:   &cost,
		Net:       net,
	}
}
