package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "pricing"
	meterName  = "pricing"
)

// FetcherConfig configures a RateFetcher.
type FetcherConfig struct {
	Pair     domain.Pair
	Notional asset.Amount  // in Pair.Quote
	Timeout  time.Duration // per quote call
}

type fetcherMetrics struct {
	snapshots metric.Int64Counter
	skipped   metric.Int64Counter
	latency   metric.Float64Histogram
}

// RateFetcher builds one RateSnapshot per block from venue A (AMM) and venue B.
type RateFetcher struct {
	venueA Venue
	venueB Venue
	cfg    FetcherConfig
	log    logger.LoggerInterface

	tracer  trace.Tracer
	metrics *fetcherMetrics
}

// NewRateFetcher creates a RateFetcher. a is the AMM venue, b the quoting exchange.
func NewRateFetcher(a, b Venue, cfg FetcherConfig, log logger.LoggerInterface) (*RateFetcher, error) {
	if a == nil || b == nil {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("rate fetcher needs two venues"))
	}
	if !cfg.Notional.IsPositive() || !cfg.Notional.Asset().Equals(cfg.Pair.Quote) {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("notional must be a positive %s amount", cfg.Pair.Quote)))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Second
	}

	f := &RateFetcher{
		venueA: a,
		venueB: b,
		cfg:    cfg,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return f, nil
}

func (f *RateFetcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &fetcherMetrics{}

	f.metrics.snapshots, err = meter.Int64Counter(
		"pricing_snapshots_total",
		metric.WithDescription("Complete rate snapshots built"),
	)
	if err != nil {
		return err
	}

	f.metrics.skipped, err = meter.Int64Counter(
		"pricing_blocks_skipped_total",
		metric.WithDescription("Blocks skipped because a quote failed"),
	)
	if err != nil {
		return err
	}

	f.metrics.latency, err = meter.Float64Histogram(
		"pricing_snapshot_latency_ms",
		metric.WithDescription("Time to collect all four quotes"),
		metric.WithUnit("ms"),
	)
	return err
}

// Notional returns the fixed trade size.
func (f *RateFetcher) Notional() asset.Amount { return f.cfg.Notional }

// Pair returns the traded pair.
func (f *RateFetcher) Pair() domain.Pair { return f.cfg.Pair }

// Fetch collects the four quotes for block. The buy legs run first and concurrently;
// each sell leg then sells what the opposite venue's buy leg returned. Any failure
// discards the whole snapshot.
func (f *RateFetcher) Fetch(ctx context.Context, block uint64) (*domain.RateSnapshot, error) {
	ctx, span := f.tracer.Start(ctx, "pricing.fetch_snapshot",
		trace.WithAttributes(attribute.Int64("block", int64(block))))
	defer span.End()

	start := time.Now()
	snap, err := f.fetch(ctx, block)
	f.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		f.metrics.skipped.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot discarded")
		return nil, err
	}

	f.metrics.snapshots.Add(ctx, 1)
	span.SetStatus(codes.Ok, "snapshot complete")
	return snap, nil
}

func (f *RateFetcher) fetch(ctx context.Context, block uint64) (*domain.RateSnapshot, error) {
	base, quote := f.cfg.Pair.Base, f.cfg.Pair.Quote
	snap := &domain.RateSnapshot{
		BlockNumber: block,
		Pair:        f.cfg.Pair,
		Notional:    f.cfg.Notional,
	}

	buys, ctxBuy := errgroup.WithContext(ctx)
	buys.Go(func() (err error) {
		snap.ABuy, err = f.quote(ctxBuy, f.venueA, f.cfg.Notional, base)
		return err
	})
	buys.Go(func() (err error) {
		snap.BBuy, err = f.quote(ctxBuy, f.venueB, f.cfg.Notional, base)
		return err
	})
	if err := buys.Wait(); err != nil {
		return nil, err
	}

	sells, ctxSell := errgroup.WithContext(ctx)
	sells.Go(func() (err error) {
		snap.ASell, err = f.quote(ctxSell, f.venueA, snap.BBuy.Output, quote)
		return err
	})
	sells.Go(func() (err error) {
		snap.BSell, err = f.quote(ctxSell, f.venueB, snap.ABuy.Output, quote)
		return err
	})
	if err := sells.Wait(); err != nil {
		return nil, err
	}

	snap.TakenAt = time.Now()
	if err := snap.Validate(); err != nil {
		return nil, apperror.New(apperror.CodeQuoteUnavailable, apperror.WithCause(err))
	}
	return snap, nil
}

func (f *RateFetcher) quote(ctx context.Context, v Venue, in asset.Amount, buy *asset.Asset) (domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	q, err := v.Quote(ctx, in, buy)
	if err != nil {
		where := fmt.Sprintf("%s %s->%s", v.Name(), in.Asset(), buy)
		if ctx.Err() != nil {
			return domain.Quote{}, apperror.New(apperror.CodeTransientFetch,
				apperror.WithContext(where), apperror.WithCause(err))
		}
		return domain.Quote{}, apperror.Wrap(err, apperror.CodeQuoteUnavailable, where)
	}
	if !q.Output.IsPositive() {
		return domain.Quote{}, apperror.New(apperror.CodeQuoteUnavailable,
			apperror.WithContext(fmt.Sprintf("%s returned zero output", v.Name())))
	}
	return q, nil
}
