// Package ethereum provides go-ethereum backed adapters for the blockchain context.
package ethereum

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
)

// HeadSource is the part of ethclient.Client the feed needs.
type HeadSource interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// FeedConfig holds configuration for the head feed.
type FeedConfig struct {
	BufferSize int
}

func DefaultFeedConfig() FeedConfig {
	return FeedConfig{BufferSize: 16}
}

type feedMetrics struct {
	blocksReceived metric.Int64Counter
	terminations   metric.Int64Counter
	blockLag       metric.Float64Histogram
}

// HeadFeed turns a newHeads subscription into a one-shot Block stream.
// It never reconnects: a transport error ends the stream with FEED_TERMINATED.
type HeadFeed struct {
	config FeedConfig
	source HeadSource
	logger logger.LoggerInterface
	now    func() time.Time

	started   atomic.Bool
	lastBlock atomic.Uint64
	stateMu   sync.RWMutex
	state     domain.FeedState

	tracer  trace.Tracer
	metrics *feedMetrics
}

var _ app.BlockFeed = (*HeadFeed)(nil)

// NewHeadFeed creates a feed over source.
func NewHeadFeed(source HeadSource, cfg FeedConfig, log logger.LoggerInterface) (*HeadFeed, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultFeedConfig().BufferSize
	}
	f := &HeadFeed{
		config: cfg,
		source: source,
		logger: log,
		now:    time.Now,
		state:  domain.FeedIdle,
		tracer: otel.Tracer(tracerName),
	}
	if err := f.initMetrics(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *HeadFeed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &feedMetrics{}

	f.metrics.blocksReceived, err = meter.Int64Counter(
		"eth_blocks_received_total",
		metric.WithDescription("New heads received from the node"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	f.metrics.terminations, err = meter.Int64Counter(
		"eth_feed_terminations_total",
		metric.WithDescription("Head subscriptions ended by a transport error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	f.metrics.blockLag, err = meter.Float64Histogram(
		"eth_block_lag_ms",
		metric.WithDescription("Delay between block timestamp and receipt"),
		metric.WithUnit("ms"),
	)
	return err
}

// Subscribe opens the head stream. It may be called once per feed.
func (f *HeadFeed) Subscribe(ctx context.Context) (<-chan *domain.Block, <-chan error, error) {
	ctx, span := f.tracer.Start(ctx, "eth.subscribe_heads")
	defer span.End()

	if !f.started.CompareAndSwap(false, true) {
		err := apperror.New(apperror.CodeInvalidState, apperror.WithContext("head feed already subscribed"))
		span.RecordError(err)
		return nil, nil, err
	}

	headers := make(chan *types.Header, f.config.BufferSize)
	sub, err := f.source.SubscribeNewHead(ctx, headers)
	if err != nil {
		f.setState(domain.FeedTerminated)
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscribe failed")
		return nil, nil, apperror.New(apperror.CodeFeedTerminated,
			apperror.WithCause(err),
			apperror.WithContext("subscribe newHeads"))
	}

	blocks := make(chan *domain.Block, f.config.BufferSize)
	errc := make(chan error, 1)

	f.setState(domain.FeedConnected)
	f.logger.Info(ctx, "subscribed to new heads")
	span.SetStatus(codes.Ok, "subscribed")

	go f.run(ctx, sub, headers, blocks, errc)

	return blocks, errc, nil
}

func (f *HeadFeed) run(ctx context.Context, sub ethereum.Subscription, headers <-chan *types.Header,
	blocks chan<- *domain.Block, errc chan<- error) {
	defer close(errc)
	defer close(blocks)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			f.setState(domain.FeedStopped)
			return

		case err := <-sub.Err():
			f.setState(domain.FeedTerminated)
			f.metrics.terminations.Add(ctx, 1)
			f.logger.Error(ctx, "head subscription ended", "error", err)
			errc <- apperror.New(apperror.CodeFeedTerminated, apperror.WithCause(err))
			return

		case header := <-headers:
			if header == nil {
				continue
			}
			block := f.toBlock(header)
			f.lastBlock.Store(block.Number)
			f.metrics.blocksReceived.Add(ctx, 1)
			f.metrics.blockLag.Record(ctx, float64(block.ReceivedAt.Sub(block.Timestamp).Milliseconds()),
				metric.WithAttributes(attribute.Int64("block", int64(block.Number))))

			select {
			case blocks <- block:
			case <-ctx.Done():
				f.setState(domain.FeedStopped)
				return
			}
		}
	}
}

func (f *HeadFeed) toBlock(h *types.Header) *domain.Block {
	var baseFee *big.Int
	if h.BaseFee != nil {
		baseFee = new(big.Int).Set(h.BaseFee)
	}
	return &domain.Block{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Timestamp:  time.Unix(int64(h.Time), 0),
		BaseFee:    baseFee,
		ReceivedAt: f.now(),
	}
}

func (f *HeadFeed) State() domain.FeedState {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.state
}

func (f *HeadFeed) LastBlock() uint64 {
	return f.lastBlock.Load()
}

func (f *HeadFeed) setState(s domain.FeedState) {
	f.stateMu.Lock()
	f.state = s
	f.stateMu.Unlock()
}
