// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// Reporter renders pipeline activity for an operator.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// OnBlock is called for every block received from the feed.
	OnBlock(block *blockchainDomain.Block)

	// OnSkip is called when a block produced no snapshot.
	OnSkip(block uint64, reason error)

	// OnEvaluation is called with both directions' results for a block.
	OnEvaluation(eval *domain.Evaluation)

	// OnGateBusy is called when a profitable result is dropped because a trade is in flight.
	OnGateBusy(block uint64, result domain.ProfitResult)

	// OnExecution is called once a submission has an outcome.
	OnExecution(exec *domain.Execution)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// Snapshotter produces one complete RateSnapshot per block or an error.
type Snapshotter interface {
	Fetch(ctx context.Context, block uint64) (*pricingDomain.RateSnapshot, error)
}

// GasEstimator prices the loan transaction for a direction.
type GasEstimator interface {
	EstimateGas(ctx context.Context, d domain.Direction) (blockchainDomain.GasEstimate, error)
}

// TradeBuilder encodes calls to the deployed flash loan contract.
type TradeBuilder interface {
	Contract() common.Address
	Calldata(d domain.Direction, notional asset.Amount) ([]byte, error)
}

// Journal persists executions. Record is called on submit and again on outcome.
type Journal interface {
	Record(ctx context.Context, exec *domain.Execution) error
}

// Notifier pushes execution outcomes to an external channel.
type Notifier interface {
	Notify(ctx context.Context, exec *domain.Execution) error
}

// DistributedLock extends the gate across processes sharing one wallet.
type DistributedLock interface {
	// Acquire returns CodeLockHeld when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
