// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
)

// BlockFeed yields new heads until the transport fails. It can be subscribed once;
// on failure a FEED_TERMINATED error is delivered on the error channel and both channels close.
type BlockFeed interface {
	Subscribe(ctx context.Context) (<-chan *domain.Block, <-chan error, error)
	State() domain.FeedState
	LastBlock() uint64
}

// GasOracle answers gas questions for a candidate call. Nothing is cached.
type GasOracle interface {
	Estimate(ctx context.Context, from, to common.Address, data []byte) (domain.GasEstimate, error)
}

// TxSender signs and broadcasts a call, then waits for its receipt.
type TxSender interface {
	From() common.Address
	Send(ctx context.Context, req domain.TxRequest) (domain.Receipt, error)
}
