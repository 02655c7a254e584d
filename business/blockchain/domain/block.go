// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Block is an immutable new-head event. Each one triggers a single pipeline run.
type Block struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  time.Time
	BaseFee    *big.Int
	ReceivedAt time.Time
}

// FeedState describes the head subscription.
type FeedState string

const (
	FeedIdle       FeedState = "idle"
	FeedConnected  FeedState = "connected"
	FeedTerminated FeedState = "terminated"
	FeedStopped    FeedState = "stopped"
)
