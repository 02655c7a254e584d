package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// ExecutionStatus tracks one submission from build to receipt.
type ExecutionStatus string

const (
	ExecutionSubmitted ExecutionStatus = "submitted"
	ExecutionConfirmed ExecutionStatus = "confirmed"
	ExecutionReverted  ExecutionStatus = "reverted"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionSimulated ExecutionStatus = "simulated"
)

// Final reports whether no further update will follow.
func (s ExecutionStatus) Final() bool {
	return s != ExecutionSubmitted
}

// Execution records one gated submission. PredictedNet is the go/no-go figure
// and is never recomputed from the receipt.
type Execution struct {
	ID           uuid.UUID
	BlockNumber  uint64
	Direction    Direction
	Notional     asset.Amount
	PredictedNet *big.Int
	Gas          blockchainDomain.GasEstimate
	Contract     common.Address
	TxHash       common.Hash
	GasUsed      uint64
	Status       ExecutionStatus
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewExecution starts an execution for result observed at block.
func NewExecution(block uint64, result ProfitResult, contract common.Address) *Execution {
	e := &Execution{
		ID:           uuid.New(),
		BlockNumber:  block,
		Direction:    result.Direction,
		Notional:     result.Notional,
		PredictedNet: result.Net,
		Contract:     contract,
		Status:       ExecutionSubmitted,
		StartedAt:    time.Now(),
	}
	if result.GasCost != nil {
		e.Gas = result.GasCost.Estimate
	}
	return e
}

// Complete applies the sender's outcome.
func (e *Execution) Complete(receipt blockchainDomain.Receipt, err error) {
	e.FinishedAt = time.Now()
	e.TxHash = receipt.TxHash
	e.GasUsed = receipt.GasUsed

	switch {
	case receipt.Status == blockchainDomain.ReceiptReverted:
		e.Status = ExecutionReverted
	case err != nil:
		e.Status = ExecutionFailed
	case receipt.Status == blockchainDomain.ReceiptSimulated:
		e.Status = ExecutionSimulated
	default:
		e.Status = ExecutionConfirmed
	}
	if err != nil {
		e.Error = err.Error()
	}
}

// Duration is the wall time from build to receipt.
func (e *Execution) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return time.Since(e.StartedAt)
	}
	return e.FinishedAt.Sub(e.StartedAt)
}
