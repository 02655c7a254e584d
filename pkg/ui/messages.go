// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"time"

	"github.com/shopspring/decimal"
)

// Message types for TUI updates. Values arrive display-ready; the UI does no arithmetic on them.

// BlockMsg is sent when a new head arrives.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// SkipMsg is sent when a block produced no snapshot.
type SkipMsg struct {
	Block  uint64
	Reason string
}

// DirectionRow is one direction's outcome, in whole quote units.
type DirectionRow struct {
	Direction string
	Input     decimal.Decimal
	Output    decimal.Decimal
	Gross     decimal.Decimal
	GasCost   decimal.Decimal
	HasGas    bool
	Net       decimal.Decimal
	Status    string
	Reason    string
}

// EvaluationMsg is sent after both directions were evaluated for a block.
type EvaluationMsg struct {
	Block        uint64
	Pair         string
	QuoteSymbol  string
	UniswapPrice decimal.Decimal
	KyberPrice   decimal.Decimal
	SpreadBps    decimal.Decimal
	Cheaper      string

	ReferencePrice decimal.Decimal
	ReferenceWarm  bool
	ReferenceAge   time.Duration
	GasPriceGwei   decimal.Decimal

	Rows []DirectionRow
	Best string
}

// GateMsg reports the execution gate state.
type GateMsg struct {
	InFlight bool
}

// GateBusyMsg is sent when a profitable result was dropped.
type GateBusyMsg struct {
	Block     uint64
	Direction string
	Net       decimal.Decimal
}

// ExecutionMsg is sent when a submission finished.
type ExecutionMsg struct {
	Block        uint64
	Direction    string
	Status       string
	PredictedNet string
	TxHash       string
	Error        string
	Duration     time.Duration
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "config", "ethereum", "contract", "reference"
	Status  string // "connecting", "connected", "done", "failed"
	Message string
}
