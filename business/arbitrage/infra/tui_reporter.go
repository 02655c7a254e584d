package infra

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

var _ app.Reporter = (*TUIReporter)(nil)

const gatePollInterval = 250 * time.Millisecond

// TUIReporter turns pipeline events into Bubble Tea messages.
type TUIReporter struct {
	send      func(tea.Msg)
	gateState func() domain.GateState

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewTUIReporter creates a reporter delivering to send, normally ui.Send.
// gateState is polled to show whether a trade is in flight; it may be nil.
func NewTUIReporter(send func(tea.Msg), gateState func() domain.GateState) *TUIReporter {
	return &TUIReporter{
		send:      send,
		gateState: gateState,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (r *TUIReporter) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}
	r.send(ui.ConnectionStatusMsg{Name: ui.ConnEthereum, Connected: true})
	if r.gateState == nil {
		close(r.done)
		return nil
	}
	go r.pollGate(ctx)
	return nil
}

func (r *TUIReporter) pollGate(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(gatePollInterval)
	defer ticker.Stop()

	last := domain.GateIdle
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			if s := r.gateState(); s != last {
				last = s
				r.send(ui.GateMsg{InFlight: s == domain.GateInFlight})
			}
		}
	}
}

func (r *TUIReporter) OnBlock(b *blockchainDomain.Block) {
	r.send(ui.BlockMsg{Number: b.Number, Timestamp: b.Timestamp})
}

func (r *TUIReporter) OnSkip(block uint64, reason error) {
	r.send(ui.SkipMsg{Block: block, Reason: string(apperror.GetCode(reason))})
}

func (r *TUIReporter) OnEvaluation(eval *domain.Evaluation) {
	r.send(EvaluationMessage(eval, time.Now()))
}

func (r *TUIReporter) OnGateBusy(block uint64, result domain.ProfitResult) {
	r.send(ui.GateBusyMsg{
		Block:     block,
		Direction: result.Direction.ShortString(),
		Net:       toDecimal(result.Notional.Asset(), result.Net),
	})
}

func (r *TUIReporter) OnExecution(exec *domain.Execution) {
	msg := ui.ExecutionMsg{
		Block:     exec.BlockNumber,
		Direction: exec.Direction.ShortString(),
		Status:    string(exec.Status),
		Error:     exec.Error,
		Duration:  exec.Duration(),
	}
	if a := exec.Notional.Asset(); a != nil {
		msg.PredictedNet = asset.FormatSigned(a, exec.PredictedNet, 2)
	}
	if exec.TxHash != (common.Hash{}) {
		msg.TxHash = exec.TxHash.Hex()
	}
	r.send(msg)
	if exec.Error != "" {
		r.send(ui.ErrorMsg{Error: errors.New(exec.Error)})
	}
}

func (r *TUIReporter) Stop() error {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
	return nil
}

// EvaluationMessage converts an evaluation into display values.
func EvaluationMessage(eval *domain.Evaluation, now time.Time) ui.EvaluationMsg {
	snap := eval.Snapshot
	spread := snap.Spread()
	quote := snap.Pair.Quote

	msg := ui.EvaluationMsg{
		Block:        eval.BlockNumber,
		Pair:         snap.Pair.String(),
		QuoteSymbol:  quote.Symbol(),
		UniswapPrice: spread.UniswapPrice,
		KyberPrice:   spread.KyberPrice,
		SpreadBps:    spread.BasisPoints,
		Cheaper:      string(spread.Cheaper),
	}
	if ref := eval.Reference; ref != nil {
		msg.ReferenceWarm = true
		msg.ReferencePrice = ref.Value.Rate()
		msg.ReferenceAge = ref.Age(now)
	}

	for _, res := range eval.Results {
		row := ui.DirectionRow{
			Direction: res.Direction.ShortString(),
			Input:     res.Notional.ToDecimal(),
			Output:    res.Output.ToDecimal(),
			Gross:     toDecimal(quote, res.Gross),
			Net:       toDecimal(quote, res.Net),
			Status:    string(res.Status),
		}
		if res.GasCost != nil {
			row.HasGas = true
			row.GasCost = res.GasCost.Quote.ToDecimal()
			msg.GasPriceGwei = res.GasCost.Estimate.GasPriceGwei()
		}
		if res.Reason != nil {
			row.Reason = string(apperror.GetCode(res.Reason))
		}
		msg.Rows = append(msg.Rows, row)
	}
	if eval.Best != nil {
		msg.Best = eval.Best.Direction.ShortString()
	}
	return msg
}

// toDecimal renders a signed smallest-unit value in whole units of a.
func toDecimal(a *asset.Asset, raw *big.Int) decimal.Decimal {
	if a == nil || raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(a.Decimals()))
}
