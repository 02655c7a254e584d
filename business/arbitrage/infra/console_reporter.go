// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output. Each event is written
// as one block of lines so concurrent block runs do not interleave.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.write("Flash loan arbitrage started\n======================\n")
	return nil
}

func (r *ConsoleReporter) OnBlock(b *blockchainDomain.Block) {
	r.write(fmt.Sprintf("New block received. Block # %d\n", b.Number))
}

func (r *ConsoleReporter) OnSkip(block uint64, reason error) {
	r.write(fmt.Sprintf("Block # %d skipped (%s): %v\n", block, apperror.GetCode(reason), reason))
}

func (r *ConsoleReporter) OnEvaluation(eval *domain.Evaluation) {
	var sb strings.Builder
	for _, res := range eval.Results {
		fmt.Fprintf(&sb, "%s. %s input / output: %s / %s\n",
			route(res.Direction),
			res.Notional.Asset().Symbol(),
			res.Notional.ToDecimal().String(),
			res.Output.ToDecimal().String())
	}

	if eval.Reference == nil {
		sb.WriteString("Reference price not warm yet, no profit check this block\n")
	}
	for _, res := range eval.Results {
		if res.GasCost != nil {
			fmt.Fprintf(&sb, "%s. Tx cost: %s, net: %s\n", route(res.Direction), res.GasCost.Quote.StringFixed(4), res.NetString(4))
		}
		if res.Status == domain.StatusNotEvaluable && res.Reason != nil && eval.Reference != nil {
			fmt.Fprintf(&sb, "%s. Not evaluable: %v\n", route(res.Direction), res.Reason)
		}
	}

	if best := eval.Best; best != nil {
		fmt.Fprintf(&sb, "Arb opportunity found %s!\n", route(best.Direction))
		fmt.Fprintf(&sb, "Expected profit: %s\n", best.NetString(4))
	}
	r.write(sb.String())
}

func (r *ConsoleReporter) OnGateBusy(block uint64, result domain.ProfitResult) {
	r.write(fmt.Sprintf("Trade in flight, dropping %s opportunity at block # %d (expected %s)\n",
		route(result.Direction), block, result.NetString(4)))
}

func (r *ConsoleReporter) OnExecution(exec *domain.Execution) {
	var sb strings.Builder
	if exec.TxHash != (common.Hash{}) {
		fmt.Fprintf(&sb, "Transaction hash: %s\n", exec.TxHash.Hex())
	}
	fmt.Fprintf(&sb, "Flash loan %s %s in %s", route(exec.Direction), exec.Status, exec.Duration().Round(time.Millisecond))
	if exec.GasUsed > 0 {
		fmt.Fprintf(&sb, ", gas used %d", exec.GasUsed)
	}
	sb.WriteString("\n")
	if exec.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", exec.Error)
	}
	r.write(sb.String())
}

func (r *ConsoleReporter) Stop() error {
	r.write("\nFlash loan arbitrage stopped\n")
	return nil
}

func (r *ConsoleReporter) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.out, s)
}

func route(d domain.Direction) string {
	switch d {
	case domain.KyberToUniswap:
		return "Kyber -> Uniswap"
	case domain.UniswapToKyber:
		return "Uniswap -> Kyber"
	default:
		return d.ShortString()
	}
}
