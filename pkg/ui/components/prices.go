// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// QuoteLeg is one round trip: notional in, quote asset out.
type QuoteLeg struct {
	Direction string
	Input     decimal.Decimal
	Output    decimal.Decimal
}

// PriceBoard is the latest per-block pricing picture.
type PriceBoard struct {
	Block        uint64
	Pair         string
	QuoteSymbol  string
	UniswapPrice decimal.Decimal
	KyberPrice   decimal.Decimal
	SpreadBps    decimal.Decimal
	Cheaper      string
	Legs         []QuoteLeg

	ReferencePrice decimal.Decimal
	ReferenceWarm  bool
	ReferenceAge   time.Duration
	GasPriceGwei   decimal.Decimal
}

// PricesComponent renders venue prices and the round-trip table.
type PricesComponent struct {
	board *PriceBoard
}

func NewPricesComponent() *PricesComponent {
	return &PricesComponent{}
}

// Update replaces the board.
func (p *PricesComponent) Update(board PriceBoard) {
	p.board = &board
}

func (p *PricesComponent) View() string {
	if p.board == nil {
		return "Waiting for quotes..."
	}
	b := p.board

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("PRICES (%s) block #%d", b.Pair, b.Block)))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "  %-10s %14s\n", "Uniswap", b.UniswapPrice.StringFixed(2)+" "+b.QuoteSymbol)
	fmt.Fprintf(&sb, "  %-10s %14s\n", "Kyber", b.KyberPrice.StringFixed(2)+" "+b.QuoteSymbol)
	spread := fmt.Sprintf("%+.1f bps", b.SpreadBps.InexactFloat64())
	fmt.Fprintf(&sb, "  %-10s %14s  %s\n", "Spread", spread, dimStyle.Render("cheaper: "+b.Cheaper))
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 56)))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "  %-12s  %16s  %16s\n", "Direction", "Input", "Output")
	for _, leg := range b.Legs {
		style := negativeStyle
		if leg.Output.GreaterThan(leg.Input) {
			style = positiveStyle
		}
		fmt.Fprintf(&sb, "  %-12s  %16s  %s\n",
			leg.Direction,
			leg.Input.StringFixed(2),
			style.Render(fmt.Sprintf("%16s", leg.Output.StringFixed(2))),
		)
	}

	sb.WriteString("\n")
	if b.ReferenceWarm {
		fmt.Fprintf(&sb, "  Reference: %s %s/%s %s\n",
			b.ReferencePrice.StringFixed(2), b.QuoteSymbol, baseOf(b.Pair),
			dimStyle.Render(fmt.Sprintf("(%s old)", b.ReferenceAge.Round(time.Second))))
	} else {
		sb.WriteString(warnStyle.Render("  Reference price cold: no evaluation possible"))
		sb.WriteString("\n")
	}
	if b.GasPriceGwei.IsPositive() {
		fmt.Fprintf(&sb, "  Gas price: %s gwei\n", b.GasPriceGwei.StringFixed(2))
	}
	return sb.String()
}

func baseOf(pair string) string {
	base, _, _ := strings.Cut(pair, "-")
	return base
}
