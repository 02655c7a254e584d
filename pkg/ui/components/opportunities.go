package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// DecisionRow is one evaluated direction for one block.
type DecisionRow struct {
	Block     uint64
	Direction string
	Gross     decimal.Decimal
	GasCost   decimal.Decimal
	HasGas    bool
	Net       decimal.Decimal
	Status    string
	Submitted bool
}

// DecisionsComponent lists recent per-direction decisions, newest first.
type DecisionsComponent struct {
	rows    []DecisionRow
	maxRows int
	offset  int
	visible int
}

func NewDecisionsComponent(maxRows int) *DecisionsComponent {
	return &DecisionsComponent{maxRows: maxRows, visible: 10}
}

func (d *DecisionsComponent) Add(rows ...DecisionRow) {
	d.rows = append(append([]DecisionRow{}, rows...), d.rows...)
	if len(d.rows) > d.maxRows {
		d.rows = d.rows[:d.maxRows]
	}
}

func (d *DecisionsComponent) Len() int { return len(d.rows) }

func (d *DecisionsComponent) Clear() {
	d.rows = nil
	d.offset = 0
}

func (d *DecisionsComponent) ScrollUp() {
	if d.offset > 0 {
		d.offset--
	}
}

func (d *DecisionsComponent) ScrollDown() {
	if d.offset < len(d.rows)-d.visible {
		d.offset++
	}
}

func (d *DecisionsComponent) View() string {
	if len(d.rows) == 0 {
		return "No evaluations yet..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	profitableStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	unprofitableStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("DECISIONS (last %d)", d.maxRows)))
	sb.WriteString("\n")
	sb.WriteString("┌─────────┬───────────┬──────────┬─────────┬──────────┬────────────────┐\n")
	sb.WriteString("│  Block  │ Direction │  Gross   │   Gas   │   Net    │     Status     │\n")
	sb.WriteString("├─────────┼───────────┼──────────┼─────────┼──────────┼────────────────┤\n")

	end := min(d.offset+d.visible, len(d.rows))
	for _, row := range d.rows[d.offset:end] {
		style, icon := unprofitableStyle, "✗"
		switch {
		case row.Status == "profitable":
			style, icon = profitableStyle, "✓"
		case row.Status == "not_evaluable":
			style, icon = mutedStyle, "·"
		}
		status := row.Status
		if row.Submitted {
			status = "submitted"
		}

		gas := "-"
		if row.HasGas {
			gas = row.GasCost.StringFixed(2)
		}
		fmt.Fprintf(&sb, "│%8d │%10s │%9s │%8s │%9s │ %s %-12s│\n",
			row.Block,
			row.Direction,
			row.Gross.StringFixed(2),
			gas,
			row.Net.StringFixed(2),
			icon,
			style.Render(status),
		)
	}
	sb.WriteString("└─────────┴───────────┴──────────┴─────────┴──────────┴────────────────┘")
	return sb.String()
}
