package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds counters for display.
type Stats struct {
	Blocks     int64
	Skipped    int64
	Evaluated  int64
	Profitable int64
	Dropped    int64
	Submitted  int64
	Confirmed  int64
	Failed     int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	v := func(n int64) string { return valueStyle.Render(fmt.Sprintf("%d", n)) }

	failed := v(s.stats.Failed)
	if s.stats.Failed > 0 {
		failed = errorStyle.Render(fmt.Sprintf("%d", s.stats.Failed))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Blocks: %s  │  Skipped: %s  │  Evaluated: %s  │  Profitable: %s\n",
			v(s.stats.Blocks), v(s.stats.Skipped), v(s.stats.Evaluated), v(s.stats.Profitable)) +
		fmt.Sprintf("Submitted: %s  │  Confirmed: %s  │  Failed: %s  │  Dropped (gate busy): %s",
			v(s.stats.Submitted), v(s.stats.Confirmed), failed, v(s.stats.Dropped))
}
