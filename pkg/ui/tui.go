package ui

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/flashloan-arb/pkg/ui/components"
)

// Connection names shown in the status bar.
const (
	ConnEthereum  = "Ethereum"
	ConnReference = "Reference price"
	ConnGate      = "Gate"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var startupOrder = []string{"config", "ethereum", "contract", "reference"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

var paused atomic.Bool

// Paused reports whether the operator paused evaluation from the dashboard.
func Paused() bool { return paused.Load() }

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	prices    *components.PricesComponent
	decisions *components.DecisionsComponent
	stats     *components.StatsComponent
	status    *components.StatusComponent
	keys      KeyMap
	help      help.Model

	phase        Phase
	welcomeStart time.Time

	ready        bool
	quitting     bool
	width        int
	height       int
	currentBlock uint64
	gateInFlight bool
	lastUpdate   time.Time
	errors       []ErrorEntry
	logs         []string

	startupSteps map[string]*StartupStep
	startupTime  time.Time

	counters     components.Stats
	activityFeed []string
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		prices:       components.NewPricesComponent(),
		decisions:    components.NewDecisionsComponent(50),
		stats:        components.NewStatsComponent(),
		status:       components.NewStatusComponent(ConnEthereum, ConnReference),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		startupSteps: map[string]*StartupStep{
			"config":    {Name: "Loading configuration", Status: "pending"},
			"ethereum":  {Name: "Connecting to Ethereum", Status: "pending"},
			"contract":  {Name: "Resolving flash loan contract", Status: "pending"},
			"reference": {Name: "Warming reference price", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.decisions.Clear()
		case key.Matches(msg, m.keys.Pause):
			paused.Store(!paused.Load())
		case key.Matches(msg, m.keys.Up):
			m.decisions.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.decisions.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case BlockMsg:
		m.currentBlock = msg.Number
		m.counters.Blocks++
		m.lastUpdate = time.Now()
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("New block received. Block # %d", msg.Number))
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}

	case SkipMsg:
		m.counters.Skipped++
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("Block #%d skipped: %s", msg.Block, msg.Reason))

	case EvaluationMsg:
		m.applyEvaluation(msg)

	case GateMsg:
		m.gateInFlight = msg.InFlight

	case GateBusyMsg:
		m.counters.Dropped++
		m.activityFeed = addActivity(m.activityFeed,
			fmt.Sprintf("Block #%d %s dropped, trade in flight (net %s)", msg.Block, msg.Direction, msg.Net.StringFixed(2)))

	case ExecutionMsg:
		m.counters.Submitted++
		switch msg.Status {
		case "confirmed", "simulated":
			m.counters.Confirmed++
		case "reverted", "failed":
			m.counters.Failed++
		}
		line := fmt.Sprintf("%s %s at #%d, expected %s", strings.ToUpper(msg.Status), msg.Direction, msg.Block, msg.PredictedNet)
		if msg.TxHash != "" {
			line += " tx " + shortHash(msg.TxHash)
		}
		m.activityFeed = addActivity(m.activityFeed, line)
		if msg.Error != "" {
			m.errors = addError(m.errors, msg.Error)
		}

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		if msg.Name == ConnEthereum {
			if step := m.startupSteps["ethereum"]; step != nil {
				step.Status = "connecting"
				if msg.Connected {
					step.Status = "connected"
				}
			}
		}

	case ErrorMsg:
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = addError(m.errors, msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Status == "failed" && msg.Message != "" {
			m.errors = addError(m.errors, msg.Message)
		}
	}

	m.stats.Update(m.counters)
	return m, nil
}

func (m *Model) applyEvaluation(msg EvaluationMsg) {
	m.counters.Evaluated++
	if msg.Best != "" {
		m.counters.Profitable++
	}
	m.lastUpdate = time.Now()

	legs := make([]components.QuoteLeg, 0, len(msg.Rows))
	rows := make([]components.DecisionRow, 0, len(msg.Rows))
	for _, r := range msg.Rows {
		legs = append(legs, components.QuoteLeg{Direction: r.Direction, Input: r.Input, Output: r.Output})
		rows = append(rows, components.DecisionRow{
			Block:     msg.Block,
			Direction: r.Direction,
			Gross:     r.Gross,
			GasCost:   r.GasCost,
			HasGas:    r.HasGas,
			Net:       r.Net,
			Status:    r.Status,
			Submitted: r.Direction == msg.Best,
		})
	}
	m.decisions.Add(rows...)
	m.prices.Update(components.PriceBoard{
		Block:          msg.Block,
		Pair:           msg.Pair,
		QuoteSymbol:    msg.QuoteSymbol,
		UniswapPrice:   msg.UniswapPrice,
		KyberPrice:     msg.KyberPrice,
		SpreadBps:      msg.SpreadBps,
		Cheaper:        msg.Cheaper,
		Legs:           legs,
		ReferencePrice: msg.ReferencePrice,
		ReferenceWarm:  msg.ReferenceWarm,
		ReferenceAge:   msg.ReferenceAge,
		GasPriceGwei:   msg.GasPriceGwei,
	})

	m.status.Update(components.ConnectionStatus{Name: ConnReference, Connected: msg.ReferenceWarm, LastUpdate: time.Now()})
	if msg.ReferenceWarm {
		if step := m.startupSteps["reference"]; step != nil {
			step.Status = "done"
		}
	}
}

func addLog(logs []string, level, message string) []string {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("15:04:05"), level, message)
	logs = append(logs, line)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

func addError(errs []ErrorEntry, message string) []ErrorEntry {
	errs = append(errs, ErrorEntry{Message: message, Timestamp: time.Now()})
	if len(errs) > 3 {
		errs = errs[len(errs)-3:]
	}
	return errs
}

// addActivity keeps the last 8 lines.
func addActivity(feed []string, message string) []string {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message)
	feed = append(feed, line)
	if len(feed) > 8 {
		feed = feed[len(feed)-8:]
	}
	return feed
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-4:]
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Flash Loan Arbitrage: Kyber ⇄ Uniswap "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.prices.View()

	var right strings.Builder
	right.WriteString(m.renderActivityFeed())
	right.WriteString("\n\n")
	right.WriteString(m.decisions.View())
	rightCol := right.String()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		r := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, r))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if Paused() {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
		b.WriteString(pauseStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	blockStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for blocks..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		switch {
		case strings.Contains(activity, "Block #"), strings.Contains(activity, "Block # "):
			sb.WriteString(blockStyle.Render("  " + activity))
		case strings.Contains(activity, "CONFIRMED"), strings.Contains(activity, "SIMULATED"):
			sb.WriteString(PositiveValue.Render("  " + activity))
		case strings.Contains(activity, "REVERTED"), strings.Contains(activity, "FAILED"):
			sb.WriteString(NegativeValue.Render("  " + activity))
		default:
			sb.WriteString(MutedValue.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
	greenStyle := lipgloss.NewStyle().Foreground(ColorSecondary)

	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	logo := `
   ███████╗██╗      █████╗ ███████╗██╗  ██╗     █████╗ ██████╗ ██████╗
   ██╔════╝██║     ██╔══██╗██╔════╝██║  ██║    ██╔══██╗██╔══██╗██╔══██╗
   █████╗  ██║     ███████║███████╗███████║    ███████║██████╔╝██████╔╝
   ██╔══╝  ██║     ██╔══██║╚════██║██╔══██║    ██╔══██║██╔══██╗██╔══██╗
   ██║     ███████╗██║  ██║███████║██║  ██║    ██║  ██║██║  ██║██████╔╝
   ╚═╝     ╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝    ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`
	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("                 K Y B E R   ⇄   U N I S W A P"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("              Borrow, swap, swap back, repay"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarning)

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  Flash Loan Arbitrage"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style
		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", PositiveValue
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon, statusText, style = spinners[idx], "Connecting...", connectingStyle
		case "failed":
			icon, statusText, style = "✗", "Failed", NegativeValue
		default:
			icon, statusText, style = "○", "Pending", MutedValue
		}

		fmt.Fprintf(&sb, "  %s %s %s\n", style.Render(icon), MutedValue.Render(step.Name), style.Render(statusText))
	}

	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n\n")
	for _, e := range m.errors {
		sb.WriteString(NegativeValue.Render("  " + e.Message))
		sb.WriteString("\n")
	}
	sb.WriteString(MutedValue.Render("  Waiting for first Ethereum block..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{fmt.Sprintf("Block: #%d", m.currentBlock)}

	if m.gateInFlight {
		parts = append(parts, StatusBusy.Render("◆ "+ConnGate+": in flight"))
	} else {
		parts = append(parts, StatusIdle.Render("◇ "+ConnGate+": idle"))
	}
	parts = append(parts, m.status.View())

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}
	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
var OnStartModules func()

// Run starts the Bubble Tea program and blocks until it exits.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Quit stops the running program. It is a no-op before Run.
func Quit() {
	if Program != nil {
		Program.Quit()
	}
}

// Send sends a message to the running program. It is a no-op before Run.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
