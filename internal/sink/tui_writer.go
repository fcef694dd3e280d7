package sink

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"uav-testgen/internal/config"
	"uav-testgen/internal/ledger"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a formatted record line for the viewport.
type logMsg struct{ line string }

// recordMsg carries the record itself for the statistics panel.
type recordMsg struct{ rec ledger.Record }

// eventMsg carries a search event line.
type eventMsg struct{ line string }

// adminMsg reports status server state.
type adminMsg struct{ active bool }

const (
	maxSectionHeightPct = 0.25
	bestPanelSize       = 5
)

// TUIWriter renders campaign progress using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	threshold  float64
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.Campaign) *TUIWriter {
	w := &TUIWriter{threshold: cfg.Search.CrashThreshold, done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func formatRecord(rec ledger.Record, threshold float64) string {
	distColor := colorGreen
	switch {
	case rec.Distance == 0:
		distColor = colorRed
	case rec.Distance < threshold:
		distColor = colorYellow
	}
	phaseColor, ok := phasePalette[rec.Phase]
	if !ok {
		phaseColor = colorWhite()
	}
	line := fmt.Sprintf("%s[%s]%s %s%s%s %siter=%d%s %sseed=%d%s %sdistance=%.3f%s %stime=%.1f%s %s%s%s",
		colorGray, rec.Timestamp.Format(time.RFC3339), colorReset,
		phaseColor, rec.Phase, colorReset,
		colorWhite(), rec.Iteration, colorReset,
		colorBlue, rec.Seed, colorReset,
		distColor, rec.Distance, colorReset,
		colorCyan, rec.Time, colorReset,
		colorGray, rec.ConfigPath, colorReset)
	if rec.CrashAdjacent {
		line += fmt.Sprintf(" %scrash-adjacent%s", colorRed, colorReset)
	}
	return line
}

// Write implements FitnessWriter.
func (w *TUIWriter) Write(rec ledger.Record) error {
	w.program.Send(logMsg{line: formatRecord(rec, w.threshold)})
	w.program.Send(recordMsg{rec: rec})
	return nil
}

// WriteBatch outputs multiple records.
func (w *TUIWriter) WriteBatch(recs []ledger.Record) error {
	for _, r := range recs {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(e Event) error {
	line := fmt.Sprintf("%s[%s]%s %s%s%s iter=%d",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		colorCyan, e.Type, colorReset, e.Iteration)
	if e.Gate != "" {
		line += fmt.Sprintf(" %sgate=%s attempt=%d%s", colorYellow, e.Gate, e.Attempt, colorReset)
	}
	if e.Message != "" {
		line += " " + e.Message
	}
	w.program.Send(eventMsg{line: line})
	return nil
}

// SetAdminStatus updates the status server indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.Campaign
	table        table.Model
	vp           viewport.Model
	eventVP      viewport.Model
	logs         []string
	eventLogs    []string
	records      []ledger.Record
	admin        bool
	wrap         bool
	autoscroll   bool
	showBest     bool
	help         bool
	header       string
	headerHeight int
	height       int
}

func newTUIModel(cfg *config.Campaign) tuiModel {
	cols := []table.Column{
		{Title: "Campaign", Width: 18},
		{Title: "Value", Width: 14},
		{Title: "Search", Width: 18},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"Name", cfg.Name, "Budget", fmt.Sprintf("%d", cfg.Search.Budget)},
		{"Mission", cfg.Mission.Name, "Seeds", fmt.Sprintf("%d/%d", cfg.Search.TopSeeds, cfg.Search.SeedCount)},
		{"Generator", cfg.Generator.Model, "Rounds/seed", fmt.Sprintf("%d", cfg.Search.RoundsPerSeed)},
		{"Simulator", cfg.Simulator.Kind, "Crash threshold", fmt.Sprintf("%.2f", cfg.Search.CrashThreshold)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		eventVP:    viewport.New(0, 0),
		autoscroll: true,
		showBest:   true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.eventVP.Width = msg.Width
		m.height = msg.Height
		m.refreshHeader()
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshEvents()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.refreshHeader()
			m.updateViewportHeight()
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.eventVP.GotoBottom()
			}
		case "b":
			m.showBest = !m.showBest
			m.refreshHeader()
			m.updateViewportHeight()
		case "?", "h":
			m.help = true
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		m.refreshViewport()
	case recordMsg:
		m.records = append(m.records, msg.rec)
		m.refreshHeader()
		m.updateViewportHeight()
	case eventMsg:
		m.eventLogs = append(m.eventLogs, msg.line)
		m.updateViewportHeight()
		m.refreshEvents()
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func (m *tuiModel) refreshHeader() {
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	eventLines := len(m.eventLogs)
	if eventLines == 0 {
		eventLines = 1
	}
	if maxLines := m.maxSectionLines(); eventLines > maxLines {
		eventLines = maxLines
	}
	m.eventVP.Height = eventLines
	h := m.height - m.headerHeight - bottomHeight - (1 + m.eventVP.Height) - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.eventVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshEvents() {
	content := "none"
	if len(m.eventLogs) > 0 {
		content = strings.Join(m.eventLogs, "\n")
	}
	m.eventVP.SetContent(content)
	if m.autoscroll {
		m.eventVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Search Events:",
		m.eventVP.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	if !m.showBest {
		return tableView
	}
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, m.renderBest(m.vp.Width/2-1))
}

func (m tuiModel) renderBest(width int) string {
	var b strings.Builder
	b.WriteString("Closest approaches\n")
	ranked := ledger.Ranked(m.records)
	if len(ranked) > bestPanelSize {
		ranked = ranked[:bestPanelSize]
	}
	for i, r := range ranked {
		prefix := "├─"
		if i == len(ranked)-1 {
			prefix = "└─"
		}
		var obs []string
		for _, o := range r.Obstacles {
			obs = append(obs, o.Position)
		}
		line := fmt.Sprintf("%s %s%.3f%s iter=%d %s", prefix, colorYellow, r.Distance, colorReset, r.Iteration, strings.Join(obs, " "))
		if m.wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	if len(ranked) == 0 {
		b.WriteString("└─ none\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	threshold := 1.5
	budget := 0
	if m.cfg != nil {
		threshold = m.cfg.Search.CrashThreshold
		budget = m.cfg.Search.Budget
	}
	st := ledger.Summarize(m.records, threshold)
	stats := fmt.Sprintf("%sSTATS%s %sruns=%d/%d%s %sbest=%.3f%s %sworst=%.3f%s %smean=%.3f%s %scrash_adjacent=%d%s",
		colorBlue, colorReset,
		colorGreen, st.Count, budget, colorReset,
		colorYellow, st.Best, colorReset,
		colorCyan, st.Worst, colorReset,
		colorMagenta, st.Mean, colorReset,
		colorRed, st.CrashAdjacent, colorReset)
	return fmt.Sprintf("%s | Status %s | Wrap %s | Scroll %s | Best %s | Help %s",
		stats, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.showBest), indicator(m.help))
}

func (m tuiModel) renderHelp() string {
	keys := [][2]string{
		{"q", "quit"},
		{"w", "toggle line wrap"},
		{"s", "toggle autoscroll"},
		{"b", "toggle closest approaches panel"},
		{"?/h", "toggle help"},
	}
	var b strings.Builder
	b.WriteString("Keys\n")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", k[0], k[1]))
	}
	return strings.TrimRight(b.String(), "\n")
}
