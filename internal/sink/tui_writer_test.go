package sink

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"uav-testgen/internal/config"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIWriterMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIWriter{program: p, threshold: 1.5}
	if err := w.Write(sampleRecord()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := p.msgs[0].(logMsg); !ok {
		t.Fatalf("expected logMsg, got %T", p.msgs[0])
	}
	if _, ok := p.msgs[1].(recordMsg); !ok {
		t.Fatalf("expected recordMsg, got %T", p.msgs[1])
	}
	if err := w.WriteEvent(Event{Type: EventEarlyStop}); err != nil {
		t.Fatalf("event: %v", err)
	}
	if _, ok := p.msgs[2].(eventMsg); !ok {
		t.Fatalf("expected eventMsg, got %T", p.msgs[2])
	}
	w.SetAdminStatus(true)
	if _, ok := p.msgs[3].(adminMsg); !ok {
		t.Fatalf("expected adminMsg, got %T", p.msgs[3])
	}
}

func TestWrapToggle(t *testing.T) {
	cfg := config.Default()
	m := newTUIModel(&cfg)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 40})
	m = mi.(tuiModel)
	long := "one two three four five six"
	mi, _ = m.Update(logMsg{line: long})
	m = mi.(tuiModel)
	lines := strings.Split(m.vp.View(), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[1]) != "" {
		t.Fatalf("expected single line before wrap")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Fatalf("wrap not toggled")
	}
	lines = strings.Split(m.vp.View(), "\n")
	if strings.TrimSpace(lines[1]) == "" {
		t.Fatalf("expected wrapped content on second line")
	}
}

func TestScrollToggle(t *testing.T) {
	cfg := config.Default()
	m := newTUIModel(&cfg)
	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Fatalf("autoscroll should be disabled")
	}
}

func TestBestPanelRanksRecords(t *testing.T) {
	cfg := config.Default()
	m := newTUIModel(&cfg)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	m = mi.(tuiModel)
	for _, d := range []float64{3.2, 0.4, 1.1} {
		rec := sampleRecord()
		rec.Distance = d
		mi, _ = m.Update(recordMsg{rec: rec})
		m = mi.(tuiModel)
	}
	best := m.renderBest(80)
	first := strings.Index(best, "0.400")
	second := strings.Index(best, "1.100")
	third := strings.Index(best, "3.200")
	if first < 0 || !(first < second && second < third) {
		t.Fatalf("records not ranked ascending:\n%s", best)
	}
	if !strings.Contains(m.renderBottom(), "runs=3") {
		t.Fatalf("bottom bar missing run count: %s", m.renderBottom())
	}
}
