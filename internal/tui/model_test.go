package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tnunamak/claudebar/internal/api"
	"github.com/tnunamak/claudebar/internal/display"
)

func dataState() display.State {
	now := time.Now()
	return display.FromSnapshotIn(api.NewSnapshot(map[api.Window]api.WindowStat{
		api.FiveHour: {Utilization: 62.3},
		api.SevenDay: {Utilization: 81},
	}, now), now, time.UTC)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestViewRendersSectionsAndLines(t *testing.T) {
	m := NewModel(Options{Interval: 2 * time.Minute, NoColor: true})
	m, _ = update(t, m, stateMsg{state: dataState()})

	out := m.View()
	for _, want := range []string{"5h: 62% | 7d: 81%", "5-Hour Window", "7-Day Window", "Usage: 62.3%", "Total: 81.0%", "Polling: every 2 min"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Error:") {
		t.Fatal("data view shows an error line")
	}
}

func TestViewShowsErrorLine(t *testing.T) {
	m := NewModel(Options{NoColor: true})
	m, _ = update(t, m, stateMsg{state: dataState().WithError("API returned 500", 80)})

	out := m.View()
	if !strings.Contains(out, "Error: API returned 500") || !strings.Contains(out, display.PlaceholderTitle) {
		t.Fatalf("view:\n%s", out)
	}
	if !strings.Contains(out, "Usage: 62.3%") {
		t.Fatal("error view dropped prior usage lines")
	}
}

func TestViewClipsToWidth(t *testing.T) {
	m := NewModel(Options{NoColor: true})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 12, Height: 30})
	m, _ = update(t, m, stateMsg{state: dataState()})

	for i, line := range strings.Split(m.View(), "\n") {
		if w := lipgloss.Width(line); w > 12 {
			t.Fatalf("line %d width %d > 12: %q", i, w, line)
		}
	}
}

func TestKeysInvokeActions(t *testing.T) {
	refreshes, quits := 0, 0
	accept := true
	m := NewModel(Options{
		OnRefresh: func() bool { refreshes++; return accept },
		OnQuit:    func() { quits++ },
	})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if refreshes != 1 || m.notice != "" {
		t.Fatalf("refreshes=%d notice=%q", refreshes, m.notice)
	}

	accept = false
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.notice == "" {
		t.Fatal("rejected refresh left no notice")
	}

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if quits != 1 {
		t.Fatalf("quits = %d", quits)
	}
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit command is not tea.Quit")
	}
}

func TestPollingLine(t *testing.T) {
	if got := pollingLine(90 * time.Second); got != "Polling: every 1m30s" {
		t.Fatalf("got %q", got)
	}
}
