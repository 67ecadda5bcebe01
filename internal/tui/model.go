package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/tnunamak/claudebar/internal/display"
)

type Options struct {
	Interval  time.Duration
	NoColor   bool
	AltScreen bool
	// OnRefresh is the "refresh now" action; it reports whether the
	// refresh was accepted.
	OnRefresh func() bool
	// OnQuit is the "quit" action.
	OnQuit func()
}

type Model struct {
	interval  time.Duration
	onRefresh func() bool
	onQuit    func()

	width  int
	height int

	state  display.State
	notice string
	styles styles
}

type styles struct {
	header lipgloss.Style
	dim    lipgloss.Style
	line   lipgloss.Style
	error  lipgloss.Style
	tiers  map[display.Tier]lipgloss.Style
}

type stateMsg struct {
	state display.State
}

func NewModel(opts Options) Model {
	onRefresh := opts.OnRefresh
	if onRefresh == nil {
		onRefresh = func() bool { return false }
	}
	onQuit := opts.OnQuit
	if onQuit == nil {
		onQuit = func() {}
	}
	return Model{
		interval:  opts.Interval,
		onRefresh: onRefresh,
		onQuit:    onQuit,
		state:     display.Initial(),
		styles:    defaultStyles(opts.NoColor),
	}
}

func defaultStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		bold := lipgloss.NewStyle().Bold(true)
		return styles{
			header: bold,
			dim:    plain,
			line:   plain,
			error:  bold,
			tiers: map[display.Tier]lipgloss.Style{
				display.Neutral: bold,
				display.Green:   bold,
				display.Yellow:  bold,
				display.Red:     bold,
			},
		}
	}
	title := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("109")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		line:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		error:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		tiers: map[display.Tier]lipgloss.Style{
			display.Neutral: title.Foreground(lipgloss.Color("255")),
			display.Green:   title.Foreground(lipgloss.Color("42")),
			display.Yellow:  title.Foreground(lipgloss.Color("214")),
			display.Red:     title.Foreground(lipgloss.Color("196")),
		},
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.KeyMsg:
		switch v.String() {
		case "ctrl+c", "q":
			m.onQuit()
			return m, tea.Quit
		case "r":
			if m.onRefresh() {
				m.notice = ""
			} else {
				m.notice = "refresh already in progress"
			}
		}
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
	case stateMsg:
		m.state = v.state
		if v.state.Title != display.PendingTitle {
			m.notice = ""
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.tiers[m.state.Tier].Render(m.state.Title))
	b.WriteString("\n")

	for _, sec := range display.Sections {
		b.WriteString("\n")
		b.WriteString(m.styles.header.Render("── " + sec.Header + " ──"))
		b.WriteString("\n")
		for _, l := range sec.Lines {
			b.WriteString("   ")
			b.WriteString(m.styles.line.Render(m.state.Lines[l]))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.interval > 0 {
		b.WriteString(m.styles.dim.Render(pollingLine(m.interval)))
		b.WriteString("\n")
	}
	if line := m.state.ErrorLine(); line != "" {
		b.WriteString(m.styles.error.Render(line))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.styles.dim.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.dim.Render("r refresh · q quit"))

	return clip(b.String(), m.width)
}

func pollingLine(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("Polling: every %d min", int(d/time.Minute))
	}
	return "Polling: every " + d.String()
}

func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, width, "…")
	}
	return strings.Join(lines, "\n")
}

// Surface forwards published states to a running program.
type Surface struct {
	p *tea.Program
}

func NewSurface(p *tea.Program) *Surface {
	return &Surface{p: p}
}

func (s *Surface) Publish(st display.State) {
	s.p.Send(stateMsg{state: st})
}

// NewProgram builds the program for m with the requested screen mode.
func NewProgram(m Model, altScreen bool) *tea.Program {
	var opts []tea.ProgramOption
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(m, opts...)
}
