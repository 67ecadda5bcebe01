package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tnunamak/claudebar/internal/api"
	"github.com/tnunamak/claudebar/internal/display"
	"github.com/tnunamak/claudebar/internal/forecast"
	"github.com/tnunamak/claudebar/internal/refresh"
)

const barWidth = 20

// Refresher runs one guarded refresh.
type Refresher interface {
	RefreshNow(ctx context.Context) (refresh.View, error)
}

// Recorder is a surface that keeps the last published state and snapshot.
type Recorder struct {
	mu       sync.Mutex
	state    display.State
	snapshot *api.Snapshot
}

func (r *Recorder) Publish(s display.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Recorder) ObserveSnapshot(s api.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = &s
}

func (r *Recorder) Snapshot() (api.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		return api.Snapshot{}, false
	}
	return *r.snapshot, true
}

type Options struct {
	JSON   bool
	Plain  bool
	Out    io.Writer
	ErrOut io.Writer
	Now    func() time.Time
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var tierStyles = map[display.Tier]lipgloss.Style{
	display.Green:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	display.Yellow:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	display.Red:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	display.Neutral: lipgloss.NewStyle(),
}

func bar(pct float64) string {
	filled := int(math.Round(pct / 100 * barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func resetText(stat api.WindowStat, now time.Time) string {
	return display.FormatReset(stat.ResetsAt, now)
}

func PrintColor(w io.Writer, snap api.Snapshot, now time.Time) {
	for i, win := range []api.Window{api.FiveHour, api.SevenDay} {
		stat := snap.Window(win)
		label := "claudebar  5h"
		if i > 0 {
			label = "           7d"
		}
		style := tierStyles[display.ColorTier(stat.Utilization)]
		p := forecast.Project(stat, win, now)
		fmt.Fprintf(w, "%s %s %3.0f%%  resets %-10s %s\n",
			label, style.Render(bar(stat.Utilization)), stat.Utilization, resetText(stat, now), p.Indicator())
	}
	fmt.Fprintf(w, "           opus %.1f%%  sonnet %.1f%%\n",
		snap.Window(api.SevenDayOpus).Utilization, snap.Window(api.SevenDaySonnet).Utilization)
}

func PrintPlain(w io.Writer, snap api.Snapshot, now time.Time) {
	five := snap.Window(api.FiveHour)
	seven := snap.Window(api.SevenDay)
	fmt.Fprintf(w, "5h: %.0f%% (resets %s)  7d: %.0f%% (resets %s)\n",
		five.Utilization, resetText(five, now), seven.Utilization, resetText(seven, now))
}

type JSONOutput struct {
	Status   refresh.Status                 `json:"status"`
	State    display.State                  `json:"state"`
	Usage    api.Snapshot                   `json:"usage"`
	Forecast map[api.Window]forecastSummary `json:"forecast"`
}

type forecastSummary struct {
	ProjectedPct float64 `json:"projected_pct"`
	Indicator    string  `json:"indicator"`
}

func PrintJSON(w io.Writer, view refresh.View, snap api.Snapshot, now time.Time) error {
	out := JSONOutput{
		Status:   view.Status,
		State:    view.State,
		Usage:    snap,
		Forecast: make(map[api.Window]forecastSummary, 2),
	}
	for _, win := range []api.Window{api.FiveHour, api.SevenDay} {
		p := forecast.Project(snap.Window(win), win, now)
		out.Forecast[win] = forecastSummary{ProjectedPct: math.Round(p.ProjectedPct*10) / 10, Indicator: p.Indicator()}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Status performs one refresh and prints it. Exit codes: 0 on data, 1 on a
// fetch failure, 2 when credentials could not be read.
func Status(ctx context.Context, r Refresher, rec *Recorder, opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	view, err := r.RefreshNow(ctx)
	if err != nil {
		fmt.Fprintf(opts.ErrOut, "claudebar: %v\n", err)
		return 1
	}
	if view.Status == refresh.Error {
		fmt.Fprintf(opts.ErrOut, "claudebar: %s\n", view.LastError)
		if errors.Is(view.Err, api.ErrLookupFailed) || errors.Is(view.Err, api.ErrMalformed) {
			return 2
		}
		return 1
	}

	snap, _ := rec.Snapshot()
	now := opts.Now()
	switch {
	case opts.JSON:
		if err := PrintJSON(opts.Out, view, snap, now); err != nil {
			fmt.Fprintf(opts.ErrOut, "claudebar: %v\n", err)
			return 1
		}
	case opts.Plain || !isTTY():
		PrintPlain(opts.Out, snap, now)
	default:
		PrintColor(opts.Out, snap, now)
	}
	return 0
}
