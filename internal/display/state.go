package display

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/tnunamak/claudebar/internal/api"
)

const (
	PlaceholderTitle = "5h: ?% | 7d: ?%"
	PendingTitle     = "5h: …"

	DefaultErrorWidth = 80
)

// Line identifies one row of the usage menu.
type Line int

const (
	FiveHourUsage Line = iota
	FiveHourReset
	SevenDayTotal
	SevenDayOpus
	SevenDaySonnet
	SevenDayReset

	NumLines
)

var lineNames = [NumLines]string{
	FiveHourUsage:  "5h_usage",
	FiveHourReset:  "5h_reset",
	SevenDayTotal:  "7d_total",
	SevenDayOpus:   "7d_opus",
	SevenDaySonnet: "7d_sonnet",
	SevenDayReset:  "7d_reset",
}

func (l Line) String() string {
	if l < 0 || l >= NumLines {
		return fmt.Sprintf("line(%d)", int(l))
	}
	return lineNames[l]
}

// Section groups lines under a header in the menu.
type Section struct {
	Header string
	Lines  []Line
}

// Sections is the fixed menu layout shared by every surface.
var Sections = []Section{
	{Header: "5-Hour Window", Lines: []Line{FiveHourUsage, FiveHourReset}},
	{Header: "7-Day Window", Lines: []Line{SevenDayTotal, SevenDayOpus, SevenDaySonnet, SevenDayReset}},
}

// State is what the display surface shows. It is a value: every refresh
// outcome produces a new State rather than editing the old one.
type State struct {
	Title string           `json:"title"`
	Lines [NumLines]string `json:"lines"`
	Tier  Tier             `json:"tier"`
	// Error is empty in the data shape and holds the truncated failure
	// message in the error shape.
	Error string `json:"error,omitempty"`
}

// Initial is shown before the first fetch completes.
func Initial() State {
	return State{
		Title: PlaceholderTitle,
		Lines: [NumLines]string{
			FiveHourUsage:  "Usage: —",
			FiveHourReset:  "Resets: —",
			SevenDayTotal:  "Total: —",
			SevenDayOpus:   "Opus: —",
			SevenDaySonnet: "Sonnet: —",
			SevenDayReset:  "Resets: —",
		},
		Tier: Neutral,
	}
}

// FromSnapshot derives the data shape. Only the 5-hour and 7-day windows
// drive the title tier.
func FromSnapshot(snap api.Snapshot, now time.Time) State {
	return FromSnapshotIn(snap, now, time.Local)
}

func FromSnapshotIn(snap api.Snapshot, now time.Time, loc *time.Location) State {
	five := snap.Window(api.FiveHour)
	seven := snap.Window(api.SevenDay)
	opus := snap.Window(api.SevenDayOpus)
	sonnet := snap.Window(api.SevenDaySonnet)

	var s State
	s.Title = fmt.Sprintf("5h: %.0f%% | 7d: %.0f%%", five.Utilization, seven.Utilization)
	s.Tier = ColorTier(math.Max(five.Utilization, seven.Utilization))
	s.Lines[FiveHourUsage] = fmt.Sprintf("Usage: %.1f%%", five.Utilization)
	s.Lines[FiveHourReset] = "Resets: " + FormatResetIn(five.ResetsAt, now, loc)
	s.Lines[SevenDayTotal] = fmt.Sprintf("Total: %.1f%%", seven.Utilization)
	s.Lines[SevenDayOpus] = fmt.Sprintf("Opus: %.1f%%", opus.Utilization)
	s.Lines[SevenDaySonnet] = fmt.Sprintf("Sonnet: %.1f%%", sonnet.Utilization)
	s.Lines[SevenDayReset] = "Resets: " + FormatResetIn(seven.ResetsAt, now, loc)
	return s
}

// WithError returns the error shape: placeholder title, neutral tier, the
// message truncated to width runes, and the usage lines of s unchanged.
func (s State) WithError(msg string, width int) State {
	if msg == "" {
		msg = "unknown"
	}
	s.Title = PlaceholderTitle
	s.Tier = Neutral
	s.Error = Truncate(msg, width)
	return s
}

// Pending returns s with the in-progress title. Lines, tier and error are
// kept so nothing implies the data is fresher than it is.
func (s State) Pending() State {
	s.Title = PendingTitle
	return s
}

func (s State) IsError() bool {
	return s.Error != ""
}

// ErrorLine is the menu text for the error row, empty in the data shape.
func (s State) ErrorLine() string {
	if s.Error == "" {
		return ""
	}
	return "Error: " + s.Error
}

// Truncate cuts msg to at most width runes. A width <= 0 means no limit.
func Truncate(msg string, width int) string {
	if width <= 0 || utf8.RuneCountInString(msg) <= width {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:width])
}
