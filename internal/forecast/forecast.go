package forecast

import (
	"time"

	"github.com/tnunamak/claudebar/internal/api"
)

// Length returns the duration of a quota window, or zero if unknown.
func Length(w api.Window) time.Duration {
	switch w {
	case api.FiveHour:
		return 5 * time.Hour
	case api.SevenDay, api.SevenDayOpus, api.SevenDaySonnet:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

type Projection struct {
	// ProjectedPct is the estimated utilization at window reset (0-100+).
	ProjectedPct float64
	// OnTrack is true if projected usage stays under 100% at reset.
	OnTrack bool
}

// Project extrapolates the current burn rate of stat to the end of its
// window. Without a reset time, or before any time has elapsed, the
// current utilization is the projection.
func Project(stat api.WindowStat, w api.Window, now time.Time) Projection {
	current := stat.Utilization
	windowLen := Length(w)
	if stat.ResetsAt == nil || windowLen == 0 {
		return Projection{ProjectedPct: current, OnTrack: current < 100}
	}

	remaining := stat.ResetsAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	elapsed := windowLen - remaining
	if elapsed <= 0 || current <= 0 {
		return Projection{ProjectedPct: current, OnTrack: current < 100}
	}

	projected := current / elapsed.Seconds() * windowLen.Seconds()
	return Projection{
		ProjectedPct: projected,
		OnTrack:      projected < 100,
	}
}

// Indicator returns a short status string for the projection.
func (p Projection) Indicator() string {
	switch {
	case p.ProjectedPct >= 100:
		return "over limit"
	case p.ProjectedPct >= 90:
		return "tight"
	default:
		return "on track"
	}
}
