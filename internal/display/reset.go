package display

import "time"

const (
	clockLayout = "3:04 PM"
	dayLayout   = "Mon Jan 2"
)

// FormatReset renders a reset timestamp relative to now in the local zone.
func FormatReset(resetsAt *time.Time, now time.Time) string {
	return FormatResetIn(resetsAt, now, time.Local)
}

// FormatResetIn renders resetsAt as "N/A" when absent, "now" when it is not
// in the future, a clock time when under 24h away, and a weekday/month/day
// otherwise. The delta is computed in UTC and the result rendered in loc.
func FormatResetIn(resetsAt *time.Time, now time.Time, loc *time.Location) string {
	if resetsAt == nil {
		return "N/A"
	}
	delta := resetsAt.UTC().Sub(now.UTC())
	if delta <= 0 {
		return "now"
	}
	if loc == nil {
		loc = time.Local
	}
	local := resetsAt.In(loc)
	if delta < 24*time.Hour {
		return local.Format(clockLayout)
	}
	return local.Format(dayLayout)
}
