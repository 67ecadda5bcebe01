package api

import (
	"encoding/json"
	"strings"
	"time"
)

// Window identifies a rolling quota period reported by the usage endpoint.
type Window string

const (
	FiveHour       Window = "five_hour"
	SevenDay       Window = "seven_day"
	SevenDayOpus   Window = "seven_day_opus"
	SevenDaySonnet Window = "seven_day_sonnet"
)

// Windows lists every window the endpoint reports, in display order.
var Windows = []Window{FiveHour, SevenDay, SevenDayOpus, SevenDaySonnet}

type WindowStat struct {
	Utilization float64    `json:"utilization"`
	ResetsAt    *time.Time `json:"resets_at,omitempty"`
}

// Snapshot is one fetched set of window statistics. A window the endpoint
// did not report reads as a zero WindowStat.
type Snapshot struct {
	windows   map[Window]WindowStat
	fetchedAt time.Time
}

// NewSnapshot copies stats so the result cannot be mutated by the caller.
func NewSnapshot(stats map[Window]WindowStat, fetchedAt time.Time) Snapshot {
	windows := make(map[Window]WindowStat, len(stats))
	for w, s := range stats {
		windows[w] = s
	}
	return Snapshot{windows: windows, fetchedAt: fetchedAt}
}

func (s Snapshot) Window(w Window) WindowStat {
	return s.windows[w]
}

func (s Snapshot) Has(w Window) bool {
	_, ok := s.windows[w]
	return ok
}

func (s Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[Window]WindowStat, len(Windows))
	for _, w := range Windows {
		out[w] = s.Window(w)
	}
	return json.Marshal(out)
}

type rawWindow struct {
	Utilization *float64 `json:"utilization"`
	ResetsAt    *string  `json:"resets_at"`
}

// parseSnapshot decodes the usage payload. Only a body that is not a JSON
// object fails; a window that is missing, null or malformed degrades to
// zero values.
func parseSnapshot(body []byte, fetchedAt time.Time) (Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return Snapshot{}, err
	}

	stats := make(map[Window]WindowStat, len(Windows))
	for _, w := range Windows {
		raw, ok := top[string(w)]
		if !ok {
			continue
		}
		stats[w] = parseWindow(raw)
	}
	return NewSnapshot(stats, fetchedAt), nil
}

func parseWindow(raw json.RawMessage) WindowStat {
	var rw rawWindow
	if err := json.Unmarshal(raw, &rw); err != nil {
		return WindowStat{}
	}
	var stat WindowStat
	if rw.Utilization != nil {
		stat.Utilization = *rw.Utilization
	}
	if rw.ResetsAt != nil {
		stat.ResetsAt = parseTimestamp(*rw.ResetsAt)
	}
	return stat
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds and
// either a Z suffix or a numeric offset. The result is in UTC.
func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
