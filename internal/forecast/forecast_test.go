package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/tnunamak/claudebar/internal/api"
)

func TestProject(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	tests := []struct {
		name      string
		stat      api.WindowStat
		window    api.Window
		want      float64
		indicator string
	}{
		{"halfway at 40%", api.WindowStat{Utilization: 40, ResetsAt: at(150 * time.Minute)}, api.FiveHour, 80, "on track"},
		{"one fifth at 20%", api.WindowStat{Utilization: 20, ResetsAt: at(4 * time.Hour)}, api.FiveHour, 100, "over limit"},
		{"weekly tight", api.WindowStat{Utilization: 45, ResetsAt: at(84 * time.Hour)}, api.SevenDay, 90, "tight"},
		{"no reset", api.WindowStat{Utilization: 30}, api.SevenDay, 30, "on track"},
		{"zero usage", api.WindowStat{Utilization: 0, ResetsAt: at(time.Hour)}, api.FiveHour, 0, "on track"},
		{"window just opened", api.WindowStat{Utilization: 5, ResetsAt: at(5 * time.Hour)}, api.FiveHour, 5, "on track"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.stat, tt.window, now)
			if math.Abs(p.ProjectedPct-tt.want) > 0.001 {
				t.Fatalf("projected = %v, want %v", p.ProjectedPct, tt.want)
			}
			if got := p.Indicator(); got != tt.indicator {
				t.Fatalf("indicator = %q, want %q", got, tt.indicator)
			}
			if p.OnTrack != (tt.want < 100) {
				t.Fatalf("OnTrack = %v", p.OnTrack)
			}
		})
	}
}
