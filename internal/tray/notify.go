package tray

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/tnunamak/claudebar/internal/api"
)

type notification struct {
	title   string
	body    string
	urgency string
}

// thresholds remembers the last peak utilization so each threshold notifies
// once per upward crossing.
type thresholds struct {
	mu   sync.Mutex
	last float64
}

func peak(snap api.Snapshot) float64 {
	pct := snap.Window(api.FiveHour).Utilization
	if s := snap.Window(api.SevenDay).Utilization; s > pct {
		pct = s
	}
	return pct
}

func (t *thresholds) observe(pct float64) (notification, bool) {
	t.mu.Lock()
	prev := t.last
	t.last = pct
	t.mu.Unlock()

	switch {
	case pct >= 95 && prev < 95:
		return notification{
			title:   "Claude usage critical",
			body:    fmt.Sprintf("Usage at %.0f%%, you may be rate limited soon", pct),
			urgency: "critical",
		}, true
	case pct >= 80 && prev < 80:
		return notification{
			title:   "Claude usage warning",
			body:    fmt.Sprintf("Usage at %.0f%%", pct),
			urgency: "normal",
		}, true
	}
	return notification{}, false
}

func notifyCommand(n notification) *exec.Cmd {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", "-u", n.urgency, n.title, n.body)
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, n.body, n.title)
		return exec.Command("osascript", "-e", script)
	}
	return nil
}
