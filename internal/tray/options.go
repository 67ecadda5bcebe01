package tray

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tnunamak/claudebar/internal/refresh"
)

// Controller is what the tray needs from the refresh controller.
type Controller interface {
	Run(ctx context.Context) error
	TriggerManualRefresh() bool
	RequestShutdown()
}

type Options struct {
	// Context, when cancelled, stops the refresh loop and exits the tray.
	Context  context.Context
	Version  string
	Interval time.Duration
	Logger   *zap.Logger
	// Start builds the controller once the tray menu exists. The surface
	// passed in is the tray itself.
	Start func(surface refresh.Surface) Controller
	// Notify disables threshold notifications when false.
	Notify bool
}

func pollingLabel(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("Polling: every %d min", int(d/time.Minute))
	}
	return "Polling: every " + d.String()
}
