//go:build tray

package tray

import (
	"context"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/tnunamak/claudebar/internal/api"
	"github.com/tnunamak/claudebar/internal/display"
)

// Surface renders the controller's state into the status item and menu.
type Surface struct {
	lines  [display.NumLines]*systray.MenuItem
	mError *systray.MenuItem
	log    *zap.Logger

	notify bool
	th     thresholds
}

func Run(opts Options) int {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	systray.Run(func() { onReady(opts) }, func() {
		opts.Logger.Info("tray exited")
	})
	return 0
}

func onReady(opts Options) {
	initial := display.Initial()
	systray.SetTitle(initial.Title)
	systray.SetTooltip("Claude usage monitor")
	systray.SetIcon(icons[display.Neutral])

	s := &Surface{log: opts.Logger, notify: opts.Notify}
	for i, sec := range display.Sections {
		if i > 0 {
			systray.AddSeparator()
		}
		header := systray.AddMenuItem("── "+sec.Header+" ──", "")
		header.Disable()
		for _, l := range sec.Lines {
			item := systray.AddMenuItem("   "+initial.Lines[l], "")
			item.Disable()
			s.lines[l] = item
		}
	}
	systray.AddSeparator()
	mRefresh := systray.AddMenuItem("Refresh Now", "Fetch usage now")
	if opts.Interval > 0 {
		mPolling := systray.AddMenuItem(pollingLabel(opts.Interval), "")
		mPolling.Disable()
	}
	s.mError = systray.AddMenuItem("", "")
	s.mError.Disable()
	s.mError.Hide()
	systray.AddSeparator()
	if opts.Version != "" {
		mVersion := systray.AddMenuItem("claudebar "+opts.Version, "")
		mVersion.Disable()
	}
	mQuit := systray.AddMenuItem("Quit", "")

	ctrl := opts.Start(s)
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			opts.Logger.Error("refresh loop", zap.Error(err))
		}
		systray.Quit()
	}()

	go func() {
		defer cancel()
		for {
			select {
			case <-mRefresh.ClickedCh:
				ctrl.TriggerManualRefresh()
			case <-mQuit.ClickedCh:
				ctrl.RequestShutdown()
				return
			}
		}
	}()
}

func (s *Surface) Publish(st display.State) {
	systray.SetTitle(st.Title)
	for l, item := range s.lines {
		item.SetTitle("   " + st.Lines[l])
	}
	if line := st.ErrorLine(); line != "" {
		s.mError.SetTitle("   " + line)
		s.mError.Show()
	} else {
		s.mError.SetTitle("")
		s.mError.Hide()
	}
}

// SetTitleColor swaps the status icon; systray has no colored title text.
func (s *Surface) SetTitleColor(t display.Tier) error {
	systray.SetIcon(icons[t])
	return nil
}

func (s *Surface) ObserveSnapshot(snap api.Snapshot) {
	if !s.notify {
		return
	}
	n, ok := s.th.observe(peak(snap))
	if !ok {
		return
	}
	cmd := notifyCommand(n)
	if cmd == nil {
		return
	}
	if err := cmd.Run(); err != nil {
		s.log.Debug("notification failed", zap.Error(err))
	}
}
