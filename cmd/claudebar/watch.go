package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tnunamak/claudebar/internal/refresh"
	"github.com/tnunamak/claudebar/internal/tui"
)

var (
	watchNoColor bool
	watchInline  bool
	watchLogFile string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Live usage dashboard in the terminal",
		Long: `Show the same view as the tray menu in the terminal and keep it
refreshed. Press r to refresh now and q to quit.

Logs would corrupt the screen, so they are discarded unless --log-file or
log.file in the config file names a destination.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchNoColor, "no-color", false, "disable colors")
	watchCmd.Flags().BoolVar(&watchInline, "inline", false, "render inline instead of using the alternate screen")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "write logs to this file")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	d, err := newDeps(watchLogFile, true)
	if err != nil {
		return err
	}
	defer func() { _ = d.log.Sync() }()

	// The model and the controller refer to each other; the closures below
	// run only after ctrl is assigned.
	var ctrl *refresh.Controller
	model := tui.NewModel(tui.Options{
		Interval:  d.cfg.PollInterval,
		NoColor:   watchNoColor,
		AltScreen: !watchInline,
		OnRefresh: func() bool { return ctrl.TriggerManualRefresh() },
		OnQuit:    func() { ctrl.RequestShutdown() },
	})
	p := tui.NewProgram(model, !watchInline)
	ctrl = d.controller(tui.NewSurface(p))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	d.watchCredentials(ctx)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := ctrl.Run(ctx); err != nil {
			d.log.Error("refresh loop", zap.Error(err))
		}
		p.Quit()
	}()

	_, err = p.Run()
	ctrl.RequestShutdown()
	<-loopDone
	return err
}

