package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tnunamak/claudebar/internal/autostart"
	"github.com/tnunamak/claudebar/internal/metrics"
	"github.com/tnunamak/claudebar/internal/refresh"
	"github.com/tnunamak/claudebar/internal/server"
	"github.com/tnunamak/claudebar/internal/tray"
)

var (
	trayInstall   bool
	trayUninstall bool
	trayNoNotify  bool

	trayCmd = &cobra.Command{
		Use:   "tray",
		Short: "Run as a system tray icon",
		Long: `Show usage as the status bar title and keep it refreshed. The menu
lists both windows with reset times and offers "Refresh Now" and "Quit".

When http.addr is set in the config file, the same state is also served
over HTTP (GET /state, POST /refresh, GET /metrics).`,
		Args: cobra.NoArgs,
		RunE: runTray,
	}
)

func init() {
	trayCmd.Flags().BoolVar(&trayInstall, "install", false, "enable launch at login")
	trayCmd.Flags().BoolVar(&trayUninstall, "uninstall", false, "disable launch at login")
	trayCmd.Flags().BoolVar(&trayNoNotify, "no-notify", false, "disable usage threshold notifications")
	trayCmd.MarkFlagsMutuallyExclusive("install", "uninstall")
}

func runTray(cmd *cobra.Command, _ []string) error {
	if trayInstall || trayUninstall {
		return runTrayAutostart(cmd)
	}

	d, err := newDeps("", false)
	if err != nil {
		return err
	}
	defer func() { _ = d.log.Sync() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	d.watchCredentials(ctx)

	code := tray.Run(tray.Options{
		Context:  ctx,
		Version:  Version,
		Interval: d.cfg.PollInterval,
		Logger:   d.log,
		Notify:   !trayNoNotify,
		Start: func(surface refresh.Surface) tray.Controller {
			ctrl := d.controller(surface)
			if addr := d.cfg.HTTP.Addr; addr != "" {
				srv := server.New(ctrl, metrics.Registry(), d.log)
				go func() {
					if err := srv.ListenAndServe(ctx, addr); err != nil {
						d.log.Error("http server", zap.String("addr", addr), zap.Error(err))
					}
				}()
			}
			return ctrl
		},
	})
	return exitCode(code)
}

// runTrayAutostart registers or removes the exact command line this tray
// would run with, including an explicit --config.
func runTrayAutostart(cmd *cobra.Command) error {
	args := []string{cmd.Name()}
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return err
		}
		args = append(args, "--config", abs)
	}
	entry, err := autostart.ForCommand(args...)
	if err != nil {
		return err
	}

	if trayInstall {
		err = autostart.Install(entry)
	} else {
		err = autostart.Uninstall(entry)
	}
	if err != nil {
		return err
	}

	ok, err := autostart.Installed(entry)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch {
	case trayInstall && ok:
		fmt.Fprintf(out, "claudebar will start at login: %s\n", strings.Join(entry.Args, " "))
	case trayInstall:
		return fmt.Errorf("autostart entry for %q was not created", entry.Name)
	case ok:
		return fmt.Errorf("autostart entry for %q is still present", entry.Name)
	default:
		fmt.Fprintln(out, "claudebar autostart removed")
	}
	return nil
}
