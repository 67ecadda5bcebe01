package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "claudebar",
		Short: "Claude subscription usage in your status bar",
		Long: `claudebar polls the Claude OAuth usage endpoint and shows the 5-hour and
7-day window utilization as a status bar title, a terminal dashboard or a
one-shot report.

Credentials are read from CLAUDE_CODE_OAUTH_TOKEN, the macOS keychain or
~/.claude/.credentials.json, the same places Claude Code stores them.

Examples:
  # Print current usage
  claudebar status

  # Run in the system tray and start at login
  claudebar tray --install

  # Live dashboard in the terminal
  claudebar watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runStatus,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/claudebar/config.yaml)")
	rootCmd.SuggestionsMinimumDistance = 2

	rootCmd.AddCommand(statusCmd, trayCmd, watchCmd, versionCmd)
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
