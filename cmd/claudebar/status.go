package main

import (
	"github.com/spf13/cobra"

	"github.com/tnunamak/claudebar/internal/cli"
)

var (
	statusJSON  bool
	statusPlain bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show current usage",
		Long: `Fetch usage once and print both windows with reset times and a
burn-rate forecast.

Exit codes:
  0  usage printed
  1  the usage request failed
  2  credentials could not be read`,
		Example: `  claudebar status
  claudebar status --json | jq .usage.five_hour`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output JSON")
	statusCmd.Flags().BoolVar(&statusPlain, "plain", false, "plain text, no color codes")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	d, err := newDeps("", false)
	if err != nil {
		return err
	}
	defer func() { _ = d.log.Sync() }()

	rec := &cli.Recorder{}
	ctrl := d.controller(rec)
	code := cli.Status(cmd.Context(), ctrl, rec, cli.Options{
		JSON:   statusJSON,
		Plain:  statusPlain,
		Out:    cmd.OutOrStdout(),
		ErrOut: cmd.ErrOrStderr(),
	})
	return exitCode(code)
}
