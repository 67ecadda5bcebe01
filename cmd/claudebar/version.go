package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tnunamak/claudebar/internal/update"
)

var (
	versionCheck bool

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "claudebar "+Version)
			if !versionCheck {
				return nil
			}
			rel, err := update.NewChecker().Check(cmd.Context(), Version)
			if err != nil {
				return err
			}
			if rel == nil {
				fmt.Fprintln(out, "up to date")
				return nil
			}
			fmt.Fprintf(out, "claudebar %s is available: %s\n", update.StripV(rel.Version), rel.URL)
			return nil
		},
	}
)

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}
