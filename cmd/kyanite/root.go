package main

import (
	"github.com/kyanite-engine/kyanite/pkg/telemetry"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:          "kyanite",
		Short:        "Kyanite engine tools",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if logLevel != "" {
				telemetry.SetGlobalLogLevel(logLevel)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newDemoCmd(), newProfileCmd())
	return cmd
}
