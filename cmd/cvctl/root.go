package main

import (
	"github.com/spf13/cobra"

	"cvbuilder/internal/shared/config"
)

var cfg config.Config

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cvctl",
		Short:        "Operate the CV builder backend",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
		},
	}
	root.AddCommand(
		serveCmd(),
		migrateCmd(),
		sanitizeCmd(),
		extractCmd(),
		templatesCmd(),
		subscriptionsCmd(),
	)
	return root
}
