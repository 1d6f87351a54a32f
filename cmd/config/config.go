package config

import (
	"github.com/spf13/cobra"

	"github.com/lanewatch/lanewatch/internal/app"
	"github.com/lanewatch/lanewatch/internal/conf"
)

// Command creates the command that prints the effective settings
func Command(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the settings after defaults, config file, environment and flags are applied. Secrets are redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return conf.WriteYAML(cmd.OutOrStdout(), rt.Settings)
		},
	}
}
