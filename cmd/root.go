package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lanewatch/lanewatch/cmd/capture"
	"github.com/lanewatch/lanewatch/cmd/config"
	"github.com/lanewatch/lanewatch/cmd/file"
	"github.com/lanewatch/lanewatch/cmd/poll"
	"github.com/lanewatch/lanewatch/cmd/push"
	"github.com/lanewatch/lanewatch/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(rt *app.Runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lanewatch",
		Short:         "Lane camera truck number reader",
		Long:          "Capture a still from the lane camera when the controller signals a truck, read its number and record it.",
		Version:       rt.Build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, rt); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		push.Command(rt),
		poll.Command(rt),
		capture.Command(rt),
		file.Command(rt),
		config.Command(rt),
	)

	// Flags are bound to viper by now, so loading picks up command-line values
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rt.Load()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, rt *app.Runtime) error {
	rootCmd.PersistentFlags().StringVarP(&rt.ConfigPath, "config", "c", "", "Path to config.yaml (default: search ./, ~/.config/lanewatch, /etc/lanewatch)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().String("port", "", "Port label written with every record")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("output.portlabel", rootCmd.PersistentFlags().Lookup("port")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
