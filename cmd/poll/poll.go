package poll

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lanewatch/lanewatch/internal/app"
	"github.com/lanewatch/lanewatch/internal/conf"
)

// Command creates the command that polls the controller over HTTP
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Capture when the HTTP status endpoint reports a trigger",
		Long:  "Request the controller status endpoint in a loop and capture when the body reads \"start\".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.ValidatePollSettings(rt.Settings); err != nil {
				return err
			}
			return rt.Run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.RunPoll(ctx)
			})
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags configures flags specific to the poll command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("url", "", "Controller status URL")
	cmd.Flags().Duration("interval", 0, "Pause between requests")

	if err := viper.BindPFlag("poll.url", cmd.Flags().Lookup("url")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("poll.interval", cmd.Flags().Lookup("interval")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
