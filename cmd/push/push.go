package push

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lanewatch/lanewatch/internal/app"
	"github.com/lanewatch/lanewatch/internal/conf"
)

// Command creates the command that waits for MQTT triggers
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Capture on MQTT triggers",
		Long:  "Subscribe to the trigger topic and capture every time the controller publishes \"start\".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.ValidatePushSettings(rt.Settings); err != nil {
				return err
			}
			return rt.Run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.RunPush(ctx)
			})
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags configures flags specific to the push command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("broker", "", "MQTT broker URL (tcp://host:port)")
	cmd.Flags().String("topic", "", "Topic the controller publishes triggers on")

	for key, name := range map[string]string{
		"mqtt.broker":       "broker",
		"mqtt.triggertopic": "topic",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}
