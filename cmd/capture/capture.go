package capture

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lanewatch/lanewatch/internal/app"
)

// Command creates the command that runs one capture right away
func Command(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Capture once without waiting for a trigger",
		Long:  "Run a single capture from the configured camera, record the numbers and archive the image.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.Run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Capture(ctx)
				if err != nil {
					return err
				}
				if err := app.WriteResult(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				return res.Err()
			})
		},
	}
}
