package file

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lanewatch/lanewatch/internal/app"
	"github.com/lanewatch/lanewatch/internal/camera"
)

// Command creates the command that reads numbers from an image file
func Command(rt *app.Runtime) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "file [image]",
		Short: "Read numbers from an image file",
		Long:  "Run enhancement and OCR on an image file. Nothing is recorded or archived unless --save is given.",
		Args:  cobra.ExactArgs(1), // the command expects exactly one argument
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []app.Option{app.WithFrameSource(camera.NewFileSource(args[0]))}
			if !save {
				rt.Settings.Archive.Enabled = false
				opts = append(opts, app.WithoutPersistence())
			}

			return rt.Run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Capture(ctx)
				if err != nil {
					return err
				}
				if err := app.WriteResult(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				return res.Err()
			}, opts...)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Record the numbers and archive the image as a capture would")
	return cmd
}
