package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sprites.runesynergy.dev/internal/config"
	"sprites.runesynergy.dev/internal/rescale"
	"sprites.runesynergy.dev/internal/status"
)

func rescaleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescale",
		Short: "Shrink extracted frames according to the size of their original atlas",
		Long: `Shrink extracted frames according to the size of their original atlas.

Every source image is deleted once its resized copy has been written to the
output folder. When input and output are the same folder the images are
resized in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, "rescale", func(ctx context.Context, cfg *config.Config, sink status.Sink) error {
				sum, err := rescale.Run(ctx, cfg, sink)
				log.Debug().
					Int("folders", sum.Folders).
					Int("images", sum.Images).
					Int("failed", sum.Failed).
					Msg("rescale finished")
				return err
			})
		},
	}
}
