package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sprites.runesynergy.dev/internal/config"
	"sprites.runesynergy.dev/internal/extract"
	"sprites.runesynergy.dev/internal/status"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Split every atlas (PNG with a same-named XML) into one PNG per frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, "extract", func(ctx context.Context, cfg *config.Config, sink status.Sink) error {
				sum, err := extract.Run(ctx, cfg, sink)
				log.Debug().
					Int("atlases", sum.Atlases).
					Int("frames", sum.Frames).
					Int("failed", sum.Failed).
					Msg("extract finished")
				return err
			})
		},
	}
	cmd.Flags().StringSliceVar(&cfg.SkipDirs, "skip", cfg.SkipDirs, "folder names never searched for atlases")
	return cmd
}
