package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sprites.runesynergy.dev/internal/config"
	"sprites.runesynergy.dev/internal/pack"
	"sprites.runesynergy.dev/internal/status"
)

func packCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build one atlas (PNG + XML) per folder of frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, "pack", func(ctx context.Context, cfg *config.Config, sink status.Sink) error {
				sum, err := pack.Run(ctx, cfg, sink)
				log.Debug().
					Int("folders", sum.Folders).
					Int("sheets", sum.Sheets).
					Int("frames", sum.Frames).
					Int("duplicates", sum.Duplicates).
					Int("failed", sum.Failed).
					Msg("pack finished")
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&cfg.Padding, "padding", cfg.Padding, "sets the space right of and below every frame")
	flags.IntVar(&cfg.MaxGrowths, "max-growths", cfg.MaxGrowths, "how many times a sheet may grow before the folder fails")
	flags.StringVar(&cfg.Layout, "layout", cfg.Layout, "frame layout: shelf or binpack")
	flags.StringVar(&cfg.Attribution, "attribution", cfg.Attribution, "name written in the descriptor header comment")
	return cmd
}
