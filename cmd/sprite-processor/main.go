package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sprites.runesynergy.dev/internal/config"
	"sprites.runesynergy.dev/internal/status"
)

var cfg = config.Default()
var config_path string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "sprite-processor",
		Short:             "Extract, rescale and pack texture atlases",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfg.Input, "input", "i", "", "the input folder")
	flags.StringVarP(&cfg.Output, "output", "o", "", "the output folder")
	flags.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "number of concurrent workers")
	flags.StringVar(&config_path, "config", "", "JSON config file; flags set on the command line win")
	flags.BoolVar(&cfg.NoProgress, "no-progress", false, "disable the progress bar")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")

	root.AddCommand(
		extractCmd(),
		rescaleCmd(),
		packCmd(),
		manifestCmd(),
		sanitizeCmd(),
	)
	return root
}

func setup(cmd *cobra.Command, args []string) error {
	if config_path != "" {
		loaded, err := config.Load(config_path)
		if err != nil {
			return err
		}
		mergeFlags(cmd, loaded)
		*cfg = *loaded
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

// mergeFlags copies the flags given on the command line over the values
// loaded from the config file.
func mergeFlags(cmd *cobra.Command, loaded *config.Config) {
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			apply()
		}
	}
	set("input", func() { loaded.Input = cfg.Input })
	set("output", func() { loaded.Output = cfg.Output })
	set("workers", func() { loaded.Workers = cfg.Workers })
	set("no-progress", func() { loaded.NoProgress = cfg.NoProgress })
	set("log-level", func() { loaded.LogLevel = cfg.LogLevel })
	set("skip", func() { loaded.SkipDirs = cfg.SkipDirs })
	set("padding", func() { loaded.Padding = cfg.Padding })
	set("max-growths", func() { loaded.MaxGrowths = cfg.MaxGrowths })
	set("layout", func() { loaded.Layout = cfg.Layout })
	set("attribution", func() { loaded.Attribution = cfg.Attribution })
}

// newSink logs statuses and, on a terminal, draws a progress bar. The
// returned func must be called once the pipeline is done.
func newSink(task string) (status.Sink, func()) {
	logSink := &status.Log{Logger: log.Logger, Task: task}
	if cfg.NoProgress || !status.Interactive(os.Stderr) {
		return logSink, func() {}
	}
	bar := status.NewBar(os.Stderr, task)
	return status.Multi{logSink, bar}, bar.Close
}

func runPipeline(cmd *cobra.Command, task string, run func(context.Context, *config.Config, status.Sink) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	sink, done := newSink(task)
	defer done()
	return run(cmd.Context(), cfg, sink)
}
