package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"facette.io/natsort"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"sprites.runesynergy.dev/internal/atlas"
	"sprites.runesynergy.dev/internal/config"
	"sprites.runesynergy.dev/internal/pack"
	"sprites.runesynergy.dev/internal/status"
)

var (
	include_pattern string
	exclude_pattern string
)

type manifestFrame struct {
	Name        string `json:"name"`
	CRC32       uint32 `json:"crc"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

type manifestFolder struct {
	Folder string          `json:"folder"`
	Unique int             `json:"unique"`
	Frames []manifestFrame `json:"frames"`
}

func manifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Report the frames of every image folder and which of them are duplicates",
		Long: `Report the frames of every image folder and which of them are duplicates.

The manifest is printed to stdout, or written to <output>/manifest.json when
an output folder is given.`,
		Args: cobra.NoArgs,
		RunE: runManifest,
	}
	cmd.Flags().StringVarP(&include_pattern, "pattern", "p", ".*", "the regex pattern used for including folders")
	cmd.Flags().StringVarP(&exclude_pattern, "exclude", "e", "^$", "the regex pattern used for excluding folders")
	return cmd
}

func runManifest(cmd *cobra.Command, args []string) error {
	if cfg.Input == "" {
		return config.ErrNoInput
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers (%d) must be at least 1", cfg.Workers)
	}
	inc, err := regexp.Compile(include_pattern)
	if err != nil {
		return err
	}
	exc, err := regexp.Compile(exclude_pattern)
	if err != nil {
		return err
	}

	leaves, err := pack.LeafFolders(cfg.Input, cfg.Output)
	if err != nil {
		return err
	}

	sink := &status.Log{Logger: log.Logger, Task: "manifest"}
	results := make(map[string]manifestFolder)

	var mtx sync.Mutex
	var g errgroup.Group
	g.SetLimit(cfg.Workers)

	for _, dir := range leaves {
		rel, err := filepath.Rel(cfg.Input, dir)
		if err != nil {
			return fmt.Errorf("%w: %w", atlas.ErrIO, err)
		}
		rel = strings.ReplaceAll(rel, string(os.PathSeparator), "/")
		if !inc.MatchString(rel) || exc.MatchString(rel) {
			continue
		}

		dir := dir
		g.Go(func() error {
			frames, err := pack.LoadFolder(dir, sink)
			if err != nil {
				sink.Status(fmt.Sprintf("Error in %s: %v", dir, err))
				return nil
			}
			folder := describeFolder(rel, pack.Dedup(frames))

			mtx.Lock()
			defer mtx.Unlock()
			results[rel] = folder
			return nil
		})
	}
	g.Wait()

	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	natsort.Sort(keys)

	manifest := make([]manifestFolder, 0, len(keys))
	for _, k := range keys {
		manifest = append(manifest, results[k])
	}

	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	if cfg.Output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	path := filepath.Join(cfg.Output, "manifest.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	log.Info().Str("path", path).Int("folders", len(manifest)).Msg("wrote manifest")
	return nil
}

func describeFolder(rel string, groups []*pack.Group) manifestFolder {
	folder := manifestFolder{Folder: rel, Unique: len(groups)}
	for _, g := range groups {
		rep := g.Representative
		size := rep.Image.Bounds().Size()
		folder.Frames = append(folder.Frames, manifestFrame{
			Name:   rep.Name,
			CRC32:  rep.CRC32,
			Width:  size.X,
			Height: size.Y,
		})
		for _, name := range g.Duplicates {
			folder.Frames = append(folder.Frames, manifestFrame{
				Name:        name,
				CRC32:       rep.CRC32,
				Width:       size.X,
				Height:      size.Y,
				DuplicateOf: rep.Name,
			})
		}
	}
	slices.SortFunc(folder.Frames, func(a, b manifestFrame) bool {
		return natsort.Compare(a.Name, b.Name)
	})
	return folder
}
