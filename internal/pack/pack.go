// Package pack rebuilds texture atlases from folders of loose frames.
//
// Every leaf folder (a directory holding at least one image file) becomes
// one atlas: frames with identical pixels are stored once, every stored
// frame is trimmed to its visible pixels, and the sprites are laid out on a
// sheet that grows until they fit.
package pack

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"sprites.runesynergy.dev/internal/atlas"
	"sprites.runesynergy.dev/internal/config"
	"sprites.runesynergy.dev/internal/raster"
	"sprites.runesynergy.dev/internal/status"
)

type Summary struct {
	Folders    int
	Sheets     int
	Frames     int
	Duplicates int
	Failed     int
}

// LeafFolders lists every directory under root that holds at least one
// image file, each folder before its subfolders. skip, when not empty, is
// left out with everything below it.
func LeafFolders(root, skip string) ([]string, error) {
	root = filepath.Clean(root)
	if skip != "" {
		skip = filepath.Clean(skip)
	}

	var leaves []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && path == skip {
			return filepath.SkipDir
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if !entry.IsDir() && raster.IsImageFile(entry.Name()) {
				leaves = append(leaves, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	return leaves, nil
}

// Run packs every leaf folder under cfg.Input into an atlas under
// cfg.Output. A folder that fails is reported to sink and the run goes on.
func Run(ctx context.Context, cfg *config.Config, sink status.Sink) (Summary, error) {
	var sum Summary

	leaves, err := LeafFolders(cfg.Input, cfg.Output)
	if err != nil {
		return sum, err
	}
	if len(leaves) == 0 {
		sink.Status("No image folders found")
		return sum, nil
	}
	sum.Folders = len(leaves)
	sink.Begin(len(leaves))

	var sheets, frames, dups, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for _, dir := range leaves {
		dir := dir
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := packFolder(cfg, dir, sink)
			if err != nil {
				failed.Add(1)
				sink.Status(fmt.Sprintf("Error packing %s: %v", dir, err))
			} else {
				sheets.Add(1)
				frames.Add(int64(res.frames))
				dups.Add(int64(res.duplicates))
			}
			sink.Advance(1)
			return nil
		})
	}
	g.Wait()

	sum.Sheets = int(sheets.Load())
	sum.Frames = int(frames.Load())
	sum.Duplicates = int(dups.Load())
	sum.Failed = int(failed.Load())
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	sink.Status(fmt.Sprintf("Created %d sprite sheets", sum.Sheets))
	return sum, nil
}

type folderResult struct {
	frames     int
	duplicates int
}

func packFolder(cfg *config.Config, dir string, sink status.Sink) (res folderResult, err error) {
	root, err := filepath.Abs(cfg.Input)
	if err != nil {
		return
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return
	}
	name := filepath.Base(abs)
	outDir := filepath.Join(cfg.Output, filepath.Dir(rel))

	loaded, err := LoadFolder(dir, sink)
	if err != nil {
		return
	}
	if len(loaded) == 0 {
		err = fmt.Errorf("%w: no readable images", atlas.ErrFormat)
		return
	}

	groups := Dedup(loaded)
	sprites := make([]*Sprite, len(groups))
	sizes := make([]image.Point, len(groups))
	for i, g := range groups {
		sprites[i] = Trim(g)
		sizes[i] = sprites[i].Image.Bounds().Size()
		res.duplicates += len(g.Duplicates)
	}
	res.frames = len(loaded)

	layout, err := Arrange(cfg, sizes)
	if err != nil {
		return
	}
	sheet := Build(name, sprites, layout)

	if err = os.MkdirAll(outDir, 0755); err != nil {
		err = fmt.Errorf("%w: %w", atlas.ErrIO, err)
		return
	}
	if err = sheet.Write(outDir, cfg.Attribution); err != nil {
		return
	}
	if _, err = copyMarker(filepath.Join(dir, name+".txt"), outDir); err != nil {
		return
	}

	log.Debug().
		Str("folder", dir).
		Int("frames", res.frames).
		Int("duplicates", res.duplicates).
		Int("width", layout.Width).
		Int("height", layout.Height).
		Int("growths", layout.Growths).
		Msg("packed")
	return
}

// Arrange lays sizes out with the layout selected in cfg.
func Arrange(cfg *config.Config, sizes []image.Point) (*Layout, error) {
	if cfg.Layout == config.LayoutBinpack {
		return Binpack(sizes, cfg.Padding)
	}
	return Shelf(sizes, cfg.Padding, cfg.MaxGrowths)
}
