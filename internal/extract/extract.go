// Package extract splits texture atlases back into one PNG per SubTexture,
// each restored to its untrimmed frame size.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"sprites.runesynergy.dev/internal/atlas"
	"sprites.runesynergy.dev/internal/config"
	"sprites.runesynergy.dev/internal/marker"
	"sprites.runesynergy.dev/internal/raster"
	"sprites.runesynergy.dev/internal/status"
)

// Summary describes a finished run.
type Summary struct {
	Atlases int
	Frames  int
	Failed  int
}

type task struct {
	imagePath string
	rel       string
	desc      *atlas.Descriptor
}

// Run extracts every atlas under cfg.Input into cfg.Output. Failures of a
// single atlas or frame are reported to sink and do not stop the run; the
// returned error is non-nil only when the input cannot be walked or ctx is
// done.
func Run(ctx context.Context, cfg *config.Config, sink status.Sink) (Summary, error) {
	var sum Summary

	tasks, err := discover(cfg, sink)
	if err != nil {
		return sum, err
	}
	if len(tasks) == 0 {
		sink.Status("No valid PNG/XML files found")
		return sum, nil
	}

	total := 0
	for _, t := range tasks {
		total += len(t.desc.SubTextures)
	}
	sum.Atlases = len(tasks)
	sink.Begin(total)

	var written, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			n, bad, err := extractAtlas(ctx, cfg, t, sink)
			written.Add(int64(n))
			failed.Add(int64(bad))
			if err != nil && ctx.Err() == nil {
				failed.Add(1)
				sink.Status(fmt.Sprintf("Error processing %s: %v", t.imagePath, err))
			}
			return nil
		})
	}
	g.Wait()

	sum.Frames = int(written.Load())
	sum.Failed = int(failed.Load())
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	sink.Status(fmt.Sprintf("Extracted %d frames", sum.Frames))
	return sum, nil
}

// discover lists every atlas image with a sibling descriptor. Descriptors
// are parsed here so the frame total is known before any work starts.
func discover(cfg *config.Config, sink status.Sink) (tasks []task, err error) {
	root := filepath.Clean(cfg.Input)
	output := filepath.Clean(cfg.Output)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			sink.Status(fmt.Sprintf("Error reading %s: %v", path, err))
			return nil
		}
		if d.IsDir() {
			if path != root && (cfg.Skipped(d.Name()) || path == output) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ".png" {
			return nil
		}

		xmlPath := raster.Stem(path) + ".xml"
		data, err := os.ReadFile(xmlPath)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		var desc *atlas.Descriptor
		if err == nil {
			desc, err = atlas.Parse(data)
		}
		if err != nil {
			log.Debug().Err(err).Str("descriptor", xmlPath).Msg("unreadable descriptor")
			sink.Status(fmt.Sprintf("Error in %s, skipping: %v", xmlPath, err))
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		tasks = append(tasks, task{imagePath: path, rel: rel, desc: desc})
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	return
}

func extractAtlas(ctx context.Context, cfg *config.Config, t task, sink status.Sink) (written, failed int, err error) {
	if err = ctx.Err(); err != nil {
		return
	}

	img, err := raster.Open(t.imagePath)
	if err != nil {
		return
	}

	dir := filepath.Join(cfg.Output, t.rel, raster.Stem(filepath.Base(t.imagePath)))
	if err = os.MkdirAll(dir, 0755); err != nil {
		err = fmt.Errorf("%w: %w", atlas.ErrIO, err)
		return
	}
	size := img.Bounds().Size()
	if err = marker.WriteCanvas(dir, size.X, size.Y); err != nil {
		return
	}
	log.Debug().Str("atlas", t.imagePath).Int("frames", len(t.desc.SubTextures)).Str("dir", dir).Msg("extracting")

	seen := make(map[string]string, len(t.desc.SubTextures))
	for _, sub := range t.desc.SubTextures {
		if err = ctx.Err(); err != nil {
			return
		}

		name := atlas.SanitizeName(sub.Name)
		if prev, ok := seen[name]; ok {
			sink.Status(fmt.Sprintf("Warning: %q and %q in %s both write %s.png, keeping the last", prev, sub.Name, t.imagePath, name))
		}
		seen[name] = sub.Name

		if ferr := writeFrame(img, sub, filepath.Join(dir, name+".png")); ferr != nil {
			failed++
			sink.Status(fmt.Sprintf("Error in %s frame %q: %v", t.imagePath, sub.Name, ferr))
		} else {
			written++
		}
		sink.Advance(1)
	}
	return
}

func writeFrame(img image.Image, sub atlas.SubTexture, path string) error {
	frame, err := Frame(img, sub)
	if err != nil {
		return err
	}
	return raster.Save(path, frame)
}

// Frame rebuilds the untrimmed frame of sub from the atlas image img. The
// result is always FrameWidth x FrameHeight; content falling outside it is
// clipped.
func Frame(img image.Image, sub atlas.SubTexture) (*image.NRGBA, error) {
	if sub.Width <= 0 || sub.Height <= 0 {
		return nil, fmt.Errorf("%w: empty region %dx%d", atlas.ErrFormat, sub.Width, sub.Height)
	}
	if sub.FrameWidth <= 0 || sub.FrameHeight <= 0 {
		return nil, fmt.Errorf("%w: empty frame %dx%d", atlas.ErrFormat, sub.FrameWidth, sub.FrameHeight)
	}

	crop := raster.Crop(img, sub.Rect())
	if sub.Rotated {
		crop = raster.Rotate90(crop)
	}
	canvas := raster.Blank(sub.FrameWidth, sub.FrameHeight)
	return raster.Paste(canvas, crop, image.Pt(max(0, -sub.FrameX), max(0, -sub.FrameY))), nil
}
