// Package rescale shrinks loose frames extracted from very large atlases.
// The scale of each folder comes from the canvas marker written during
// extraction.
package rescale

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
	"sprites.runesynergy.dev/internal/marker"
	"sprites.runesynergy.dev/internal/raster"
	"sprites.runesynergy.dev/internal/status"
)

// Factor picks the scale for frames cut from a size atlas. ok is false when
// the size is unknown.
func Factor(size image.Point, ok bool) float64 {
	if !ok {
		return 1
	}
	average := float64(size.X+size.Y) / 2
	switch {
	case average >= 8192:
		return 0.25
	case average >= 4096:
		return 0.4
	case average >= 2048:
		return 0.5
	}
	return 1
}

type Summary struct {
	Folders int
	Images  int
	Failed  int
}

type folder struct {
	dir    string
	rel    string
	images []string
}

// Run resizes every image under cfg.Input into the mirrored folder under
// cfg.Output. Each source image is removed once its resized copy is
// written, unless both paths are the same file.
func Run(ctx context.Context, cfg *config.Config, sink status.Sink) (Summary, error) {
	var sum Summary

	folders, total, err := discover(cfg, sink)
	if err != nil {
		return sum, err
	}
	if total == 0 {
		sink.Status("No PNG files found")
		return sum, nil
	}
	sink.Begin(total)

	var resized, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for _, f := range folders {
		f := f
		g.Go(func() error {
			n, bad := rescaleFolder(ctx, cfg, f, sink)
			resized.Add(int64(n))
			failed.Add(int64(bad))
			return nil
		})
	}
	g.Wait()

	sum.Images = int(resized.Load())
	sum.Failed = int(failed.Load())
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	for _, f := range folders {
		if len(f.images) > 0 {
			sum.Folders++
		}
	}
	sink.Status(fmt.Sprintf("Resized %d images", sum.Images))
	return sum, nil
}

func discover(cfg *config.Config, sink status.Sink) (folders []*folder, total int, err error) {
	root := filepath.Clean(cfg.Input)
	output := filepath.Clean(cfg.Output)
	index := make(map[string]*folder)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			sink.Status(fmt.Sprintf("Error reading %s: %v", path, err))
			return nil
		}
		if d.IsDir() {
			if path != root && path == output {
				return filepath.SkipDir
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			f := &folder{dir: path, rel: rel}
			index[path] = f
			folders = append(folders, f)
			return nil
		}
		if !raster.IsImageFile(path) {
			return nil
		}
		if f := index[filepath.Dir(path)]; f != nil {
			f.images = append(f.images, d.Name())
			total++
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	return
}

func rescaleFolder(ctx context.Context, cfg *config.Config, f *folder, sink status.Sink) (resized, failed int) {
	outDir := filepath.Join(cfg.Output, f.rel)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		sink.Status(fmt.Sprintf("Error creating %s: %v", outDir, err))
		failed = len(f.images)
		sink.Advance(len(f.images))
		return
	}
	if len(f.images) == 0 {
		return
	}

	size, ok, err := marker.ReadCanvas(f.dir)
	if err != nil {
		sink.Status(fmt.Sprintf("Error reading marker in %s: %v", f.dir, err))
	}
	factor := Factor(size, ok)
	log.Debug().Str("folder", f.dir).Float64("factor", factor).Int("images", len(f.images)).Msg("rescaling")

	for _, name := range f.images {
		if ctx.Err() != nil {
			return
		}
		if err := resizeFile(filepath.Join(f.dir, name), filepath.Join(outDir, name), factor); err != nil {
			failed++
			sink.Status(fmt.Sprintf("Error in %s: %v", name, err))
		} else {
			resized++
		}
		sink.Advance(1)
	}

	if factor != 1 {
		if err := marker.WriteInverseScale(outDir, factor); err != nil {
			sink.Status(fmt.Sprintf("Error writing scale marker in %s: %v", outDir, err))
		}
	}
	return
}

func resizeFile(in, out string, factor float64) error {
	img, err := raster.Open(in)
	if err != nil {
		return err
	}
	if err := raster.Save(out, raster.Resize(img, factor)); err != nil {
		return err
	}
	if samePath(in, out) {
		return nil
	}
	if err := os.Remove(in); err != nil {
		return fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
