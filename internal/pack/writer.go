package pack

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"sprites.runesynergy.dev/internal/atlas"
	"sprites.runesynergy.dev/internal/raster"
)

// Sheet is a packed atlas image and its descriptor.
type Sheet struct {
	Name       string
	Image      *image.NRGBA
	Descriptor *atlas.Descriptor
}

// Build draws sprites at their layout positions and describes them. Every
// duplicate gets an entry of its own carrying the geometry of its
// representative; its pixels are not drawn again.
func Build(name string, sprites []*Sprite, layout *Layout) *Sheet {
	sheet := &Sheet{
		Name:       name,
		Image:      raster.Blank(layout.Width, layout.Height),
		Descriptor: &atlas.Descriptor{ImagePath: name + ".png"},
	}

	geometry := make([]atlas.SubTexture, len(sprites))
	for i, s := range sprites {
		pt := layout.Positions[i]
		raster.Blit(sheet.Image, s.Image, pt)
		size := s.Image.Bounds().Size()
		geometry[i] = atlas.SubTexture{
			Name:        raster.Stem(s.Name),
			X:           pt.X,
			Y:           pt.Y,
			Width:       size.X,
			Height:      size.Y,
			FrameX:      -s.Trim.Min.X,
			FrameY:      -s.Trim.Min.Y,
			FrameWidth:  s.Original.X,
			FrameHeight: s.Original.Y,
		}
	}

	subs := append([]atlas.SubTexture(nil), geometry...)
	for i, s := range sprites {
		for _, dup := range s.Duplicates {
			sub := geometry[i]
			sub.Name = raster.Stem(dup)
			subs = append(subs, sub)
		}
	}
	sheet.Descriptor.SubTextures = subs
	return sheet
}

// Write stores the sheet as <dir>/<name>.png and <dir>/<name>.xml.
func (s *Sheet) Write(dir, attribution string) error {
	data, err := s.Descriptor.Marshal(attribution)
	if err != nil {
		return err
	}
	if err := raster.Save(filepath.Join(dir, s.Name+".png"), s.Image); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, s.Name+".xml"), data, 0644); err != nil {
		return fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	return nil
}

// copyMarker copies src into dir keeping its mode and modification time.
// A missing src is not an error.
func copyMarker(src, dir string) (copied bool, err error) {
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return false, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	dst := filepath.Join(dir, filepath.Base(src))
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return false, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return false, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	if err = out.Close(); err != nil {
		return false, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	if err = os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return false, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	return true, nil
}
