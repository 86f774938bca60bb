// Package raster is the image buffer layer shared by the pipelines.
//
// Every frame is held as an *image.NRGBA with straight (non-premultiplied)
// alpha, its origin at (0, 0) and a tight stride, so Pix is the canonical
// pixel content of the frame.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"sprites.runesynergy.dev/internal/atlas"
)

// IsImageFile reports whether name has an extension the pipelines read.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Stem returns name without its extension.
func Stem(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

// Open reads an image file and converts it to NRGBA.
func Open(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, path)
	}
	return img, nil
}

// Decode sniffs the content type of data before decoding it.
func Decode(data []byte) (*image.NRGBA, error) {
	switch contentType := http.DetectContentType(data); contentType {
	case "image/png", "image/jpeg", "image/gif":
	default:
		return nil, fmt.Errorf("%w: unsupported content type %s", atlas.ErrFormat, contentType)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", atlas.ErrFormat, err)
	}
	return imaging.Clone(img), nil
}

// Save encodes img in the format implied by the extension of path.
func Save(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("%w: writing %q: %w", atlas.ErrIO, path, err)
	}
	return nil
}

// Blank returns a fully transparent w x h canvas.
func Blank(w, h int) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{})
}

// Crop copies r out of img. The result always has the size of r; parts of
// r that fall outside img stay transparent.
func Crop(img image.Image, r image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	blit(dst, dst.Bounds(), img, r.Min)
	return dst
}

// Blit draws src onto dst with its top-left corner at pt, replacing the
// pixels underneath. Unlike Paste it modifies dst.
func Blit(dst *image.NRGBA, src image.Image, pt image.Point) {
	b := src.Bounds()
	blit(dst, image.Rectangle{pt, pt.Add(b.Size())}, src, b.Min)
}

// blit copies src at sp into r of dst, clipped to both images. NRGBA rows
// are copied byte for byte; draw.Draw would round-trip them through
// premultiplied colour.
func blit(dst *image.NRGBA, r image.Rectangle, src image.Image, sp image.Point) {
	s, ok := src.(*image.NRGBA)
	if !ok {
		draw.Draw(dst, r, src, sp, draw.Src)
		return
	}

	orig := r.Min
	r = r.Intersect(dst.Rect)
	sp = sp.Add(r.Min.Sub(orig))
	sr := image.Rectangle{sp, sp.Add(r.Size())}.Intersect(s.Rect)
	r = image.Rectangle{r.Min.Add(sr.Min.Sub(sp)), r.Min.Add(sr.Max.Sub(sp))}
	if r.Empty() {
		return
	}

	n := r.Dx() * 4
	for y := 0; y < r.Dy(); y++ {
		di := dst.PixOffset(r.Min.X, r.Min.Y+y)
		si := s.PixOffset(sr.Min.X, sr.Min.Y+y)
		copy(dst.Pix[di:di+n], s.Pix[si:si+n])
	}
}

// Rotate90 rotates img 90 degrees counter-clockwise.
func Rotate90(img image.Image) *image.NRGBA {
	return imaging.Rotate90(img)
}

// Paste replaces the pixels of dst under src placed at pt, clipped to dst.
func Paste(dst, src image.Image, pt image.Point) *image.NRGBA {
	return imaging.Paste(dst, src, pt)
}

// Trim returns the bounding box of the pixels of img with a non-zero alpha.
// A fully transparent image yields its full bounds, and so does any opaque
// image such as a decoded JPEG.
func Trim(img *image.NRGBA) image.Rectangle {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4+3] == 0 {
				continue
			}
			minX = min(minX, b.Min.X+x)
			maxX = max(maxX, b.Min.X+x+1)
			minY = min(minY, y)
			maxY = max(maxY, y+1)
		}
	}
	if minX >= maxX || minY >= maxY {
		return b
	}
	return image.Rect(minX, minY, maxX, maxY)
}

// Resize scales img by factor with a Lanczos filter. Each side of the
// result is truncated to an integer and kept at one pixel or more.
func Resize(img image.Image, factor float64) *image.NRGBA {
	size := img.Bounds().Size()
	w := max(1, int(float64(size.X)*factor))
	h := max(1, int(float64(size.Y)*factor))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Equal reports whether a and b have the same bounds and pixel bytes.
func Equal(a, b *image.NRGBA) bool {
	return a.Rect == b.Rect && bytes.Equal(a.Pix, b.Pix)
}
