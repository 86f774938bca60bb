package pack

import (
	"fmt"
	"hash/crc32"
	"image"
	"os"
	"path/filepath"

	"sprites.runesynergy.dev/internal/atlas"
	"sprites.runesynergy.dev/internal/raster"
	"sprites.runesynergy.dev/internal/status"
)

// Frame is one decoded image file of a leaf folder.
type Frame struct {
	Name  string
	Image *image.NRGBA
	CRC32 uint32
}

// Group is a representative frame and the names of the frames whose pixels
// are identical to it.
type Group struct {
	Representative Frame
	Duplicates     []string
}

// Sprite is a representative trimmed to its visible pixels.
type Sprite struct {
	Name       string
	Image      *image.NRGBA
	Original   image.Point
	Trim       image.Rectangle
	Duplicates []string
}

// LoadFolder decodes the image files directly inside dir in file name
// order. Files that fail to decode are reported to sink and left out.
func LoadFolder(dir string, sink status.Sink) ([]Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}

	var frames []Frame
	for _, entry := range entries {
		if entry.IsDir() || !raster.IsImageFile(entry.Name()) {
			continue
		}
		img, err := raster.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			sink.Status(fmt.Sprintf("Error in %s: %v", entry.Name(), err))
			continue
		}
		frames = append(frames, Frame{
			Name:  entry.Name(),
			Image: img,
			CRC32: crc32.ChecksumIEEE(img.Pix),
		})
	}
	return frames, nil
}

// Dedup groups frames with identical pixels. The checksum only narrows the
// candidates; frames join a group when their bounds and pixel bytes match
// the representative exactly. The first frame of each group, in input
// order, is its representative.
func Dedup(frames []Frame) []*Group {
	var groups []*Group
	buckets := make(map[uint32][]*Group)

	for _, f := range frames {
		var match *Group
		for _, g := range buckets[f.CRC32] {
			if raster.Equal(g.Representative.Image, f.Image) {
				match = g
				break
			}
		}
		if match != nil {
			match.Duplicates = append(match.Duplicates, f.Name)
			continue
		}
		g := &Group{Representative: f}
		buckets[f.CRC32] = append(buckets[f.CRC32], g)
		groups = append(groups, g)
	}
	return groups
}

// Trim crops the representative of g to its visible pixels.
func Trim(g *Group) *Sprite {
	img := g.Representative.Image
	box := raster.Trim(img)
	return &Sprite{
		Name:       g.Representative.Name,
		Image:      raster.Crop(img, box),
		Original:   img.Bounds().Size(),
		Trim:       box,
		Duplicates: g.Duplicates,
	}
}
