package pack

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog/log"

	"sprites.runesynergy.dev/internal/atlas"
)

// ErrSheetExhausted is returned when a layout cannot fit its sprites
// within the allowed number of sheet growths.
var ErrSheetExhausted = errors.New("sheet growth exhausted")

// Layout is the position of every sprite on a sheet, index-aligned with
// the sizes it was computed from.
type Layout struct {
	Width     int
	Height    int
	Positions []image.Point
	Growths   int
}

// Shelf places sizes left to right in rows on a square sheet, leaving
// padding to the right of and below every sprite. The first sheet side is
// the square root of the padded area, but no less than the widest or
// tallest sprite. A sprite with no room left for its right padding starts
// a new row, even at the left edge. When a sprite does not fit the sheet
// grows by a tenth and the whole layout starts over.
func Shelf(sizes []image.Point, padding, maxGrowths int) (*Layout, error) {
	area, maxW, maxH := 0, 0, 0
	for _, s := range sizes {
		area += (s.X + padding) * (s.Y + padding)
		maxW = max(maxW, s.X)
		maxH = max(maxH, s.Y)
	}
	side := max(int(math.Ceil(math.Sqrt(float64(area)))), maxW, maxH, 1)

	for growths := 0; ; growths++ {
		positions, err := shelfAttempt(sizes, side, padding)
		if err == nil {
			return &Layout{Width: side, Height: side, Positions: positions, Growths: growths}, nil
		}
		if growths >= maxGrowths {
			return nil, fmt.Errorf("%w: %w: %d sprites do not fit %dx%d", atlas.ErrIO, ErrSheetExhausted, len(sizes), side, side)
		}
		// ceil(side * 1.1) without float rounding
		side = (side*11 + 9) / 10
		log.Debug().Int("side", side).Msg("increasing sheet size")
	}
}

func shelfAttempt(sizes []image.Point, side, padding int) ([]image.Point, error) {
	positions := make([]image.Point, len(sizes))
	x, y, rowHeight := 0, 0, 0
	for i, s := range sizes {
		if x+s.X+padding > side {
			x = 0
			y += rowHeight + padding
			rowHeight = 0
		}
		if y+s.Y+padding > side {
			return nil, fmt.Errorf("%w: sprite %d (%dx%d) overflows %dx%d", atlas.ErrGeometry, i, s.X, s.Y, side, side)
		}
		positions[i] = image.Pt(x, y)
		x += s.X + padding
		rowHeight = max(rowHeight, s.Y)
	}
	return positions, nil
}
