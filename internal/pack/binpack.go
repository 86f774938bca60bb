package pack

import (
	"fmt"
	"image"

	"azul3d.org/engine/binpack"
	"golang.org/x/exp/slices"

	"sprites.runesynergy.dev/internal/atlas"
)

// packables adapts sprite sizes to binpack.Pack. Sprites are fed largest
// side first; positions are stored back in input order.
type packables struct {
	sizes     []image.Point
	order     []int
	padding   int
	positions []image.Point
}

func largestSide(p image.Point) int {
	return max(p.X, p.Y)
}

func (p *packables) Len() int {
	return len(p.order)
}

func (p *packables) Size(n int) (w, h int) {
	s := p.sizes[p.order[n]]
	w = s.X + p.padding
	h = s.Y + p.padding
	return
}

func (p *packables) Place(n, x, y int) {
	p.positions[p.order[n]] = image.Pt(x, y)
}

// Binpack lays sizes out with the binpack packer, on a sheet as small as
// it finds rather than a square one.
func Binpack(sizes []image.Point, padding int) (*Layout, error) {
	if len(sizes) == 0 {
		return &Layout{Width: 1, Height: 1}, nil
	}
	p := &packables{
		sizes:     sizes,
		order:     make([]int, len(sizes)),
		padding:   padding,
		positions: make([]image.Point, len(sizes)),
	}
	for i := range p.order {
		p.order[i] = i
	}
	slices.SortStableFunc(p.order, func(a, b int) bool {
		return largestSide(sizes[a]) > largestSide(sizes[b])
	})

	w, h := binpack.Pack(p)
	if w == -1 {
		return nil, fmt.Errorf("%w: %w: binpack failed for %d sprites", atlas.ErrIO, ErrSheetExhausted, len(sizes))
	}
	return &Layout{Width: max(w, 1), Height: max(h, 1), Positions: p.positions}, nil
}
