// Package marker reads and writes the small .txt sidecar files that travel
// with frame folders: the canvas size of the atlas a folder was extracted
// from, and the inverse scale a folder was rescaled by.
package marker

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"sprites.runesynergy.dev/internal/atlas"
)

var dimensions = regexp.MustCompile(`(\d+)x(\d+)`)

// CanvasName is the file name of the canvas marker for a w x h atlas.
func CanvasName(w, h int) string {
	return fmt.Sprintf("%dx%d.txt", w, h)
}

// WriteCanvas records the size of the atlas a frame folder came from.
func WriteCanvas(dir string, w, h int) error {
	path := filepath.Join(dir, CanvasName(w, h))
	content := fmt.Sprintf("Original dimensions: %dx%d", w, h)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	return nil
}

// ReadCanvas returns the first WxH found in the .txt files of dir, in
// directory order. ok is false when no file carries one.
func ReadCanvas(dir string) (size image.Point, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		err = fmt.Errorf("%w: %w", atlas.ErrIO, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".txt" {
			continue
		}
		var data []byte
		if data, err = os.ReadFile(filepath.Join(dir, entry.Name())); err != nil {
			err = fmt.Errorf("%w: %w", atlas.ErrIO, err)
			return
		}
		m := dimensions.FindStringSubmatch(string(data))
		if m == nil {
			continue
		}
		w, errW := strconv.Atoi(m[1])
		h, errH := strconv.Atoi(m[2])
		if errW != nil || errH != nil {
			// digits too long for an int
			continue
		}
		return image.Pt(w, h), true, nil
	}
	return
}

// InverseScaleName is the file name of the inverse scale marker for dir.
func InverseScaleName(dir string) string {
	return filepath.Base(dir) + ".txt"
}

// WriteInverseScale records 1/factor, rounded to two decimals, in dir.
func WriteInverseScale(dir string, factor float64) error {
	path := filepath.Join(dir, InverseScaleName(dir))
	if err := os.WriteFile(path, []byte(FormatInverse(factor)), 0644); err != nil {
		return fmt.Errorf("%w: %w", atlas.ErrIO, err)
	}
	return nil
}

// FormatInverse formats round(1/factor, 2) with at least one decimal,
// e.g. 2.5, 4.0.
func FormatInverse(factor float64) string {
	v := math.Round(100/factor) / 100
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}
