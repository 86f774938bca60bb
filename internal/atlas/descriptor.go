package atlas

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// SubTexture is one named region of an atlas image.
type SubTexture struct {
	Name string

	// source rectangle in the atlas image
	X      int
	Y      int
	Width  int
	Height int

	// offset of the trimmed rectangle inside the untrimmed frame
	FrameX int
	FrameY int

	// untrimmed frame size
	FrameWidth  int
	FrameHeight int

	Rotated bool
}

// Rect returns the rectangle the region occupies in the atlas image.
func (s SubTexture) Rect() image.Rectangle {
	return image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
}

// Descriptor is the parsed form of a TextureAtlas XML document.
type Descriptor struct {
	ImagePath   string
	SubTextures []SubTexture
}

// Parse decodes a TextureAtlas document. SubTexture elements are collected
// at any depth below the root, in document order.
func Parse(data []byte) (*Descriptor, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	// atlases exported with a latin-1 declaration are read as-is
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) {
		return r, nil
	}

	var desc *Descriptor
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if desc == nil {
			desc = &Descriptor{ImagePath: attr(start.Attr, "imagePath")}
			continue
		}
		if start.Name.Local != "SubTexture" {
			continue
		}
		sub, err := parseSubTexture(start.Attr)
		if err != nil {
			return nil, err
		}
		desc.SubTextures = append(desc.SubTextures, sub)
	}

	if desc == nil {
		return nil, fmt.Errorf("%w: no root element", ErrFormat)
	}
	return desc, nil
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func parseSubTexture(attrs []xml.Attr) (sub SubTexture, err error) {
	values := make(map[string]string, len(attrs))
	for _, a := range attrs {
		values[a.Name.Local] = a.Value
	}

	name, ok := values["name"]
	if !ok {
		err = fmt.Errorf("%w: SubTexture without a name", ErrFormat)
		return
	}
	sub.Name = name

	fields := []struct {
		key string
		dst *int
	}{
		{"x", &sub.X},
		{"y", &sub.Y},
		{"width", &sub.Width},
		{"height", &sub.Height},
		{"frameX", &sub.FrameX},
		{"frameY", &sub.FrameY},
	}
	for _, f := range fields {
		if *f.dst, err = number(values, name, f.key, 0); err != nil {
			return
		}
	}
	if sub.FrameWidth, err = number(values, name, "frameWidth", sub.Width); err != nil {
		return
	}
	if sub.FrameHeight, err = number(values, name, "frameHeight", sub.Height); err != nil {
		return
	}

	sub.Rotated = strings.EqualFold(values["rotated"], "true")
	return
}

// number reads a numeric attribute, truncating decimals toward zero.
func number(values map[string]string, name, key string, def int) (int, error) {
	raw, ok := values[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32) {
		err = fmt.Errorf("value out of range")
	}
	if err != nil {
		return 0, fmt.Errorf("%w: SubTexture %q attribute %s=%q: %w", ErrFormat, name, key, raw, err)
	}
	return int(math.Trunc(f)), nil
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// Marshal renders the descriptor with SubTextures sorted by name. The
// output has no trailing newline and depends only on the descriptor.
func (d *Descriptor) Marshal(attribution string) ([]byte, error) {
	if strings.Contains(attribution, "--") {
		return nil, fmt.Errorf("%w: attribution %q cannot appear in an XML comment", ErrFormat, attribution)
	}

	entries := slices.Clone(d.SubTextures)
	slices.SortStableFunc(entries, func(a, b SubTexture) bool {
		return a.Name < b.Name
	})

	var buf bytes.Buffer
	buf.WriteString("<?xml version='1.0' encoding='utf-8'?>\n")
	fmt.Fprintf(&buf, "<!-- CREATED BY %s -->\n", attribution)
	fmt.Fprintf(&buf, `<TextureAtlas imagePath="%s"`, attrEscaper.Replace(d.ImagePath))
	if len(entries) == 0 {
		buf.WriteString("/>")
		return buf.Bytes(), nil
	}
	buf.WriteString(">\n")
	for _, s := range entries {
		fmt.Fprintf(&buf,
			`    <SubTexture name="%s" x="%d" y="%d" width="%d" height="%d" frameWidth="%d" frameHeight="%d" frameX="%d" frameY="%d"`,
			attrEscaper.Replace(s.Name), s.X, s.Y, s.Width, s.Height, s.FrameWidth, s.FrameHeight, s.FrameX, s.FrameY)
		if s.Rotated {
			buf.WriteString(` rotated="true"`)
		}
		buf.WriteString("/>\n")
	}
	buf.WriteString("</TextureAtlas>")
	return buf.Bytes(), nil
}
