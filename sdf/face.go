package sdf

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ErrNoOutline is returned when a glyph has no vector outline
// (bitmap or color glyphs).
var ErrNoOutline = errors.New("sdf: glyph has no outline")

// Face is a parsed font face used as an outline source.
//
// Face is safe for concurrent use: sfnt calls use pooled buffers.
type Face struct {
	name string
	font *sfnt.Font
	upem float64

	ascender  float64
	descender float64

	bufs sync.Pool
}

// ParseFace parses TrueType or OpenType data. If name is empty the family
// name from the font's name table is used.
func ParseFace(name string, data []byte) (*Face, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("sdf: parse font: %w", err)
	}

	face := &Face{
		font: f,
		upem: float64(f.UnitsPerEm()),
	}
	face.bufs.New = func() any { return new(sfnt.Buffer) }

	buf := face.buffer()
	defer face.bufs.Put(buf)

	if name == "" {
		name, _ = f.Name(buf, sfnt.NameIDFamily)
	}
	face.name = name

	m, err := f.Metrics(buf, face.ppem(), font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("sdf: font metrics: %w", err)
	}
	face.ascender = float64(m.Ascent) / 64 / face.upem
	face.descender = -float64(m.Descent) / 64 / face.upem

	return face, nil
}

func (f *Face) buffer() *sfnt.Buffer {
	return f.bufs.Get().(*sfnt.Buffer)
}

// ppem requests coordinates in font units.
func (f *Face) ppem() fixed.Int26_6 {
	return fixed.Int26_6(f.upem * 64)
}

// Name returns the face name.
func (f *Face) Name() string { return f.name }

// UnitsPerEm returns the font's design grid size.
func (f *Face) UnitsPerEm() float64 { return f.upem }

// Ascender returns the ascent as a fraction of the em (positive).
func (f *Face) Ascender() float64 { return f.ascender }

// Descender returns the descent as a fraction of the em (negative).
func (f *Face) Descender() float64 { return f.descender }

// GlyphIndex returns the glyph index for r, or 0 if the face lacks it.
func (f *Face) GlyphIndex(r rune) uint16 {
	buf := f.buffer()
	defer f.bufs.Put(buf)

	gi, err := f.font.GlyphIndex(buf, r)
	if err != nil {
		return 0
	}
	return uint16(gi)
}

// Advance returns the horizontal advance of glyph gi as a fraction of the em.
func (f *Face) Advance(gi uint16) float64 {
	buf := f.buffer()
	defer f.bufs.Put(buf)

	adv, err := f.font.GlyphAdvance(buf, sfnt.GlyphIndex(gi), f.ppem(), font.HintingNone)
	if err != nil {
		return 0
	}
	return float64(adv) / 64 / f.upem
}

// Outline extracts the outline of glyph gi in font units. A glyph without
// contours (a space) returns an empty outline and no error.
func (f *Face) Outline(gi uint16) (*Outline, error) {
	buf := f.buffer()
	defer f.bufs.Put(buf)

	segments, err := f.font.LoadGlyph(buf, sfnt.GlyphIndex(gi), f.ppem(), nil)
	if err != nil {
		if errors.Is(err, sfnt.ErrColoredGlyph) {
			return nil, ErrNoOutline
		}
		return nil, fmt.Errorf("sdf: load glyph %d: %w", gi, err)
	}

	b := NewPathBuilder()
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			p := fixedToPoint(seg.Args[0])
			b.MoveTo(p.X, p.Y)
		case sfnt.SegmentOpLineTo:
			p := fixedToPoint(seg.Args[0])
			b.LineTo(p.X, p.Y)
		case sfnt.SegmentOpQuadTo:
			c, p := fixedToPoint(seg.Args[0]), fixedToPoint(seg.Args[1])
			b.QuadTo(c.X, c.Y, p.X, p.Y)
		case sfnt.SegmentOpCubeTo:
			c1, c2, p := fixedToPoint(seg.Args[0]), fixedToPoint(seg.Args[1]), fixedToPoint(seg.Args[2])
			b.CubeTo(c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y)
		}
	}
	return b.Outline(), nil
}

// fixedToPoint converts a fixed.Point26_6 to a Point.
func fixedToPoint(p fixed.Point26_6) Point {
	return Point{X: float64(p.X) / 64, Y: float64(p.Y) / 64}
}
