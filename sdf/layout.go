package sdf

import (
	"math"
)

// FontSize is the em size, in pixels, at which glyph tiles are generated.
const FontSize = 32

// Layout maps an outline into a square distance-field tile.
type Layout struct {
	// TexSize is the tile edge in pixels.
	TexSize int

	// Scale converts outline units to tile pixels.
	Scale float64

	// Bounds is the outline bounding box, in outline units.
	Bounds Rect

	// AtlasBounds is where Bounds lands inside the tile, in pixels.
	AtlasBounds Rect

	// PlaneBounds is Bounds in em units (glyphs) or outline units (shapes).
	PlaneBounds Rect

	// PxRange is the distance, in pixels, spanned by the 0..255 encoding.
	PxRange float64

	// Cutoff is the padding in pixels around the outline.
	Cutoff float64
}

// GlyphLayout lays out a glyph with bbox in font units so that one em spans
// fontSize pixels, padded by cutoff pixels on each side.
func GlyphLayout(bbox Rect, unitsPerEm, fontSize, pxRange, cutoff float64) Layout {
	scale := fontSize / unitsPerEm
	gw := bbox.Width() * scale
	gh := bbox.Height() * scale
	tex := int(math.Ceil(math.Max(gw, gh) + 2*cutoff))

	return Layout{
		TexSize: max(tex, 1),
		Scale:   scale,
		Bounds:  bbox,
		AtlasBounds: Rect{
			MinX: cutoff,
			MinY: cutoff,
			MaxX: cutoff + gw,
			MaxY: cutoff + gh,
		},
		PlaneBounds: bbox.Scale(1 / unitsPerEm),
		PxRange:     pxRange,
		Cutoff:      cutoff,
	}
}

// ShapeLayout fits a shape with bbox in outline units into a texSize tile,
// keeping cutoff pixels of padding.
func ShapeLayout(bbox Rect, texSize int, pxRange, cutoff float64) Layout {
	inner := float64(texSize) - 2*cutoff
	if inner < 1 {
		inner = 1
	}
	extent := math.Max(bbox.Width(), bbox.Height())
	scale := 1.0
	if extent > 0 {
		scale = inner / extent
	}

	return Layout{
		TexSize: texSize,
		Scale:   scale,
		Bounds:  bbox,
		AtlasBounds: Rect{
			MinX: cutoff,
			MinY: cutoff,
			MaxX: cutoff + bbox.Width()*scale,
			MaxY: cutoff + bbox.Height()*scale,
		},
		PlaneBounds: bbox,
		PxRange:     pxRange,
		Cutoff:      cutoff,
	}
}

// PixelToOutline converts tile pixel coordinates to outline coordinates.
func (l Layout) PixelToOutline(px, py float64) Point {
	return Point{
		X: l.Bounds.MinX + (px-l.AtlasBounds.MinX)/l.Scale,
		Y: l.Bounds.MinY + (py-l.AtlasBounds.MinY)/l.Scale,
	}
}

// PxRangeFor returns the distance range used for a glyph drawn with the
// given stroke at the given size. Ranges are quantized to 5, 8, 11, ... so
// that nearby strokes share tiles.
func PxRangeFor(stroke, size float64) int {
	if size <= 0 {
		return 5
	}
	pr := stroke/size*FontSize + 0.5
	if pr < 5 {
		return 5
	}
	return int(math.Round(math.Ceil((pr-5)/3)*3 + 5))
}

// ShadowCutoff returns the padding needed for a shadow of the given radius
// and weight.
func ShadowCutoff(radius, weight float64) float64 {
	return float64(int(radius+weight*3) + 2)
}
