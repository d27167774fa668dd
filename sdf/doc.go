// Package sdf generates single channel signed distance fields from vector
// outlines.
//
// Outlines (from a font [Face] or a [PathBuilder]) are approximated with
// circular arcs. Arcs have closed-form point distances and an exact winding
// contribution, so sampling needs no curve root finding. A [CellInfo] holds
// the arcs and a coarse grid of near-arc lists; it is the representation
// memoized by the glyph atlas and it encodes to compact deterministic CBOR.
//
// Typical use:
//
//	ci := sdf.NewCellInfo(outline, sdf.DefaultTolerance)
//	l := sdf.GlyphLayout(outline.Bounds, face.UnitsPerEm(), sdf.FontSize, 5, 5)
//	tile := sdf.Generate(ci, l, false)
package sdf
