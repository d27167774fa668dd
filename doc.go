// Package glyphatlas is a glyph and shape atlas cache for real-time text
// and vector rendering.
//
// # Overview
//
// A [FontManager] interns font descriptors, hands out stable glyph ids and
// packs every glyph into a shared texture atlas. Pixels are produced later,
// in batches, when the caller flushes:
//
//   - [ModeBitmap]: glyphs are measured and rasterized by a [Brush].
//   - [ModeConfigSDF]: metrics come from pre-baked [FontCfg] tables and
//     distance-field tiles are fetched through an [SDFLoader].
//   - [ModeArcSDF]: distance fields are computed from font outlines,
//     approximated with circular arcs, on a worker pool. Arc data is memoized
//     in a byte store keyed by content hash.
//
// # Quick Start
//
//	m, err := glyphatlas.NewFontManager(
//	    glyphatlas.WithAtlasSize(1024, 1024),
//	    glyphatlas.WithMode(glyphatlas.ModeArcSDF),
//	)
//	if err != nil {
//	    return err
//	}
//	_ = m.AddFont("Go", goregular.TTF)
//
//	font := m.FontID(glyphatlas.NewFontDescriptor("Go", 24, 400))
//	id, _ := m.GlyphID(font, 'A')
//
//	err = m.Draw(ctx, func(b glyphatlas.Block, img *glyphatlas.FontImage) {
//	    // upload img into the atlas texture at b
//	})
//	g := m.Glyph(id)
//
// # Threading
//
// A FontManager is owned by one goroutine. Only arc computation runs
// concurrently, and results are reconciled back on the goroutine that
// called Draw, so update callbacks never run concurrently.
//
// # Clearing
//
// [FontManager.Clear] resets the packer and the await queues. Glyph ids
// stay valid but their rectangles are stale; [FontManager.Generation] tells
// callers when to re-request them.
package glyphatlas

// Version is the current version of the library.
const Version = "0.1.0"
