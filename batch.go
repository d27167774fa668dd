package glyphatlas

// drawBatch is a DrawBlock together with the glyphs it covers.
type drawBatch struct {
	block DrawBlock
	ids   []GlyphID
}

// batchQueue groups a font's queued glyphs into draw blocks. Consecutive
// glyphs share a block while they sit on the same atlas row, use the same
// face and leave at most one pixel between them. Glyphs without atlas space
// are not batched; they are returned so they stay queued.
func batchQueue(font FontID, info *FontInfo, queue []GlyphID, desc func(GlyphID) *GlyphDesc, atlasWidth int) (batches []drawBatch, held []GlyphID) {
	offset := info.Descriptor.Stroke / 2

	var (
		cur *drawBatch
		end float32
	)
	flush := func() {
		if cur == nil {
			return
		}
		right := min(end+1, float32(atlasWidth))
		cur.block.Block.Width = right - cur.block.Block.X
		batches = append(batches, *cur)
		cur = nil
	}

	for _, id := range queue {
		d := desc(id)
		g := &d.Glyph
		if !g.Placed {
			held = append(held, id)
			continue
		}

		if cur != nil && (g.Y != cur.block.Block.Y || d.FaceIndex != cur.block.FaceIndex || g.X-end > 1) {
			flush()
		}
		if cur == nil {
			cur = &drawBatch{block: DrawBlock{
				Font:      font,
				Families:  info.FaceNames,
				Size:      info.Descriptor.Size,
				Stroke:    info.Descriptor.Stroke,
				Weight:    info.Descriptor.Weight,
				FaceIndex: d.FaceIndex,
				Block:     Block{X: g.X, Y: g.Y, Height: g.Height},
			}}
		}

		cur.block.Chars = append(cur.block.Chars, Await{
			X:      g.X - cur.block.Block.X + offset,
			Char:   d.Char,
			Width:  uint32(g.Width),
			Height: uint32(g.Height),
		})
		cur.ids = append(cur.ids, id)
		end = g.X + g.Width
	}
	flush()
	return batches, held
}
