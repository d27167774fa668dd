package glyphatlas

import (
	"log/slog"
	"math"
)

// fontChar keys per-font glyph maps.
type fontChar struct {
	font FontID
	char rune
}

// familyChar keys per-family maps.
type familyChar struct {
	family FontFamilyID
	char   rune
}

// baseWidth is a brush measurement at BaseFontSize.
type baseWidth struct {
	width     float32
	faceIndex int
}

// bitmapSource places brush-rasterized glyphs.
type bitmapSource struct {
	slots
	brush Brush

	ids map[fontChar]GlyphID

	// bases caches unscaled widths per family, shared by every size and
	// weight of the family.
	bases map[familyChar]baseWidth
}

func newBitmapSource(brush Brush, width, height int, log *slog.Logger) *bitmapSource {
	return &bitmapSource{
		slots: newSlots("bitmap", width, height, log),
		brush: brush,
		ids:   make(map[fontChar]GlyphID),
		bases: make(map[familyChar]baseWidth),
	}
}

// height scales the brush's reference height to the font size.
func (s *bitmapSource) height(info *FontInfo) (float32, float32) {
	if s.brush == nil {
		return info.Descriptor.Size, info.Descriptor.Size
	}
	line, maxH := s.brush.Height(info)
	scale := info.Descriptor.Size / BaseFontSize
	return line * scale, maxH * scale
}

// measureBase returns the base width of r for info's family, applying the
// bold factor for bold ASCII.
func (s *bitmapSource) measureBase(info *FontInfo, r rune) (float32, int) {
	key := familyChar{info.Family, r}
	b, ok := s.bases[key]
	if !ok {
		w, idx := s.brush.MeasureBaseWidth(info, r)
		b = baseWidth{width: w, faceIndex: idx}
		s.bases[key] = b
	}
	w := b.width
	if r < 0x80 && info.Descriptor.IsBold() {
		w *= BoldFactor
	}
	return w, b.faceIndex
}

func (s *bitmapSource) measureWidth(info *FontInfo, r rune) float32 {
	if s.brush == nil {
		return info.Descriptor.Size / 2
	}
	w, _ := s.measureBase(info, r)
	return w*info.Descriptor.Size/BaseFontSize + info.Descriptor.Stroke
}

func (s *bitmapSource) glyphID(font FontID, info *FontInfo, r rune) (GlyphID, error) {
	if id, ok := s.ids[fontChar{font, r}]; ok {
		return id, s.revalidate(id, info)
	}
	if s.brush == nil {
		return 0, ErrGlyphUnresolvable
	}

	base, idx := s.measureBase(info, r)
	advance := base * info.Descriptor.Size / BaseFontSize
	width := advance + info.Descriptor.Stroke + 2

	id := s.insert(GlyphDesc{
		Font:      font,
		Char:      r,
		FaceIndex: idx,
		Glyph: Glyph{
			Width:   float32(math.Round(float64(width))),
			Height:  info.LineHeight,
			Advance: advance,
		},
		allocW: int(math.Ceil(float64(width))),
		allocH: int(math.Ceil(float64(info.MaxHeight))),
	})
	s.ids[fontChar{font, r}] = id
	return id, s.place(id, info)
}

// draw rasterizes every queued glyph with one brush call.
func (s *bitmapSource) draw(fonts fontSet, update UpdateFunc) int {
	all := s.drain(fonts)
	if len(all) == 0 || s.brush == nil {
		return 0
	}
	blocks := make([]DrawBlock, len(all))
	for i, b := range all {
		blocks[i] = b.block
	}
	s.log.Debug("bitmap draw", slog.Int("blocks", len(blocks)))
	s.brush.Draw(blocks, update)
	return len(blocks)
}
