package glyphatlas

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/gogpu/glyphatlas/internal/parallel"
)

// cfgDefault is the character shown when neither a face nor the
// placeholder provides a glyph.
type cfgDefault struct {
	face    string
	char    rune
	metrics MetricsInfo
	id      GlyphID

	// info is the single-face font the default glyph was created for; the
	// glyph is queued there when it needs drawing.
	info *FontInfo
}

// configSource places glyphs described by FontCfg tables. Pixels come from
// an SDFLoader at flush time.
type configSource struct {
	slots
	loader SDFLoader

	cfgs map[FontFaceID]*FontCfg
	ids  map[familyChar]GlyphID
	def  *cfgDefault
}

func newConfigSource(loader SDFLoader, width, height int, log *slog.Logger) *configSource {
	return &configSource{
		slots:  newSlots("config", width, height, log),
		loader: loader,
		cfgs:   make(map[FontFaceID]*FontCfg),
		ids:    make(map[familyChar]GlyphID),
	}
}

func (s *configSource) addConfig(face FontFaceID, cfg *FontCfg) {
	s.cfgs[face] = cfg
	s.log.Info("font cfg registered",
		slog.String("face", cfg.Name),
		slog.Int("glyphs", len(cfg.Glyphs)))
}

// lookup finds the first face of the chain whose table has r.
func (s *configSource) lookup(info *FontInfo, r rune) (GlyphInfo, MetricsInfo, int, bool) {
	for i, face := range info.Faces {
		cfg, ok := s.cfgs[face]
		if !ok {
			continue
		}
		if g, ok := cfg.Glyphs[r]; ok {
			return g, cfg.Metrics, i, true
		}
	}
	return GlyphInfo{}, MetricsInfo{}, -1, false
}

func (s *configSource) height(info *FontInfo) (float32, float32) {
	var line, maxH float32
	for _, face := range info.Faces {
		cfg, ok := s.cfgs[face]
		if !ok {
			continue
		}
		m := cfg.Metrics
		if line == 0 {
			line = (m.Ascender - m.Descender) * info.Descriptor.Size / m.FontSize
		}
		maxH = max(maxH, m.MaxHeight)
	}
	if line != 0 {
		return line, maxH
	}
	if s.def != nil {
		m := s.def.metrics
		return (m.Ascender - m.Descender) * info.Descriptor.Size / m.FontSize, m.MaxHeight
	}
	return info.Descriptor.Size, info.Descriptor.Size
}

func (s *configSource) measureWidth(info *FontInfo, r rune) float32 {
	g, m, _, ok := s.lookup(info, r)
	if !ok {
		g, m, _, ok = s.lookup(info, PlaceholderChar)
	}
	if !ok && s.def != nil {
		d, _ := s.lookupDefault()
		g, m, ok = d, s.def.metrics, true
	}
	if !ok {
		return info.Descriptor.Size / 2
	}
	return float32(g.Advance) * info.Descriptor.Size / m.FontSize
}

func (s *configSource) lookupDefault() (GlyphInfo, bool) {
	if s.def == nil {
		return GlyphInfo{}, false
	}
	for _, cfg := range s.cfgs {
		if cfg.Name != s.def.face {
			continue
		}
		g, ok := cfg.Glyphs[s.def.char]
		return g, ok
	}
	return GlyphInfo{}, false
}

func (s *configSource) glyphID(font FontID, info *FontInfo, r rune) (GlyphID, error) {
	key := familyChar{info.Family, r}
	if id, ok := s.ids[key]; ok {
		if s.def != nil && id == s.def.id {
			return id, s.revalidate(id, s.def.info)
		}
		return id, s.revalidate(id, info)
	}

	g, _, idx, ok := s.lookup(info, r)
	if !ok {
		return s.fallback(font, info, r)
	}

	id := s.insert(GlyphDesc{
		Font:      font,
		Char:      r,
		FaceIndex: idx,
		Glyph: Glyph{
			OX:      float32(g.OX) / OffsetRange,
			OY:      float32(g.OY) / OffsetRange,
			Width:   float32(g.Width),
			Height:  float32(g.Height),
			Advance: float32(g.Advance),
		},
		allocW: int(g.Width),
		allocH: int(g.Height),
	})
	s.ids[key] = id
	return id, s.place(id, info)
}

// fallback resolves a character no face has: it aliases the placeholder's
// glyph, and the placeholder aliases the default character.
func (s *configSource) fallback(font FontID, info *FontInfo, r rune) (GlyphID, error) {
	key := familyChar{info.Family, r}
	if r != PlaceholderChar {
		id, err := s.glyphID(font, info, PlaceholderChar)
		if id.IsNull() {
			return 0, err
		}
		s.ids[key] = id
		return id, err
	}
	if s.def != nil {
		s.ids[key] = s.def.id
		return s.def.id, s.revalidate(s.def.id, s.def.info)
	}
	return 0, ErrGlyphUnresolvable
}

// setDefault makes char of the face behind info the last-resort glyph.
func (s *configSource) setDefault(font FontID, info *FontInfo, char rune) error {
	face := info.FaceNames[0]
	cfg, ok := s.cfgs[info.Faces[0]]
	if !ok {
		return ErrUnknownFace
	}
	if _, ok := cfg.Glyphs[char]; !ok {
		return ErrGlyphUnresolvable
	}
	id, err := s.glyphID(font, info, char)
	if id.IsNull() {
		return err
	}
	s.def = &cfgDefault{face: face, char: char, metrics: cfg.Metrics, id: id, info: info}
	return err
}

// faceName returns the face a batch draws from; an index past the chain
// selects the default character's face.
func (s *configSource) faceName(b *DrawBlock) string {
	if b.FaceIndex >= 0 && b.FaceIndex < len(b.Families) {
		return b.Families[b.FaceIndex]
	}
	if s.def != nil {
		return s.def.face
	}
	return ""
}

// loadGroup is a run of consecutive batches drawn from the same face.
type loadGroup struct {
	face    string
	batches []drawBatch
	chars   []rune
}

type tileResult struct {
	group int
	tiles [][]byte
	err   error
}

func (s *configSource) groups(batches []drawBatch) []loadGroup {
	var out []loadGroup
	for _, b := range batches {
		name := s.faceName(&b.block)
		if n := len(out); n == 0 || out[n-1].face != name {
			out = append(out, loadGroup{face: name})
		}
		g := &out[len(out)-1]
		g.batches = append(g.batches, b)
		for _, c := range b.block.Chars {
			g.chars = append(g.chars, c.Char)
		}
	}
	return out
}

// draw fetches the tiles of every queued glyph, one loader request per
// face group, and splices them into block images. Glyphs of failed or
// unfinished requests are queued again.
func (s *configSource) draw(ctx context.Context, fonts fontSet, update UpdateFunc) (DrawStats, error) {
	batches := s.drain(fonts)
	if len(batches) == 0 {
		return DrawStats{Pending: pending(fonts)}, nil
	}
	if s.loader == nil {
		s.retry(fonts, batches)
		return DrawStats{Pending: pending(fonts)}, ErrNoLoader
	}

	groups := s.groups(batches)
	gather := parallel.NewGather[tileResult](len(groups))
	for i := range groups {
		go func(i int, g *loadGroup) {
			tiles, err := s.loader.LoadSDF(ctx, g.face, g.chars)
			gather.Done(tileResult{group: i, tiles: tiles, err: err})
		}(i, &groups[i])
	}

	results, _, waitErr := gather.Wait(ctx)
	finished := make([]bool, len(groups))
	stats := DrawStats{Tasks: len(groups)}
	var errs []error

	for _, r := range results {
		g := &groups[r.group]
		finished[r.group] = true
		if r.err == nil && len(r.tiles) < len(g.chars) {
			r.err = errors.New("short tile list")
		}
		if r.err != nil {
			s.retry(fonts, g.batches)
			errs = append(errs, &LoadError{Face: g.face, Chars: len(g.chars), Err: r.err})
			continue
		}
		tiles := r.tiles
		for _, b := range g.batches {
			update(b.block.Block, splice(&b.block, tiles))
			tiles = tiles[len(b.block.Chars):]
			stats.Blocks++
		}
	}
	for i := range groups {
		if !finished[i] {
			s.retry(fonts, groups[i].batches)
		}
	}
	if waitErr != nil {
		errs = append(errs, waitErr)
	}

	stats.Pending = pending(fonts)
	s.log.Debug("config draw",
		slog.Int("groups", len(groups)),
		slog.Int("blocks", stats.Blocks),
		slog.Int("pending", stats.Pending))
	return stats, errors.Join(errs...)
}

func (s *configSource) retry(fonts fontSet, batches []drawBatch) {
	for _, b := range batches {
		s.requeue(fonts.font(b.block.Font), b.ids)
	}
}

// splice copies each glyph tile into a zeroed block image, clipped to the
// block.
func splice(b *DrawBlock, tiles [][]byte) *FontImage {
	ww := int(math.Ceil(float64(b.Block.Width)))
	hh := int(math.Ceil(float64(b.Block.Height)))
	img := NewFontImage(ww, hh, 1)
	for i, c := range b.Chars {
		w, h := int(c.Width), int(c.Height)
		img.Blit(int(c.X), 0, tiles[i], w, min(w, ww), min(h, hh))
	}
	return img
}
