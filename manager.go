package glyphatlas

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gogpu/glyphatlas/internal/arena"
	"github.com/gogpu/glyphatlas/internal/parallel"
	"github.com/gogpu/glyphatlas/sdf"
	"github.com/gogpu/glyphatlas/store"
)

// defaultChar is a registered config-mode default character.
type defaultChar struct {
	face string
	char rune
}

// FontManager is the entry point: it interns fonts, resolves glyph ids in
// the active mode and flushes queued glyphs into atlas blocks.
//
// A FontManager is not safe for concurrent use. Arc computation runs on the
// configured Runtime, but every method, and every update callback, runs on
// the calling goroutine.
type FontManager struct {
	opts Options
	log  *slog.Logger
	mode Mode

	fonts   *arena.Arena[FontInfo]
	fontIDs map[string]FontID

	faceIDs     map[string]FontFaceID
	faceNames   []string
	families    map[string]FontFamilyID
	defaultFace string

	defaults []defaultChar

	table *fontTable
	memo  *store.Memo
	pool  *parallel.WorkerPool

	generation uint64
}

// NewFontManager creates a manager. Without WithRuntime it starts a worker
// pool that Close stops.
func NewFontManager(opts ...Option) (*FontManager, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	log := o.Logger
	if log == nil {
		log = Logger()
	}

	m := &FontManager{
		log:      log,
		mode:     o.Mode,
		fonts:    arena.New[FontInfo](),
		fontIDs:  make(map[string]FontID),
		faceIDs:  make(map[string]FontFaceID),
		families: make(map[string]FontFamilyID),
	}
	if o.Runtime == nil {
		m.pool = parallel.NewWorkerPool(o.Workers)
		o.Runtime = m.pool
	}
	m.opts = o

	m.memo = store.NewMemo(o.Store, o.MemoSize, log)
	m.memo.Start(context.Background())
	m.table = newFontTable(&m.opts, m.memo, log)

	log.Info("font manager created",
		slog.String("mode", o.Mode.String()),
		slog.Int("width", o.AtlasWidth),
		slog.Int("height", o.AtlasHeight))
	return m, nil
}

// Close stops the manager's own worker pool. Tasks already submitted still
// run. The byte store is not closed.
func (m *FontManager) Close() error {
	if m.pool != nil {
		m.pool.Close()
	}
	return nil
}

// Mode returns the active mode.
func (m *FontManager) Mode() Mode { return m.mode }

// SetMode switches the active mode. A change clears the atlas, since every
// mode places glyphs in its own table.
func (m *FontManager) SetMode(mode Mode) error {
	if mode > ModeArcSDF {
		return &ConfigError{Field: "Mode", Reason: "unknown mode " + mode.String()}
	}
	if mode == m.mode {
		return nil
	}
	if mode == ModeBitmap && m.opts.Brush == nil {
		return &ConfigError{Field: "Brush", Reason: "required for bitmap mode"}
	}
	m.log.Info("mode changed", slog.String("from", m.mode.String()), slog.String("to", mode.String()))
	m.mode = mode
	m.Clear()
	return nil
}

// Size returns the atlas size.
func (m *FontManager) Size() Size {
	return Size{Width: m.opts.AtlasWidth, Height: m.opts.AtlasHeight}
}

// TextureDescriptor describes the atlas texture of the active mode.
func (m *FontManager) TextureDescriptor() TextureDescriptor {
	return atlasTexture(m.mode, m.opts.AtlasWidth, m.opts.AtlasHeight)
}

// Generation returns the number of clears so far. Glyph rectangles read
// before the current generation are stale.
func (m *FontManager) Generation() uint64 { return m.generation }

// MemoStats reports arc memo activity.
func (m *FontManager) MemoStats() store.MemoStats { return m.memo.Stats() }

// each implements fontSet.
func (m *FontManager) each(fn func(FontID, *FontInfo)) {
	m.fonts.Range(func(k arena.Key, v *FontInfo) bool {
		fn(FontID(k), v)
		return true
	})
}

// font implements fontSet.
func (m *FontManager) font(id FontID) *FontInfo {
	return m.fonts.Get(arena.Key(id))
}

// faceID interns a face name. The first face ever interned is the default
// face, which "" resolves to.
func (m *FontManager) faceID(name string) FontFaceID {
	if name == "" {
		name = m.defaultFace
		if name == "" {
			return 0
		}
	}
	if m.defaultFace == "" {
		m.defaultFace = name
	}
	if id, ok := m.faceIDs[name]; ok {
		return id
	}
	m.faceNames = append(m.faceNames, name)
	id := FontFaceID(len(m.faceNames))
	m.faceIDs[name] = id
	return id
}

func (m *FontManager) familyID(chain []string) FontFamilyID {
	key := strings.Join(chain, "\x00")
	if id, ok := m.families[key]; ok {
		return id
	}
	id := FontFamilyID(len(m.families) + 1)
	m.families[key] = id
	return id
}

// FontID interns d in the active mode. The default face is appended to
// every fallback chain that lacks it.
func (m *FontManager) FontID(d FontDescriptor) FontID {
	return m.fontID(d, m.mode)
}

func (m *FontManager) fontID(d FontDescriptor, mode Mode) FontID {
	d.Mode = mode
	names := make([]string, 0, len(d.Families)+1)
	for _, f := range d.Families {
		f = strings.TrimSpace(f)
		if f == "" {
			f = m.defaultFace
		}
		if f != "" && !slices.Contains(names, f) {
			names = append(names, f)
		}
	}
	d.Families = names

	key := d.Key()
	if id, ok := m.fontIDs[key]; ok {
		return id
	}

	faces := make([]FontFaceID, 0, len(names)+1)
	for _, name := range names {
		faces = append(faces, m.faceID(name))
	}
	chain := slices.Clone(names)
	if m.defaultFace != "" && !slices.Contains(chain, m.defaultFace) {
		chain = append(chain, m.defaultFace)
		faces = append(faces, m.faceID(m.defaultFace))
	}

	id := FontID(m.fonts.Insert(FontInfo{
		Descriptor: d,
		Family:     m.familyID(chain),
		Faces:      faces,
		FaceNames:  chain,
	}))
	info := m.font(id)
	info.LineHeight, info.MaxHeight = m.table.height(mode, info)
	m.fontIDs[key] = id
	return id
}

// FontInfo returns the resolved state of font, or nil if it is unknown.
// The result must not be modified.
func (m *FontManager) FontInfo(font FontID) *FontInfo {
	info, ok := m.fonts.Lookup(arena.Key(font))
	if !ok {
		return nil
	}
	return info
}

// FontHeight returns the line height of font at size. Heights below 2 are
// em-relative and are scaled by size.
func (m *FontManager) FontHeight(font FontID, size float32) float32 {
	info := m.FontInfo(font)
	if info == nil {
		return size
	}
	if info.LineHeight < 2 {
		return info.LineHeight * size
	}
	return info.LineHeight
}

// GlyphID returns the glyph id of r in font, creating and queueing the glyph
// on first use. ok is false when the glyph could not be placed; the id is
// still returned if a record exists, so it can be drawn after a Clear.
func (m *FontManager) GlyphID(font FontID, r rune) (GlyphID, bool) {
	id, err := m.LookupGlyph(font, r)
	return id, err == nil
}

// LookupGlyph is GlyphID with the reason for a failure: ErrAtlasExhausted or
// ErrGlyphUnresolvable.
func (m *FontManager) LookupGlyph(font FontID, r rune) (GlyphID, error) {
	info := m.FontInfo(font)
	if info == nil {
		return 0, fmt.Errorf("glyphatlas: unknown font %d", font)
	}
	return m.table.glyphID(m.mode, font, info, r)
}

// MeasureWidth returns the advance of r in font, in pixels.
func (m *FontManager) MeasureWidth(font FontID, r rune) float32 {
	info := m.FontInfo(font)
	if info == nil {
		return 0
	}
	return m.table.measureWidth(m.mode, info, r)
}

// Glyph returns the placement of id. It panics if id is unknown.
func (m *FontManager) Glyph(id GlyphID) Glyph {
	return m.table.glyph(m.mode, id).Glyph
}

// Metrics returns the face metrics behind a glyph.
func (m *FontManager) Metrics(id GlyphID) (MetricsInfo, bool) {
	d := m.table.glyph(m.mode, id)
	info := m.FontInfo(d.Font)
	if info == nil {
		return MetricsInfo{}, false
	}
	return m.table.metrics(m.mode, info, d.FaceIndex)
}

// FontMetrics returns the metrics of font's first face.
func (m *FontManager) FontMetrics(font FontID) (MetricsInfo, bool) {
	info := m.FontInfo(font)
	if info == nil || len(info.Faces) == 0 {
		return MetricsInfo{}, false
	}
	return m.table.metrics(m.mode, info, 0)
}

// Draw flushes every queued glyph of the active mode into update.
func (m *FontManager) Draw(ctx context.Context, update UpdateFunc) error {
	_, err := m.DrawAwait(ctx, update)
	return err
}

// DrawAwait flushes like Draw and reports what was done. In arc mode it
// waits for every distance-field task; ctx bounds the wait, not the tasks.
func (m *FontManager) DrawAwait(ctx context.Context, update UpdateFunc) (DrawStats, error) {
	return m.table.draw(ctx, m.mode, m, update)
}

// Clear empties every await queue and resets the packers. Ids stay valid;
// glyphs are placed again when next requested. Config default characters
// are placed again immediately.
func (m *FontManager) Clear() {
	m.each(func(_ FontID, info *FontInfo) {
		info.resetQueue()
	})
	m.table.clear()
	m.generation++
	m.log.Debug("atlas cleared", slog.Uint64("generation", m.generation))

	for _, d := range m.defaults {
		if err := m.applyDefault(d); err != nil {
			m.log.Warn("default char not restored",
				slog.String("face", d.face),
				slog.String("char", string(d.char)),
				slog.Any("err", err))
		}
	}
}

// refreshHeights recomputes the heights of fonts in mode whose chain
// includes face.
func (m *FontManager) refreshHeights(mode Mode, face FontFaceID) {
	m.each(func(_ FontID, info *FontInfo) {
		if info.Descriptor.Mode == mode && slices.Contains(info.Faces, face) {
			info.LineHeight, info.MaxHeight = m.table.height(mode, info)
		}
	})
}

// AddSDFConfig registers the pre-baked table of a config-mode face.
func (m *FontManager) AddSDFConfig(cfg *FontCfg) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	id := m.faceID(cfg.Name)
	m.table.cfg.addConfig(id, cfg)
	m.refreshHeights(ModeConfigSDF, id)
	return nil
}

// AddSDFDefaultChar makes char of face the config-mode glyph of last
// resort. The face's config must already be registered.
func (m *FontManager) AddSDFDefaultChar(face string, char rune) error {
	d := defaultChar{face: face, char: char}
	if err := m.applyDefault(d); err != nil {
		return err
	}
	if !slices.Contains(m.defaults, d) {
		m.defaults = append(m.defaults, d)
	}
	return nil
}

func (m *FontManager) applyDefault(d defaultChar) error {
	fid, ok := m.faceIDs[d.face]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFace, d.face)
	}
	cfg, ok := m.table.cfg.cfgs[fid]
	if !ok {
		return fmt.Errorf("%w: no config for %q", ErrUnknownFace, d.face)
	}
	font := m.fontID(FontDescriptor{
		Families: []string{d.face},
		Size:     cfg.Metrics.FontSize,
		Weight:   400,
	}, ModeConfigSDF)
	return m.table.cfg.setDefault(font, m.font(font), d.char)
}

// AddFont registers an outline font for arc mode. An empty name uses the
// font's family name.
func (m *FontManager) AddFont(name string, ttf []byte) error {
	face, err := sdf.ParseFace(name, ttf)
	if err != nil {
		return err
	}
	id := m.faceID(face.Name())
	m.table.arc.addFace(id, face)
	m.refreshHeights(ModeArcSDF, id)
	return nil
}

// AddFontShadow reserves a blurred shadow tile for the arc glyph id, which
// must have been requested through font. The tile is rendered by the next
// arc flush.
func (m *FontManager) AddFontShadow(id GlyphID, font FontID, radius, weight float32) error {
	if m.FontInfo(font) == nil {
		return fmt.Errorf("glyphatlas: unknown font %d", font)
	}
	return m.table.arc.glyphVariant(glyphVariantKey{kind: variantShadow, glyph: id, radius: radius, weight: weight})
}

// AddFontOuterGlow reserves an outer glow tile of the given radius for the
// arc glyph id.
func (m *FontManager) AddFontOuterGlow(id GlyphID, font FontID, radius float32) error {
	if m.FontInfo(font) == nil {
		return fmt.Errorf("glyphatlas: unknown font %d", font)
	}
	return m.table.arc.glyphVariant(glyphVariantKey{kind: variantGlow, glyph: id, radius: radius})
}

// ShadowGlyph returns the shadow tile added by AddFontShadow.
func (m *FontManager) ShadowGlyph(id GlyphID, radius, weight float32) (Glyph, bool) {
	t, ok := m.table.arc.variants[glyphVariantKey{kind: variantShadow, glyph: id, radius: radius, weight: weight}]
	return tileGlyph(t, ok)
}

// GlowGlyph returns the glow tile added by AddFontOuterGlow.
func (m *FontManager) GlowGlyph(id GlyphID, radius float32) (Glyph, bool) {
	t, ok := m.table.arc.variants[glyphVariantKey{kind: variantGlow, glyph: id, radius: radius}]
	return tileGlyph(t, ok)
}

// AddShape reserves a texSize square distance-field tile for a vector
// shape identified by the caller's content hash.
func (m *FontManager) AddShape(hash uint64, shape *sdf.Outline, texSize int, pxRange, cutoff float32) error {
	return m.table.arc.addShape(hash, shape, texSize, pxRange, cutoff)
}

// Shape returns the tile added by AddShape.
func (m *FontManager) Shape(hash uint64) (Glyph, bool) {
	sh, ok := m.table.arc.shapes[hash]
	if !ok {
		return Glyph{}, false
	}
	return sh.glyph, true
}

// AddShapeShadow reserves a blurred shadow tile for a shape.
func (m *FontManager) AddShapeShadow(hash uint64, radius float32) error {
	return m.table.arc.shapeVariant(shapeVariantKey{kind: variantShadow, hash: hash, radius: radius})
}

// AddShapeOuterGlow reserves an outer glow tile for a shape.
func (m *FontManager) AddShapeOuterGlow(hash uint64, radius float32) error {
	return m.table.arc.shapeVariant(shapeVariantKey{kind: variantGlow, hash: hash, radius: radius})
}

// ShapeShadow returns the tile added by AddShapeShadow.
func (m *FontManager) ShapeShadow(hash uint64, radius float32) (Glyph, bool) {
	t, ok := m.table.arc.shapeVariants[shapeVariantKey{kind: variantShadow, hash: hash, radius: radius}]
	return tileGlyph(t, ok)
}

// ShapeGlow returns the tile added by AddShapeOuterGlow.
func (m *FontManager) ShapeGlow(hash uint64, radius float32) (Glyph, bool) {
	t, ok := m.table.arc.shapeVariants[shapeVariantKey{kind: variantGlow, hash: hash, radius: radius}]
	return tileGlyph(t, ok)
}

// AddBoxShadow reserves an analytic blurred-rectangle tile for bbox.
func (m *FontManager) AddBoxShadow(hash uint64, bbox sdf.Rect, texSize, radius int) error {
	return m.table.arc.addBoxShadow(hash, bbox, texSize, radius)
}

// BoxShadow returns the tile added by AddBoxShadow. Plane holds the inset
// box inside the tile, in pixels.
func (m *FontManager) BoxShadow(hash uint64, radius int) (Glyph, bool) {
	t, ok := m.table.arc.boxes[boxKey{hash: hash, radius: radius}]
	return tileGlyph(t, ok)
}
