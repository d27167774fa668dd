package glyphatlas

import (
	"errors"
	"log/slog"
	"math"

	"github.com/gogpu/glyphatlas/internal/filter"
	"github.com/gogpu/glyphatlas/sdf"
	"github.com/gogpu/glyphatlas/store"
)

// arcKey identifies an arc glyph independently of the font size: tiles
// are generated at sdf.FontSize and only the distance range varies.
type arcKey struct {
	face    FontFaceID
	glyph   uint16
	pxRange int
}

// arcEntry is what a glyph task needs. It is immutable once created.
type arcEntry struct {
	face *sdf.Face

	// outline is nil when the face has no vector outline for the glyph.
	outline *sdf.Outline
	layout  sdf.Layout
	key     string
}

type variantKind uint8

const (
	variantShadow variantKind = iota
	variantGlow
)

type glyphVariantKey struct {
	kind   variantKind
	glyph  GlyphID
	radius float32
	weight float32
}

type shapeVariantKey struct {
	kind   variantKind
	hash   uint64
	radius float32
}

type boxKey struct {
	hash   uint64
	radius int
}

// arcTile is an atlas rectangle of a shape, a variant or a box shadow,
// filled by one task.
type arcTile struct {
	glyph   Glyph
	x, y    int
	w, h    int
	pending bool
	render  renderFunc
}

type arcShape struct {
	arcTile
	outline *sdf.Outline
	layout  sdf.Layout
	key     string
}

// arcSource computes distance fields from font outlines and vector shapes.
type arcSource struct {
	slots
	pipe *arcPipeline

	faces   map[FontFaceID]*sdf.Face
	ids     map[arcKey]GlyphID
	entries map[GlyphID]*arcEntry

	// Tiles below are dropped by clear.
	variants      map[glyphVariantKey]*arcTile
	shapes        map[uint64]*arcShape
	shapeVariants map[shapeVariantKey]*arcTile
	boxes         map[boxKey]*arcTile
}

func newArcSource(memo *store.Memo, rt Runtime, width, height int, log *slog.Logger) *arcSource {
	s := &arcSource{
		slots:   newSlots("arc", width, height, log),
		pipe:    &arcPipeline{memo: memo, runtime: rt, log: log},
		faces:   make(map[FontFaceID]*sdf.Face),
		ids:     make(map[arcKey]GlyphID),
		entries: make(map[GlyphID]*arcEntry),
	}
	s.resetTiles()
	return s
}

func (s *arcSource) resetTiles() {
	s.variants = make(map[glyphVariantKey]*arcTile)
	s.shapes = make(map[uint64]*arcShape)
	s.shapeVariants = make(map[shapeVariantKey]*arcTile)
	s.boxes = make(map[boxKey]*arcTile)
}

func (s *arcSource) addFace(id FontFaceID, face *sdf.Face) {
	s.faces[id] = face
	s.log.Info("font face added", slog.String("face", face.Name()))
}

// resolve finds r in the chain, then the placeholder, then a space. Each
// candidate is tried against every face before moving to the next.
func (s *arcSource) resolve(info *FontInfo, r rune) (face *sdf.Face, id FontFaceID, index int, char rune, gi uint16, ok bool) {
	for _, c := range [...]rune{r, PlaceholderChar, SpaceChar} {
		for i, fid := range info.Faces {
			f, ok := s.faces[fid]
			if !ok {
				continue
			}
			if g := f.GlyphIndex(c); g != 0 {
				return f, fid, i, c, g, true
			}
		}
	}
	return nil, 0, -1, 0, 0, false
}

// height returns the tallest em box of the chain, in em units.
func (s *arcSource) height(info *FontInfo) (float32, float32) {
	var h float64
	for _, fid := range info.Faces {
		if f, ok := s.faces[fid]; ok {
			h = math.Max(h, f.Ascender()-f.Descender())
		}
	}
	if h == 0 {
		h = 1
	}
	return float32(h), float32(h)
}

func (s *arcSource) measureWidth(info *FontInfo, r rune) float32 {
	face, _, _, _, gi, ok := s.resolve(info, r)
	if !ok {
		return info.Descriptor.Size / 2
	}
	return float32(face.Advance(gi)) * info.Descriptor.Size
}

func (s *arcSource) glyphID(font FontID, info *FontInfo, r rune) (GlyphID, error) {
	face, fid, idx, char, gi, ok := s.resolve(info, r)
	if !ok {
		return 0, ErrGlyphUnresolvable
	}
	pr := sdf.PxRangeFor(float64(info.Descriptor.Stroke), float64(info.Descriptor.Size))
	key := arcKey{face: fid, glyph: gi, pxRange: pr}

	if id, ok := s.ids[key]; ok {
		d := s.desc(id)
		if d.generation == s.generation && !d.Glyph.Placed && s.entries[id].outline == nil {
			return id, ErrGlyphUnresolvable
		}
		return id, s.revalidate(id, info)
	}

	hash := GlyphHash(char, face.Name())
	outline, err := face.Outline(gi)
	if err != nil {
		s.log.Warn("glyph outline unavailable",
			slog.String("face", face.Name()),
			slog.String("char", string(char)),
			slog.Any("err", err))
		outline = nil
	}

	var bounds sdf.Rect
	if outline != nil && !outline.IsEmpty() {
		bounds = outline.Bounds
	}
	l := sdf.GlyphLayout(bounds, face.UnitsPerEm(), sdf.FontSize, float64(pr), float64(pr))

	d := GlyphDesc{
		Font:       font,
		Char:       char,
		Hash:       hash,
		FaceIndex:  idx,
		GlyphIndex: gi,
		Glyph: Glyph{
			Advance: float32(face.Advance(gi)),
		},
	}
	if outline == nil || !outline.IsEmpty() {
		d.Glyph.Width = float32(l.AtlasBounds.Width())
		d.Glyph.Height = float32(l.AtlasBounds.Height())
		d.Glyph.Plane = toRect(l.PlaneBounds)
		d.allocW, d.allocH = l.TexSize, l.TexSize
		d.insetX, d.insetY = float32(l.AtlasBounds.MinX), float32(l.AtlasBounds.MinY)
	}

	id := s.insert(d)
	s.ids[key] = id
	s.entries[id] = &arcEntry{
		face:    face,
		outline: outline,
		layout:  l,
		key:     memoKey(glyphKeyPrefix, hash),
	}
	return id, s.place(id, info)
}

// origin returns the allocated rectangle of a placed glyph.
func (s *arcSource) origin(d *GlyphDesc) (int, int) {
	return int(d.Glyph.X - d.insetX), int(d.Glyph.Y - d.insetY)
}

// allocTile reserves a w x h rectangle. Zero-sized tiles need no space and
// are never rendered.
func (s *arcSource) allocTile(w, h int, render renderFunc) (*arcTile, error) {
	t := &arcTile{w: w, h: h, render: render}
	if w == 0 || h == 0 {
		t.glyph.Placed = true
		return t, nil
	}
	pos, ok := s.packer.Alloc(w, h)
	if !ok {
		s.log.Warn("atlas exhausted",
			slog.String("source", s.kind),
			slog.Int("width", w),
			slog.Int("height", h))
		return nil, ErrAtlasExhausted
	}
	t.x, t.y = pos.X, pos.Y
	t.glyph.X, t.glyph.Y = float32(pos.X), float32(pos.Y)
	t.glyph.Width, t.glyph.Height = float32(w), float32(h)
	t.glyph.Placed = true
	t.pending = true
	return t, nil
}

// layoutTile reserves a square tile for l and sets the glyph to the
// outline's position inside it.
func (s *arcSource) layoutTile(l sdf.Layout, empty bool, render renderFunc) (*arcTile, error) {
	size := l.TexSize
	if empty {
		size = 0
	}
	t, err := s.allocTile(size, size, render)
	if err != nil || empty {
		return t, err
	}
	t.glyph.X = float32(t.x) + float32(l.AtlasBounds.MinX)
	t.glyph.Y = float32(t.y) + float32(l.AtlasBounds.MinY)
	t.glyph.Width = float32(l.AtlasBounds.Width())
	t.glyph.Height = float32(l.AtlasBounds.Height())
	t.glyph.Plane = toRect(l.PlaneBounds)
	return t, nil
}

// glyphVariant adds a shadow or glow tile for the arc glyph id.
func (s *arcSource) glyphVariant(key glyphVariantKey) error {
	if _, ok := s.variants[key]; ok {
		return nil
	}
	e, ok := s.entries[key.glyph]
	if !ok {
		return ErrGlyphUnresolvable
	}
	if e.outline == nil {
		return ErrGlyphUnresolvable
	}
	d := s.desc(key.glyph)
	radius, weight := float64(key.radius), float64(key.weight)
	bounds := e.layout.Bounds
	upem := e.face.UnitsPerEm()

	var (
		l      sdf.Layout
		render renderFunc
	)
	switch key.kind {
	case variantShadow:
		l = sdf.GlyphLayout(bounds, upem, sdf.FontSize, e.layout.PxRange, sdf.ShadowCutoff(radius, weight))
		render = s.pipe.shadowTile(e.key, e.outline, l, int(math.Round(radius)), weight)
	default:
		l = sdf.GlyphLayout(bounds, upem, sdf.FontSize, radius, radius)
		render = s.pipe.sdfTile(e.key, e.outline, l)
	}

	t, err := s.layoutTile(l, e.outline.IsEmpty(), render)
	if err != nil {
		return err
	}
	t.glyph.Advance = d.Glyph.Advance
	s.variants[key] = t
	return nil
}

func (s *arcSource) addShape(hash uint64, o *sdf.Outline, texSize int, pxRange, cutoff float32) error {
	if _, ok := s.shapes[hash]; ok {
		return nil
	}
	if o == nil {
		return errors.New("glyphatlas: nil shape outline")
	}
	if texSize <= 0 {
		return &ConfigError{Field: "Shape.TexSize", Reason: "must be positive"}
	}
	key := memoKey(shapeKeyPrefix, hash)
	l := sdf.ShapeLayout(o.Bounds, texSize, float64(pxRange), float64(cutoff))
	t, err := s.layoutTile(l, o.IsEmpty(), s.pipe.sdfTile(key, o, l))
	if err != nil {
		return err
	}
	s.shapes[hash] = &arcShape{arcTile: *t, outline: o, layout: l, key: key}
	return nil
}

// shapeVariant adds a shadow or glow tile for a shape. A radius within the
// shape's cutoff fits the shape's own layout.
func (s *arcSource) shapeVariant(key shapeVariantKey) error {
	if _, ok := s.shapeVariants[key]; ok {
		return nil
	}
	sh, ok := s.shapes[key.hash]
	if !ok {
		return ErrGlyphUnresolvable
	}
	radius := float64(key.radius)
	l := sh.layout
	if radius > l.Cutoff {
		l = sdf.ShapeLayout(sh.outline.Bounds, l.TexSize, radius, radius)
	}

	var render renderFunc
	switch key.kind {
	case variantShadow:
		render = s.pipe.shadowTile(sh.key, sh.outline, l, int(math.Round(radius)), 0)
	default:
		glow := l
		glow.PxRange = radius
		glow.Cutoff = radius / 2
		render = s.pipe.glowTile(sh.key, sh.outline, glow)
	}

	t, err := s.layoutTile(l, sh.outline.IsEmpty(), render)
	if err != nil {
		return err
	}
	s.shapeVariants[key] = t
	return nil
}

func (s *arcSource) addBoxShadow(hash uint64, bbox sdf.Rect, texSize, radius int) error {
	key := boxKey{hash: hash, radius: radius}
	if _, ok := s.boxes[key]; ok {
		return nil
	}
	if texSize <= 0 || radius < 0 {
		return &ConfigError{Field: "BoxShadow", Reason: "texture size must be positive and radius non-negative"}
	}
	l := filter.ComputeBoxLayout(filter.Rect{
		MinX: bbox.MinX, MinY: bbox.MinY, MaxX: bbox.MaxX, MaxY: bbox.MaxY,
	}, texSize, radius)
	t, err := s.allocTile(l.Width, l.Height, boxTile(l))
	if err != nil {
		return err
	}
	t.glyph.Plane = Rect{
		MinX: float32(l.AtlasBounds.MinX), MinY: float32(l.AtlasBounds.MinY),
		MaxX: float32(l.AtlasBounds.MaxX), MaxY: float32(l.AtlasBounds.MaxY),
	}
	s.boxes[key] = t
	return nil
}

func tileGlyph(t *arcTile, ok bool) (Glyph, bool) {
	if !ok {
		return Glyph{}, false
	}
	return t.glyph, true
}

func (s *arcSource) clear() {
	s.slots.clear()
	s.resetTiles()
}

func toRect(r sdf.Rect) Rect {
	return Rect{
		MinX: float32(r.MinX),
		MinY: float32(r.MinY),
		MaxX: float32(r.MaxX),
		MaxY: float32(r.MaxY),
	}
}
