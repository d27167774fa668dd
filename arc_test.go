package glyphatlas

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/glyphatlas/sdf"
	"github.com/gogpu/glyphatlas/store"
)

func newArcManager(t *testing.T, opts ...Option) (*FontManager, FontID) {
	t.Helper()
	opts = append([]Option{WithMode(ModeArcSDF)}, opts...)
	m, err := NewFontManager(opts...)
	if err != nil {
		t.Fatalf("NewFontManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	if err := m.AddFont("go", goregular.TTF); err != nil {
		t.Fatalf("AddFont: %v", err)
	}
	return m, m.FontID(FontDescriptor{Families: []string{"go"}, Size: 32})
}

func lookupAll(t *testing.T, m *FontManager, font FontID, s string) []GlyphID {
	t.Helper()
	var ids []GlyphID
	for _, r := range s {
		id, err := m.LookupGlyph(font, r)
		if err != nil {
			t.Fatalf("LookupGlyph(%q): %v", r, err)
		}
		ids = append(ids, id)
	}
	return ids
}

// heldRuntime runs tasks inline unless hold is set, in which case they
// wait in fns.
type heldRuntime struct {
	hold bool
	fns  []func()
}

func (r *heldRuntime) Submit(fn func()) {
	if r.hold {
		r.fns = append(r.fns, fn)
		return
	}
	fn()
}

func TestArcGlyph(t *testing.T) {
	m, font := newArcManager(t, WithRuntime(InlineRuntime))

	id := lookupAll(t, m, font, "A")[0]
	g := m.Glyph(id)
	if !g.Placed || g.Width <= 0 || g.Height <= 0 {
		t.Errorf("Glyph = %+v, want a placed tile", g)
	}
	if g.Advance <= 0 || g.Advance >= 1 {
		t.Errorf("Advance = %v, want an em fraction", g.Advance)
	}
	if g.Plane.MaxX <= g.Plane.MinX || g.Plane.MaxY <= g.Plane.MinY {
		t.Errorf("Plane = %+v, want a non-empty em box", g.Plane)
	}
	if got, want := m.table.arc.desc(id).Hash, GlyphHash('A', "go"); got != want {
		t.Errorf("Hash = %x, want %x", got, want)
	}
	if got := m.MeasureWidth(font, 'A'); got != g.Advance*32 {
		t.Errorf("MeasureWidth = %v, want %v", got, g.Advance*32)
	}

	// Arc tiles do not depend on the font size.
	big := m.FontID(FontDescriptor{Families: []string{"go"}, Size: 48})
	if again := lookupAll(t, m, big, "A")[0]; again != id {
		t.Errorf("id at size 48 = %d, want %d", again, id)
	}

	sp := lookupAll(t, m, font, " ")[0]
	if g := m.Glyph(sp); !g.Placed || g.Width != 0 {
		t.Errorf("space = %+v, want placed without a tile", g)
	}
	if n := m.FontInfo(font).Pending(); n != 1 {
		t.Errorf("Pending = %d, want 1", n)
	}

	info := m.FontInfo(font)
	if info.LineHeight <= 0.5 || info.LineHeight >= 2 {
		t.Errorf("LineHeight = %v, want an em-relative height", info.LineHeight)
	}
	if h := m.FontHeight(font, 10); h != info.LineHeight*10 {
		t.Errorf("FontHeight = %v, want %v", h, info.LineHeight*10)
	}
	metrics, ok := m.Metrics(id)
	if !ok || metrics.FontSize != sdf.FontSize || metrics.DistanceRange != 5 {
		t.Errorf("Metrics = (%+v, %v)", metrics, ok)
	}
}

func TestArcFallback(t *testing.T) {
	m, font := newArcManager(t, WithRuntime(InlineRuntime))
	id, err := m.LookupGlyph(font, '中')
	if err != nil {
		t.Fatalf("LookupGlyph: %v", err)
	}
	if c := m.table.arc.desc(id).Char; c == '中' {
		t.Errorf("Char = %q, want a substitute", c)
	}

	empty, err := NewFontManager(WithMode(ModeArcSDF), WithRuntime(InlineRuntime))
	if err != nil {
		t.Fatalf("NewFontManager: %v", err)
	}
	defer empty.Close()
	f := empty.FontID(FontDescriptor{Families: []string{"go"}, Size: 32})
	if _, err := empty.LookupGlyph(f, 'A'); !errors.Is(err, ErrGlyphUnresolvable) {
		t.Errorf("LookupGlyph without faces err = %v, want ErrGlyphUnresolvable", err)
	}
	if w := empty.MeasureWidth(f, 'A'); w != 16 {
		t.Errorf("MeasureWidth without faces = %v, want 16", w)
	}
}

func TestArcDrawAwaitMemo(t *testing.T) {
	mem := store.NewMemory()
	m, font := newArcManager(t, WithStore(mem), WithWorkers(2))
	ids := lookupAll(t, m, font, "AB")

	var (
		blocks []Block
		inked  int
	)
	stats, err := m.DrawAwait(context.Background(), func(b Block, img *FontImage) {
		if img.Channels != 1 || img.Width != int(b.Width) || img.Height != int(b.Height) {
			t.Errorf("image %dx%dx%d for block %+v", img.Width, img.Height, img.Channels, b)
		}
		if len(img.Buffer) == 0 {
			t.Errorf("empty image for block %+v", b)
		}
		for _, v := range img.Buffer {
			if v >= 128 {
				inked++
			}
		}
		blocks = append(blocks, b)
	})
	if err != nil {
		t.Fatalf("DrawAwait: %v", err)
	}
	if inked == 0 {
		t.Error("no delivered pixel lies inside a glyph")
	}
	if stats != (DrawStats{Blocks: 2, Tasks: 2}) {
		t.Errorf("stats = %+v, want 2 blocks of 2 tasks", stats)
	}

	// Every glyph rectangle lies inside a delivered block.
	for _, id := range ids {
		g := m.Glyph(id)
		inside := false
		for _, b := range blocks {
			if g.X >= b.X && g.Y >= b.Y && g.X+g.Width <= b.X+b.Width && g.Y+g.Height <= b.Y+b.Height {
				inside = true
			}
		}
		if !inside {
			t.Errorf("glyph %+v not inside any block %+v", g, blocks)
		}
	}

	if s := m.MemoStats(); s.Misses != 2 || s.Hits != 0 {
		t.Errorf("MemoStats = %+v, want 2 misses", s)
	}
	if mem.Len() != 2 {
		t.Errorf("store holds %d entries, want 2", mem.Len())
	}

	stats, err = m.DrawAwait(context.Background(), func(Block, *FontImage) {
		t.Error("update after everything was drawn")
	})
	if err != nil || stats.Tasks != 0 {
		t.Errorf("second DrawAwait = (%+v, %v), want no tasks", stats, err)
	}

	// A second manager over the same store reuses the arcs.
	m2, font2 := newArcManager(t, WithStore(mem), WithRuntime(InlineRuntime))
	lookupAll(t, m2, font2, "A")
	if err := m2.Draw(context.Background(), func(Block, *FontImage) {}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if s := m2.MemoStats(); s.Hits != 1 || s.Misses != 0 {
		t.Errorf("second MemoStats = %+v, want 1 hit", s)
	}
}

func TestArcMissedGlyph(t *testing.T) {
	m, font := newArcManager(t, WithRuntime(InlineRuntime))
	ids := lookupAll(t, m, font, "AB")

	// B behaves like a glyph without a vector outline.
	m.table.arc.entries[ids[1]].outline = nil

	updates := 0
	stats, err := m.DrawAwait(context.Background(), func(Block, *FontImage) { updates++ })
	if err != nil {
		t.Fatalf("DrawAwait: %v", err)
	}
	if stats != (DrawStats{Blocks: 1, Tasks: 2, Misses: 1}) {
		t.Errorf("stats = %+v, want 1 block, 2 tasks, 1 miss", stats)
	}
	if updates != 1 {
		t.Errorf("updates = %d, want 1", updates)
	}
	if m.Glyph(ids[1]).Placed {
		t.Error("missed glyph still placed")
	}
	if _, err := m.LookupGlyph(font, 'B'); !errors.Is(err, ErrGlyphUnresolvable) {
		t.Errorf("LookupGlyph(B) err = %v, want ErrGlyphUnresolvable", err)
	}
	if n := m.FontInfo(font).Pending(); n != 0 {
		t.Errorf("Pending = %d, want 0", n)
	}
}

func TestArcDrawCancelled(t *testing.T) {
	rt := &heldRuntime{hold: true}
	m, font := newArcManager(t, WithRuntime(rt))
	lookupAll(t, m, font, "AB")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := m.DrawAwait(ctx, func(Block, *FontImage) {
		t.Error("update from a cancelled flush")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if stats.Blocks != 0 || stats.Pending != 2 {
		t.Errorf("stats = %+v, want nothing drawn and 2 pending", stats)
	}

	// Abandoned tasks still run; their results are discarded.
	for _, fn := range rt.fns {
		fn()
	}
	rt.hold = false

	stats, err = m.DrawAwait(context.Background(), func(Block, *FontImage) {})
	if err != nil {
		t.Fatalf("DrawAwait: %v", err)
	}
	if stats.Blocks != 2 || stats.Pending != 0 {
		t.Errorf("retry stats = %+v, want 2 blocks and nothing pending", stats)
	}
}

func square(size float64) *sdf.Outline {
	return sdf.NewPathBuilder().
		MoveTo(0, 0).
		LineTo(size, 0).
		LineTo(size, size).
		LineTo(0, size).
		Close().
		Outline()
}

func TestArcVariantsShapesBoxes(t *testing.T) {
	m, font := newArcManager(t, WithRuntime(InlineRuntime))
	id := lookupAll(t, m, font, "A")[0]

	if err := m.AddFontShadow(id, font, 2, 1); err != nil {
		t.Fatalf("AddFontShadow: %v", err)
	}
	if err := m.AddFontOuterGlow(id, font, 4); err != nil {
		t.Fatalf("AddFontOuterGlow: %v", err)
	}
	if err := m.AddFontShadow(id, 9999, 2, 1); err == nil {
		t.Error("AddFontShadow(unknown font) succeeded")
	}
	if err := m.AddFontShadow(777, font, 2, 1); !errors.Is(err, ErrGlyphUnresolvable) {
		t.Errorf("AddFontShadow(unknown glyph) err = %v, want ErrGlyphUnresolvable", err)
	}
	shadow, ok := m.ShadowGlyph(id, 2, 1)
	if !ok || !shadow.Placed || shadow.Advance != m.Glyph(id).Advance {
		t.Errorf("ShadowGlyph = (%+v, %v)", shadow, ok)
	}
	if _, ok := m.GlowGlyph(id, 4); !ok {
		t.Error("GlowGlyph not found")
	}
	if _, ok := m.GlowGlyph(id, 5); ok {
		t.Error("GlowGlyph found for a radius never added")
	}

	if err := m.AddShape(1, square(10), 32, 4, 4); err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	if err := m.AddShape(1, square(10), 32, 4, 4); err != nil {
		t.Fatalf("AddShape(again): %v", err)
	}
	shape, ok := m.Shape(1)
	if !ok || !shape.Placed || shape.Width < 23.9 || shape.Width > 24.1 {
		t.Errorf("Shape = (%+v, %v), want a 24px square", shape, ok)
	}
	if err := m.AddShape(2, nil, 32, 4, 4); err == nil {
		t.Error("AddShape(nil) succeeded")
	}
	var ce *ConfigError
	if err := m.AddShape(3, square(10), 0, 4, 4); !errors.As(err, &ce) {
		t.Errorf("AddShape(size 0) err = %v, want ConfigError", err)
	}

	if err := m.AddShapeShadow(1, 2); err != nil {
		t.Fatalf("AddShapeShadow: %v", err)
	}
	if err := m.AddShapeOuterGlow(1, 6); err != nil {
		t.Fatalf("AddShapeOuterGlow: %v", err)
	}
	if err := m.AddShapeShadow(99, 2); !errors.Is(err, ErrGlyphUnresolvable) {
		t.Errorf("AddShapeShadow(unknown) err = %v, want ErrGlyphUnresolvable", err)
	}
	if _, ok := m.ShapeShadow(1, 2); !ok {
		t.Error("ShapeShadow not found")
	}
	if _, ok := m.ShapeGlow(1, 6); !ok {
		t.Error("ShapeGlow not found")
	}

	if err := m.AddBoxShadow(7, sdf.Rect{MaxX: 20, MaxY: 10}, 32, 3); err != nil {
		t.Fatalf("AddBoxShadow: %v", err)
	}
	box, ok := m.BoxShadow(7, 3)
	if !ok || !box.Placed || box.Plane.MaxX <= box.Plane.MinX {
		t.Errorf("BoxShadow = (%+v, %v)", box, ok)
	}
	if err := m.AddBoxShadow(8, sdf.Rect{MaxX: 20, MaxY: 10}, 0, 3); !errors.As(err, &ce) {
		t.Errorf("AddBoxShadow(size 0) err = %v, want ConfigError", err)
	}

	updates := 0
	stats, err := m.DrawAwait(context.Background(), func(b Block, img *FontImage) {
		if img.Channels != 1 || len(img.Buffer) != int(b.Width)*int(b.Height) {
			t.Errorf("image %dx%dx%d for block %+v", img.Width, img.Height, img.Channels, b)
		}
		updates++
	})
	if err != nil {
		t.Fatalf("DrawAwait: %v", err)
	}
	// One glyph, two glyph variants, one shape, two shape variants, one box.
	if stats != (DrawStats{Blocks: 7, Tasks: 7}) || updates != 7 {
		t.Errorf("stats = %+v with %d updates, want 7 blocks", stats, updates)
	}
	if stats, _ := m.DrawAwait(context.Background(), func(Block, *FontImage) {}); stats.Tasks != 0 {
		t.Errorf("second flush tasks = %d, want 0", stats.Tasks)
	}

	m.Clear()
	if _, ok := m.Shape(1); ok {
		t.Error("shape survived Clear")
	}
	if _, ok := m.BoxShadow(7, 3); ok {
		t.Error("box shadow survived Clear")
	}
	if _, ok := m.ShadowGlyph(id, 2, 1); ok {
		t.Error("glyph shadow survived Clear")
	}
}

func TestGlyphHash(t *testing.T) {
	a := GlyphHash('A', "go")
	if a != GlyphHash('A', "go") {
		t.Error("GlyphHash is not deterministic")
	}
	if a == GlyphHash('B', "go") || a == GlyphHash('A', "mono") {
		t.Error("GlyphHash collides for different inputs")
	}
	if GlyphHash('x', "Caf\u00e9") != GlyphHash('x', "Cafe\u0301") {
		t.Error("GlyphHash differs for equivalent face names")
	}
	if got := memoKey(glyphKeyPrefix, 0xbeef); got != "arc/beef" {
		t.Errorf("memoKey = %q, want %q", got, "arc/beef")
	}
}
