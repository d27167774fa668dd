package brush

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/image/vector"

	"github.com/gogpu/glyphatlas"
	"github.com/gogpu/glyphatlas/sdf"
)

// DefaultWidthCacheSize is the number of base widths a Software brush keeps.
const DefaultWidthCacheSize = 256

// softFace is one registered font: go-text for metrics and character
// coverage, sdf.Face for outlines.
type softFace struct {
	name    string
	metrics *font.Face
	outline *sdf.Face
	upem    float32

	ascender, descender float32 // font units; descender is negative
}

type widthKey struct {
	face string
	r    rune
}

// Software is a glyphatlas.Brush that fills glyph outlines on the CPU.
//
// Strokes widen the reserved box only; outlines are filled, not stroked.
// Software is safe for concurrent use.
type Software struct {
	log *slog.Logger

	mu    sync.Mutex
	faces map[string]*softFace

	widths *lru.Cache
}

// NewSoftware creates a brush without fonts. A nil logger means the
// glyphatlas package logger.
func NewSoftware(log *slog.Logger) *Software {
	if log == nil {
		log = glyphatlas.Logger()
	}
	widths, _ := lru.New(DefaultWidthCacheSize)
	return &Software{
		log:    log.With(slog.String("component", "brush")),
		faces:  make(map[string]*softFace),
		widths: widths,
	}
}

// AddFont registers TrueType or OpenType data under name. An empty name
// uses the font's family name.
func (s *Software) AddFont(name string, data []byte) (string, error) {
	outline, err := sdf.ParseFace(name, data)
	if err != nil {
		return "", err
	}
	metrics, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("brush: parse font: %w", err)
	}

	f := &softFace{
		name:    outline.Name(),
		metrics: metrics,
		outline: outline,
		upem:    float32(metrics.Upem()),
	}
	if ext, ok := metrics.FontHExtents(); ok {
		f.ascender, f.descender = ext.Ascender, ext.Descender
	} else {
		f.ascender = float32(outline.Ascender()) * f.upem
		f.descender = float32(outline.Descender()) * f.upem
	}

	s.mu.Lock()
	s.faces[f.name] = f
	s.mu.Unlock()
	s.log.Info("font added", slog.String("face", f.name))
	return f.name, nil
}

func (s *Software) face(name string) *softFace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faces[name]
}

// MeasureBaseWidth implements glyphatlas.Brush. Characters no face covers
// get an em for wide scripts and half an em otherwise.
func (s *Software) MeasureBaseWidth(info *glyphatlas.FontInfo, r rune) (float32, int) {
	for i, name := range info.FaceNames {
		key := widthKey{name, r}
		if w, ok := s.widths.Get(key); ok {
			return w.(float32), i
		}
		f := s.face(name)
		if f == nil {
			continue
		}
		s.mu.Lock()
		gid, ok := f.metrics.NominalGlyph(r)
		var adv float32
		if ok {
			adv = f.metrics.HorizontalAdvance(gid)
		}
		s.mu.Unlock()
		if !ok {
			continue
		}
		w := adv * glyphatlas.BaseFontSize / f.upem
		s.widths.Add(key, w)
		return w, i
	}
	if isWide(r) {
		return glyphatlas.BaseFontSize, 0
	}
	return glyphatlas.BaseFontSize / 2, 0
}

func isWide(r rune) bool {
	switch language.LookupScript(r) {
	case language.Han, language.Hiragana, language.Katakana, language.Hangul:
		return true
	}
	return false
}

// Height implements glyphatlas.Brush using the first registered face of
// the chain.
func (s *Software) Height(info *glyphatlas.FontInfo) (float32, float32) {
	for _, name := range info.FaceNames {
		if f := s.face(name); f != nil {
			h := (f.ascender - f.descender) * glyphatlas.BaseFontSize / f.upem
			return h, h
		}
	}
	return glyphatlas.BaseFontSize, glyphatlas.BaseFontSize
}

// Draw implements glyphatlas.Brush. Each block becomes one RGBA image with
// white, premultiplied glyph coverage.
func (s *Software) Draw(blocks []glyphatlas.DrawBlock, update glyphatlas.UpdateFunc) {
	for i := range blocks {
		b := &blocks[i]
		img := s.drawBlock(b)
		update(b.Block, img)
	}
}

func (s *Software) drawBlock(b *glyphatlas.DrawBlock) *glyphatlas.FontImage {
	w := int(math.Ceil(float64(b.Block.Width)))
	h := int(math.Ceil(float64(b.Block.Height)))
	img := glyphatlas.NewFontImage(w, h, 4)
	if w == 0 || h == 0 || b.FaceIndex < 0 || b.FaceIndex >= len(b.Families) {
		return img
	}
	f := s.face(b.Families[b.FaceIndex])
	if f == nil {
		s.log.Warn("draw with unknown face", slog.String("face", b.Families[b.FaceIndex]))
		return img
	}

	scale := b.Size / f.upem
	baseline := f.ascender * scale
	z := vector.NewRasterizer(w, h)
	for _, c := range b.Chars {
		gi := f.outline.GlyphIndex(c.Char)
		if gi == 0 {
			continue
		}
		o, err := f.outline.Outline(gi)
		if err != nil || o.IsEmpty() {
			continue
		}
		fill(z, o, c.X, baseline, scale)
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	for p, a := range mask.Pix {
		px := img.Buffer[p*4 : p*4+4]
		px[0], px[1], px[2], px[3] = a, a, a, a
	}
	return img
}

// fill adds the contours of o to z. Outline coordinates are font units
// with Y pointing down from the baseline.
func fill(z *vector.Rasterizer, o *sdf.Outline, x, baseline, scale float32) {
	pt := func(p sdf.Point) (float32, float32) {
		return x + float32(p.X)*scale, baseline + float32(p.Y)*scale
	}
	open := false
	for _, seg := range o.Segments {
		switch seg.Op {
		case sdf.SegmentMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(seg.Points[0]))
			open = true
		case sdf.SegmentLineTo:
			z.LineTo(pt(seg.Points[0]))
		case sdf.SegmentQuadTo:
			cx, cy := pt(seg.Points[0])
			px, py := pt(seg.Points[1])
			z.QuadTo(cx, cy, px, py)
		case sdf.SegmentCubeTo:
			c1x, c1y := pt(seg.Points[0])
			c2x, c2y := pt(seg.Points[1])
			px, py := pt(seg.Points[2])
			z.CubeTo(c1x, c1y, c2x, c2y, px, py)
		}
	}
	if open {
		z.ClosePath()
	}
}
