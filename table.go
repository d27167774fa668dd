package glyphatlas

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gogpu/glyphatlas/sdf"
	"github.com/gogpu/glyphatlas/store"
)

// fontSet exposes the manager's fonts to the sources.
type fontSet interface {
	each(fn func(FontID, *FontInfo))
	font(id FontID) *FontInfo
}

// DrawStats summarizes one flush.
type DrawStats struct {
	// Blocks is the number of atlas blocks handed to the update callback
	// (or to the brush, in bitmap mode).
	Blocks int

	// Tasks is the number of loader requests or arc tasks started.
	Tasks int

	// Misses counts arc tasks that produced nothing.
	Misses int

	// Pending is the number of glyphs still queued afterwards.
	Pending int
}

// fontTable owns the three glyph sources and routes every operation to
// the one selected by the mode.
type fontTable struct {
	bitmap *bitmapSource
	cfg    *configSource
	arc    *arcSource
}

func newFontTable(o *Options, memo *store.Memo, log *slog.Logger) *fontTable {
	w, h := o.AtlasWidth, o.AtlasHeight
	return &fontTable{
		bitmap: newBitmapSource(o.Brush, w, h, log),
		cfg:    newConfigSource(o.Loader, w, h, log),
		arc:    newArcSource(memo, o.Runtime, w, h, log),
	}
}

func (t *fontTable) slots(m Mode) *slots {
	switch m {
	case ModeBitmap:
		return &t.bitmap.slots
	case ModeConfigSDF:
		return &t.cfg.slots
	case ModeArcSDF:
		return &t.arc.slots
	}
	panic(fmt.Sprintf("glyphatlas: unknown mode %d", m))
}

func (t *fontTable) glyphID(m Mode, font FontID, info *FontInfo, r rune) (GlyphID, error) {
	switch m {
	case ModeConfigSDF:
		return t.cfg.glyphID(font, info, r)
	case ModeArcSDF:
		return t.arc.glyphID(font, info, r)
	default:
		return t.bitmap.glyphID(font, info, r)
	}
}

func (t *fontTable) measureWidth(m Mode, info *FontInfo, r rune) float32 {
	switch m {
	case ModeConfigSDF:
		return t.cfg.measureWidth(info, r)
	case ModeArcSDF:
		return t.arc.measureWidth(info, r)
	default:
		return t.bitmap.measureWidth(info, r)
	}
}

func (t *fontTable) height(m Mode, info *FontInfo) (float32, float32) {
	switch m {
	case ModeConfigSDF:
		return t.cfg.height(info)
	case ModeArcSDF:
		return t.arc.height(info)
	default:
		return t.bitmap.height(info)
	}
}

// glyph returns the record of id. It panics if id is unknown.
func (t *fontTable) glyph(m Mode, id GlyphID) *GlyphDesc {
	d, ok := t.slots(m).lookup(id)
	if !ok {
		panic(fmt.Sprintf("glyphatlas: glyph %d does not exist in %s table", id, m))
	}
	return d
}

func (t *fontTable) draw(ctx context.Context, m Mode, fonts fontSet, update UpdateFunc) (DrawStats, error) {
	switch m {
	case ModeConfigSDF:
		return t.cfg.draw(ctx, fonts, update)
	case ModeArcSDF:
		return t.arc.drawAwait(ctx, fonts, update)
	default:
		n := t.bitmap.draw(fonts, update)
		return DrawStats{Blocks: n, Pending: pending(fonts)}, nil
	}
}

// metrics returns the face metrics behind a glyph or font in mode m.
func (t *fontTable) metrics(m Mode, info *FontInfo, faceIndex int) (MetricsInfo, bool) {
	switch m {
	case ModeConfigSDF:
		if faceIndex >= 0 && faceIndex < len(info.Faces) {
			if c, ok := t.cfg.cfgs[info.Faces[faceIndex]]; ok {
				return c.Metrics, true
			}
		}
		if t.cfg.def != nil {
			return t.cfg.def.metrics, true
		}
		return MetricsInfo{}, false
	case ModeArcSDF:
		if faceIndex < 0 || faceIndex >= len(info.Faces) {
			return MetricsInfo{}, false
		}
		face, ok := t.arc.faces[info.Faces[faceIndex]]
		if !ok {
			return MetricsInfo{}, false
		}
		return arcMetrics(face, info.Descriptor), true
	default:
		if t.bitmap.brush == nil {
			return MetricsInfo{}, false
		}
		line, maxH := t.bitmap.brush.Height(info)
		return MetricsInfo{FontSize: BaseFontSize, LineHeight: line, MaxHeight: maxH}, true
	}
}

// arcMetrics derives MetricsInfo from an outline face at sdf.FontSize.
func arcMetrics(face *sdf.Face, d FontDescriptor) MetricsInfo {
	asc, desc := float32(face.Ascender()), float32(face.Descender())
	return MetricsInfo{
		FontSize:      sdf.FontSize,
		LineHeight:    (asc - desc) * sdf.FontSize,
		MaxHeight:     (asc - desc) * sdf.FontSize,
		Ascender:      asc,
		Descender:     desc,
		DistanceRange: float32(sdf.PxRangeFor(float64(d.Stroke), float64(d.Size))),
	}
}

func (t *fontTable) clear() {
	t.bitmap.clear()
	t.cfg.clear()
	t.arc.clear()
}

func pending(fonts fontSet) int {
	n := 0
	fonts.each(func(_ FontID, info *FontInfo) {
		n += info.Pending()
	})
	return n
}
