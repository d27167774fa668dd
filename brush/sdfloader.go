package brush

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/glyphatlas"
	"github.com/gogpu/glyphatlas/sdf"
)

// BakeFontCfg measures chars of face and describes the distance-field
// tiles LoadSDF will produce for them. Tiles are laid out one em to
// fontSize pixels, padded by pxRange. Characters the face lacks are left
// out; glyphs without contours get an empty tile.
func BakeFontCfg(face *sdf.Face, chars []rune, fontSize, pxRange float32) (*glyphatlas.FontCfg, error) {
	if fontSize <= 0 {
		return nil, &glyphatlas.ConfigError{Field: "FontCfg.Metrics.FontSize", Reason: "must be positive"}
	}
	cfg := &glyphatlas.FontCfg{
		Name: face.Name(),
		Metrics: glyphatlas.MetricsInfo{
			FontSize:      fontSize,
			Ascender:      float32(face.Ascender()),
			Descender:     float32(face.Descender()),
			DistanceRange: pxRange,
		},
		Glyphs: make(map[rune]glyphatlas.GlyphInfo, len(chars)),
	}
	m := &cfg.Metrics
	m.LineHeight = (m.Ascender - m.Descender) * fontSize
	m.UnderlineY = -m.Descender * fontSize / 2
	m.UnderlineThickness = max(1, fontSize/16)

	for _, r := range chars {
		gi := face.GlyphIndex(r)
		if gi == 0 {
			continue
		}
		o, err := face.Outline(gi)
		if err != nil {
			return nil, fmt.Errorf("brush: bake %q: %w", r, err)
		}
		g := glyphatlas.GlyphInfo{Advance: clampU8(face.Advance(gi) * float64(fontSize))}
		if !o.IsEmpty() {
			l := bakeLayout(face, o, fontSize, pxRange)
			if l.TexSize > math.MaxUint8 {
				return nil, fmt.Errorf("brush: bake %q: tile of %d pixels does not fit", r, l.TexSize)
			}
			g.Width = uint8(l.TexSize)
			g.Height = uint8(l.TexSize)
			g.OX = offset(l.PlaneBounds.MinX)
			g.OY = offset(l.PlaneBounds.MinY)
			m.MaxHeight = max(m.MaxHeight, float32(l.TexSize))
		}
		cfg.Glyphs[r] = g
	}
	return cfg, nil
}

func bakeLayout(face *sdf.Face, o *sdf.Outline, fontSize, pxRange float32) sdf.Layout {
	pr := float64(pxRange)
	return sdf.GlyphLayout(o.Bounds, face.UnitsPerEm(), float64(fontSize), pr, pr)
}

func offset(em float64) int16 {
	v := math.Round(em * glyphatlas.OffsetRange)
	return int16(max(math.MinInt16, min(math.MaxInt16, v)))
}

func clampU8(v float64) uint8 {
	return uint8(max(0, min(math.MaxUint8, math.Round(v))))
}

type loaderFace struct {
	face *sdf.Face
	cfg  *glyphatlas.FontCfg
}

// SDFLoader generates config-mode tiles from outlines on demand, matching
// tables made by BakeFontCfg. It is a stand-in for hosts that ship baked
// tiles.
//
// SDFLoader is safe for concurrent use.
type SDFLoader struct {
	mu    sync.RWMutex
	faces map[string]loaderFace
}

// NewSDFLoader creates a loader without faces.
func NewSDFLoader() *SDFLoader {
	return &SDFLoader{faces: make(map[string]loaderFace)}
}

// AddFace serves tiles for cfg.Name from face.
func (l *SDFLoader) AddFace(face *sdf.Face, cfg *glyphatlas.FontCfg) {
	l.mu.Lock()
	l.faces[cfg.Name] = loaderFace{face: face, cfg: cfg}
	l.mu.Unlock()
}

// LoadSDF implements glyphatlas.SDFLoader.
func (l *SDFLoader) LoadSDF(ctx context.Context, face string, chars []rune) ([][]byte, error) {
	l.mu.RLock()
	f, ok := l.faces[face]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("brush: %w: %q", glyphatlas.ErrUnknownFace, face)
	}

	m := f.cfg.Metrics
	tiles := make([][]byte, len(chars))
	for i, r := range chars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, ok := f.cfg.Glyphs[r]
		if !ok {
			return nil, fmt.Errorf("brush: %q not baked for %q", r, face)
		}
		if g.Width == 0 || g.Height == 0 {
			tiles[i] = []byte{}
			continue
		}
		o, err := f.face.Outline(f.face.GlyphIndex(r))
		if err != nil {
			return nil, fmt.Errorf("brush: load %q: %w", r, err)
		}
		tile := sdf.Generate(sdf.NewCellInfo(o, sdf.DefaultTolerance), bakeLayout(f.face, o, m.FontSize, m.DistanceRange), false)
		tiles[i] = tile.Data
	}
	return tiles, nil
}
