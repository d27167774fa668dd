package glyphatlas

import (
	"context"
	"log/slog"

	"github.com/gogpu/glyphatlas/internal/filter"
	"github.com/gogpu/glyphatlas/internal/parallel"
	"github.com/gogpu/glyphatlas/sdf"
	"github.com/gogpu/glyphatlas/store"
)

// renderFunc produces the pixels of one tile, or false when there is
// nothing to render. It runs on a Runtime goroutine and must only read
// data captured when the job was created.
type renderFunc func(ctx context.Context) ([]byte, bool)

// arcPipeline runs tile rendering on the Runtime, reading and writing arc
// data through the memo.
type arcPipeline struct {
	memo    *store.Memo
	runtime Runtime
	log     *slog.Logger
}

// cells returns the arc approximation of o, from the memo when possible.
func (p *arcPipeline) cells(ctx context.Context, key string, o *sdf.Outline) *sdf.CellInfo {
	if data, ok := p.memo.Load(ctx, key); ok {
		ci, err := sdf.UnmarshalCellInfo(data)
		if err == nil {
			return ci
		}
		p.log.Warn("memoized arcs unreadable", slog.String("key", key), slog.Any("err", err))
	}

	ci := sdf.NewCellInfo(o, sdf.DefaultTolerance)
	data, err := ci.MarshalBinary()
	if err != nil {
		p.log.Warn("encode arcs", slog.String("key", key), slog.Any("err", err))
		return ci
	}
	p.memo.Store(ctx, key, data)
	return ci
}

func (p *arcPipeline) sdfTile(key string, o *sdf.Outline, l sdf.Layout) renderFunc {
	return func(ctx context.Context) ([]byte, bool) {
		if o == nil {
			return nil, false
		}
		return sdf.Generate(p.cells(ctx, key, o), l, false).Data, true
	}
}

func (p *arcPipeline) glowTile(key string, o *sdf.Outline, l sdf.Layout) renderFunc {
	return func(ctx context.Context) ([]byte, bool) {
		if o == nil {
			return nil, false
		}
		return sdf.Generate(p.cells(ctx, key, o), l, true).Data, true
	}
}

func (p *arcPipeline) shadowTile(key string, o *sdf.Outline, l sdf.Layout, radius int, weight float64) renderFunc {
	return func(ctx context.Context) ([]byte, bool) {
		if o == nil {
			return nil, false
		}
		tile := sdf.Generate(p.cells(ctx, key, o), l, false)
		return filter.GaussianBlur(tile.Data, l.TexSize, l.TexSize, radius, weight), true
	}
}

func boxTile(l filter.BoxLayout) renderFunc {
	return func(context.Context) ([]byte, bool) {
		return filter.BlurBox(l), true
	}
}

// settle is how a job's outcome is applied on the owning goroutine.
type settle uint8

const (
	settleDone  settle = iota // pixels delivered
	settleMiss                // nothing will ever be rendered
	settleRetry               // not finished; try again next flush
)

// arcJob is one tile to render. Everything but apply is safe to hand to
// another goroutine.
type arcJob struct {
	block  Block
	w, h   int
	render renderFunc

	// missing marks jobs known to produce nothing.
	missing bool

	apply func(settle)
}

type arcResult struct {
	job  int
	data []byte
}

// snapshot collects every pending glyph, variant, shape and box tile.
func (s *arcSource) snapshot(fonts fontSet) []arcJob {
	var jobs []arcJob

	fonts.each(func(_ FontID, info *FontInfo) {
		if info.Pending() == 0 {
			return
		}
		queue := append([]GlyphID(nil), info.await...)
		info.resetQueue()
		for _, id := range queue {
			d := s.desc(id)
			if !d.Glyph.Placed {
				s.requeue(info, []GlyphID{id})
				continue
			}
			e := s.entries[id]
			x, y := s.origin(d)
			jobs = append(jobs, arcJob{
				block:   Block{X: float32(x), Y: float32(y), Width: float32(d.allocW), Height: float32(d.allocH)},
				w:       d.allocW,
				h:       d.allocH,
				render:  s.pipe.sdfTile(e.key, e.outline, e.layout),
				missing: e.outline == nil,
				apply: func(st settle) {
					switch st {
					case settleMiss:
						d.Glyph.Placed = false
					case settleRetry:
						s.requeue(info, []GlyphID{id})
					}
				},
			})
		}
	})

	add := func(t *arcTile) {
		if !t.pending {
			return
		}
		jobs = append(jobs, arcJob{
			block:  Block{X: float32(t.x), Y: float32(t.y), Width: float32(t.w), Height: float32(t.h)},
			w:      t.w,
			h:      t.h,
			render: t.render,
			apply: func(st settle) {
				switch st {
				case settleDone:
					t.pending = false
				case settleMiss:
					t.pending = false
					t.glyph.Placed = false
				}
			},
		})
	}
	for _, t := range s.variants {
		add(t)
	}
	for _, sh := range s.shapes {
		add(&sh.arcTile)
	}
	for _, t := range s.shapeVariants {
		add(t)
	}
	for _, t := range s.boxes {
		add(t)
	}
	return jobs
}

// drawAwait renders every pending tile on the Runtime and waits for the
// outcomes. Results are written through update on the calling goroutine,
// in no particular order. If ctx ends first, the outcomes received so far
// are applied and the remaining work is queued again; tasks already
// started still finish in the background.
func (s *arcSource) drawAwait(ctx context.Context, fonts fontSet, update UpdateFunc) (DrawStats, error) {
	jobs := s.snapshot(fonts)
	if len(jobs) == 0 {
		return DrawStats{Pending: pending(fonts)}, nil
	}

	gather := parallel.NewGather[arcResult](len(jobs))
	taskCtx := context.WithoutCancel(ctx)
	for i := range jobs {
		render := jobs[i].render
		s.pipe.runtime.Submit(func() {
			data, ok := render(taskCtx)
			if !ok {
				gather.Miss()
				return
			}
			gather.Done(arcResult{job: i, data: data})
		})
	}

	results, misses, err := gather.Wait(ctx)
	done := make([]bool, len(jobs))
	for _, r := range results {
		j := &jobs[r.job]
		done[r.job] = true
		update(j.block, wrapFontImage(r.data, j.w, j.h))
		j.apply(settleDone)
	}
	for i := range jobs {
		switch {
		case done[i]:
		case err == nil || jobs[i].missing:
			jobs[i].apply(settleMiss)
		default:
			jobs[i].apply(settleRetry)
		}
	}

	stats := DrawStats{
		Blocks:  len(results),
		Tasks:   len(jobs),
		Misses:  misses,
		Pending: pending(fonts),
	}
	s.log.Debug("arc draw",
		slog.Int("tasks", stats.Tasks),
		slog.Int("results", stats.Blocks),
		slog.Int("misses", stats.Misses),
		slog.Int("pending", stats.Pending))
	return stats, err
}
