package glyphatlas

import (
	"log/slog"

	"github.com/gogpu/glyphatlas/internal/arena"
	"github.com/gogpu/glyphatlas/pack"
)

// slots is the glyph arena and atlas packer owned by one source. Records
// are never removed; a Clear only bumps the generation so that records
// placed earlier are re-placed on their next lookup.
type slots struct {
	kind   string
	packer *pack.Packer
	glyphs *arena.Arena[GlyphDesc]
	log    *slog.Logger

	generation uint64
}

func newSlots(kind string, width, height int, log *slog.Logger) slots {
	return slots{
		kind:   kind,
		packer: pack.NewPacker(width, height),
		glyphs: arena.New[GlyphDesc](),
		log:    log,
	}
}

func (s *slots) insert(d GlyphDesc) GlyphID {
	return GlyphID(s.glyphs.Insert(d))
}

func (s *slots) desc(id GlyphID) *GlyphDesc {
	return s.glyphs.Get(arena.Key(id))
}

func (s *slots) lookup(id GlyphID) (*GlyphDesc, bool) {
	return s.glyphs.Lookup(arena.Key(id))
}

// place allocates atlas space for id and queues it on info. The glyph is
// queued even when the atlas is full, so it keeps waiting until a Clear
// makes room.
func (s *slots) place(id GlyphID, info *FontInfo) error {
	d := s.desc(id)
	d.generation = s.generation
	if d.allocW == 0 || d.allocH == 0 {
		// Nothing to draw; whitespace needs neither space nor pixels.
		d.Glyph.Placed = true
		return nil
	}
	info.enqueue(id, d.allocW, d.allocH)

	pos, ok := s.packer.Alloc(d.allocW, d.allocH)
	if !ok {
		d.Glyph.Placed = false
		s.log.Warn("atlas exhausted",
			slog.String("source", s.kind),
			slog.Int("glyph", int(id)),
			slog.String("char", string(d.Char)),
			slog.Int("width", d.allocW),
			slog.Int("height", d.allocH))
		return ErrAtlasExhausted
	}
	d.Glyph.X = float32(pos.X) + d.insetX
	d.Glyph.Y = float32(pos.Y) + d.insetY
	d.Glyph.Placed = true
	return nil
}

// revalidate re-places a glyph whose rectangle predates the last clear.
func (s *slots) revalidate(id GlyphID, info *FontInfo) error {
	d := s.desc(id)
	if d.generation != s.generation {
		return s.place(id, info)
	}
	if !d.Glyph.Placed {
		return ErrAtlasExhausted
	}
	return nil
}

// drain turns every font queue into draw batches. Glyphs still waiting for
// atlas space stay queued.
func (s *slots) drain(fonts fontSet) []drawBatch {
	var all []drawBatch
	fonts.each(func(id FontID, info *FontInfo) {
		if info.Pending() == 0 {
			return
		}
		b, held := batchQueue(id, info, info.await, s.desc, s.packer.Width())
		all = append(all, b...)
		info.resetQueue()
		s.requeue(info, held)
	})
	return all
}

func (s *slots) requeue(info *FontInfo, ids []GlyphID) {
	for _, id := range ids {
		d := s.desc(id)
		info.enqueue(id, d.allocW, d.allocH)
	}
}

func (s *slots) clear() {
	s.packer.Clear()
	s.generation++
}
