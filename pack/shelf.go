// Package pack implements the shelf allocator that manages atlas space.
//
// Rows ("shelves") are keyed by a bucketed height so that glyphs of similar
// font sizes share a row. Every row reserves its full bucket height when it
// is opened, even if it is never filled, which keeps row lookup O(1).
package pack

// BaseRowHeight is the smallest row bucket. Items up to this height all
// share the same bucket.
const BaseRowHeight = 42

// RowStep is the granularity of buckets above BaseRowHeight.
const RowStep = 32

// Position is the top-left corner of an allocated rectangle.
type Position struct {
	X, Y int
}

// Packer implements bucketed shelf packing over a fixed-size surface.
//
// Packer is not safe for concurrent use; it is owned by a single glyph table.
type Packer struct {
	width  int
	height int

	// rows maps a bucket height to its current shelf.
	rows map[int]*shelf

	// lastV is the global vertical cursor: the top of the next row to open.
	lastV int

	count int
}

// shelf is the open row for one bucket height.
type shelf struct {
	x     int // next free x
	y     int // top of the row
	count int // items placed since the row was opened
}

// NewPacker creates a packer for a width x height surface.
func NewPacker(width, height int) *Packer {
	return &Packer{
		width:  width,
		height: height,
		rows:   make(map[int]*shelf, 8),
	}
}

// RowBucket returns the row height class for an item of height h.
func RowBucket(h int) int {
	if h <= BaseRowHeight {
		return BaseRowHeight
	}
	return (h-BaseRowHeight)/RowStep*RowStep + RowStep + BaseRowHeight
}

// AllocLine returns the bucket height that an item of height h is placed in,
// opening the row if it does not exist yet. The row's vertical span is
// reserved immediately.
func (p *Packer) AllocLine(h int) int {
	bucket := RowBucket(h)
	if _, ok := p.rows[bucket]; !ok {
		p.rows[bucket] = &shelf{y: p.lastV}
		p.lastV += bucket
	}
	return bucket
}

// Alloc finds space for a w x h rectangle.
// It returns false if the rectangle does not fit below the global cursor;
// the packer never hands out a partially valid rectangle.
func (p *Packer) Alloc(w, h int) (Position, bool) {
	if w <= 0 || h <= 0 || w > p.width {
		return Position{}, false
	}

	bucket := p.AllocLine(h)
	row := p.rows[bucket]

	var pos Position
	if p.width >= row.x+w {
		pos = Position{X: row.x, Y: row.y}
		row.x += w
		row.count++
	} else {
		// Current row is full: open a fresh row for this bucket at the
		// global cursor.
		row.y = p.lastV
		row.x = w
		row.count = 1
		p.lastV += bucket
		pos = Position{X: 0, Y: row.y}
	}

	if p.lastV > p.height {
		return Position{}, false
	}
	p.count++
	return pos, true
}

// Clear resets all rows and the global cursor.
func (p *Packer) Clear() {
	clear(p.rows)
	p.lastV = 0
	p.count = 0
}

// Width returns the surface width.
func (p *Packer) Width() int { return p.width }

// Height returns the surface height.
func (p *Packer) Height() int { return p.height }

// Used returns the global vertical cursor, i.e. the height reserved so far.
func (p *Packer) Used() int { return p.lastV }

// Count returns the number of successful allocations since the last Clear.
func (p *Packer) Count() int { return p.count }

// Utilization returns the fraction of rows reserved (0.0 to 1.0).
func (p *Packer) Utilization() float64 {
	if p.height == 0 {
		return 0
	}
	u := float64(p.lastV) / float64(p.height)
	if u > 1 {
		u = 1
	}
	return u
}
