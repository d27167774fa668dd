package sdf

// SegmentOp is the type of path operation.
type SegmentOp uint8

const (
	// SegmentMoveTo starts a new contour at Points[0].
	SegmentMoveTo SegmentOp = iota

	// SegmentLineTo draws a line to Points[0].
	SegmentLineTo

	// SegmentQuadTo draws a quadratic Bezier: control Points[0], target Points[1].
	SegmentQuadTo

	// SegmentCubeTo draws a cubic Bezier: controls Points[0..1], target Points[2].
	SegmentCubeTo
)

// String returns a string representation of the operation.
func (op SegmentOp) String() string {
	switch op {
	case SegmentMoveTo:
		return "MoveTo"
	case SegmentLineTo:
		return "LineTo"
	case SegmentQuadTo:
		return "QuadTo"
	case SegmentCubeTo:
		return "CubeTo"
	default:
		return "Unknown"
	}
}

// Segment is one path operation of an outline.
type Segment struct {
	Op     SegmentOp
	Points [3]Point
}

// Outline is a set of closed contours. Coordinates are in outline units
// (font units for glyphs) with the Y axis pointing down.
type Outline struct {
	Segments []Segment

	// Bounds is the control-point bounding box.
	Bounds Rect
}

// IsEmpty returns true if the outline has no drawable segments.
func (o *Outline) IsEmpty() bool {
	return o == nil || len(o.Segments) == 0 || o.Bounds.IsEmpty()
}

// PathBuilder accumulates segments and tracks bounds. It is the way shapes
// are described by callers that do not come from a font.
type PathBuilder struct {
	o     Outline
	start Point
	cur   Point
	open  bool
}

// NewPathBuilder returns an empty builder.
func NewPathBuilder() *PathBuilder {
	return &PathBuilder{o: Outline{Bounds: emptyRect()}}
}

// MoveTo starts a new contour, closing the previous one.
func (b *PathBuilder) MoveTo(x, y float64) *PathBuilder {
	b.Close()
	p := Point{x, y}
	b.o.Segments = append(b.o.Segments, Segment{Op: SegmentMoveTo, Points: [3]Point{p}})
	b.o.Bounds = b.o.Bounds.Extend(p)
	b.start, b.cur, b.open = p, p, true
	return b
}

// LineTo adds a line.
func (b *PathBuilder) LineTo(x, y float64) *PathBuilder {
	p := Point{x, y}
	b.o.Segments = append(b.o.Segments, Segment{Op: SegmentLineTo, Points: [3]Point{p}})
	b.o.Bounds = b.o.Bounds.Extend(p)
	b.cur = p
	return b
}

// QuadTo adds a quadratic Bezier.
func (b *PathBuilder) QuadTo(cx, cy, x, y float64) *PathBuilder {
	c, p := Point{cx, cy}, Point{x, y}
	b.o.Segments = append(b.o.Segments, Segment{Op: SegmentQuadTo, Points: [3]Point{c, p}})
	b.o.Bounds = b.o.Bounds.Extend(c).Extend(p)
	b.cur = p
	return b
}

// CubeTo adds a cubic Bezier.
func (b *PathBuilder) CubeTo(c1x, c1y, c2x, c2y, x, y float64) *PathBuilder {
	c1, c2, p := Point{c1x, c1y}, Point{c2x, c2y}, Point{x, y}
	b.o.Segments = append(b.o.Segments, Segment{Op: SegmentCubeTo, Points: [3]Point{c1, c2, p}})
	b.o.Bounds = b.o.Bounds.Extend(c1).Extend(c2).Extend(p)
	b.cur = p
	return b
}

// Close closes the current contour with a line back to its start if needed.
func (b *PathBuilder) Close() *PathBuilder {
	if b.open && b.cur != b.start {
		b.LineTo(b.start.X, b.start.Y)
	}
	b.open = false
	return b
}

// Outline returns the accumulated outline. The builder must not be used
// afterwards.
func (b *PathBuilder) Outline() *Outline {
	b.Close()
	if len(b.o.Segments) == 0 {
		b.o.Bounds = Rect{}
	}
	return &b.o
}

// evaluateQuadratic evaluates a quadratic Bezier curve at parameter t.
func evaluateQuadratic(p0, p1, p2 Point, t float64) Point {
	u := 1 - t
	// B(t) = (1-t)^2*P0 + 2*(1-t)*t*P1 + t^2*P2
	return Point{
		u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

// evaluateCubic evaluates a cubic Bezier curve at parameter t.
func evaluateCubic(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	u2 := u * u
	t2 := t * t
	// B(t) = (1-t)^3*P0 + 3*(1-t)^2*t*P1 + 3*(1-t)*t^2*P2 + t^3*P3
	return Point{
		u*u2*p0.X + 3*u2*t*p1.X + 3*u*t2*p2.X + t*t2*p3.X,
		u*u2*p0.Y + 3*u2*t*p1.Y + 3*u*t2*p2.Y + t*t2*p3.Y,
	}
}
