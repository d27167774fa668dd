package sdf

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

// DefaultTolerance is the arc fitting error, as a fraction of the outline's
// larger dimension.
const DefaultTolerance = 1.0 / 512

// maxSplitDepth bounds recursive curve subdivision.
const maxSplitDepth = 12

// gridSize is the number of cells per axis of the near-arc grid.
const gridSize = 16

// CellInfo is the arc approximation of an outline together with a grid of
// near-arc lists. It is the unit persisted to the byte store.
type CellInfo struct {
	// Arcs approximate every contour, in outline units.
	Arcs []Arc `cbor:"1,keyasint"`

	// Bounds is the outline bounding box.
	Bounds Rect `cbor:"2,keyasint"`

	// Extent is the grid rectangle: Bounds expanded by a margin.
	Extent Rect `cbor:"3,keyasint"`

	// Cells lists, for every grid cell in row-major order, the indices of
	// the arcs that can be nearest to a point inside that cell.
	Cells [][]uint16 `cbor:"4,keyasint"`
}

// NewCellInfo converts an outline to arcs and builds the near-arc grid.
// The tolerance is relative to the larger outline dimension; pass
// DefaultTolerance for glyphs.
func NewCellInfo(o *Outline, tolerance float64) *CellInfo {
	if o.IsEmpty() {
		return &CellInfo{}
	}

	scale := math.Max(o.Bounds.Width(), o.Bounds.Height())
	arcs := outlineToArcs(o, tolerance*scale)
	if len(arcs) > math.MaxUint16 {
		arcs = arcs[:math.MaxUint16]
	}

	ci := &CellInfo{
		Arcs:   arcs,
		Bounds: o.Bounds,
		Extent: o.Bounds.Expand(scale / 8),
	}
	ci.buildCells()
	return ci
}

// IsEmpty reports whether the info has no arcs (whitespace glyphs).
func (ci *CellInfo) IsEmpty() bool {
	return ci == nil || len(ci.Arcs) == 0
}

func (ci *CellInfo) cellSize() (w, h float64) {
	return ci.Extent.Width() / gridSize, ci.Extent.Height() / gridSize
}

// buildCells fills Cells. For a cell with center c and half diagonal r, an
// arc farther than dmin(c) + 2r from c can never be the nearest arc of a
// point in the cell.
func (ci *CellInfo) buildCells() {
	cw, ch := ci.cellSize()
	hd := math.Hypot(cw, ch) / 2
	ci.Cells = make([][]uint16, gridSize*gridSize)

	dist := make([]float64, len(ci.Arcs))
	for j := 0; j < gridSize; j++ {
		for i := 0; i < gridSize; i++ {
			c := Point{
				X: ci.Extent.MinX + (float64(i)+0.5)*cw,
				Y: ci.Extent.MinY + (float64(j)+0.5)*ch,
			}
			dmin := math.Inf(1)
			for k, a := range ci.Arcs {
				dist[k] = a.Distance(c)
				dmin = math.Min(dmin, dist[k])
			}
			var near []uint16
			for k, d := range dist {
				if d <= dmin+2*hd {
					near = append(near, uint16(k))
				}
			}
			ci.Cells[j*gridSize+i] = near
		}
	}
}

// nearArcs returns the candidate arcs for p, or nil if p lies outside the
// grid and every arc must be considered.
func (ci *CellInfo) nearArcs(p Point) []uint16 {
	if len(ci.Cells) != gridSize*gridSize || !ci.Extent.Contains(p) {
		return nil
	}
	cw, ch := ci.cellSize()
	i := min(int((p.X-ci.Extent.MinX)/cw), gridSize-1)
	j := min(int((p.Y-ci.Extent.MinY)/ch), gridSize-1)
	return ci.Cells[j*gridSize+i]
}

// SignedDistance returns the distance from p to the outline, negative inside
// (nonzero winding).
func (ci *CellInfo) SignedDistance(p Point) float64 {
	if ci.IsEmpty() {
		return math.Inf(1)
	}

	d := math.Inf(1)
	if near := ci.nearArcs(p); near != nil {
		for _, k := range near {
			d = math.Min(d, ci.Arcs[k].Distance(p))
		}
	} else {
		for _, a := range ci.Arcs {
			d = math.Min(d, a.Distance(p))
		}
	}

	if ci.Winding(p) != 0 {
		return -d
	}
	return d
}

// Winding returns the winding number of the arc contours around p.
func (ci *CellInfo) Winding(p Point) int {
	var total float64
	for _, a := range ci.Arcs {
		total += a.windingAngle(p)
	}
	return int(math.Round(total / (2 * math.Pi)))
}

var (
	cellEncMode cbor.EncMode
	cellDecMode cbor.DecMode
)

func init() {
	var err error
	cellEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cellDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// cellInfoWire has CellInfo's fields without its methods, so the codec
// does not call back into MarshalBinary.
type cellInfoWire CellInfo

// MarshalBinary encodes the info as deterministic CBOR.
func (ci *CellInfo) MarshalBinary() ([]byte, error) {
	return cellEncMode.Marshal((*cellInfoWire)(ci))
}

// UnmarshalCellInfo decodes data produced by MarshalBinary.
func UnmarshalCellInfo(data []byte) (*CellInfo, error) {
	var ci CellInfo
	if err := cellDecMode.Unmarshal(data, (*cellInfoWire)(&ci)); err != nil {
		return nil, fmt.Errorf("sdf: decode cell info: %w", err)
	}
	if len(ci.Arcs) > 0 && len(ci.Cells) != gridSize*gridSize {
		return nil, fmt.Errorf("sdf: decode cell info: %d cells, want %d", len(ci.Cells), gridSize*gridSize)
	}
	for _, cell := range ci.Cells {
		for _, k := range cell {
			if int(k) >= len(ci.Arcs) {
				return nil, fmt.Errorf("sdf: decode cell info: arc index %d out of range", k)
			}
		}
	}
	return &ci, nil
}

// outlineToArcs approximates every segment with arcs within tol.
func outlineToArcs(o *Outline, tol float64) []Arc {
	if tol <= 0 {
		tol = 1e-3
	}
	var (
		arcs       []Arc
		start, cur Point
		open       bool
	)
	closeContour := func() {
		if open && cur != start {
			arcs = append(arcs, Arc{P0: cur, P1: start})
		}
	}

	for _, seg := range o.Segments {
		switch seg.Op {
		case SegmentMoveTo:
			closeContour()
			start, cur, open = seg.Points[0], seg.Points[0], true
		case SegmentLineTo:
			p := seg.Points[0]
			if p != cur {
				arcs = append(arcs, Arc{P0: cur, P1: p})
			}
			cur = p
		case SegmentQuadTo:
			p0, c, p1 := cur, seg.Points[0], seg.Points[1]
			arcs = fitCurve(arcs, func(t float64) Point { return evaluateQuadratic(p0, c, p1, t) }, tol)
			cur = p1
		case SegmentCubeTo:
			p0, c1, c2, p1 := cur, seg.Points[0], seg.Points[1], seg.Points[2]
			arcs = fitCurve(arcs, func(t float64) Point { return evaluateCubic(p0, c1, c2, p1, t) }, tol)
			cur = p1
		}
	}
	closeContour()
	return arcs
}

// fitCurve appends arcs approximating curve on [0, 1].
func fitCurve(dst []Arc, curve func(t float64) Point, tol float64) []Arc {
	return fitRange(dst, curve, 0, 1, curve(0), curve(1), tol, 0)
}

func fitRange(dst []Arc, curve func(t float64) Point, t0, t1 float64, p0, p1 Point, tol float64, depth int) []Arc {
	tm := (t0 + t1) / 2
	pm := curve(tm)
	if p0 == p1 && pm == p0 {
		return dst
	}

	arc := arcThrough(p0, pm, p1)
	if depth < maxSplitDepth {
		split := math.Abs(arc.D) > maxBulge
		if !split {
			for _, f := range [...]float64{0.25, 0.75} {
				if arc.Distance(curve(t0+(t1-t0)*f)) > tol {
					split = true
					break
				}
			}
		}
		if split {
			dst = fitRange(dst, curve, t0, tm, p0, pm, tol, depth+1)
			return fitRange(dst, curve, tm, t1, pm, p1, tol, depth+1)
		}
	}
	return append(dst, arc)
}
