package sdf

import (
	"math"
)

// Arc is a circular arc from P0 to P1.
//
// D is the bulge: tan(sweep/4), signed so that D > 0 bulges to the left of
// the chord P0→P1 (in a Y-down frame, "left" is the perpendicular
// (-dy, dx)). D == 0 is a straight line.
type Arc struct {
	P0, P1 Point
	D      float64
}

// maxBulge limits arcs to a half circle; larger sweeps are split.
const maxBulge = 1.0

// IsLine reports whether the arc is degenerate (a straight segment).
func (a Arc) IsLine() bool {
	return math.Abs(a.D) < 1e-9
}

// chordGeometry returns half chord length and the unit left normal.
func (a Arc) chordGeometry() (h float64, n Point) {
	c := a.P1.Sub(a.P0)
	l := c.Length()
	if l == 0 {
		return 0, Point{}
	}
	return l / 2, c.Perpendicular().Mul(1 / l)
}

// Center returns the circle center. Only valid when !IsLine().
func (a Arc) Center() Point {
	h, n := a.chordGeometry()
	mid := a.P0.Lerp(a.P1, 0.5)
	return mid.Sub(n.Mul(h * (1 - a.D*a.D) / (2 * a.D)))
}

// Radius returns the circle radius. Only valid when !IsLine().
func (a Arc) Radius() float64 {
	h, _ := a.chordGeometry()
	return math.Abs(h * (1 + a.D*a.D) / (2 * a.D))
}

// Apex returns the arc's midpoint.
func (a Arc) Apex() Point {
	h, n := a.chordGeometry()
	return a.P0.Lerp(a.P1, 0.5).Add(n.Mul(a.D * h))
}

// Distance returns the unsigned distance from p to the arc.
func (a Arc) Distance(p Point) float64 {
	if a.IsLine() {
		return segmentDistance(a.P0, a.P1, p)
	}

	c := a.Center()
	if a.inWedge(p, c) {
		return math.Abs(p.Sub(c).Length() - a.Radius())
	}
	return math.Min(p.Sub(a.P0).Length(), p.Sub(a.P1).Length())
}

// inWedge reports whether p lies within the angular span of the arc as seen
// from its center c.
func (a Arc) inWedge(p, c Point) bool {
	sweep := -4 * math.Atan(a.D)
	a0 := math.Atan2(a.P0.Y-c.Y, a.P0.X-c.X)
	ap := math.Atan2(p.Y-c.Y, p.X-c.X)

	rel := ap - a0
	if sweep < 0 {
		rel = -rel
	}
	rel = math.Mod(rel, 2*math.Pi)
	if rel < 0 {
		rel += 2 * math.Pi
	}
	return rel <= math.Abs(sweep)
}

// windingAngle returns the signed angle the arc subtends as seen from p.
// The contribution is exact: the chord angle plus a full turn when p lies in
// the circular segment between the chord and the arc.
func (a Arc) windingAngle(p Point) float64 {
	v0 := a.P0.Sub(p)
	v1 := a.P1.Sub(p)
	ang := math.Atan2(v0.Cross(v1), v0.Dot(v1))
	if a.IsLine() {
		return ang
	}

	c := a.Center()
	if p.Sub(c).Length() >= a.Radius() {
		return ang
	}
	side := a.P1.Sub(a.P0).Perpendicular().Dot(p.Sub(a.P0))
	if side*a.D <= 0 {
		return ang
	}
	if a.D > 0 {
		return ang - 2*math.Pi
	}
	return ang + 2*math.Pi
}

// segmentDistance returns the distance from p to segment ab.
func segmentDistance(a, b, p Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Length()
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Lerp(b, t)).Length()
}

// arcThrough returns the arc from p0 to p1 passing through m.
func arcThrough(p0, m, p1 Point) Arc {
	c := p1.Sub(p0)
	side := c.Cross(m.Sub(p0))
	if math.Abs(side) < 1e-12*math.Max(1, c.Dot(c)) {
		return Arc{P0: p0, P1: p1}
	}

	// Inscribed angle at m: the arc's sweep is 2*(pi - alpha), so
	// |D| = tan((pi - alpha)/2) = cot(alpha/2).
	u := p0.Sub(m)
	v := p1.Sub(m)
	alpha := math.Atan2(math.Abs(u.Cross(v)), u.Dot(v))
	d := 1 / math.Tan(alpha/2)

	// side > 0 puts m on the left normal's side of the chord.
	if side < 0 {
		d = -d
	}
	return Arc{P0: p0, P1: p1, D: d}
}
