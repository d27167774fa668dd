package filter

import (
	"math"
)

// Rect is an axis-aligned rectangle in pixel or outline space.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the height of the rectangle.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Erf approximates the error function with a 4th-order rational polynomial
// (Abramowitz and Stegun 7.1.27). Maximum absolute error is 4.7e-4, inside
// the 5e-4 bound of that formula.
func Erf(x float64) float64 {
	s := 1.0
	if x < 0 {
		s = -1
		x = -x
	}
	denom := 1 + (0.278393+(0.230389+(0.000972+0.078108*x)*x)*x)*x
	denom *= denom
	return s * (1 - 1/(denom*denom))
}

// erfSigma returns erf(x / (sigma*sqrt(2))).
func erfSigma(x, sigma float64) float64 {
	return Erf(x / (sigma * math.Sqrt2))
}

// ColorFromRect returns the coverage of a Gaussian-blurred rectangle at a
// sample point. p0 and p1 are the vectors from the rectangle's min and max
// corners to the sample point.
func ColorFromRect(p0x, p0y, p1x, p1y, sigma float64) float64 {
	dx := erfSigma(p1x, sigma) - erfSigma(p0x, sigma)
	dy := erfSigma(p1y, sigma) - erfSigma(p0y, sigma)
	return dx * dy / 4
}

// BoxLayout is the pixel grid for an analytic box shadow.
type BoxLayout struct {
	// Width and Height are the tile dimensions in pixels.
	Width, Height int

	// AtlasBounds is the inset rectangle, in tile pixels, that the blurred
	// box occupies before falloff.
	AtlasBounds Rect

	// Radius is the blur radius in pixels; Sigma = Radius/2.
	Radius int
	Sigma  float64
}

// ComputeBoxLayout sizes a box shadow tile for bbox so that the longer side
// spans texSize-1 pixels and radius-dependent padding never clips the
// falloff.
func ComputeBoxLayout(bbox Rect, texSize, radius int) BoxLayout {
	bw, bh := bbox.Width(), bbox.Height()
	if texSize < 2 {
		texSize = 2
	}
	pxDist := max(bw, bh) / float64(texSize-1)
	if pxDist <= 0 {
		pxDist = 1
	}

	pad := float64(radius) + 0.5
	pw := int(math.Ceil(bw/pxDist)) + 2*radius + 1
	ph := int(math.Ceil(bh/pxDist)) + 2*radius + 1

	var maxX, maxY float64
	if bh > bw {
		maxX, maxY = bw/pxDist+pad, float64(ph)-pad
	} else {
		maxX, maxY = float64(pw)-pad, bh/pxDist+pad
	}

	return BoxLayout{
		Width:       pw,
		Height:      ph,
		AtlasBounds: Rect{MinX: pad, MinY: pad, MaxX: maxX, MaxY: maxY},
		Radius:      radius,
		Sigma:       float64(radius) / 2,
	}
}

// BlurBox renders the analytic box shadow described by l as a single
// channel coverage tile of l.Width x l.Height bytes.
func BlurBox(l BoxLayout) []byte {
	out := make([]byte, l.Width*l.Height)
	b := l.AtlasBounds

	for j := 0; j < l.Height; j++ {
		py := float64(j) + 0.5
		row := out[j*l.Width : (j+1)*l.Width]
		for i := range row {
			px := float64(i) + 0.5

			var a float64
			if l.Sigma > 0 {
				a = ColorFromRect(px-b.MinX, py-b.MinY, px-b.MaxX, py-b.MaxY, l.Sigma)
			} else if px >= b.MinX && px <= b.MaxX && py >= b.MinY && py <= b.MaxY {
				a = 1
			}
			row[i] = toByte(a)
		}
	}
	return out
}

// toByte maps a coverage in [0, 1] to a byte, truncating and clamping
// out-of-range values.
func toByte(a float64) byte {
	v := a * 255
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
