package filter

import (
	"math"
	"testing"
)

func TestErf_OddSymmetry(t *testing.T) {
	for _, x := range []float64{0, 0.1, 0.5, 1, 1.7, 2.5, 4, 10} {
		if got, want := Erf(-x), -Erf(x); got != want {
			t.Errorf("Erf(-%v) = %v, want %v", x, got, want)
		}
	}
}

func TestErf_Accuracy(t *testing.T) {
	for x := -3.0; x <= 3.0; x += 0.25 {
		if d := math.Abs(Erf(x) - math.Erf(x)); d > 5e-4 {
			t.Errorf("Erf(%v) error %v exceeds 5e-4", x, d)
		}
	}
}

func TestColorFromRect_ZeroArea(t *testing.T) {
	for _, p := range [][2]float64{{0, 0}, {3, -2}, {10, 10}} {
		if got := ColorFromRect(p[0], p[1], p[0], p[1], 2); got != 0 {
			t.Errorf("ColorFromRect(p, p) at %v = %v, want 0", p, got)
		}
	}
}

func TestColorFromRect_CenterOfSquare(t *testing.T) {
	// 10x10 box, radius 4 (sigma 2), sampled at the exact center.
	const sigma = 2.0
	got := ColorFromRect(5, 5, -5, -5, sigma)

	e := math.Erf(5 / (sigma * math.Sqrt2))
	want := (2 * e) * (2 * e) / 4
	if math.Abs(got-want) > 2e-3 {
		t.Errorf("center alpha = %v, want %v", got, want)
	}
	if got < 0.95 || got > 1 {
		t.Errorf("center alpha = %v, want close to opaque", got)
	}
}

func TestColorFromRect_EdgeIsHalf(t *testing.T) {
	// On the edge of a very wide box the coverage is half along that axis.
	got := ColorFromRect(0, 500, -1000, -500, 2)
	if math.Abs(got-0.5) > 1e-3 {
		t.Errorf("edge alpha = %v, want 0.5", got)
	}
}

func TestComputeBoxLayout(t *testing.T) {
	l := ComputeBoxLayout(Rect{MaxX: 31, MaxY: 31}, 32, 4)

	if l.Width != 40 || l.Height != 40 {
		t.Errorf("size = %dx%d, want 40x40", l.Width, l.Height)
	}
	want := Rect{MinX: 4.5, MinY: 4.5, MaxX: 35.5, MaxY: 35.5}
	if l.AtlasBounds != want {
		t.Errorf("AtlasBounds = %+v, want %+v", l.AtlasBounds, want)
	}
	if l.Sigma != 2 {
		t.Errorf("Sigma = %v, want 2", l.Sigma)
	}
}

func TestComputeBoxLayout_Tall(t *testing.T) {
	l := ComputeBoxLayout(Rect{MaxX: 15.5, MaxY: 31}, 32, 2)

	if l.Width != 21 || l.Height != 36 {
		t.Errorf("size = %dx%d, want 21x36", l.Width, l.Height)
	}
	if l.AtlasBounds.MaxX != 18 || l.AtlasBounds.MaxY != 33.5 {
		t.Errorf("AtlasBounds max = (%v,%v), want (18,33.5)", l.AtlasBounds.MaxX, l.AtlasBounds.MaxY)
	}
}

func TestBlurBox(t *testing.T) {
	l := ComputeBoxLayout(Rect{MaxX: 31, MaxY: 31}, 32, 4)
	tile := BlurBox(l)

	if len(tile) != l.Width*l.Height {
		t.Fatalf("len = %d, want %d", len(tile), l.Width*l.Height)
	}

	center := tile[20*l.Width+20]
	corner := tile[0]
	if center < 250 {
		t.Errorf("center = %d, want near 255", center)
	}
	if corner > 5 {
		t.Errorf("corner = %d, want near 0", corner)
	}

	// Symmetric box: mirror pixels match.
	for j := 0; j < l.Height; j++ {
		for i := 0; i < l.Width; i++ {
			a := tile[j*l.Width+i]
			b := tile[j*l.Width+(l.Width-1-i)]
			if d := int(a) - int(b); d > 1 || d < -1 {
				t.Fatalf("asymmetry at (%d,%d): %d vs %d", i, j, a, b)
			}
		}
	}
}

func TestGaussianKernel2D_Normalized(t *testing.T) {
	for _, r := range []int{1, 2, 4, 8} {
		k := GaussianKernel2D(r)
		if len(k) != (2*r+1)*(2*r+1) {
			t.Fatalf("radius %d: len = %d", r, len(k))
		}
		var sum float64
		for _, v := range k {
			sum += float64(v)
		}
		if math.Abs(sum-1) > 1e-4 {
			t.Errorf("radius %d: sum = %v, want 1", r, sum)
		}
	}

	if k := GaussianKernel2D(0); len(k) != 1 || k[0] != 1 {
		t.Errorf("GaussianKernel2D(0) = %v, want [1]", k)
	}
}

func TestCachedGaussianKernel2D(t *testing.T) {
	a := CachedGaussianKernel2D(3)
	b := CachedGaussianKernel2D(3)
	if &a[0] != &b[0] {
		t.Error("cached kernel should be shared")
	}
}

func TestGaussianBlur_Uniform(t *testing.T) {
	const w, h = 8, 8

	inside := make([]byte, w*h)
	for i := range inside {
		inside[i] = 255
	}
	outside := make([]byte, w*h)

	for _, tt := range []struct {
		name string
		in   []byte
		want byte
	}{
		{"inside", inside, 255},
		{"outside", outside, 0},
	} {
		out := GaussianBlur(tt.in, w, h, 3, 0)
		for i, v := range out {
			if v != tt.want {
				t.Fatalf("%s: out[%d] = %d, want %d", tt.name, i, v, tt.want)
			}
		}
	}
}

func TestGaussianBlur_WeightGrowsShadow(t *testing.T) {
	const w, h = 16, 1
	sdf := make([]byte, w*h)
	for i := range sdf {
		// Linear ramp across the edge at 0.5.
		sdf[i] = byte(i * 255 / (w - 1))
	}

	plain := GaussianBlur(sdf, w, h, 2, 0)
	heavy := GaussianBlur(sdf, w, h, 2, 5)

	var sp, sh int
	for i := range plain {
		sp += int(plain[i])
		sh += int(heavy[i])
	}
	if sh <= sp {
		t.Errorf("weighted coverage %d should exceed plain %d", sh, sp)
	}
}

func TestGaussianBlur_ShortInput(t *testing.T) {
	out := GaussianBlur([]byte{1, 2}, 4, 4, 2, 0)
	if len(out) != 16 {
		t.Fatalf("len = %d, want 16", len(out))
	}
	for _, v := range out {
		if v != 0 {
			t.Fatal("short input should produce an empty tile")
		}
	}
}

func TestToByte_Truncates(t *testing.T) {
	tests := []struct {
		in   float64
		want byte
	}{
		{-0.2, 0},
		{0, 0},
		{0.5, 127},
		{0.999, 254},
		{1, 255},
		{1.5, 255},
	}
	for _, tt := range tests {
		if got := toByte(tt.in); got != tt.want {
			t.Errorf("toByte(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
