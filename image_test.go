package glyphatlas

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFontImageBlit(t *testing.T) {
	img := NewFontImage(4, 3, 1)
	src := []byte{
		1, 2, 3,
		4, 5, 6,
	}
	img.Blit(2, 1, src, 3, 3, 2)

	want := []byte{
		0, 0, 0, 0,
		0, 0, 1, 2,
		0, 0, 4, 5,
	}
	if diff := cmp.Diff(want, img.Buffer); diff != "" {
		t.Errorf("Buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestFontImageBlitClipsNegative(t *testing.T) {
	img := NewFontImage(2, 2, 1)
	src := []byte{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	img.Blit(-1, -1, src, 3, 3, 3)

	want := []byte{5, 6, 8, 9}
	if diff := cmp.Diff(want, img.Buffer); diff != "" {
		t.Errorf("Buffer mismatch (-want +got):\n%s", diff)
	}
}

func TestFontImageRGBA(t *testing.T) {
	img := NewFontImage(2, 1, 4)
	img.Blit(1, 0, []byte{10, 20, 30, 40}, 4, 1, 1)

	if got := img.At(1, 0); got != (color.NRGBA{R: 10, G: 20, B: 30, A: 40}) {
		t.Errorf("At(1, 0) = %v", got)
	}
	if got := img.At(5, 5); got != color.Transparent {
		t.Errorf("At(out of range) = %v, want transparent", got)
	}
	if g := img.Gray(); g.Pix[1] != 10 || g.Pix[0] != 0 {
		t.Errorf("Gray = %v, want first channel", g.Pix)
	}
	if img.Stride() != 8 {
		t.Errorf("Stride = %d, want 8", img.Stride())
	}
}

func TestNewFontImagePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewFontImage(-1, 1, 1) did not panic")
		}
	}()
	NewFontImage(-1, 1, 1)
}

func TestWrapFontImage(t *testing.T) {
	img := wrapFontImage([]byte{1, 2, 3, 4}, 2, 2)
	if img.Channels != 1 || img.At(1, 1) != (color.Gray{Y: 4}) {
		t.Errorf("wrapped image = %+v", img)
	}
}
