package glyphatlas

import (
	"fmt"
	"image"
	"image/color"
)

// FontImage is a block of pixels destined for the atlas. Buffers are always
// zero-initialized, so pixels no glyph writes read as transparent.
type FontImage struct {
	// Buffer is Width*Height*Channels bytes, row-major.
	Buffer []byte

	Width, Height int

	// Channels is 1 for distance fields and 4 for RGBA bitmaps.
	Channels int
}

// NewFontImage allocates a zeroed image.
func NewFontImage(width, height, channels int) *FontImage {
	if width < 0 || height < 0 || channels <= 0 {
		panic(fmt.Sprintf("glyphatlas: invalid image %dx%dx%d", width, height, channels))
	}
	return &FontImage{
		Buffer:   make([]byte, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// wrapFontImage adopts buf as a single channel square tile.
func wrapFontImage(buf []byte, width, height int) *FontImage {
	if len(buf) != width*height {
		panic(fmt.Sprintf("glyphatlas: tile has %d bytes, want %d", len(buf), width*height))
	}
	return &FontImage{Buffer: buf, Width: width, Height: height, Channels: 1}
}

// Stride returns the byte length of one row.
func (img *FontImage) Stride() int { return img.Width * img.Channels }

// Blit copies a w x h region of src, whose rows are srcStride bytes apart,
// to (x, y). The region is clipped to the image.
func (img *FontImage) Blit(x, y int, src []byte, srcStride, w, h int) {
	if x < 0 {
		w += x
		src = src[-x*img.Channels:]
		x = 0
	}
	if y < 0 {
		h += y
		src = src[-y*srcStride:]
		y = 0
	}
	w = min(w, img.Width-x)
	h = min(h, img.Height-y)
	if w <= 0 || h <= 0 {
		return
	}
	n := w * img.Channels
	for row := 0; row < h; row++ {
		s := row * srcStride
		if s+n > len(src) {
			return
		}
		d := (y+row)*img.Stride() + x*img.Channels
		copy(img.Buffer[d:d+n], src[s:s+n])
	}
}

// Gray returns the image as an *image.Gray. Multi-channel images keep their
// first channel.
func (img *FontImage) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
	if img.Channels == 1 {
		copy(g.Pix, img.Buffer)
		return g
	}
	for i := range g.Pix {
		g.Pix[i] = img.Buffer[i*img.Channels]
	}
	return g
}

// At returns the pixel at (x, y) as a color. It implements part of
// image.Image for debugging and tests.
func (img *FontImage) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return color.Transparent
	}
	i := y*img.Stride() + x*img.Channels
	if img.Channels == 4 {
		p := img.Buffer[i : i+4]
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	return color.Gray{Y: img.Buffer[i]}
}
