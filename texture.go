package glyphatlas

import (
	"github.com/gogpu/gputypes"
)

// TextureDescriptor describes the GPU texture a frontend allocates for the
// atlas. Every UpdateFunc block is a CopyDst write into it.
type TextureDescriptor struct {
	Label         string
	Size          gputypes.Extent3D
	MipLevelCount uint32
	SampleCount   uint32
	Dimension     gputypes.TextureDimension
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
}

// BytesPerPixel returns the pixel size of the descriptor's format.
func (d TextureDescriptor) BytesPerPixel() int {
	if d.Format == gputypes.TextureFormatR8Unorm {
		return 1
	}
	return 4
}

// atlasTexture describes a width x height atlas in mode m. Distance fields
// use a single channel; bitmaps are RGBA.
func atlasTexture(m Mode, width, height int) TextureDescriptor {
	format := gputypes.TextureFormatRGBA8Unorm
	if m.IsSDF() {
		format = gputypes.TextureFormatR8Unorm
	}
	return TextureDescriptor{
		Label: "glyphatlas-" + m.String(),
		Size: gputypes.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}
