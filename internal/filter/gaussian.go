package filter

import "sync"

// WeightScale converts a caller shadow weight into a threshold shift:
// a weight of 10 moves the coverage edge by one full distance unit.
const WeightScale = 10

// GaussianBlur blurs the thresholded coverage of a single channel SDF tile.
//
// Each sampled distance byte is first converted to a coverage value
// clamp(v/255 - (0.5 + w), -0.5, 0.5) + 0.5 with w = -weight/WeightScale, so
// a positive weight grows the shadow. The coverage is then convolved with a
// normalized (2*radius+1)² Gaussian kernel (sigma = radius/2), clamping at the
// tile edges. The result has the same dimensions as the input.
func GaussianBlur(sdf []byte, width, height, radius int, weight float64) []byte {
	out := make([]byte, width*height)
	if width <= 0 || height <= 0 || len(sdf) < width*height {
		return out
	}

	w := -weight / WeightScale
	threshold := 0.5 + w

	// Precompute coverage once per input pixel.
	coverage := getCoverageBuffer(width * height)
	defer putCoverageBuffer(coverage)
	for i, v := range sdf[:width*height] {
		c := float64(v)/255 - threshold
		if c < -0.5 {
			c = -0.5
		} else if c > 0.5 {
			c = 0.5
		}
		coverage[i] = float32(c + 0.5)
	}

	if radius <= 0 {
		for i, c := range coverage {
			out[i] = toByte(float64(c))
		}
		return out
	}

	kernel := CachedGaussianKernel2D(radius)
	size := radius*2 + 1

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc, sum float32
			for ky := 0; ky < size; ky++ {
				sy := clampInt(y+ky-radius, 0, height-1)
				rowOff := sy * width
				krow := kernel[ky*size : (ky+1)*size]
				for kx, k := range krow {
					sx := clampInt(x+kx-radius, 0, width-1)
					acc += coverage[rowOff+sx] * k
					sum += k
				}
			}
			if sum > 0 {
				acc /= sum
			}
			out[y*width+x] = toByte(float64(acc))
		}
	}

	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// floatBuffer wraps a slice for sync.Pool to avoid allocation warnings.
type floatBuffer struct {
	data []float32
}

// coveragePool holds scratch buffers sized for typical SDF tiles.
var coveragePool = sync.Pool{
	New: func() any {
		return &floatBuffer{data: make([]float32, 128*128)}
	},
}

// getCoverageBuffer returns a scratch buffer of exactly n elements.
// Every element is written before it is read.
func getCoverageBuffer(n int) []float32 {
	wrapper := coveragePool.Get().(*floatBuffer)
	if len(wrapper.data) < n {
		coveragePool.Put(wrapper)
		return make([]float32, n)
	}
	return wrapper.data[:n]
}

// putCoverageBuffer returns a scratch buffer to the pool.
func putCoverageBuffer(buf []float32) {
	if cap(buf) <= 1024*1024 {
		coveragePool.Put(&floatBuffer{data: buf[:cap(buf)]})
	}
}
