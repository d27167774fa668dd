package filter

import (
	"math"
	"sync"
)

// GaussianKernel2D generates a square (2*radius+1)² Gaussian kernel with
// sigma = radius/2, stored row-major. The kernel is normalized so all values
// sum to 1.0.
//
// For radius <= 0, returns a single-element kernel [1.0] (identity).
func GaussianKernel2D(radius int) []float32 {
	if radius <= 0 {
		return []float32{1.0}
	}

	size := radius*2 + 1
	kernel := make([]float32, size*size)

	sigma := float64(radius) / 2
	twoSigmaSq := 2 * sigma * sigma
	sum := float64(0)

	for j := 0; j < size; j++ {
		y := float64(j - radius)
		for i := 0; i < size; i++ {
			x := float64(i - radius)
			val := math.Exp(-(x*x + y*y) / twoSigmaSq)
			kernel[j*size+i] = float32(val)
			sum += val
		}
	}

	if sum > 0 {
		invSum := float32(1.0 / sum)
		for i := range kernel {
			kernel[i] *= invSum
		}
	}

	return kernel
}

// kernelCache caches computed kernels keyed by radius.
type kernelCache struct {
	mu     sync.RWMutex
	cache  map[int][]float32
	maxLen int
}

var defaultKernelCache = newKernelCache(32)

func newKernelCache(maxLen int) *kernelCache {
	return &kernelCache{
		cache:  make(map[int][]float32),
		maxLen: maxLen,
	}
}

// get retrieves a kernel from cache or generates and caches it.
func (c *kernelCache) get(radius int) []float32 {
	c.mu.RLock()
	if kernel, ok := c.cache[radius]; ok {
		c.mu.RUnlock()
		return kernel
	}
	c.mu.RUnlock()

	kernel := GaussianKernel2D(radius)

	c.mu.Lock()
	if len(c.cache) >= c.maxLen {
		// Drop half the entries; radii are few in practice.
		count := 0
		for k := range c.cache {
			delete(c.cache, k)
			count++
			if count >= c.maxLen/2 {
				break
			}
		}
	}
	c.cache[radius] = kernel
	c.mu.Unlock()

	return kernel
}

// CachedGaussianKernel2D returns a shared kernel for the radius.
// Callers must not modify the returned slice.
func CachedGaussianKernel2D(radius int) []float32 {
	return defaultKernelCache.get(radius)
}
