// Package filter implements the blur kernels used for shadow and glow tiles.
//
// Two families are provided:
//   - analytic box shadows: the exact coverage of a Gaussian-blurred
//     rectangle, evaluated with an error-function approximation;
//   - discrete Gaussian blur of distance-field tiles, operating on the
//     thresholded coverage rather than the raw distance.
//
// All functions are pure and safe for concurrent use; the kernel cache is
// guarded by a read/write mutex.
package filter
