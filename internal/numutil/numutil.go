// Package numutil collects small numeric helpers shared by the framing
// and stage packages. Adapted from dsp/core's buffer-reuse and
// scalar-helper pattern, generalized from mono float64 blocks to the
// float32 sample domain used here.
package numutil

import "math"

const defaultEpsilon = 1e-12

// EnsureLen32 returns a slice with the requested length, reusing buf's
// capacity when possible.
func EnsureLen32(buf []float32, n int) []float32 {
	if n <= 0 {
		return buf[:0]
	}

	if cap(buf) >= n {
		return buf[:n]
	}

	return make([]float32, n)
}

// Zero32 sets every element of buf to 0.
func Zero32(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// NearlyEqualRel reports whether a and b agree within a relative
// tolerance eps (falling back to an absolute comparison near zero).
func NearlyEqualRel(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}
