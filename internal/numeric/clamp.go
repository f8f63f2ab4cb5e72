// Package numeric holds small generic numeric helpers shared across the
// econ and grid packages' bound-clamping code.
package numeric

import "golang.org/x/exp/constraints"

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampMin restricts v to be no less than lo.
func ClampMin[T constraints.Ordered](v, lo T) T {
	if v < lo {
		return lo
	}
	return v
}
