package common

import "cmp"

// Coalesce returns the first non-zero value, or the zero value when every value is zero.
//
// Parameters:
//   - values: candidates in order of preference
//
// Returns:
//   - T: the first non-zero value
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Clamp limits v to [lo, hi]. When lo > hi the result is hi.
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
