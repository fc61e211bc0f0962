// Package util holds utility functions that would not hurt the simplicity
// of Go if they would be in the builtins/stdlib.
package util

// Min returns the minimum of a and b.
func Min(a, b int) int {
	if a < b {
		return a
	}

	return b
}

// Min64 returns the minimum of a and b.
func Min64(a, b int64) int64 {
	if a < b {
		return a
	}

	return b
}

// Max64 returns the maximum of a and b.
func Max64(a, b int64) int64 {
	if a < b {
		return b
	}

	return a
}

// Clamp64 clamps x into [lo, hi]
func Clamp64(x, lo, hi int64) int64 {
	return Max64(lo, Min64(x, hi))
}

// SaturatingAdd64 returns a+b for non-negative inputs,
// but sticks to the largest int64 instead of overflowing.
func SaturatingAdd64(a, b int64) int64 {
	if sum := a + b; sum >= a {
		return sum
	}

	return int64(^uint64(0) >> 1)
}

// CeilDiv64 divides a by b and rounds up.
// b must be positive, a must not be negative.
func CeilDiv64(a, b int64) int64 {
	if a == 0 {
		return 0
	}

	return (a-1)/b + 1
}
