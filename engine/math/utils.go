package math

import "golang.org/x/exp/constraints"

// Clamp returns f limited to the range [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// NextIndex advances i around a ring of n slots.
func NextIndex[T constraints.Integer](i, n T) T {
	return (i + 1) % n
}
