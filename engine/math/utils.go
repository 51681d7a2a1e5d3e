package math

import (
	m "math"

	"golang.org/x/exp/constraints"
)

const (
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

/**
 * Note that these are here in order to prevent float64 conversions
 * at every call site.
 */
func Sin(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func Cos(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func Abs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

// NearlyEqual compares two floats within tolerance.
func NearlyEqual(a, b, tolerance float32) bool {
	return Abs(a-b) <= tolerance
}
