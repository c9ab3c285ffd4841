package stabilization

import "math"

func absInt32(a int32) int32 {
	if a < 0 {
		return -a
	}
	return a
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// isqrt returns integer square root, negative input gives 0
func isqrt(a int32) int32 {
	if a <= 0 {
		return 0
	}
	return int32(math.Sqrt(float64(a)))
}

// scaleThreshold returns value*factor/divisor clamped at zero.
// Thresholds are unsigned quantities, so negative geometry never produces a negative threshold.
func scaleThreshold(value int32, factor uint32, divisor int64) int64 {
	scaled := int64(value) * int64(factor) / divisor
	if scaled < 0 {
		return 0
	}
	return scaled
}

func absInt64(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
