package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// SaturateInt16 rounds v half away from zero and saturates it to the int16
// range. The second result is false when saturation occurred. NaN maps to
// (0, false).
func SaturateInt16(v float64) (int16, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	r := math.Round(v)
	c := Clamp(r, math.MinInt16, math.MaxInt16)
	return int16(c), c == r
}
