package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AlignUp rounds n up to the next multiple of align. Align must be a power of two;
// passing zero returns n unchanged.
//
// Parameters:
//   - n: the value to round
//   - align: the power-of-two alignment
//
// Returns:
//   - T: the smallest multiple of align that is >= n
func AlignUp[T ~uint32 | ~uint64 | ~int](n, align T) T {
	if align == 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// Clamp limits v to the inclusive range [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - T: v limited to [lo, hi]
func Clamp[T ~int | ~int32 | ~uint32 | ~float32 | ~float64](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
