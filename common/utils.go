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

// RoundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two; an alignment of zero returns value unchanged.
//
// Parameters:
//   - alignment: the required alignment (must be a power of two)
//   - value: the value to align
//
// Returns:
//   - uint32: value rounded up to the next multiple of alignment
func RoundUpAlign(alignment, value uint32) uint32 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// Clone returns a copy of data that does not share memory with it. A nil slice stays nil.
//
// Parameters:
//   - data: the slice to copy
//
// Returns:
//   - []T: an independent copy of data
func Clone[T any](data []T) []T {
	if data == nil {
		return nil
	}
	out := make([]T, len(data))
	copy(out, data)
	return out
}
