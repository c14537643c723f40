package common

import (
	"encoding/binary"
	"math"
)

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

// PutFloat32s writes the values little-endian into buf starting at offset.
//
// Parameters:
//   - buf: destination buffer, must hold offset+4*len(values) bytes
//   - offset: byte offset of the first value
//   - values: the floats to write
//
// Returns:
//   - int: the offset just past the last written value
func PutFloat32s(buf []byte, offset int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}
	return offset
}

// Float32sToBytes serializes values little-endian into a new byte slice.
func Float32sToBytes(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	PutFloat32s(buf, 0, values...)
	return buf
}
