package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch signals a vector whose length disagrees with the
// collection's fixed dimensionality.
var ErrDimensionMismatch = errors.New("vector: dimension mismatch")

// CheckDimensions verifies a vector against the collection's configured
// dimensionality. A want of 0 means any dimensionality is accepted.
func CheckDimensions(vec []float32, want int) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%w: got %d components, want %d", ErrDimensionMismatch, len(vec), want)
	}
	return nil
}

// Encode converts a float32 vector into the BLOB representation stored in the
// embedding column: a little-endian sequence of IEEE 754 float32 values
// without a length prefix; the length is derived from the BLOB size on
// decode. When normalize is true the vector is unit-scaled first; a
// zero-magnitude vector passes through unchanged.
func Encode(vec []float32, normalize bool) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	if normalize {
		vec = Normalize(vec)
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b, nil
}

// Decode decodes a BLOB produced by Encode back into a slice of float32
// values.
func Decode(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector: invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	n := len(b) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
