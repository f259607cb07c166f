package vector

import (
	"fmt"
	"math"

	"github.com/viant/vec/search"
)

// Metric enumerates the supported distance metrics. The raw distance is
// smaller-is-better for every metric; DOT is negated so that it orders the
// same way as the others.
type Metric string

const (
	Cosine           Metric = "COSINE"
	Dot              Metric = "DOT"
	Euclidean        Metric = "EUCLIDEAN"
	EuclideanSquared Metric = "EUCLIDEAN_SQUARED"
	Manhattan        Metric = "MANHATTAN"
)

// ParseMetric resolves a metric name, accepting the canonical upper-case form
// only.
func ParseMetric(name string) (Metric, error) {
	m := Metric(name)
	if !m.Valid() {
		return "", fmt.Errorf("vector: unknown distance metric %q", name)
	}
	return m, nil
}

// Valid reports whether m is one of the supported metrics.
func (m Metric) Valid() bool {
	switch m {
	case Cosine, Dot, Euclidean, EuclideanSquared, Manhattan:
		return true
	}
	return false
}

func (m Metric) String() string { return string(m) }

// Distance computes the raw metric distance between two equal-length vectors.
//
//	COSINE            1 - cosine similarity
//	DOT               negated dot product
//	EUCLIDEAN         L2 distance
//	EUCLIDEAN_SQUARED squared L2 distance
//	MANHATTAN         L1 distance
func (m Metric) Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: got %d components, want %d", ErrDimensionMismatch, len(b), len(a))
	}
	switch m {
	case Cosine:
		ma := search.Float32s(a).Magnitude()
		mb := search.Float32s(b).Magnitude()
		if ma == 0 || mb == 0 {
			// Cosine is undefined against a zero vector; treat as orthogonal.
			return 1, nil
		}
		return float64(search.Float32s(a).CosineDistanceWithMagnitudesNeon(b, ma, mb)), nil
	case Dot:
		return -dot(a, b), nil
	case Euclidean:
		return float64(search.Float32s(a).EuclideanDistance(b)), nil
	case EuclideanSquared:
		return squaredL2(a, b), nil
	case Manhattan:
		var sum float64
		for i := range a {
			sum += math.Abs(float64(a[i]) - float64(b[i]))
		}
		return sum, nil
	default:
		return 0, fmt.Errorf("vector: unknown distance metric %q", string(m))
	}
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float64 {
	return float64(search.Float32s(v).Magnitude())
}

// Normalize returns a unit-scaled copy of v. A zero-magnitude vector is
// returned unchanged (never divides by zero); normalizing an already-unit
// vector is a no-op up to floating error.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	m := search.Float32s(out).Magnitude()
	if m > 0 {
		inv := 1 / m
		for i := range out {
			out[i] *= inv
		}
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func squaredL2(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return s
}
