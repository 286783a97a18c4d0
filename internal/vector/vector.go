// Package vector defines the fixed-length face descriptor and the
// arithmetic used on it throughout the system.
package vector

import (
	"fmt"
	"math"
)

// Dim is the fixed dimensionality of a face vector: a 64-bin intensity
// histogram concatenated with 8x8 grid cell means.
const Dim = 128

// FaceVector is a fixed-length numeric descriptor of a face image.
// Vectors are immutable once produced; callers must not modify them.
type FaceVector []float32

// Clone returns an independent copy of the vector.
func (v FaceVector) Clone() FaceVector {
	out := make(FaceVector, len(v))
	copy(out, v)
	return out
}

// Validate checks that the vector has the expected dimensionality.
func (v FaceVector) Validate() error {
	if len(v) != Dim {
		return fmt.Errorf("face vector has %d components, want %d", len(v), Dim)
	}
	return nil
}

// EuclideanDistance computes the L2 distance between two vectors.
// Lower is more similar; identical vectors yield 0.
func EuclideanDistance(a, b FaceVector) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Mean computes the elementwise arithmetic mean of the given vectors.
// All inputs must share the same dimensionality; the result is a fresh
// vector and the inputs are left untouched.
func Mean(vectors []FaceVector) (FaceVector, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cannot average zero vectors")
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("mixed vector dimensions: %d and %d", dim, len(v))
		}
		for i := range v {
			sums[i] += float64(v[i])
		}
	}

	out := make(FaceVector, dim)
	n := float64(len(vectors))
	for i := range sums {
		out[i] = float32(sums[i] / n)
	}
	return out, nil
}
