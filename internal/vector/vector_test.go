package vector

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        FaceVector
		b        FaceVector
		expected float64
		delta    float64
	}{
		{"identical", FaceVector{1, 2, 3}, FaceVector{1, 2, 3}, 0, 0.0001},
		{"unit apart", FaceVector{0, 0, 0}, FaceVector{1, 0, 0}, 1, 0.0001},
		{"pythagorean", FaceVector{0, 0}, FaceVector{3, 4}, 5, 0.0001},
		{"negative components", FaceVector{-1, -1}, FaceVector{1, 1}, 2 * math.Sqrt2, 0.0001},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := EuclideanDistance(tc.a, tc.b)
			if math.Abs(got-tc.expected) > tc.delta {
				t.Errorf("EuclideanDistance(%v, %v) = %f; want %f", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestEuclideanDistanceSymmetric(t *testing.T) {
	a := FaceVector{0.1, 0.5, 0.9, 0.2}
	b := FaceVector{0.4, 0.3, 0.8, 0.1}

	if d1, d2 := EuclideanDistance(a, b), EuclideanDistance(b, a); d1 != d2 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestMeanOfIdenticalVectors(t *testing.T) {
	base := FaceVector{0.25, 0.5, 0.75, 1.0}
	samples := []FaceVector{base, base, base, base, base, base, base}

	avg, err := Mean(samples)
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}

	for i := range base {
		if avg[i] != base[i] {
			t.Errorf("component %d: got %f, want %f", i, avg[i], base[i])
		}
	}
}

func TestMeanOrderInvariant(t *testing.T) {
	a := FaceVector{1, 2, 3}
	b := FaceVector{4, 5, 6}
	c := FaceVector{7, 8, 9}

	forward, err := Mean([]FaceVector{a, b, c})
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}
	backward, err := Mean([]FaceVector{c, a, b})
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}

	for i := range forward {
		if math.Abs(float64(forward[i]-backward[i])) > 1e-6 {
			t.Errorf("component %d differs by order: %f vs %f", i, forward[i], backward[i])
		}
	}
}

func TestMeanErrors(t *testing.T) {
	if _, err := Mean(nil); err == nil {
		t.Error("Mean of zero vectors should fail")
	}
	if _, err := Mean([]FaceVector{{1, 2}, {1, 2, 3}}); err == nil {
		t.Error("Mean of mixed dimensions should fail")
	}
}

func TestValidate(t *testing.T) {
	if err := make(FaceVector, Dim).Validate(); err != nil {
		t.Errorf("full-size vector should validate: %v", err)
	}
	if err := make(FaceVector, Dim-1).Validate(); err == nil {
		t.Error("short vector should not validate")
	}
}

func TestCloneIndependence(t *testing.T) {
	orig := FaceVector{1, 2, 3}
	cp := orig.Clone()
	cp[0] = 99

	if orig[0] != 1 {
		t.Error("Clone should not share backing storage")
	}
}
