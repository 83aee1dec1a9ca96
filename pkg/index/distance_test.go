package index

import (
	"math"
	"testing"
)

func TestL2Distance(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{3, 4, 0}
	if got := L2Distance(a, b); math.Abs(float64(got-5)) > 1e-5 {
		t.Fatalf("L2Distance = %v, want 5", got)
	}
}

func TestL2SquaredDistance(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}
	if got := L2SquaredDistance(a, b); got != 25 {
		t.Fatalf("L2SquaredDistance = %v, want 25", got)
	}
}

func TestCosineDistanceZeroNorm(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 0, 0}
	if got := CosineDistance(a, b); got != 1.0 {
		t.Fatalf("CosineDistance with zero norm = %v, want 1.0", got)
	}
}

func TestCosineDistanceIdentical(t *testing.T) {
	a := []float32{1, 2, 3}
	if got := CosineDistance(a, a); math.Abs(float64(got)) > 1e-5 {
		t.Fatalf("CosineDistance(a,a) = %v, want ~0", got)
	}
}

func TestDotDistance(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{3, 4}
	if got := DotDistance(a, b); got != -11 {
		t.Fatalf("DotDistance = %v, want -11", got)
	}
}
