package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if norm := L2Norm(v); math.Abs(norm-1) > 1e-6 {
		t.Errorf("norm after normalization = %f, want 1", norm)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("direction changed: %v", v)
	}
}

func TestNormalizeL2_zeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	NormalizeL2(v)
	for i, x := range v {
		if x != 0 {
			t.Errorf("v[%d] = %f, want 0", i, x)
		}
	}
}
