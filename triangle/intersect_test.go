package triangle

import (
	"math"
	"testing"

	"github.com/achilleasa/rtaccel/types"
)

func TestIntersectHit(t *testing.T) {
	v0 := types.XYZ(0, 0, 5)
	v1 := types.XYZ(1, 0, 5)
	v2 := types.XYZ(0, 1, 5)

	c := Intersect(v0, v1, v2, types.XYZ(0.2, 0.2, 0), types.XYZ(0, 0, 1))
	if c.T <= 0 {
		t.Fatalf("expected a hit, got t=%v", c.T)
	}
	if math.Abs(float64(c.T-5)) > 1e-4 {
		t.Fatalf("expected t≈5, got %v", c.T)
	}
}

func TestIntersectMiss(t *testing.T) {
	v0 := types.XYZ(0, 0, 5)
	v1 := types.XYZ(1, 0, 5)
	v2 := types.XYZ(0, 1, 5)

	c := Intersect(v0, v1, v2, types.XYZ(5, 5, 0), types.XYZ(0, 0, 1))
	if c.T != 0 {
		t.Fatalf("expected a miss, got t=%v", c.T)
	}
}

func TestIntersectParallelRay(t *testing.T) {
	v0 := types.XYZ(0, 0, 0)
	v1 := types.XYZ(1, 0, 0)
	v2 := types.XYZ(0, 1, 0)

	c := Intersect(v0, v1, v2, types.XYZ(0, 0, 1), types.XYZ(1, 0, 0))
	if c.T != 0 {
		t.Fatalf("expected a miss for a ray parallel to the triangle plane, got t=%v", c.T)
	}
}
