package camera

import (
	"math"
	"testing"

	"github.com/achilleasa/rtaccel/types"
)

func almostEqual(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-4
}

func vecAlmostEqual(a, b types.Vec3) bool {
	return almostEqual(a[0], b[0]) && almostEqual(a[1], b[1]) && almostEqual(a[2], b[2])
}

func TestPrimaryRayIdentityView(t *testing.T) {
	cam := New(float32(math.Pi/2), 2, 2, 1)

	origin, dir := cam.PrimaryRay(0)
	if !vecAlmostEqual(origin, types.Vec3{0, 0, 0}) {
		t.Fatalf("origin = %v, want zero vector", origin)
	}

	want := types.Vec3{
		-(0 - float32(cam.Width())/2),
		0 - float32(cam.Height())/2,
		cam.FovDistance,
	}.Normalize()
	if !vecAlmostEqual(dir, want) {
		t.Fatalf("dir = %v, want %v", dir, want)
	}
}

// TestPrimaryRaySetViewAppliesTranslationToDirection places the camera off
// the origin with an identity orientation and checks that the primary ray's
// direction is computed from the same full affine transform as its origin,
// i.e. the translation applied to origin is also folded into the
// unnormalized direction before it is normalized.
func TestPrimaryRaySetViewAppliesTranslationToDirection(t *testing.T) {
	cam := New(float32(math.Pi/2), 2, 2, 1)
	pos := types.Vec3{10, -5, 3}
	cam.SetView(types.QuatIdent(), pos)

	origin, dir := cam.PrimaryRay(0)
	if !vecAlmostEqual(origin, pos) {
		t.Fatalf("origin = %v, want %v", origin, pos)
	}

	local := types.Vec3{
		-(0 - float32(cam.Width())/2),
		0 - float32(cam.Height())/2,
		cam.FovDistance,
	}
	want := local.Add(pos).Normalize()
	if !vecAlmostEqual(dir, want) {
		t.Fatalf("dir = %v, want %v", dir, want)
	}
}

func TestPixelDimensionsScaleWithSupersampleFactor(t *testing.T) {
	cam := New(float32(math.Pi/2), 4, 3, 2)
	if got, want := cam.Width(), uint32(8); got != want {
		t.Fatalf("Width() = %d, want %d", got, want)
	}
	if got, want := cam.Height(), uint32(6); got != want {
		t.Fatalf("Height() = %d, want %d", got, want)
	}
	if got, want := cam.PixelCount(), uint32(48); got != want {
		t.Fatalf("PixelCount() = %d, want %d", got, want)
	}
}
