// Package camera implements the pinhole camera model used to seed primary
// rays: a field of view converted to a focal distance, and a 3x4 affine
// transform mapping camera space into world space.
package camera

import (
	"math"

	"github.com/achilleasa/rtaccel/types"
)

// Pinhole is a simple pinhole camera. ResX/ResY are the base resolution;
// SupersampleFactor multiplies both axes before pixel indices are resolved,
// so a value of 2 renders a 2x-oversampled image for later downsampling.
type Pinhole struct {
	FovDistance       float32
	ResX, ResY        uint32
	SupersampleFactor uint32
	ViewTransform     types.Matrix3x4
}

// New builds a Pinhole camera from a vertical field of view (radians) and a
// target resolution, with its view transform set to the identity (looking
// down +z from the origin). Use SetView to place it.
func New(fovRadians float32, resX, resY, supersampleFactor uint32) *Pinhole {
	return &Pinhole{
		FovDistance:       float32(float64(resY) / (2 * math.Tan(float64(fovRadians)/2))),
		ResX:              resX,
		ResY:              resY,
		SupersampleFactor: supersampleFactor,
		ViewTransform:     types.Identity3x4(),
	}
}

// SetView places the camera at pos, oriented by q.
func (p *Pinhole) SetView(q types.Quat, pos types.Vec3) {
	p.ViewTransform = types.SetOrientationAndPos(q, pos)
}

// Width and Height return the supersampled pixel grid dimensions that pixel
// indices passed to PrimaryRay are addressed against.
func (p *Pinhole) Width() uint32  { return p.ResX * p.SupersampleFactor }
func (p *Pinhole) Height() uint32 { return p.ResY * p.SupersampleFactor }

// PixelCount is the total number of addressable pixel indices.
func (p *Pinhole) PixelCount() uint32 { return p.Width() * p.Height() }

// PrimaryRay computes the origin and normalized direction of the ray
// through pixel index idx, addressed row-major over the supersampled grid.
func (p *Pinhole) PrimaryRay(idx uint32) (origin, dir types.Vec3) {
	w := p.Width()
	h := p.Height()
	px := float32(idx % w)
	py := float32(idx / w)

	local := types.Vec3{
		-(px - float32(w)/2),
		py - float32(h)/2,
		p.FovDistance,
	}

	origin = types.TransformVector(p.ViewTransform, types.Vec3{0, 0, 0})
	dir = types.TransformVector(p.ViewTransform, local).Normalize()
	return origin, dir
}
