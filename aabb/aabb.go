// Package aabb implements the axis-aligned bounding box primitives shared
// by the BVH and Two-Level Grid managers: construction, merge, ray-slab
// intersection, containment and the separating-axis triangle overlap test.
package aabb

import (
	"math"

	"github.com/achilleasa/rtaccel/types"
)

// nodeType tags stored in the w lane of Min.
const (
	TypeInternal = 0
	TypeLeaf     = 1
)

// Box is a pair of 4-wide bounds; the w lane of Min carries the BVH
// node-type tag when the box is embedded in a BVHNode.
type Box struct {
	Min types.Vec4
	Max types.Vec4
}

// Empty returns a box primed for a running Merge accumulation: min =
// +MaxFloat32, max = -MaxFloat32 per axis.
func Empty() Box {
	return Box{
		Min: types.Vec4{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32, 0},
		Max: types.Vec4{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32, 0},
	}
}

// epsilonInflate is the smallest positive float32 ("one ULP step away from
// zero"); an axis whose extent is below it is treated as degenerate.
var epsilonInflate = math.Nextafter32(0, 1)

// TriangleBounds computes the AABB of a triangle, inflating any axis that
// would otherwise be degenerate (zero-width) by moving each bound one ULP
// outward so downstream reciprocal-extent math never divides by zero.
func TriangleBounds(v0, v1, v2 types.Vec3) Box {
	min := types.MinVec3(types.MinVec3(v0, v1), v2)
	max := types.MaxVec3(types.MaxVec3(v0, v1), v2)

	for axis := 0; axis < 3; axis++ {
		if max[axis]-min[axis] < epsilonInflate {
			min[axis] = math.Nextafter32(min[axis], -math.MaxFloat32)
			max[axis] = math.Nextafter32(max[axis], math.MaxFloat32)
		}
	}

	return Box{Min: min.Vec4(0), Max: max.Vec4(0)}
}

// Merge returns the union of two boxes.
func Merge(a, b Box) Box {
	return Box{
		Min: types.XYZW(minf(a.Min[0], b.Min[0]), minf(a.Min[1], b.Min[1]), minf(a.Min[2], b.Min[2]), 0),
		Max: types.XYZW(maxf(a.Max[0], b.Max[0]), maxf(a.Max[1], b.Max[1]), maxf(a.Max[2], b.Max[2]), 0),
	}
}

// Merge3 returns the union of three boxes.
func Merge3(a, b, c Box) Box {
	return Merge(Merge(a, b), c)
}

// Intersect performs a branchless ray-slab test and returns the
// near-intersection distance, or 0 on a miss.
func Intersect(box Box, origin, dir types.Vec3) float32 {
	tNear, tFar := FindTRange(box, origin, dir)
	if tFar < tNear {
		return 0
	}
	return tNear
}

// FindTRange returns (tNear, tFar) for the ray-slab test; both are 0 on a
// miss. An axis with a zero direction component is a miss only when the
// origin lies outside that axis' slab; otherwise it does not limit the range.
func FindTRange(box Box, origin, dir types.Vec3) (float32, float32) {
	tMin := float32(-math.MaxFloat32)
	tMax := float32(math.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			if origin[axis] < box.Min[axis] || origin[axis] > box.Max[axis] {
				return 0, 0
			}
			continue
		}
		invDir := 1.0 / dir[axis]
		t0 := (box.Min[axis] - origin[axis]) * invDir
		t1 := (box.Max[axis] - origin[axis]) * invDir
		if invDir < 0 {
			t0, t1 = t1, t0
		}
		tMin = maxf(tMin, t0)
		tMax = minf(tMax, t1)
		if tMax < tMin {
			return 0, 0
		}
	}

	if tMax < 0 {
		return 0, 0
	}
	return maxf(tMin, 0), tMax
}

// IsPointInside reports whether point lies within box (inclusive).
func IsPointInside(box Box, point types.Vec3) bool {
	return containedInRange(point[0], box.Min[0], box.Max[0]) &&
		containedInRange(point[1], box.Min[1], box.Max[1]) &&
		containedInRange(point[2], box.Min[2], box.Max[2])
}

// Contains reports whether container fully contains contained.
func Contains(container, contained Box) bool {
	for axis := 0; axis < 3; axis++ {
		if contained.Min[axis] < container.Min[axis] || contained.Max[axis] > container.Max[axis] {
			return false
		}
	}
	return true
}

// Overlaps reports whether a and b share any volume.
func Overlaps(a, b Box) bool {
	xNoOverlap := minf(a.Max[0], b.Max[0]) < maxf(a.Min[0], b.Min[0])
	yNoOverlap := minf(a.Max[1], b.Max[1]) < maxf(a.Min[1], b.Min[1])
	zNoOverlap := minf(a.Max[2], b.Max[2]) < maxf(a.Min[2], b.Min[2])
	return !(xNoOverlap || yNoOverlap || zNoOverlap)
}

// Volume returns the box's enclosed volume.
func Volume(box Box) float32 {
	return (box.Max[0] - box.Min[0]) * (box.Max[1] - box.Min[1]) * (box.Max[2] - box.Min[2])
}

// Centroid returns the box's midpoint.
func Centroid(box Box) types.Vec3 {
	return types.XYZ(
		(box.Min[0]+box.Max[0])*0.5,
		(box.Min[1]+box.Max[1])*0.5,
		(box.Min[2]+box.Max[2])*0.5,
	)
}

func containedInRange(v, lo, hi float32) bool {
	return v >= lo && v <= hi
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
