// Package grid builds a two-level uniform grid over a scene's triangles —
// a coarse top-level grid whose occupied cells each own an independently
// sized leaf grid — and traverses it with a nested 3-D DDA to generate
// contacts.
package grid

import (
	"math"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/types"
)

// UndefinedIndex is the null/sentinel index used for empty ranges and pair
// padding, matching the convention used by the BVH manager.
const UndefinedIndex = ^uint32(0)

// DefaultTopDensity and DefaultLeafDensity are the ρ_t/ρ_l constants the
// resolution formulas are tuned against; each grid gets roughly this many
// cells per primitive it holds.
const (
	DefaultTopDensity  = 2.0
	DefaultLeafDensity = 2.0
)

// maxAxisResolution bounds a single axis' cell count so a degenerate scene
// (near-zero volume, or a huge primitive count) cannot allocate an
// unbounded grid.
const maxAxisResolution = 128

// GridData describes the top-level grid: its resolution, per-axis cell
// size, the leaf density used to size each cell's inner grid, and the
// scene box it partitions.
type GridData struct {
	Res         [3]uint32
	Step        types.Vec3
	LeafDensity float32
	Box         aabb.Box
}

// TopLevelCell is one top-level cell: its leaf grid's resolution (zero on
// every axis if the cell holds no primitives, at least 1 per axis
// otherwise) and the index of its first leaf in the global leaf-range array.
type TopLevelCell struct {
	Res          [3]uint32
	FirstLeafIdx uint32
}

func (c TopLevelCell) leafCount() uint32 {
	return c.Res[0] * c.Res[1] * c.Res[2]
}

// LeafRange is a [Begin,End) slice into the leaf-pair array; UndefinedIndex
// on both fields marks an empty leaf.
type LeafRange struct {
	Begin, End uint32
}

func extent(box aabb.Box) types.Vec3 {
	return types.Vec3{box.Max[0] - box.Min[0], box.Max[1] - box.Min[1], box.Max[2] - box.Min[2]}
}

// computeResolution applies R_a = floor(D_a * (density*primCount/volume)^(1/3))
// to every axis, clamped to [1, maxAxisResolution].
func computeResolution(box aabb.Box, primCount int, density float32) [3]uint32 {
	d := extent(box)
	volume := float64(d[0]) * float64(d[1]) * float64(d[2])
	if volume <= 0 || primCount == 0 {
		return [3]uint32{1, 1, 1}
	}
	factor := math.Cbrt(float64(density) * float64(primCount) / volume)

	var res [3]uint32
	for axis := 0; axis < 3; axis++ {
		r := int(math.Floor(float64(d[axis]) * factor))
		if r < 1 {
			r = 1
		}
		if r > maxAxisResolution {
			r = maxAxisResolution
		}
		res[axis] = uint32(r)
	}
	return res
}

// newGridData builds the top-level GridData for a scene box holding
// primCount primitives.
func newGridData(box aabb.Box, primCount int) GridData {
	res := computeResolution(box, primCount, DefaultTopDensity)
	d := extent(box)
	step := types.Vec3{d[0] / float32(res[0]), d[1] / float32(res[1]), d[2] / float32(res[2])}
	return GridData{Res: res, Step: step, LeafDensity: DefaultLeafDensity, Box: box}
}

// cellCoordRange converts a world-space box to inclusive [min,max] cell
// coordinates within a grid of the given origin/step/resolution, clamped to
// stay within bounds.
func cellCoordRange(box aabb.Box, origin types.Vec3, step types.Vec3, res [3]uint32) (min, max [3]int32) {
	for axis := 0; axis < 3; axis++ {
		lo := int32(math.Floor(float64((box.Min[axis] - origin[axis]) / step[axis])))
		hi := int32(math.Floor(float64((box.Max[axis] - origin[axis]) / step[axis])))
		if lo < 0 {
			lo = 0
		}
		if hi < 0 {
			hi = 0
		}
		if lo > int32(res[axis])-1 {
			lo = int32(res[axis]) - 1
		}
		if hi > int32(res[axis])-1 {
			hi = int32(res[axis]) - 1
		}
		min[axis], max[axis] = lo, hi
	}
	return min, max
}

func linearIndex(x, y, z int32, res [3]uint32) uint32 {
	return uint32(x) + uint32(y)*res[0] + uint32(z)*res[0]*res[1]
}

func cellBox(gridOrigin types.Vec3, step types.Vec3, x, y, z int32) aabb.Box {
	min := types.Vec3{
		gridOrigin[0] + float32(x)*step[0],
		gridOrigin[1] + float32(y)*step[1],
		gridOrigin[2] + float32(z)*step[2],
	}
	max := types.Vec3{min[0] + step[0], min[1] + step[1], min[2] + step[2]}
	return aabb.Box{Min: min.Vec4(0), Max: max.Vec4(0)}
}
