package grid

import (
	"math"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/triangle"
	"github.com/achilleasa/rtaccel/types"
)

// TriangleLookup resolves a leaf's (model, submesh, local triangle) tuple
// to the material it shades with.
type TriangleLookup func(model, submesh, localTri uint32) (materialIndex uint32)

// Contact mirrors the BVH manager's result type.
type Contact struct {
	Hit           bool
	T             float32
	Normal        types.Vec3
	MaterialIndex uint32
}

// dda3D walks the cells a ray passes through inside box (subdivided into
// res cells per axis), invoking visit for each in front-to-back order.
// visit returns true to stop the walk early.
func dda3D(box aabb.Box, res [3]uint32, origin, dir types.Vec3, visit func(x, y, z int32) bool) {
	tNear, tFar := aabb.FindTRange(box, origin, dir)
	if tFar <= 0 || tFar < tNear {
		return
	}

	step := types.Vec3{
		(box.Max[0] - box.Min[0]) / float32(res[0]),
		(box.Max[1] - box.Min[1]) / float32(res[1]),
		(box.Max[2] - box.Min[2]) / float32(res[2]),
	}

	entry := origin.Add(dir.Mul(tNear))

	var cell [3]int32
	var cellStep [3]int32
	var tMax, tDelta [3]float32

	for axis := 0; axis < 3; axis++ {
		c := int32((entry[axis] - box.Min[axis]) / step[axis])
		if c < 0 {
			c = 0
		}
		if c > int32(res[axis])-1 {
			c = int32(res[axis]) - 1
		}
		cell[axis] = c

		if dir[axis] > 0 {
			cellStep[axis] = 1
			boundary := box.Min[axis] + float32(c+1)*step[axis]
			tMax[axis] = (boundary - origin[axis]) / dir[axis]
			tDelta[axis] = step[axis] / dir[axis]
		} else if dir[axis] < 0 {
			cellStep[axis] = -1
			boundary := box.Min[axis] + float32(c)*step[axis]
			tMax[axis] = (boundary - origin[axis]) / dir[axis]
			tDelta[axis] = step[axis] / -dir[axis]
		} else {
			cellStep[axis] = 0
			tMax[axis] = math.MaxFloat32
			tDelta[axis] = math.MaxFloat32
		}
	}

	for {
		if visit(cell[0], cell[1], cell[2]) {
			return
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}

		cell[axis] += cellStep[axis]
		if cell[axis] < 0 || cell[axis] >= int32(res[axis]) {
			return
		}
		tMax[axis] += tDelta[axis]
	}
}

// GenerateContact traces one ray through the grid's outer and inner DDAs,
// returning the nearest hit among the triangles of the first leaf cell that
// yields any hit.
func GenerateContact(g *Grid, origin, dir types.Vec3, lookup TriangleLookup) Contact {
	var result Contact
	closestT := float32(math.MaxFloat32)

	dda3D(g.Data.Box, g.Data.Res, origin, dir, func(x, y, z int32) bool {
		cellIdx := linearIndex(x, y, z, g.Data.Res)
		cell := g.TopCells[cellIdx]
		if cell.leafCount() == 0 {
			return false
		}

		subOrigin := cellOrigin(g.Data.Box, g.Data.Step, x, y, z)
		subBox := aabb.Box{Min: subOrigin.Vec4(0), Max: subOrigin.Add(g.Data.Step).Vec4(0)}

		found := false
		dda3D(subBox, cell.Res, origin, dir, func(lx, ly, lz int32) bool {
			globalLeaf := cell.FirstLeafIdx + linearIndex(lx, ly, lz, cell.Res)
			if int(globalLeaf) >= len(g.LeafRanges) {
				return false
			}
			lr := g.LeafRanges[globalLeaf]
			if lr.Begin == UndefinedIndex {
				return false
			}
			for _, triIdx := range g.LeafPairs[lr.Begin:lr.End] {
				if triIdx == UndefinedIndex {
					continue
				}
				leaf := g.Leaves[triIdx]
				c := triangle.Intersect(leaf.V0, leaf.V1, leaf.V2, origin, dir)
				if c.T > 0 && c.T < closestT {
					closestT = c.T
					mat := lookup(leaf.Model, leaf.Submesh, leaf.LocalTri)
					result = Contact{Hit: true, T: c.T, Normal: c.Normal, MaterialIndex: mat}
					found = true
				}
			}
			return found
		})
		return found
	})

	return result
}
