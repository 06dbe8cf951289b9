package bvh

import (
	"math"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/triangle"
	"github.com/achilleasa/rtaccel/types"
)

// maxStackDepth bounds the traversal stack; a well-formed tree never nests
// deeper than its leaf count, but a corrupt tree (a cycle) must not hang
// the traversal, so it is spent as a resource limit instead.
const maxStackDepth = 32

// TriangleLookup resolves a leaf's (model, submesh, local triangle) tuple
// to its three vertex positions and material index.
type TriangleLookup func(model, submesh, localTri uint32) (v0, v1, v2 types.Vec3, materialIndex uint32)

// Contact is the result of tracing a single ray against the tree.
type Contact struct {
	Hit           bool
	T             float32
	Normal        types.Vec3
	MaterialIndex uint32
}

func boxHit(box aabb.Box, origin, dir types.Vec3) bool {
	tNear, tFar := aabb.FindTRange(box, origin, dir)
	return tFar > 0 && tFar >= tNear
}

// GenerateContact traces one ray against the tree rooted at root, returning
// the closest triangle hit if any. Traversal always visits the
// nearer-intersecting child first and pushes the other only if it is also
// hit, exhausting the explicit stack instead of recursing.
func GenerateContact(nodes []Node, root uint32, origin, dir types.Vec3, lookup TriangleLookup) (Contact, error) {
	var stack [maxStackDepth]uint32
	sp := 0

	closestT := float32(math.MaxFloat32)
	var best Contact

	current := root
	for {
		node := nodes[current]

		if node.IsLeaf() {
			v0, v1, v2, matIdx := lookup(node.Data[ModelIdx], node.Data[SubmeshIdx], node.Data[TriangleIdx])
			c := triangle.Intersect(v0, v1, v2, origin, dir)
			if c.T > 0 && c.T < closestT {
				closestT = c.T
				best = Contact{Hit: true, T: c.T, Normal: c.Normal, MaterialIndex: matIdx}
			}
		} else {
			childA := node.Data[ChildAIdx]
			childB := node.Data[ChildBIdx]
			hitA := boxHit(nodes[childA].Box, origin, dir)
			hitB := boxHit(nodes[childB].Box, origin, dir)

			if hitA && hitB {
				near, far := childA, childB
				tA, _ := aabb.FindTRange(nodes[childA].Box, origin, dir)
				tB, _ := aabb.FindTRange(nodes[childB].Box, origin, dir)
				if tB < tA {
					near, far = childB, childA
				}
				if sp >= maxStackDepth {
					return best, errStackOverflow
				}
				stack[sp] = far
				sp++
				current = near
				continue
			} else if hitA {
				current = childA
				continue
			} else if hitB {
				current = childB
				continue
			}
		}

		if sp == 0 {
			break
		}
		sp--
		current = stack[sp]
	}

	return best, nil
}
