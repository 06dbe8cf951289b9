// Package bvh builds a linear BVH over triangle centroids using Morton
// codes and the Karras radix-tree construction, then traverses it to
// generate contacts.
package bvh

import "github.com/achilleasa/rtaccel/aabb"

// Node type tags stored in the AABB's min.w lane.
const (
	TypeInternal = 0
	TypeLeaf     = 1
)

// Data slot indices, named the way the original engine names its
// BVHData.h macros.
const (
	ParentIndexIdx = 0
	TriangleIdx    = 1
	SubmeshIdx     = 2
	ModelIdx       = 3

	ChildAIdx = 1
	ChildBIdx = 2
)

// UndefinedIndex is the null-pointer sentinel used for both parent links
// and missing children (the flat-array analogue of a nil pointer).
const UndefinedIndex = ^uint32(0)

// Node is a single BVH element: a leaf referencing one triangle, or an
// internal node with two children. Leaves occupy indices [0,N); internal
// nodes occupy [N,2N-1); the root is index N, or index 0 when the tree is a
// single leaf.
type Node struct {
	Data [4]uint32
	Box  aabb.Box
}

// IsLeaf reports whether n is a leaf node.
func (n Node) IsLeaf() bool {
	return n.Box.Min[3] != TypeInternal
}

func newLeaf(box aabb.Box, model, submesh, localTri uint32) Node {
	box.Min[3] = TypeLeaf
	return Node{
		Data: [4]uint32{UndefinedIndex, localTri, submesh, model},
		Box:  box,
	}
}

func newInternal() Node {
	box := aabb.Empty()
	box.Min[3] = TypeInternal
	return Node{
		Data: [4]uint32{UndefinedIndex, UndefinedIndex, UndefinedIndex, UndefinedIndex},
		Box:  box,
	}
}
