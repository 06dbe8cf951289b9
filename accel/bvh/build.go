package bvh

import (
	"fmt"
	"sync/atomic"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/backend/reference"
	"github.com/achilleasa/rtaccel/rterr"
	"github.com/achilleasa/rtaccel/sortnet"
	"github.com/achilleasa/rtaccel/triangle"
	"github.com/achilleasa/rtaccel/types"
)

var errStackOverflow = rterr.New("bvh.traverse", rterr.TraversalExhaustion, fmt.Errorf("traversal stack exceeded depth %d", maxStackDepth))

// LeafInput is one triangle destined to become a BVH leaf.
type LeafInput struct {
	Model, Submesh, LocalTri uint32
	V0, V1, V2               types.Vec3
}

// Build constructs a linear BVH over leaves, whose centroids are Morton-
// coded against sceneBox, dispatching against an in-process reference
// device. It returns the flat node array and the index of the root node.
// It is a convenience over BuildOnDevice for callers (and this package's
// own tests) that do not otherwise own a backend.Device.
func Build(leaves []LeafInput, sceneBox aabb.Box) ([]Node, uint32, error) {
	return BuildOnDevice(reference.New("bvh"), leaves, sceneBox)
}

const (
	mortonCodeKernel     = "calculateMortonCode"
	buildInternalKernel  = "generateHierarchy"
	writeLeafKernel      = "writeLeafNode"
	propagateBoxesKernel = "calculateNodeBBoxes"
)

// mortonCodeKernelBody computes leaf i's world-space bounding box and its
// Morton code against sceneBox. args are
// [leaves []LeafInput, boxes []aabb.Box, keys []uint32, sceneBox aabb.Box].
func mortonCodeKernelBody(args []interface{}, i int) {
	leaves := args[0].([]LeafInput)
	boxes := args[1].([]aabb.Box)
	keys := args[2].([]uint32)
	sceneBox := args[3].(aabb.Box)

	leaf := leaves[i]
	box := aabb.TriangleBounds(leaf.V0, leaf.V1, leaf.V2)
	boxes[i] = box
	centroid := normalizeToBox(triangle.Centroid(leaf.V0, leaf.V1, leaf.V2), sceneBox)
	keys[i] = morton3D(centroid[0], centroid[1], centroid[2])
}

// writeLeafKernelBody places leaf node i in its Morton-sorted slot. args are
// [nodes []Node, leaves []LeafInput, boxes []aabb.Box, sortedLeafIdx []uint32].
func writeLeafKernelBody(args []interface{}, i int) {
	nodes := args[0].([]Node)
	leaves := args[1].([]LeafInput)
	boxes := args[2].([]aabb.Box)
	sortedLeafIdx := args[3].([]uint32)

	li := sortedLeafIdx[i]
	leaf := leaves[li]
	nodes[i] = newLeaf(boxes[li], leaf.Model, leaf.Submesh, leaf.LocalTri)
}

// buildInternalKernelBody builds internal node n+i of the radix tree per
// Karras 2012. args are [sortedKeys []uint32, nodes []Node, n int].
func buildInternalKernelBody(args []interface{}, i int) {
	sortedKeys := args[0].([]uint32)
	nodes := args[1].([]Node)
	n := args[2].(int)

	first, last := determineRange(sortedKeys, i, n)
	split := findSplit(sortedKeys, first, last)

	var childA, childB uint32
	if split == first {
		childA = uint32(split)
	} else {
		childA = uint32(n + split)
	}
	if split+1 == last {
		childB = uint32(split + 1)
	} else {
		childB = uint32(n + split + 1)
	}

	// The parent link of this node is written by its parent's work item, so
	// only the box and child slots are initialized here.
	nodeIdx := n + i
	nodes[nodeIdx].Box = newInternal().Box
	nodes[nodeIdx].Data[3] = UndefinedIndex
	nodes[nodeIdx].Data[ChildAIdx] = childA
	nodes[nodeIdx].Data[ChildBIdx] = childB
	nodes[childA].Data[ParentIndexIdx] = uint32(nodeIdx)
	nodes[childB].Data[ParentIndexIdx] = uint32(nodeIdx)
}

// BuildOnDevice constructs a linear BVH over leaves, whose centroids are
// Morton-coded against sceneBox, dispatching the count/sort/write steps as
// kernel launches against device instead of running them directly. It
// returns the flat node array and the index of the root node.
func BuildOnDevice(device backend.Device, leaves []LeafInput, sceneBox aabb.Box) ([]Node, uint32, error) {
	n := len(leaves)
	if n == 0 {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.Configuration, fmt.Errorf("cannot build a tree from zero leaves"))
	}

	if n == 1 {
		box := aabb.TriangleBounds(leaves[0].V0, leaves[0].V1, leaves[0].V2)
		return []Node{newLeaf(box, leaves[0].Model, leaves[0].Submesh, leaves[0].LocalTri)}, 0, nil
	}

	boxes := make([]aabb.Box, n)
	keys := make([]uint32, n)
	reference.RegisterIfReference(device, mortonCodeKernel, mortonCodeKernelBody)
	morton, err := device.Kernel(mortonCodeKernel)
	if err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	if err := morton.SetArgs(leaves, boxes, keys, sceneBox); err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	if _, err := morton.Exec1D(0, n, 0); err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}

	padded := nextPowerOfTwo(n)
	sortKeys := make([]uint32, padded)
	sortVals := make([]uint32, padded)
	copy(sortKeys, keys)
	for i := 0; i < n; i++ {
		sortVals[i] = uint32(i)
	}
	for i := n; i < padded; i++ {
		sortKeys[i] = UndefinedIndex
		sortVals[i] = UndefinedIndex
	}
	if err := sortnet.SortOnDevice(device, sortKeys, sortVals); err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	sortedKeys := sortKeys[:n]
	sortedLeafIdx := sortVals[:n]

	nodes := make([]Node, 2*n-1)
	reference.RegisterIfReference(device, writeLeafKernel, writeLeafKernelBody)
	writeLeaf, err := device.Kernel(writeLeafKernel)
	if err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	if err := writeLeaf.SetArgs(nodes, leaves, boxes, sortedLeafIdx); err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	if _, err := writeLeaf.Exec1D(0, n, 0); err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}

	root := uint32(n)
	reference.RegisterIfReference(device, buildInternalKernel, buildInternalKernelBody)
	buildInternal, err := device.Kernel(buildInternalKernel)
	if err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	if err := buildInternal.SetArgs(sortedKeys, nodes, n); err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	if _, err := buildInternal.Exec1D(0, n-1, 0); err != nil {
		return nil, UndefinedIndex, rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	nodes[root].Data[ParentIndexIdx] = UndefinedIndex

	if err := propagateBoundingBoxes(device, nodes, n); err != nil {
		return nil, UndefinedIndex, err
	}

	return nodes, root, nil
}

// propagateBoundingBoxes computes every internal node's AABB bottom-up.
// Each leaf climbs toward the root; an atomic per-internal-node visit
// counter ensures only the second arrival at a node (i.e. once both
// children are finalized) merges and continues upward, mirroring the
// device kernel's single-thread-does-the-merge pattern.
func propagateBoundingBoxes(device backend.Device, nodes []Node, n int) error {
	visited := make([]uint32, n-1)

	reference.RegisterIfReference(device, propagateBoxesKernel, propagateBoxesKernelBody)
	kernel, err := device.Kernel(propagateBoxesKernel)
	if err != nil {
		return rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	if err := kernel.SetArgs(nodes, visited, n); err != nil {
		return rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	if _, err := kernel.Exec1D(0, n, 0); err != nil {
		return rterr.New("bvh.build", rterr.BackendFailure, err)
	}
	return nil
}

// propagateBoxesKernelBody climbs from leaf i toward the root, merging each
// internal node's box once both of its children have been visited. args are
// [nodes []Node, visited []uint32, n int].
func propagateBoxesKernelBody(args []interface{}, leaf int) {
	nodes := args[0].([]Node)
	visited := args[1].([]uint32)
	n := args[2].(int)

	idx := leaf
	parent := nodes[idx].Data[ParentIndexIdx]
	for parent != UndefinedIndex {
		visitIdx := parent - uint32(n)
		if atomic.AddUint32(&visited[visitIdx], 1) < 2 {
			return
		}
		childA := nodes[parent].Data[ChildAIdx]
		childB := nodes[parent].Data[ChildBIdx]
		merged := aabb.Merge(nodes[childA].Box, nodes[childB].Box)
		merged.Min[3] = TypeInternal
		nodes[parent].Box = merged
		idx = int(parent)
		parent = nodes[parent].Data[ParentIndexIdx]
	}
}

func normalizeToBox(c types.Vec3, box aabb.Box) types.Vec3 {
	return types.XYZ(
		safeDiv(c[0]-box.Min[0], box.Max[0]-box.Min[0]),
		safeDiv(c[1]-box.Min[1], box.Max[1]-box.Min[1]),
		safeDiv(c[2]-box.Min[2], box.Max[2]-box.Min[2]),
	)
}

func safeDiv(a, b float32) float32 {
	if b == 0 {
		return 0
	}
	return a / b
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
