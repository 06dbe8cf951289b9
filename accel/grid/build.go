package grid

import (
	"fmt"
	"math"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/backend/reference"
	"github.com/achilleasa/rtaccel/prefixsum"
	"github.com/achilleasa/rtaccel/rterr"
	"github.com/achilleasa/rtaccel/sortnet"
	"github.com/achilleasa/rtaccel/types"
)

// LeafInput is one triangle destined to be referenced by the grid.
type LeafInput struct {
	Model, Submesh, LocalTri uint32
	V0, V1, V2               types.Vec3
}

// Grid is the fully constructed two-level structure: the top-level grid
// description, one TopLevelCell per top cell (row-major, res.x fastest),
// the leaf-pair array's per-leaf ranges, and the leaf pairs themselves.
type Grid struct {
	Data       GridData
	TopCells   []TopLevelCell
	TopRanges  []LeafRange
	LeafRanges []LeafRange
	LeafPairs  []uint32 // triangle index per leaf-pair slot, indexed like a flattened (leafIdx,slot) walk via LeafRanges
	Leaves     []LeafInput
}

func nextPow2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func padKeysValues(keys, values []uint32, size int) ([]uint32, []uint32) {
	padded := nextPow2(size)
	pk := make([]uint32, padded)
	pv := make([]uint32, padded)
	copy(pk, keys)
	copy(pv, values)
	for i := size; i < padded; i++ {
		pk[i] = UndefinedIndex
		pv[i] = UndefinedIndex
	}
	return pk, pv
}

// segmentRanges walks a key-sorted array and returns, per distinct key in
// [0,numBuckets), the [begin,end) range of indices sharing that key.
// Sentinel entries (key == UndefinedIndex, from sort padding) are ignored.
func segmentRanges(keys []uint32, numBuckets int) []LeafRange {
	ranges := make([]LeafRange, numBuckets)
	for i := range ranges {
		ranges[i] = LeafRange{Begin: UndefinedIndex, End: UndefinedIndex}
	}
	i := 0
	for i < len(keys) {
		k := keys[i]
		if k == UndefinedIndex || int(k) >= numBuckets {
			break
		}
		j := i + 1
		for j < len(keys) && keys[j] == k {
			j++
		}
		ranges[k] = LeafRange{Begin: uint32(i), End: uint32(j)}
		i = j
	}
	return ranges
}

// Build runs the full 13-step pipeline over leaves within sceneBox,
// dispatching against an in-process reference device. It is a convenience
// over BuildOnDevice for callers (and this package's own tests) that do not
// otherwise own a backend.Device.
func Build(leaves []LeafInput, sceneBox aabb.Box) (*Grid, error) {
	return BuildOnDevice(reference.New("grid"), leaves, sceneBox)
}

const (
	topCountKernel    = "countTopLevelPairs"
	topWriteKernel    = "writeTopLevelPairs"
	topCellFillKernel = "fillTopLevelCells"
	leafCountKernel   = "countLeafPairs"
	leafWriteKernel   = "writeLeafPairs"
)

// topCountKernelBody computes triangle i's covered top-level cell range and
// pair count. args are
// [triBoxes []aabb.Box, data GridData, topMins, topMaxs [][3]int32, topCounts []uint32].
func topCountKernelBody(args []interface{}, i int) {
	triBoxes := args[0].([]aabb.Box)
	data := args[1].(GridData)
	topMins := args[2].([][3]int32)
	topMaxs := args[3].([][3]int32)
	topCounts := args[4].([]uint32)

	min, max := cellCoordRange(triBoxes[i], data.Box.Min.Vec3(), data.Step, data.Res)
	topMins[i], topMaxs[i] = min, max
	topCounts[i] = uint32(max[0]-min[0]+1) * uint32(max[1]-min[1]+1) * uint32(max[2]-min[2]+1)
}

// topWriteKernelBody writes triangle i's top-level cell/triangle pairs at
// its reserved offset. args are
// [data GridData, topMins, topMaxs [][3]int32, topPrefix, topCounts, topCellKeys, topTriVals []uint32].
func topWriteKernelBody(args []interface{}, i int) {
	data := args[0].(GridData)
	topMins := args[1].([][3]int32)
	topMaxs := args[2].([][3]int32)
	topPrefix := args[3].([]uint32)
	topCounts := args[4].([]uint32)
	topCellKeys := args[5].([]uint32)
	topTriVals := args[6].([]uint32)

	offset := topPrefix[i] - topCounts[i]
	min, max := topMins[i], topMaxs[i]
	for z := min[2]; z <= max[2]; z++ {
		for y := min[1]; y <= max[1]; y++ {
			for x := min[0]; x <= max[0]; x++ {
				topCellKeys[offset] = linearIndex(x, y, z, data.Res)
				topTriVals[offset] = uint32(i)
				offset++
			}
		}
	}
}

// topCellFillKernelBody sizes top-level cell cellIdx's sub-grid from its
// primitive count. args are
// [topRanges []LeafRange, data GridData, topCells []TopLevelCell, leafCounts []uint32].
func topCellFillKernelBody(args []interface{}, cellIdx int) {
	topRanges := args[0].([]LeafRange)
	data := args[1].(GridData)
	topCells := args[2].([]TopLevelCell)
	leafCounts := args[3].([]uint32)

	r := topRanges[cellIdx]
	if r.Begin == UndefinedIndex {
		return
	}
	primCount := int(r.End - r.Begin)
	cellVol := float64(data.Step[0]) * float64(data.Step[1]) * float64(data.Step[2])
	factor := 0.0
	if cellVol > 0 {
		factor = math.Cbrt(float64(data.LeafDensity) * float64(primCount) / cellVol)
	}
	var res [3]uint32
	for axis := 0; axis < 3; axis++ {
		axisRes := int(float64(data.Step[axis]) * factor)
		if axisRes < 1 {
			axisRes = 1
		}
		if axisRes > maxAxisResolution {
			axisRes = maxAxisResolution
		}
		res[axis] = uint32(axisRes)
	}
	topCells[cellIdx] = TopLevelCell{Res: res}
	leafCounts[cellIdx] = res[0] * res[1] * res[2]
}

// leafCountKernelBody counts leaf-cell pairs for top-level pair p via a
// bbox pre-count. args are
// [sortedTopKeys, sortedTopVals []uint32, topCells []TopLevelCell, data GridData,
//  triBoxes []aabb.Box, subMins, subMaxs [][3]int32, leafPairCounts []uint32].
func leafCountKernelBody(args []interface{}, p int) {
	sortedTopKeys := args[0].([]uint32)
	sortedTopVals := args[1].([]uint32)
	topCells := args[2].([]TopLevelCell)
	data := args[3].(GridData)
	triBoxes := args[4].([]aabb.Box)
	subMins := args[5].([][3]int32)
	subMaxs := args[6].([][3]int32)
	leafPairCounts := args[7].([]uint32)

	cellIdx := sortedTopKeys[p]
	triIdx := sortedTopVals[p]
	cell := topCells[cellIdx]
	if cell.leafCount() == 0 {
		return
	}
	x, y, z := unlinearize(cellIdx, data.Res)
	origin := cellOrigin(data.Box, data.Step, x, y, z)
	leafStep := types.Vec3{data.Step[0] / float32(cell.Res[0]), data.Step[1] / float32(cell.Res[1]), data.Step[2] / float32(cell.Res[2])}
	min, max := cellCoordRange(triBoxes[triIdx], origin, leafStep, cell.Res)
	subMins[p], subMaxs[p] = min, max
	leafPairCounts[p] = uint32(max[0]-min[0]+1) * uint32(max[1]-min[1]+1) * uint32(max[2]-min[2]+1)
}

// leafWriteKernelBody writes top-level pair p's leaf-cell pairs, culled by
// the precise SAT overlap test. Slots reserved by the bbox pre-count but
// rejected by SAT are left as sentinels so the reserved block for a
// triangle never overruns. args are
// [sortedTopKeys, sortedTopVals []uint32, topCells []TopLevelCell, data GridData,
//  leaves []LeafInput, subMins, subMaxs [][3]int32, leafPairPrefix, leafPairCounts, leafKeys, leafVals []uint32].
func leafWriteKernelBody(args []interface{}, p int) {
	sortedTopKeys := args[0].([]uint32)
	sortedTopVals := args[1].([]uint32)
	topCells := args[2].([]TopLevelCell)
	data := args[3].(GridData)
	leaves := args[4].([]LeafInput)
	subMins := args[5].([][3]int32)
	subMaxs := args[6].([][3]int32)
	leafPairPrefix := args[7].([]uint32)
	leafPairCounts := args[8].([]uint32)
	leafKeys := args[9].([]uint32)
	leafVals := args[10].([]uint32)

	cellIdx := sortedTopKeys[p]
	triIdx := sortedTopVals[p]
	cell := topCells[cellIdx]
	if cell.leafCount() == 0 {
		return
	}
	offset := leafPairPrefix[p] - leafPairCounts[p]
	x, y, z := unlinearize(cellIdx, data.Res)
	origin := cellOrigin(data.Box, data.Step, x, y, z)
	leafStep := types.Vec3{data.Step[0] / float32(cell.Res[0]), data.Step[1] / float32(cell.Res[1]), data.Step[2] / float32(cell.Res[2])}
	leaf := leaves[triIdx]
	min, max := subMins[p], subMaxs[p]
	for lz := min[2]; lz <= max[2]; lz++ {
		for ly := min[1]; ly <= max[1]; ly++ {
			for lx := min[0]; lx <= max[0]; lx++ {
				subBox := cellBox(origin, leafStep, lx, ly, lz)
				center := aabb.Centroid(subBox)
				half := types.Vec3{leafStep[0] / 2, leafStep[1] / 2, leafStep[2] / 2}
				if aabb.TriangleOverlap(center, half, leaf.V0, leaf.V1, leaf.V2) {
					globalLeaf := cell.FirstLeafIdx + linearIndex(lx, ly, lz, cell.Res)
					leafKeys[offset] = globalLeaf
					leafVals[offset] = triIdx
				}
				offset++
			}
		}
	}
}

// dispatch1D registers fn under name on device (if it is a reference
// device), resolves the kernel, sets args and launches it over [0,n).
func dispatch1D(device backend.Device, name string, fn reference.KernelFunc, n int, args ...interface{}) error {
	reference.RegisterIfReference(device, name, fn)
	kernel, err := device.Kernel(name)
	if err != nil {
		return rterr.New("grid.build", rterr.BackendFailure, err)
	}
	if err := kernel.SetArgs(args...); err != nil {
		return rterr.New("grid.build", rterr.BackendFailure, err)
	}
	if _, err := kernel.Exec1D(0, n, 0); err != nil {
		return rterr.New("grid.build", rterr.BackendFailure, err)
	}
	return nil
}

// BuildOnDevice runs the full 13-step pipeline over leaves within sceneBox,
// dispatching the count/sort/prefix-sum/write steps as kernel launches
// against device instead of running them directly.
func BuildOnDevice(device backend.Device, leaves []LeafInput, sceneBox aabb.Box) (*Grid, error) {
	n := len(leaves)
	if n == 0 {
		return nil, rterr.New("grid.build", rterr.Configuration, fmt.Errorf("cannot build a grid from zero leaves"))
	}

	// Step 1: grid data.
	data := newGridData(sceneBox, n)
	numTopCells := int(data.Res[0]) * int(data.Res[1]) * int(data.Res[2])

	triBoxes := make([]aabb.Box, n)
	for i, leaf := range leaves {
		triBoxes[i] = aabb.TriangleBounds(leaf.V0, leaf.V1, leaf.V2)
	}

	// Step 2: count top-level pairs per triangle.
	topCounts := make([]uint32, n)
	topMins := make([][3]int32, n)
	topMaxs := make([][3]int32, n)
	if err := dispatch1D(device, topCountKernel, topCountKernelBody, n, triBoxes, data, topMins, topMaxs, topCounts); err != nil {
		return nil, err
	}

	// Step 3: prefix sum.
	topPrefix := make([]uint32, n)
	if err := prefixsum.ComputeOnDevice(device, topCounts, topPrefix); err != nil {
		return nil, rterr.New("grid.build", rterr.BackendFailure, err)
	}
	totalTopPairs := int(topPrefix[n-1])

	// Step 4: write top-level pairs.
	topCellKeys := make([]uint32, totalTopPairs)
	topTriVals := make([]uint32, totalTopPairs)
	if err := dispatch1D(device, topWriteKernel, topWriteKernelBody, n, data, topMins, topMaxs, topPrefix, topCounts, topCellKeys, topTriVals); err != nil {
		return nil, err
	}

	// Step 5: sort top-level pairs by cell index.
	sortedTopKeys, sortedTopVals := padKeysValues(topCellKeys, topTriVals, totalTopPairs)
	if err := sortnet.SortOnDevice(device, sortedTopKeys, sortedTopVals); err != nil {
		return nil, rterr.New("grid.build", rterr.BackendFailure, err)
	}
	sortedTopKeys = sortedTopKeys[:totalTopPairs]
	sortedTopVals = sortedTopVals[:totalTopPairs]

	// Step 6: per-top-cell ranges.
	topRanges := segmentRanges(sortedTopKeys, numTopCells)

	// Step 7: fill top-level cells and count leaves.
	topCells := make([]TopLevelCell, numTopCells)
	leafCounts := make([]uint32, numTopCells)
	if err := dispatch1D(device, topCellFillKernel, topCellFillKernelBody, numTopCells, topRanges, data, topCells, leafCounts); err != nil {
		return nil, err
	}

	// Step 8: prefix sum leaf counts.
	leafPrefix := make([]uint32, numTopCells)
	if err := prefixsum.ComputeOnDevice(device, leafCounts, leafPrefix); err != nil {
		return nil, rterr.New("grid.build", rterr.BackendFailure, err)
	}
	for cellIdx := range topCells {
		topCells[cellIdx].FirstLeafIdx = leafPrefix[cellIdx] - leafCounts[cellIdx]
	}
	totalLeaves := 0
	if numTopCells > 0 {
		totalLeaves = int(leafPrefix[numTopCells-1])
	}

	// Step 9: count leaf-cell pairs per top-level pair (bbox pre-count).
	leafPairCounts := make([]uint32, totalTopPairs)
	subMins := make([][3]int32, totalTopPairs)
	subMaxs := make([][3]int32, totalTopPairs)
	if err := dispatch1D(device, leafCountKernel, leafCountKernelBody, totalTopPairs, sortedTopKeys, sortedTopVals, topCells, data, triBoxes, subMins, subMaxs, leafPairCounts); err != nil {
		return nil, err
	}

	// Step 10: prefix sum leaf-pair counts.
	leafPairPrefix := make([]uint32, totalTopPairs)
	if err := prefixsum.ComputeOnDevice(device, leafPairCounts, leafPairPrefix); err != nil {
		return nil, rterr.New("grid.build", rterr.BackendFailure, err)
	}
	totalLeafPairSlots := 0
	if totalTopPairs > 0 {
		totalLeafPairSlots = int(leafPairPrefix[totalTopPairs-1])
	}

	// Step 11: write leaf pairs, culled by the precise SAT overlap test.
	leafKeys := make([]uint32, totalLeafPairSlots)
	leafVals := make([]uint32, totalLeafPairSlots)
	for i := range leafKeys {
		leafKeys[i] = UndefinedIndex
		leafVals[i] = UndefinedIndex
	}
	if err := dispatch1D(device, leafWriteKernel, leafWriteKernelBody, totalTopPairs, sortedTopKeys, sortedTopVals, topCells, data, leaves, subMins, subMaxs, leafPairPrefix, leafPairCounts, leafKeys, leafVals); err != nil {
		return nil, err
	}

	// Step 12: sort leaf pairs by leaf index; sentinels sink to the tail.
	sortedLeafKeys, sortedLeafVals := padKeysValues(leafKeys, leafVals, totalLeafPairSlots)
	if err := sortnet.SortOnDevice(device, sortedLeafKeys, sortedLeafVals); err != nil {
		return nil, rterr.New("grid.build", rterr.BackendFailure, err)
	}
	sortedLeafKeys = sortedLeafKeys[:totalLeafPairSlots]
	sortedLeafVals = sortedLeafVals[:totalLeafPairSlots]

	// Step 13: leaf ranges.
	leafRanges := segmentRanges(sortedLeafKeys, totalLeaves)

	return &Grid{
		Data:       data,
		TopCells:   topCells,
		TopRanges:  topRanges,
		LeafRanges: leafRanges,
		LeafPairs:  sortedLeafVals,
		Leaves:     leaves,
	}, nil
}

func unlinearize(idx uint32, res [3]uint32) (x, y, z int32) {
	x = int32(idx % res[0])
	y = int32((idx / res[0]) % res[1])
	z = int32(idx / (res[0] * res[1]))
	return
}

func cellOrigin(box aabb.Box, step types.Vec3, x, y, z int32) types.Vec3 {
	return types.Vec3{
		box.Min[0] + float32(x)*step[0],
		box.Min[1] + float32(y)*step[1],
		box.Min[2] + float32(z)*step[2],
	}
}
