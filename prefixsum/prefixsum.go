// Package prefixsum implements an inclusive blockwise parallel prefix sum
// over uint32 arrays, used to turn per-cell/per-node counts into write
// offsets during grid and BVH construction.
package prefixsum

import (
	"fmt"

	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/backend/reference"
)

// blockSize mirrors the reference engine's localDataSize = maxWorkgroupSize<<1
// with a fixed stand-in workgroup size, since there is no device query here.
const blockSize = 512

// Compute writes the inclusive prefix sum of in into out (which may alias
// in) using an in-process reference device. len(out) must equal len(in).
// It is a convenience over ComputeOnDevice for callers (and this package's
// own tests) that do not otherwise own a backend.Device.
func Compute(in []uint32, out []uint32) error {
	return ComputeOnDevice(reference.New("prefixsum"), in, out)
}

func blockRange(n, b int) (int, int) {
	start := b * blockSize
	end := start + blockSize
	if end > n {
		end = n
	}
	return start, end
}

const groupPrefixSumKernel = "group_prefixSum"
const globalPrefixSumKernel = "global_prefixSum"

// groupScanKernel is the body of the group_prefixSum kernel: it scans one
// block of out in place and records the block's total. args are
// [out []uint32, blockTotals []uint32, n int].
func groupScanKernel(args []interface{}, b int) {
	out := args[0].([]uint32)
	blockTotals := args[1].([]uint32)
	n := args[2].(int)

	start, end := blockRange(n, b)
	var running uint32
	for i := start; i < end; i++ {
		running += out[i]
		out[i] = running
	}
	blockTotals[b] = running
}

// fixupKernel is the body of the global_prefixSum kernel: it adds each
// block's carry-in onto every element of that block. args are
// [out []uint32, carry []uint32, n int].
func fixupKernel(args []interface{}, b int) {
	out := args[0].([]uint32)
	carry := args[1].([]uint32)
	n := args[2].(int)

	if carry[b] == 0 {
		return
	}
	start, end := blockRange(n, b)
	for i := start; i < end; i++ {
		out[i] += carry[b]
	}
}

// ComputeOnDevice writes the inclusive prefix sum of in into out (which may
// alias in), dispatching against device instead of running directly.
// len(out) must equal len(in).
//
// It is the two-stage scheme the reference engine splits across a
// group_prefixSum kernel and a global_prefixSum fixup kernel: each block is
// scanned independently in parallel, the block totals are then scanned
// themselves to obtain a carry-in per block, and that carry is added onto
// every element of the following blocks.
func ComputeOnDevice(device backend.Device, in []uint32, out []uint32) error {
	n := len(in)
	if len(out) != n {
		return fmt.Errorf("prefixsum: out length %d does not match in length %d", len(out), n)
	}
	if n == 0 {
		return nil
	}
	copy(out, in)

	numBlocks := (n + blockSize - 1) / blockSize
	blockTotals := make([]uint32, numBlocks)

	reference.RegisterIfReference(device, groupPrefixSumKernel, groupScanKernel)
	scan, err := device.Kernel(groupPrefixSumKernel)
	if err != nil {
		return fmt.Errorf("prefixsum: %w", err)
	}
	if err := scan.SetArgs(out, blockTotals, n); err != nil {
		return fmt.Errorf("prefixsum: %w", err)
	}
	if _, err := scan.Exec1D(0, numBlocks, 0); err != nil {
		return fmt.Errorf("prefixsum: %w", err)
	}

	// Sequential exclusive scan over block totals; numBlocks is small
	// relative to n so this is not worth a kernel launch of its own.
	carry := make([]uint32, numBlocks)
	var running uint32
	for b := 0; b < numBlocks; b++ {
		carry[b] = running
		running += blockTotals[b]
	}

	reference.RegisterIfReference(device, globalPrefixSumKernel, fixupKernel)
	fixup, err := device.Kernel(globalPrefixSumKernel)
	if err != nil {
		return fmt.Errorf("prefixsum: %w", err)
	}
	if err := fixup.SetArgs(out, carry, n); err != nil {
		return fmt.Errorf("prefixsum: %w", err)
	}
	if _, err := fixup.Exec1D(0, numBlocks, 0); err != nil {
		return fmt.Errorf("prefixsum: %w", err)
	}

	return nil
}
