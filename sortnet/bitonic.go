// Package sortnet implements the parallel bitonic sort used to order
// key/value pair arrays (Morton-to-leaf pairs, cell-to-triangle pairs,
// leaf-to-triangle pairs) ascending by key.
package sortnet

import (
	"fmt"

	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/backend/reference"
)

// Kernel identifies which comparator radix would service a given step. The
// naming mirrors the reference engine's kernel family so a real compute
// backend can dispatch to actual B2/B4/B8/B16 device kernels while the
// in-process implementation below folds them into sequential passes.
type Kernel uint8

const (
	B2 Kernel = iota
	B4
	B8
	B16
)

func (k Kernel) String() string {
	switch k {
	case B2:
		return "ParallelBitonic_B2"
	case B4:
		return "ParallelBitonic_B4"
	case B8:
		return "ParallelBitonic_B8"
	case B16:
		return "ParallelBitonic_B16"
	default:
		return "unknown"
	}
}

// selectKernel picks the largest radix kernel usable for the given inc, and
// reports how many bit levels (ninc) that kernel collapses into one launch.
func selectKernel(inc int) (Kernel, int) {
	switch {
	case inc >= 8:
		return B16, 4
	case inc >= 4:
		return B8, 3
	case inc >= 2:
		return B4, 2
	default:
		return B2, 1
	}
}

// WorkgroupSize clamps the number of threads for a step to
// min(256, maxWorkgroup, N>>ninc).
func WorkgroupSize(n, ninc, maxWorkgroup int) int {
	nThreads := n >> uint(ninc)
	wg := maxWorkgroup
	if wg > 256 {
		wg = 256
	}
	if wg > nThreads {
		wg = nThreads
	}
	if wg < 1 {
		wg = 1
	}
	return wg
}

// ErrNotPowerOfTwo is returned when Sort is called with a non-power-of-two
// length array.
type ErrNotPowerOfTwo struct{ N int }

func (e ErrNotPowerOfTwo) Error() string {
	return fmt.Sprintf("sortnet: input length %d is not a power of two", e.N)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Sort sorts keys ascending in place using an in-process reference device;
// if values is non-nil it must have the same length as keys and is
// permuted alongside it (key/value pair sort). len(keys) must be a power
// of two. It is a convenience over SortOnDevice for callers (and this
// package's own tests) that do not otherwise own a backend.Device.
func Sort(keys []uint32, values []uint32) error {
	return SortOnDevice(reference.New("sortnet"), keys, values)
}

// compareExchangeKernel is the body of one bitonic compare-exchange step,
// run once per index i in [0,n) by a Kernel.Exec1D launch. args are
// [keys []uint32, values []uint32, inc int, dir int].
func compareExchangeKernel(args []interface{}, i int) {
	keys := args[0].([]uint32)
	values := args[1].([]uint32)
	inc := args[2].(int)
	dir := args[3].(int)

	n := len(keys)
	j := i ^ inc
	if j <= i || j >= n {
		return
	}
	ascending := i&dir == 0
	if (ascending && keys[i] > keys[j]) || (!ascending && keys[i] < keys[j]) {
		keys[i], keys[j] = keys[j], keys[i]
		if values != nil {
			values[i], values[j] = values[j], values[i]
		}
	}
}

// SortOnDevice sorts keys ascending in place, dispatching each bitonic
// compare-exchange pass as a 1-D kernel launch against device instead of
// running it directly. if values is non-nil it must have the same length
// as keys and is permuted alongside it. len(keys) must be a power of two.
func SortOnDevice(device backend.Device, keys []uint32, values []uint32) error {
	n := len(keys)
	if n <= 1 {
		return nil
	}
	if !isPowerOfTwo(n) {
		return ErrNotPowerOfTwo{N: n}
	}
	if values != nil && len(values) != n {
		return fmt.Errorf("sortnet: values length %d does not match keys length %d", len(values), n)
	}

	for length := 1; length < n; length <<= 1 {
		dir := length << 1
		inc := length
		for inc > 0 {
			radix, ninc := selectKernel(inc)
			reference.RegisterIfReference(device, radix.String(), compareExchangeKernel)
			kernel, err := device.Kernel(radix.String())
			if err != nil {
				return fmt.Errorf("sortnet: %w", err)
			}

			d := inc
			for step := 0; step < ninc && d > 0; step++ {
				if err := kernel.SetArgs(keys, values, d, dir); err != nil {
					return fmt.Errorf("sortnet: %w", err)
				}
				if _, err := kernel.Exec1D(0, n, WorkgroupSize(n, ninc, n)); err != nil {
					return fmt.Errorf("sortnet: %w", err)
				}
				d >>= 1
			}
			inc >>= ninc
			if ninc == 0 {
				break
			}
		}
	}
	return nil
}
