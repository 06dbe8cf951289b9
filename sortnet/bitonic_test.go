package sortnet

import (
	"math/bits"
	"sort"
	"testing"
)

func TestSortKeysOnly(t *testing.T) {
	type spec struct {
		name string
		in   []uint32
	}
	specs := []spec{
		{"already-sorted", []uint32{0, 1, 2, 3, 4, 5, 6, 7}},
		{"reverse", []uint32{7, 6, 5, 4, 3, 2, 1, 0}},
		{"duplicates", []uint32{3, 3, 3, 3, 1, 1, 1, 1}},
		{"single", []uint32{42}},
	}
	for _, s := range specs {
		t.Run(s.name, func(t *testing.T) {
			got := append([]uint32(nil), s.in...)
			if err := Sort(got, nil); err != nil {
				t.Fatalf("Sort returned error: %v", err)
			}
			want := append([]uint32(nil), s.in...)
			sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
			for i := range got {
				if got[i] != want[i] {
					t.Fatalf("index %d: got %v want %v (full: got=%v want=%v)", i, got[i], want[i], got, want)
				}
			}
		})
	}
}

func TestSortRejectsNonPowerOfTwo(t *testing.T) {
	err := Sort([]uint32{1, 2, 3}, nil)
	if err == nil {
		t.Fatalf("expected an error for a non-power-of-two length")
	}
}

func TestSortKeyValuePairsPreservesAssociation(t *testing.T) {
	keys := []uint32{3, 1, 4, 1, 5, 9, 2, 6}
	values := []uint32{0, 1, 2, 3, 4, 5, 6, 7}

	pairBefore := map[uint32]map[uint32]bool{}
	for i := range keys {
		if pairBefore[keys[i]] == nil {
			pairBefore[keys[i]] = map[uint32]bool{}
		}
		pairBefore[keys[i]][values[i]] = true
	}

	if err := Sort(keys, values); err != nil {
		t.Fatalf("Sort returned error: %v", err)
	}

	for i := 0; i+1 < len(keys); i++ {
		if keys[i] > keys[i+1] {
			t.Fatalf("keys not sorted at %d: %v", i, keys)
		}
	}

	for i := range keys {
		if !pairBefore[keys[i]][values[i]] {
			t.Fatalf("value %d lost its association with key %d after sort", values[i], keys[i])
		}
	}
}

func TestSortDeepArray(t *testing.T) {
	n := 1024
	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = uint32(n-i) * 2654435761
	}
	if err := Sort(keys, nil); err != nil {
		t.Fatalf("Sort returned error: %v", err)
	}
	for i := 0; i+1 < n; i++ {
		if keys[i] > keys[i+1] {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestSelectKernelLadder(t *testing.T) {
	type spec struct {
		inc      int
		wantK    Kernel
		wantNinc int
	}
	specs := []spec{
		{15, B16, 4},
		{8, B16, 4},
		{7, B8, 3},
		{4, B8, 3},
		{3, B4, 2},
		{2, B4, 2},
		{1, B2, 1},
	}
	for _, s := range specs {
		k, ninc := selectKernel(s.inc)
		if k != s.wantK || ninc != s.wantNinc {
			t.Fatalf("inc=%d: got (%v,%d) want (%v,%d)", s.inc, k, ninc, s.wantK, s.wantNinc)
		}
	}
}

func TestWorkgroupSizeClamp(t *testing.T) {
	if got := WorkgroupSize(1<<20, 1, 1024); got != 256 {
		t.Fatalf("expected clamp to 256, got %d", got)
	}
	if got := WorkgroupSize(4, 0, 1024); got != 4 {
		t.Fatalf("expected clamp to N, got %d", got)
	}
}

func TestIsPowerOfTwoHelper(t *testing.T) {
	for n := 1; n <= 1<<20; n <<= 1 {
		if got, want := isPowerOfTwo(n), bits.OnesCount(uint(n)) == 1; got != want {
			t.Fatalf("isPowerOfTwo(%d) = %v, want %v", n, got, want)
		}
	}
}
