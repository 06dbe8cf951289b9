package reference

import (
	"testing"

	"github.com/achilleasa/rtaccel/backend"
)

func TestBufferWriteReadRoundTrip(t *testing.T) {
	dev := New("test-device")
	buf := dev.Buffer("scratch")

	in := []uint32{1, 2, 3, 4, 5}
	if err := buf.AllocateAndWriteData(in, backend.ReadWrite); err != nil {
		t.Fatalf("AllocateAndWriteData: %v", err)
	}

	out := make([]uint32, len(in))
	if err := buf.ReadData(0, 0, buf.Size(), out); err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("index %d: got %v want %v", i, out[i], in[i])
		}
	}
}

func TestBufferFillPattern(t *testing.T) {
	dev := New("test-device")
	buf := dev.Buffer("scratch")
	if err := buf.Allocate(16, backend.ReadWrite); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	pattern := []uint32{0xFFFFFFFF, 0xFFFFFFFF}
	if err := buf.Fill(pattern); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	out := make([]uint32, 4)
	if err := buf.ReadData(0, 0, buf.Size(), out); err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	for i, v := range out {
		if v != 0xFFFFFFFF {
			t.Fatalf("index %d: got %#x want 0xffffffff", i, v)
		}
	}
}

func TestFillRejectsNonDividingPattern(t *testing.T) {
	dev := New("test-device")
	buf := dev.Buffer("scratch")
	if err := buf.Allocate(10, backend.ReadWrite); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := buf.Fill([]uint32{1, 2, 3}); err == nil {
		t.Fatalf("expected an error for a pattern that does not evenly divide the buffer size")
	}
}

func TestExec1DNonMultipleOfLocalWorkSize(t *testing.T) {
	dev := New("test-device")
	n := 37
	out := make([]uint32, n)

	dev.Register("square", func(args []interface{}, index int) {
		dst := args[0].([]uint32)
		dst[index] = uint32(index * index)
	})
	kern, err := dev.Kernel("square")
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}
	if err := kern.SetArgs(out); err != nil {
		t.Fatalf("SetArgs: %v", err)
	}
	if _, err := kern.Exec1D(0, n, 8); err != nil {
		t.Fatalf("Exec1D: %v", err)
	}
	for i := 0; i < n; i++ {
		want := uint32(i * i)
		if out[i] != want {
			t.Fatalf("index %d: got %v want %v", i, out[i], want)
		}
	}
}

func TestKernelNotFound(t *testing.T) {
	dev := New("test-device")
	if _, err := dev.Kernel("missing"); err == nil {
		t.Fatalf("expected an error for an unregistered kernel")
	}
}

func TestDeviceInfo(t *testing.T) {
	dev := New("test-device")
	info := dev.Info()
	if info.Name != "test-device" {
		t.Fatalf("unexpected name: %s", info.Name)
	}
	if info.Type != backend.CPU {
		t.Fatalf("expected CPU device type, got %v", info.Type)
	}
}
