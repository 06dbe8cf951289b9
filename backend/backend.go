// Package backend defines the compute backend contract that every
// acceleration structure manager builds on top of: device discovery, typed
// buffer allocation, and 1-D kernel dispatch. Two implementations satisfy
// it: backend/opencl, a thin wrapper over a real OpenCL device, and
// backend/reference, a pure-Go implementation that runs the same kernel
// bodies as goroutines so the managers can be exercised without a GPU.
package backend

import "time"

// MemFlags mirrors OpenCL's buffer access hints closely enough that both
// implementations can honor them without leaking cl.MemFlags outside this
// package.
type MemFlags uint32

const (
	ReadWrite MemFlags = 1 << iota
	ReadOnly
	WriteOnly
)

// DeviceType classifies a compute device the way OpenCL's CL_DEVICE_TYPE_*
// bitmask does.
type DeviceType uint8

const (
	CPU DeviceType = 1 << iota
	GPU
	Other
	AllDevices DeviceType = 0xFF
)

func (dt DeviceType) String() string {
	switch dt {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	case Other:
		return "Other"
	default:
		return "Unknown"
	}
}

// Info describes a device without requiring it to be initialized.
type Info struct {
	Name  string
	Type  DeviceType
	Speed uint32 // approximate GFLOPS
}

func (i Info) String() string {
	return i.Name + " (" + i.Type.String() + ")"
}

// Device is the compute backend's entry point: it loads kernel source,
// hands out buffers and kernels bound to itself, and reports its own
// identity.
type Device interface {
	Info() Info
	// Init compiles/prepares the given kernel source (a file path for the
	// OpenCL backend, ignored by the reference backend) so that Kernel
	// can subsequently resolve kernel names against it.
	Init(programSource string) error
	Kernel(name string) (Kernel, error)
	Buffer(name string) Buffer
	Close()
}

// Buffer is host-addressable storage that a Device can read into and write
// out of. All offsets and sizes are in bytes, mirroring the reference
// engine's AllocateAndWriteData/ReadData/WriteData contract.
type Buffer interface {
	Name() string
	Size() int
	Allocate(size int, flags MemFlags) error
	AllocateAndWriteData(data interface{}, flags MemFlags) error
	WriteData(data interface{}, byteOffset int) error
	ReadData(srcByteOffset, dstByteOffset, size int, dst interface{}) error
	// Fill writes a repeating pattern (the bytes of pattern) across the
	// buffer's full extent; len(pattern) must divide the buffer size.
	Fill(pattern interface{}) error
	Release()
}

// Kernel is a named unit of parallel work bound to a Device.
type Kernel interface {
	Name() string
	SetArgs(args ...interface{}) error
	// Exec1D launches globalWorkSize work items starting at offset,
	// grouped into localWorkSize-sized workgroups (0 lets the backend
	// pick a size), and blocks until they complete.
	Exec1D(offset, globalWorkSize, localWorkSize int) (time.Duration, error)
	Release()
}
