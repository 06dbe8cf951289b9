package opencl

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"

	"github.com/achilleasa/rtaccel/backend"
)

// Buffer wraps an OpenCL memory object.
type Buffer struct {
	device *Device
	name   string
	handle cl.Mem
	size   int
}

func (b *Buffer) Name() string { return b.name }
func (b *Buffer) Size() int    { return b.size }

func (b *Buffer) Allocate(size int, flags backend.MemFlags) error {
	b.Release()

	var errPtr *int32
	b.handle = cl.CreateBuffer(*b.device.ctx, toCLFlags(flags), cl.MemFlags(size), nil, errPtr)
	if errPtr != nil && cl.ErrorCode(*errPtr) != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): could not allocate buffer %s of size %d (code %d)", b.device.name, b.name, size, *errPtr)
	}
	b.size = size
	return nil
}

func (b *Buffer) AllocateAndWriteData(data interface{}, flags backend.MemFlags) error {
	b.Release()

	dataPtr, dataLen := sliceData(data)
	var errPtr *int32
	b.handle = cl.CreateBuffer(*b.device.ctx, toCLFlags(flags)|cl.MEM_USE_HOST_PTR, cl.MemFlags(dataLen), dataPtr, errPtr)
	if errPtr != nil && cl.ErrorCode(*errPtr) != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): could not allocate buffer %s of size %d (code %d)", b.device.name, b.name, dataLen, *errPtr)
	}
	b.size = dataLen
	return nil
}

func (b *Buffer) WriteData(data interface{}, byteOffset int) error {
	dataPtr, dataLen := sliceData(data)
	if byteOffset+dataLen > b.size {
		return fmt.Errorf("opencl device (%s): insufficient space (%d) in %s for write of length %d at offset %d", b.device.name, b.size, b.name, dataLen, byteOffset)
	}
	errCode := cl.EnqueueWriteBuffer(b.device.cmdQueue, b.handle, cl.TRUE, uint64(byteOffset), uint64(dataLen), dataPtr, 0, nil, nil)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): error writing to buffer %s (code %d)", b.device.name, b.name, errCode)
	}
	return nil
}

func (b *Buffer) ReadData(srcByteOffset, dstByteOffset, size int, dst interface{}) error {
	if size <= 0 {
		size = b.size
	}
	dataPtr, _ := sliceData(dst)
	errCode := cl.EnqueueReadBuffer(
		b.device.cmdQueue,
		b.handle,
		cl.TRUE,
		uint64(srcByteOffset),
		uint64(size),
		unsafe.Pointer(uintptr(dataPtr)+uintptr(dstByteOffset)),
		0, nil, nil,
	)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): error reading from buffer %s (code %d)", b.device.name, b.name, errCode)
	}
	return nil
}

// Fill replicates pattern across the buffer's full extent. The v1.2 binding
// used here has no EnqueueFillBuffer wrapper, so this builds a host-side
// replica and pushes it with the same EnqueueWriteBuffer path WriteData
// uses.
func (b *Buffer) Fill(pattern interface{}) error {
	_, patternLen := sliceData(pattern)
	if patternLen == 0 || b.size%patternLen != 0 {
		return fmt.Errorf("opencl device (%s): pattern length %d does not evenly divide buffer %s size %d", b.device.name, patternLen, b.name, b.size)
	}
	patternBytes := unsafe.Slice((*byte)(func() unsafe.Pointer { p, _ := sliceData(pattern); return p }()), patternLen)

	replica := make([]byte, b.size)
	for off := 0; off < b.size; off += patternLen {
		copy(replica[off:off+patternLen], patternBytes)
	}

	errCode := cl.EnqueueWriteBuffer(b.device.cmdQueue, b.handle, cl.TRUE, 0, uint64(b.size), unsafe.Pointer(&replica[0]), 0, nil, nil)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): error filling buffer %s (code %d)", b.device.name, b.name, errCode)
	}
	return nil
}

func (b *Buffer) Release() {
	if b.handle != nil {
		cl.ReleaseMemObject(b.handle)
		b.handle = nil
	}
}

func (b *Buffer) handleForKernelArg() cl.Mem { return b.handle }

// sliceData returns a pointer to a slice's backing array and its length in
// bytes. Panics on non-slice or empty input, matching the reference
// engine's getSliceData contract.
func sliceData(data interface{}) (unsafe.Pointer, int) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		panic("opencl: sliceData only supports slices")
	}
	if v.Len() == 0 {
		panic("opencl: sliceData received an empty slice")
	}
	return unsafe.Pointer(v.Index(0).Addr().Pointer()), v.Len() * int(reflect.TypeOf(data).Elem().Size())
}
