package reference

import (
	"fmt"
	"unsafe"

	"github.com/achilleasa/rtaccel/backend"
)

// Buffer is a plain byte slice standing in for device memory.
type Buffer struct {
	device *Device
	name   string
	data   []byte
}

func (b *Buffer) Name() string { return b.name }
func (b *Buffer) Size() int    { return len(b.data) }

func (b *Buffer) Allocate(size int, flags backend.MemFlags) error {
	b.data = make([]byte, size)
	return nil
}

func (b *Buffer) AllocateAndWriteData(data interface{}, flags backend.MemFlags) error {
	ptr, size := sliceData(data)
	b.data = make([]byte, size)
	copy(b.data, unsafe.Slice((*byte)(ptr), size))
	return nil
}

func (b *Buffer) WriteData(data interface{}, byteOffset int) error {
	ptr, size := sliceData(data)
	if byteOffset+size > len(b.data) {
		return fmt.Errorf("reference device (%s): insufficient space (%d) in %s for write of length %d at offset %d", b.device.name, len(b.data), b.name, size, byteOffset)
	}
	copy(b.data[byteOffset:byteOffset+size], unsafe.Slice((*byte)(ptr), size))
	return nil
}

func (b *Buffer) ReadData(srcByteOffset, dstByteOffset, size int, dst interface{}) error {
	if size <= 0 {
		size = len(b.data) - srcByteOffset
	}
	ptr, dstLen := sliceData(dst)
	if dstByteOffset+size > dstLen {
		return fmt.Errorf("reference device (%s): destination too small for read of length %d at offset %d", b.device.name, size, dstByteOffset)
	}
	if srcByteOffset+size > len(b.data) {
		return fmt.Errorf("reference device (%s): buffer %s too small for read of length %d at offset %d", b.device.name, b.name, size, srcByteOffset)
	}
	dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr)+uintptr(dstByteOffset))), size)
	copy(dstBytes, b.data[srcByteOffset:srcByteOffset+size])
	return nil
}

func (b *Buffer) Fill(pattern interface{}) error {
	ptr, patternLen := sliceData(pattern)
	if patternLen == 0 || len(b.data)%patternLen != 0 {
		return fmt.Errorf("reference device (%s): pattern length %d does not evenly divide buffer %s size %d", b.device.name, patternLen, b.name, len(b.data))
	}
	patternBytes := unsafe.Slice((*byte)(ptr), patternLen)
	for off := 0; off < len(b.data); off += patternLen {
		copy(b.data[off:off+patternLen], patternBytes)
	}
	return nil
}

func (b *Buffer) Release() {
	b.data = nil
}

// Bytes exposes the buffer's backing storage directly, letting a reference
// kernel body read/write it without going through ReadData/WriteData.
func (b *Buffer) Bytes() []byte { return b.data }
