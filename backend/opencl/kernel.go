package opencl

import (
	"fmt"
	"reflect"
	"time"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"

	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/types"
)

// Kernel wraps an OpenCL kernel handle bound to a Device.
type Kernel struct {
	device *Device
	handle cl.Kernel
	name   string

	offsets         [1]uint64
	globalWorkSizes [1]uint64
	localWorkSizes  [1]uint64
}

func (k *Kernel) Name() string { return k.name }

func (k *Kernel) SetArgs(args ...interface{}) error {
	var errCode cl.ErrorCode
	for i, arg := range args {
		switch v := arg.(type) {
		case *Buffer:
			h := v.handleForKernelArg()
			errCode = cl.SetKernelArg(k.handle, uint32(i), 8, unsafe.Pointer(&h))
		case int32:
			errCode = cl.SetKernelArg(k.handle, uint32(i), 4, unsafe.Pointer(&v))
		case uint32:
			errCode = cl.SetKernelArg(k.handle, uint32(i), 4, unsafe.Pointer(&v))
		case float32:
			errCode = cl.SetKernelArg(k.handle, uint32(i), 4, unsafe.Pointer(&v))
		case types.Vec2:
			errCode = cl.SetKernelArg(k.handle, uint32(i), 8, unsafe.Pointer(&v[0]))
		case types.Vec3:
			errCode = cl.SetKernelArg(k.handle, uint32(i), 12, unsafe.Pointer(&v[0]))
		case types.Vec4:
			errCode = cl.SetKernelArg(k.handle, uint32(i), 16, unsafe.Pointer(&v[0]))
		default:
			return fmt.Errorf("opencl device (%s): could not set arg %d for kernel %s: unsupported type %s", k.device.name, i, k.name, reflect.TypeOf(arg))
		}
		if errCode != cl.SUCCESS {
			return fmt.Errorf("opencl device (%s): could not set arg %d for kernel %s (code %d)", k.device.name, i, k.name, errCode)
		}
	}
	return nil
}

func (k *Kernel) Exec1D(offset, globalWorkSize, localWorkSize int) (time.Duration, error) {
	var offsetPtr, localSizePtr *uint64

	if offset > 0 {
		k.offsets[0] = uint64(offset)
		offsetPtr = &k.offsets[0]
	}
	k.globalWorkSizes[0] = uint64(globalWorkSize)
	if localWorkSize != 0 {
		k.localWorkSizes[0] = uint64(localWorkSize)
		localSizePtr = &k.localWorkSizes[0]
	}

	tick := time.Now()
	errCode := cl.EnqueueNDRangeKernel(k.device.cmdQueue, k.handle, 1, offsetPtr, &k.globalWorkSizes[0], localSizePtr, 0, nil, nil)
	if errCode != cl.SUCCESS {
		return 0, fmt.Errorf("opencl device (%s): unable to execute kernel %s (code %d)", k.device.name, k.name, errCode)
	}
	errCode = cl.Finish(k.device.cmdQueue)
	if errCode != cl.SUCCESS {
		return 0, fmt.Errorf("opencl device (%s): kernel %s did not complete (code %d)", k.device.name, k.name, errCode)
	}
	return time.Since(tick), nil
}

func (k *Kernel) Release() {
	if k.handle != nil {
		cl.ReleaseKernel(k.handle)
		k.handle = nil
	}
}
