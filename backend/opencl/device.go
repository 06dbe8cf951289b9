// Package opencl adapts github.com/achilleasa/gopencl/v1.2/cl into the
// backend.Device/Buffer/Kernel contract. It is a straightforward
// generalization of the reference engine's device wrapper: same context/
// command-queue/program lifecycle, same error-name lookup, retargeted at
// the shared backend interfaces instead of being consumed directly.
package opencl

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"

	"github.com/achilleasa/rtaccel/backend"
)

// Device wraps a single OpenCL device: context, command queue and compiled
// program.
type Device struct {
	name       string
	id         cl.DeviceId
	devType    backend.DeviceType
	compUnits  uint32
	clockSpeed uint32
	speed      uint32

	ctx      *cl.Context
	cmdQueue cl.CommandQueue
	program  cl.Program
}

// New wraps an already-enumerated OpenCL device id.
func New(name string, id cl.DeviceId, devType backend.DeviceType) *Device {
	return &Device{name: name, id: id, devType: devType}
}

func (d *Device) Info() backend.Info {
	return backend.Info{Name: d.name, Type: d.devType, Speed: d.speed}
}

func (d *Device) Init(programFile string) error {
	var errCode cl.ErrorCode

	if d.ctx != nil {
		return nil
	}

	if err := d.detectSpeed(); err != nil {
		return err
	}

	d.ctx = cl.CreateContext(nil, 1, &d.id, nil, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return fmt.Errorf("opencl device (%s): could not create context (%s; code %d)", d.name, ErrorName(errCode), errCode)
	}

	d.cmdQueue = cl.CreateCommandQueue(*d.ctx, d.id, 0, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return fmt.Errorf("opencl device (%s): could not create command queue (%s; code %d)", d.name, ErrorName(errCode), errCode)
	}

	absProgramPath, err := filepath.Abs(programFile)
	if err != nil {
		defer d.Close()
		return err
	}

	f, err := os.Open(absProgramPath)
	if err != nil {
		defer d.Close()
		return err
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		defer d.Close()
		return err
	}
	progSrc := cl.Str(string(data) + "\x00")

	d.program = cl.CreateProgramWithSource(*d.ctx, 1, &progSrc, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		defer d.Close()
		return fmt.Errorf("opencl device (%s): could not create program (%s; code %d)", d.name, ErrorName(errCode), errCode)
	}

	errCode = cl.BuildProgram(d.program, 1, &d.id, cl.Str(fmt.Sprintf("-I %s\x00", filepath.Dir(absProgramPath))), nil, nil)
	if errCode != cl.SUCCESS {
		var dataLen uint64
		buildLog := make([]byte, 120000)
		cl.GetProgramBuildInfo(d.program, d.id, cl.PROGRAM_BUILD_LOG, uint64(len(buildLog)), unsafe.Pointer(&buildLog[0]), &dataLen)
		defer d.Close()
		return fmt.Errorf("opencl device (%s): could not build program (%s; code %d):\n%s", d.name, ErrorName(errCode), errCode, string(buildLog[0:dataLen-1]))
	}

	return nil
}

func (d *Device) Kernel(name string) (backend.Kernel, error) {
	var errCode cl.ErrorCode
	handle := cl.CreateKernel(d.program, cl.Str(name+"\x00"), (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return nil, fmt.Errorf("opencl device (%s): could not load kernel %s (%s; code %d)", d.name, name, ErrorName(errCode), errCode)
	}
	return &Kernel{device: d, handle: handle, name: name}, nil
}

func (d *Device) Buffer(name string) backend.Buffer {
	return &Buffer{device: d, name: name}
}

func (d *Device) Close() {
	if d.program != nil {
		cl.ReleaseProgram(d.program)
		d.program = nil
	}
	if d.cmdQueue != nil {
		cl.ReleaseCommandQueue(d.cmdQueue)
		d.cmdQueue = nil
	}
	if d.ctx != nil {
		cl.ReleaseContext(d.ctx)
		d.ctx = nil
	}
}

func (d *Device) detectSpeed() error {
	errCode := cl.GetDeviceInfo(d.id, cl.DEVICE_MAX_COMPUTE_UNITS, 4, unsafe.Pointer(&d.compUnits), nil)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): could not query MAX_COMPUTE_UNITS (code %d)", d.name, errCode)
	}
	errCode = cl.GetDeviceInfo(d.id, cl.DEVICE_MAX_CLOCK_FREQUENCY, 4, unsafe.Pointer(&d.clockSpeed), nil)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): could not query MAX_CLOCK_FREQUENCY (code %d)", d.name, errCode)
	}
	d.speed = d.compUnits * d.clockSpeed / 1000
	return nil
}

func toCLFlags(flags backend.MemFlags) cl.MemFlags {
	switch {
	case flags&backend.ReadOnly != 0:
		return cl.MEM_READ_ONLY
	case flags&backend.WriteOnly != 0:
		return cl.MEM_WRITE_ONLY
	default:
		return cl.MEM_READ_WRITE
	}
}

// ErrorName returns a textual description of an OpenCL error code.
func ErrorName(errCode cl.ErrorCode) string {
	switch errCode {
	case cl.SUCCESS:
		return "SUCCESS"
	case -4:
		return "MEM_OBJECT_ALLOCATION_FAILURE"
	case -5:
		return "OUT_OF_RESOURCES"
	case -6:
		return "OUT_OF_HOST_MEMORY"
	case -11:
		return "BUILD_PROGRAM_FAILURE"
	case -30:
		return "INVALID_VALUE"
	case -38:
		return "INVALID_MEM_OBJECT"
	case -48:
		return "INVALID_KERNEL"
	case -54:
		return "INVALID_WORK_GROUP_SIZE"
	case -63:
		return "INVALID_GLOBAL_WORK_SIZE"
	default:
		return fmt.Sprintf("unknown error code %d", errCode)
	}
}
