// Package reference implements backend.Device entirely in Go: kernels are
// ordinary functions fanned out across goroutines instead of device code,
// and buffers are plain byte slices. It exists so every acceleration
// structure manager can be exercised deterministically in tests without a
// GPU, mirroring the goroutine/WaitGroup fan-out idiom used throughout the
// asset compiler's BVH builder.
package reference

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/achilleasa/rtaccel/backend"
)

// KernelFunc is the body of a reference kernel: given the kernel's arguments
// (as passed to SetArgs) and a work-item index, it performs the equivalent
// of one device thread's work. Kernels are registered by name via
// Device.Register before Device.Kernel looks them up.
type KernelFunc func(args []interface{}, index int)

// Device is an in-process stand-in for a compute device.
type Device struct {
	name string

	mu      sync.Mutex
	kernels map[string]KernelFunc
}

// New returns a reference device with the given display name.
func New(name string) *Device {
	return &Device{name: name, kernels: make(map[string]KernelFunc)}
}

// Register associates a kernel body with a name so Device.Kernel can later
// resolve it. Unlike the OpenCL backend there is no source file to compile;
// this stands in for that build step.
func (d *Device) Register(name string, fn KernelFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kernels[name] = fn
}

// RegisterIfReference registers fn under name on device if device is a
// reference Device, letting a host algorithm supply its own kernel body the
// way a real backend would resolve name against its compiled program.
// It is a no-op for any other backend.Device, which is expected to already
// have name available from the program passed to Init.
func RegisterIfReference(device backend.Device, name string, fn KernelFunc) {
	if d, ok := device.(*Device); ok {
		d.Register(name, fn)
	}
}

func (d *Device) Info() backend.Info {
	return backend.Info{Name: d.name, Type: backend.CPU, Speed: uint32(runtime.NumCPU()) * 1000}
}

// Init is a no-op: kernel bodies are registered directly via Register
// rather than compiled from source.
func (d *Device) Init(programSource string) error {
	return nil
}

func (d *Device) Kernel(name string) (backend.Kernel, error) {
	d.mu.Lock()
	fn, ok := d.kernels[name]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("reference device (%s): unknown kernel %q", d.name, name)
	}
	return &Kernel{device: d, name: name, fn: fn}, nil
}

func (d *Device) Buffer(name string) backend.Buffer {
	return &Buffer{device: d, name: name}
}

func (d *Device) Close() {}

// Kernel runs a KernelFunc across runtime.GOMAXPROCS goroutines, one call
// per work-item index in [offset, offset+globalWorkSize).
type Kernel struct {
	device *Device
	name   string
	fn     KernelFunc
	args   []interface{}
}

func (k *Kernel) Name() string { return k.name }

func (k *Kernel) SetArgs(args ...interface{}) error {
	k.args = args
	return nil
}

func (k *Kernel) Exec1D(offset, globalWorkSize, localWorkSize int) (time.Duration, error) {
	if k.fn == nil {
		return 0, fmt.Errorf("reference device (%s): kernel %s has no body", k.device.name, k.name)
	}

	tick := time.Now()

	workers := runtime.GOMAXPROCS(0)
	if workers > globalWorkSize {
		workers = globalWorkSize
	}
	if workers < 1 {
		return time.Since(tick), nil
	}
	chunk := (globalWorkSize + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := offset + w*chunk
		hi := lo + chunk
		if hi > offset+globalWorkSize {
			hi = offset + globalWorkSize
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				k.fn(k.args, i)
			}
		}(lo, hi)
	}
	wg.Wait()

	return time.Since(tick), nil
}

func (k *Kernel) Release() {}

// sliceData returns a pointer to a slice's backing array and its length in
// bytes; panics on a non-slice or empty argument, matching the OpenCL
// backend's contract so kernel bodies can share buffer-shaped arguments
// across both backends.
func sliceData(data interface{}) (unsafe.Pointer, int) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		panic("reference: sliceData only supports slices")
	}
	if v.Len() == 0 {
		panic("reference: sliceData received an empty slice")
	}
	return unsafe.Pointer(v.Index(0).Addr().Pointer()), v.Len() * int(reflect.TypeOf(data).Elem().Size())
}
