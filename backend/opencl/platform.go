package opencl

import (
	"strings"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"

	"github.com/achilleasa/rtaccel/backend"
)

const (
	platformBufferSize = 100
	deviceBufferSize   = 100
	dataBufferSize     = 1024
)

// SelectDevices scans all available OpenCL platforms and returns the
// devices matching typeMask and containing matchName as a substring of
// their name (matchName == "" matches everything).
func SelectDevices(typeMask backend.DeviceType, matchName string) ([]*Device, error) {
	pids := make([]cl.PlatformID, platformBufferSize)
	data := make([]byte, dataBufferSize)
	var dataLen uint64
	devices := make([]cl.DeviceId, deviceBufferSize)

	var pidCount uint32
	cl.GetPlatformIDs(uint32(len(pids)), &pids[0], &pidCount)

	var out []*Device
	for p := 0; p < int(pidCount); p++ {
		var deviceCount uint32

		if typeMask&backend.CPU != 0 {
			deviceCount = 0
			cl.GetDeviceIDs(pids[p], cl.DEVICE_TYPE_CPU, uint32(deviceBufferSize), &devices[0], &deviceCount)
			for d := 0; d < int(deviceCount); d++ {
				cl.GetDeviceInfo(devices[d], cl.DEVICE_NAME, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
				name := string(data[0 : dataLen-1])
				if matchName != "" && !strings.Contains(name, matchName) {
					continue
				}
				out = append(out, New(name, devices[d], backend.CPU))
			}
		}

		if typeMask&backend.GPU != 0 {
			deviceCount = 0
			cl.GetDeviceIDs(pids[p], cl.DEVICE_TYPE_GPU, uint32(deviceBufferSize), &devices[0], &deviceCount)
			for d := 0; d < int(deviceCount); d++ {
				cl.GetDeviceInfo(devices[d], cl.DEVICE_NAME, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
				name := string(data[0 : dataLen-1])
				if matchName != "" && !strings.Contains(name, matchName) {
					continue
				}
				out = append(out, New(name, devices[d], backend.GPU))
			}
		}
	}

	for _, d := range out {
		if err := d.detectSpeed(); err != nil {
			return nil, err
		}
	}

	return out, nil
}
