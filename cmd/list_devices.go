package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/backend/opencl"
	"github.com/achilleasa/rtaccel/backend/reference"
	"github.com/urfave/cli"
)

// List available opencl devices, falling back to reporting the reference
// backend if no opencl platform is present.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer

	devices, err := opencl.SelectDevices(backend.AllDevices, "")
	if err != nil || len(devices) == 0 {
		buf.WriteString("no opencl platforms found; falling back to the reference backend\n\n")
		info := reference.New("reference").Info()
		buf.WriteString(fmt.Sprintf("[Device 00]\n  Name %s\n  Type %s\n\n", info.Name, info.Type))
		logger.Info(buf.String())
		return nil
	}

	buf.WriteString(fmt.Sprintf("system provides %d opencl device(s):\n\n", len(devices)))
	for idx, d := range devices {
		info := d.Info()
		buf.WriteString(fmt.Sprintf("[Device %02d]\n  Name  %s\n  Type  %s\n  Speed %d GFLOPS\n\n", idx, info.Name, info.Type, info.Speed))
	}
	logger.Info(buf.String())
	return nil
}
