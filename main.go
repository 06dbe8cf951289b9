package main

import (
	"os"

	"github.com/achilleasa/rtaccel/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "rtaccel"
	app.Usage = "build and query GPU-style ray tracing acceleration structures"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-devices",
			Usage:  "list available opencl devices",
			Action: cmd.ListDevices,
		},
		{
			Name:  "render",
			Usage: "construct an acceleration structure for a scene and trace one frame through it",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "winW",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "winH",
					Value: 512,
					Usage: "frame height",
				},
				cli.StringFlag{
					Name:  "accStruct",
					Value: "BVH",
					Usage: "acceleration structure to build: BVH or GRID",
				},
				cli.StringFlag{
					Name:  "headersPath",
					Usage: "path to opencl kernel source; ignored by the reference backend",
				},
				cli.StringFlag{
					Name:  "scene",
					Usage: "path to the scene file to load",
				},
			},
			Action: cmd.RenderFrame,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		os.Exit(1)
	}
}
