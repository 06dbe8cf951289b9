// Package reader loads a scene description from its line-oriented on-disk
// grammar into a packed scene buffer (scenebuf.Builder does the packing).
//
// One directive per line:
//
//	LIGHT x y z energy
//	SPHERE cx cy cz r
//	MESH path/to/model
//
// Blank lines and lines starting with '#' are ignored. LIGHT declares a
// point light with linear distance falloff (max(1 - d/energy, 0) * energy);
// full triangle-mesh parsing is a named external collaborator, so MESH
// lines materialize a single default triangle so the rest of the pipeline
// stays exercisable without it.
package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/achilleasa/rtaccel/scenebuf"
	"github.com/achilleasa/rtaccel/types"
)

// defaultMaterial is the single material assigned to every MESH placeholder
// triangle; de-duplication collapses repeat MESH lines onto one entry.
var defaultMaterial = scenebuf.Material{
	SurfaceType: 0,
	IOR:         1,
	Diffuse:     types.Vec3{0.7, 0.7, 0.7},
	Emissive:    types.Vec3{0, 0, 0},
}

type sceneReader struct {
	builder *scenebuf.Builder

	// materials seen so far, keyed by exact struct equality.
	matIndex map[scenebuf.Material]int

	// An error stack that provides additional error information when
	// scene files reference other files.
	errStack []string
}

func newSceneReader() *sceneReader {
	return &sceneReader{
		builder:  scenebuf.NewBuilder(),
		matIndex: make(map[scenebuf.Material]int),
	}
}

// Load parses sceneFile and returns the resulting scene buffer.
func Load(sceneFile string) (*scenebuf.Buffer, error) {
	res, err := newResource(sceneFile, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	r := newSceneReader()
	if err := r.parse(res); err != nil {
		return nil, err
	}

	data, err := r.builder.Build()
	if err != nil {
		return nil, err
	}
	return scenebuf.Open(data)
}

// materialIndex returns m's index, adding it if this is the first time it
// has been seen.
func (r *sceneReader) materialIndex(m scenebuf.Material) int {
	if idx, ok := r.matIndex[m]; ok {
		return idx
	}
	idx := r.builder.AddMaterial(m)
	r.matIndex[m] = idx
	return idx
}

// Generate an error message that also includes any data in the error stack.
func (r *sceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)

	var errMsg string
	if file != "" {
		errMsg = strings.Trim(
			fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	} else {
		errMsg = strings.Trim(
			fmt.Sprintf("error: %s\n%s", msg, strings.Join(r.errStack, "\n")),
			"\n",
		)
	}

	return fmt.Errorf(errMsg)
}

func (r *sceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

func (r *sceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

func (r *sceneReader) parse(res *resource) error {
	lineNum := 0
	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || tokens[0][0] == '#' {
			continue
		}

		var err error
		switch tokens[0] {
		case "LIGHT":
			err = r.parseLight(tokens)
		case "SPHERE":
			err = r.parseSphere(tokens)
		case "MESH":
			err = r.parseMesh(tokens)
		default:
			err = fmt.Errorf("unsupported directive '%s'", tokens[0])
		}
		if err != nil {
			return r.emitError(res.Path(), lineNum, err.Error())
		}
	}
	return scanner.Err()
}

func (r *sceneReader) parseLight(tokens []string) error {
	args, err := parseFloats(tokens, 4)
	if err != nil {
		return err
	}
	r.builder.AddLight(scenebuf.Light{
		Position: types.Vec3{args[0], args[1], args[2]},
		Color:    types.Vec3{1, 1, 1},
		Energy:   args[3],
	})
	return nil
}

func (r *sceneReader) parseSphere(tokens []string) error {
	args, err := parseFloats(tokens, 4)
	if err != nil {
		return err
	}
	r.builder.AddSphere(scenebuf.Sphere{
		Center: types.Vec3{args[0], args[1], args[2]},
		Radius: args[3],
	})
	return nil
}

// parseMesh accepts and discards the referenced path; the actual mesh data
// comes from a triangle-mesh parser this repository does not implement. It
// materializes a single default triangle so the pipeline downstream of the
// scene buffer (acceleration structure construction, contact generation)
// can still be exercised end-to-end.
func (r *sceneReader) parseMesh(tokens []string) error {
	if len(tokens) != 2 {
		return fmt.Errorf("unsupported syntax for 'MESH'; expected 1 argument; got %d", len(tokens)-1)
	}

	matIdx := r.materialIndex(defaultMaterial)
	r.builder.AddModel([]scenebuf.SubmeshInput{
		{
			MaterialIndex: matIdx,
			Vertices: []types.Vec3{
				{0, 0, 0},
				{1, 0, 0},
				{0, 1, 0},
			},
			Indices: []uint16{0, 1, 2},
		},
	})
	return nil
}

// parseFloats parses exactly n float32 arguments following tokens[0].
func parseFloats(tokens []string, n int) ([]float32, error) {
	if len(tokens) != n+1 {
		return nil, fmt.Errorf("unsupported syntax for '%s'; expected %d arguments; got %d", tokens[0], n, len(tokens)-1)
	}

	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(tokens[i+1], 32)
		if err != nil {
			return nil, fmt.Errorf("could not parse argument %d of '%s': %s", i+1, tokens[0], err.Error())
		}
		out[i] = float32(v)
	}
	return out, nil
}
