package grid

import (
	"fmt"

	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/camera"
	"github.com/achilleasa/rtaccel/log"
	"github.com/achilleasa/rtaccel/rterr"
	"github.com/achilleasa/rtaccel/scenebuf"
	"github.com/achilleasa/rtaccel/types"
)

var logger = log.New("accel/grid")

type triangleRecord struct {
	v0, v1, v2 types.Vec3
	material   uint32
}

func leafKey(model, submesh, localTri uint32) [3]uint32 {
	return [3]uint32{model, submesh, localTri}
}

// Manager owns the lifecycle of one two-level grid: construction against a
// scene buffer and ray traversal against the constructed structure. It is
// the grid variant behind accel.Structure.
type Manager struct {
	device      backend.Device
	initialized bool

	scene    *scenebuf.Buffer
	lookup   map[[3]uint32]triangleRecord
	grid     *Grid
	contacts []Contact
}

func NewManager(device backend.Device) *Manager {
	return &Manager{device: device}
}

// programSource is a path to kernel source the opencl backend compiles
// against; the reference backend ignores it.
func (m *Manager) Initialize(programSource string) error {
	if m.initialized {
		return nil
	}
	if err := m.device.Init(programSource); err != nil {
		return rterr.New("grid.manager.Initialize", rterr.BackendFailure, err)
	}
	logger.Infof("grid manager initialized against device %s", m.device.Info())
	m.initialized = true
	return nil
}

func (m *Manager) InitializeFrame(scene *scenebuf.Buffer) error {
	if !m.initialized {
		return rterr.New("grid.manager.InitializeFrame", rterr.Configuration, fmt.Errorf("Initialize must be called first"))
	}
	m.scene = scene
	m.lookup = nil
	m.grid = nil
	m.contacts = nil
	return nil
}

func (m *Manager) Construct() error {
	if m.scene == nil {
		return rterr.New("grid.manager.Construct", rterr.Configuration, fmt.Errorf("InitializeFrame must be called first"))
	}

	numTri := int(m.scene.Header().TotalTriangleCount)
	if numTri == 0 {
		return rterr.New("grid.manager.Construct", rterr.SceneCorruption, fmt.Errorf("scene contains no triangles"))
	}

	leaves := make([]LeafInput, numTri)
	lookup := make(map[[3]uint32]triangleRecord, numTri)
	for g := 0; g < numTri; g++ {
		ref, err := m.scene.ResolveTriangle(g)
		if err != nil {
			return rterr.New("grid.manager.Construct", rterr.SceneCorruption, err)
		}
		v0, v1, v2, err := m.scene.TriangleVertices(g)
		if err != nil {
			return rterr.New("grid.manager.Construct", rterr.SceneCorruption, err)
		}
		_, modelOffset, err := m.scene.GetModel(ref.Model)
		if err != nil {
			return rterr.New("grid.manager.Construct", rterr.SceneCorruption, err)
		}
		mesh, _, err := m.scene.GetSubmesh(modelOffset, ref.Submesh)
		if err != nil {
			return rterr.New("grid.manager.Construct", rterr.SceneCorruption, err)
		}

		model, submesh, localTri := uint32(ref.Model), uint32(ref.Submesh), uint32(ref.LocalTri)
		leaves[g] = LeafInput{Model: model, Submesh: submesh, LocalTri: localTri, V0: v0, V1: v1, V2: v2}
		lookup[leafKey(model, submesh, localTri)] = triangleRecord{v0: v0, v1: v1, v2: v2, material: mesh.MaterialIndex}
	}

	grid, err := BuildOnDevice(m.device, leaves, m.scene.Header().ModelsBoundingBox)
	if err != nil {
		return err
	}

	m.grid = grid
	m.lookup = lookup
	logger.Debugf("constructed grid over %d triangles, top res %v", numTri, grid.Data.Res)
	return nil
}

func (m *Manager) triangleLookup() TriangleLookup {
	return func(model, submesh, localTri uint32) uint32 {
		rec, ok := m.lookup[leafKey(model, submesh, localTri)]
		if !ok {
			return 0
		}
		return rec.material
	}
}

func (m *Manager) GenerateContactsCamera(cam *camera.Pinhole) error {
	if m.grid == nil {
		return rterr.New("grid.manager.GenerateContactsCamera", rterr.Configuration, fmt.Errorf("Construct must be called first"))
	}

	lookup := m.triangleLookup()
	n := cam.PixelCount()
	contacts := make([]Contact, n)
	for i := uint32(0); i < n; i++ {
		origin, dir := cam.PrimaryRay(i)
		contacts[i] = GenerateContact(m.grid, origin, dir, lookup)
	}
	m.contacts = contacts
	return nil
}

func (m *Manager) GenerateContactsRays(origins, dirs []types.Vec3) ([]Contact, error) {
	if m.grid == nil {
		return nil, rterr.New("grid.manager.GenerateContactsRays", rterr.Configuration, fmt.Errorf("Construct must be called first"))
	}
	if len(origins) != len(dirs) {
		return nil, rterr.New("grid.manager.GenerateContactsRays", rterr.Configuration, fmt.Errorf("origins length %d does not match dirs length %d", len(origins), len(dirs)))
	}

	lookup := m.triangleLookup()
	out := make([]Contact, len(origins))
	for i := range origins {
		out[i] = GenerateContact(m.grid, origins[i], dirs[i], lookup)
	}
	return out, nil
}

func (m *Manager) PrimaryContacts() []Contact {
	return m.contacts
}
