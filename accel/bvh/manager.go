package bvh

import (
	"fmt"

	"github.com/achilleasa/rtaccel/backend"
	"github.com/achilleasa/rtaccel/camera"
	"github.com/achilleasa/rtaccel/log"
	"github.com/achilleasa/rtaccel/rterr"
	"github.com/achilleasa/rtaccel/scenebuf"
	"github.com/achilleasa/rtaccel/types"
)

var logger = log.New("accel/bvh")

// triangleRecord is what a leaf's lookup key resolves to: its three world
// space vertices and the material it shades with.
type triangleRecord struct {
	v0, v1, v2 types.Vec3
	material   uint32
}

func leafKey(model, submesh, localTri uint32) [3]uint32 {
	return [3]uint32{model, submesh, localTri}
}

// Manager owns the lifecycle of one linear BVH: construction against a
// scene buffer and ray traversal against the constructed tree. It is one
// of the two concrete variants behind accel.Structure.
type Manager struct {
	device      backend.Device
	initialized bool

	scene    *scenebuf.Buffer
	lookup   map[[3]uint32]triangleRecord
	nodes    []Node
	root     uint32
	contacts []Contact
}

// NewManager wraps device, the compute backend this manager's kernels (or,
// for the pure Go construction below, host fan-out) will run against.
func NewManager(device backend.Device) *Manager {
	return &Manager{device: device}
}

// Initialize passes programSource to the device's Init, which compiles the
// kernels the backend needs; no device limits are queried. programSource is
// a path to kernel source the opencl backend compiles against; the
// reference backend ignores it. Idempotent.
func (m *Manager) Initialize(programSource string) error {
	if m.initialized {
		return nil
	}
	if err := m.device.Init(programSource); err != nil {
		return rterr.New("bvh.manager.Initialize", rterr.BackendFailure, err)
	}
	logger.Infof("bvh manager initialized against device %s", m.device.Info())
	m.initialized = true
	return nil
}

// InitializeFrame resets per-frame state and binds the scene the next
// Construct will build a tree over.
func (m *Manager) InitializeFrame(scene *scenebuf.Buffer) error {
	if !m.initialized {
		return rterr.New("bvh.manager.InitializeFrame", rterr.Configuration, fmt.Errorf("Initialize must be called first"))
	}
	m.scene = scene
	m.lookup = nil
	m.nodes = nil
	m.root = UndefinedIndex
	m.contacts = nil
	return nil
}

// Construct builds the tree over every triangle in the bound scene.
func (m *Manager) Construct() error {
	if m.scene == nil {
		return rterr.New("bvh.manager.Construct", rterr.Configuration, fmt.Errorf("InitializeFrame must be called first"))
	}

	numTri := int(m.scene.Header().TotalTriangleCount)
	if numTri == 0 {
		return rterr.New("bvh.manager.Construct", rterr.SceneCorruption, fmt.Errorf("scene contains no triangles"))
	}

	leaves := make([]LeafInput, numTri)
	lookup := make(map[[3]uint32]triangleRecord, numTri)
	for g := 0; g < numTri; g++ {
		ref, err := m.scene.ResolveTriangle(g)
		if err != nil {
			return rterr.New("bvh.manager.Construct", rterr.SceneCorruption, err)
		}
		v0, v1, v2, err := m.scene.TriangleVertices(g)
		if err != nil {
			return rterr.New("bvh.manager.Construct", rterr.SceneCorruption, err)
		}
		_, modelOffset, err := m.scene.GetModel(ref.Model)
		if err != nil {
			return rterr.New("bvh.manager.Construct", rterr.SceneCorruption, err)
		}
		mesh, _, err := m.scene.GetSubmesh(modelOffset, ref.Submesh)
		if err != nil {
			return rterr.New("bvh.manager.Construct", rterr.SceneCorruption, err)
		}

		model, submesh, localTri := uint32(ref.Model), uint32(ref.Submesh), uint32(ref.LocalTri)
		leaves[g] = LeafInput{Model: model, Submesh: submesh, LocalTri: localTri, V0: v0, V1: v1, V2: v2}
		lookup[leafKey(model, submesh, localTri)] = triangleRecord{v0: v0, v1: v1, v2: v2, material: mesh.MaterialIndex}
	}

	sceneBox := m.scene.Header().ModelsBoundingBox

	nodes, root, err := BuildOnDevice(m.device, leaves, sceneBox)
	if err != nil {
		return err
	}

	m.nodes = nodes
	m.root = root
	m.lookup = lookup
	logger.Debugf("constructed bvh over %d triangles, %d nodes", numTri, len(nodes))
	return nil
}

func (m *Manager) triangleLookup() TriangleLookup {
	return func(model, submesh, localTri uint32) (types.Vec3, types.Vec3, types.Vec3, uint32) {
		rec, ok := m.lookup[leafKey(model, submesh, localTri)]
		if !ok {
			return types.Vec3{}, types.Vec3{}, types.Vec3{}, 0
		}
		return rec.v0, rec.v1, rec.v2, rec.material
	}
}

// GenerateContactsCamera fires one primary ray per pixel of cam and stores
// the resulting contacts, retrievable via PrimaryContacts.
func (m *Manager) GenerateContactsCamera(cam *camera.Pinhole) error {
	if m.nodes == nil {
		return rterr.New("bvh.manager.GenerateContactsCamera", rterr.Configuration, fmt.Errorf("Construct must be called first"))
	}

	lookup := m.triangleLookup()
	n := cam.PixelCount()
	contacts := make([]Contact, n)
	for i := uint32(0); i < n; i++ {
		origin, dir := cam.PrimaryRay(i)
		c, err := GenerateContact(m.nodes, m.root, origin, dir, lookup)
		if err != nil {
			return err
		}
		contacts[i] = c
	}
	m.contacts = contacts
	return nil
}

// GenerateContactsRays traces an arbitrary batch of rays, returning one
// contact per input ray without touching the camera-indexed buffer.
func (m *Manager) GenerateContactsRays(origins, dirs []types.Vec3) ([]Contact, error) {
	if m.nodes == nil {
		return nil, rterr.New("bvh.manager.GenerateContactsRays", rterr.Configuration, fmt.Errorf("Construct must be called first"))
	}
	if len(origins) != len(dirs) {
		return nil, rterr.New("bvh.manager.GenerateContactsRays", rterr.Configuration, fmt.Errorf("origins length %d does not match dirs length %d", len(origins), len(dirs)))
	}

	lookup := m.triangleLookup()
	out := make([]Contact, len(origins))
	for i := range origins {
		c, err := GenerateContact(m.nodes, m.root, origins[i], dirs[i], lookup)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// PrimaryContacts returns the contact buffer from the last
// GenerateContactsCamera call.
func (m *Manager) PrimaryContacts() []Contact {
	return m.contacts
}
