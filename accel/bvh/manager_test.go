package bvh

import (
	"math"
	"testing"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/backend/reference"
	"github.com/achilleasa/rtaccel/camera"
	"github.com/achilleasa/rtaccel/scenebuf"
	"github.com/achilleasa/rtaccel/triangle"
	"github.com/achilleasa/rtaccel/types"
)

func newTestManager(t *testing.T, data []byte) (*Manager, *scenebuf.Buffer) {
	t.Helper()
	scene, err := scenebuf.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m := NewManager(reference.New("test"))
	if err := m.Initialize(""); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.InitializeFrame(scene); err != nil {
		t.Fatalf("InitializeFrame: %v", err)
	}
	if err := m.Construct(); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	return m, scene
}

func singleTriangleScene(t *testing.T) []byte {
	t.Helper()
	b := scenebuf.NewBuilder()
	b.AddMaterial(scenebuf.Material{})
	b.AddModel([]scenebuf.SubmeshInput{
		{
			MaterialIndex: 0,
			Vertices: []types.Vec3{
				{-1, -1, 5},
				{2, -1, 5},
				{-1, 2, 5},
			},
			Indices: []uint16{0, 1, 2},
		},
	})
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}

func quadScene(t *testing.T) []byte {
	t.Helper()
	b := scenebuf.NewBuilder()
	b.AddMaterial(scenebuf.Material{})
	b.AddModel([]scenebuf.SubmeshInput{
		{
			MaterialIndex: 0,
			Vertices: []types.Vec3{
				{-1, -1, 10},
				{1, -1, 10},
				{1, 1, 10},
				{-1, 1, 10},
			},
			Indices: []uint16{0, 1, 2, 0, 2, 3},
		},
	})
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return data
}

// S1: a single triangle hit dead center by an identity pinhole camera.
func TestScenarioS1SingleTriangleCenterPixel(t *testing.T) {
	m, _ := newTestManager(t, singleTriangleScene(t))

	cam := camera.New(float32(math.Pi/2), 16, 16, 1)
	if err := m.GenerateContactsCamera(cam); err != nil {
		t.Fatalf("GenerateContactsCamera: %v", err)
	}

	contacts := m.PrimaryContacts()
	idx := uint32(8)*cam.Width() + 8
	c := contacts[idx]
	if !c.Hit {
		t.Fatalf("expected a hit at the center pixel")
	}
	if math.Abs(float64(c.T-5)) > 0.5 {
		t.Errorf("T = %v, want approximately 5", c.T)
	}
	if c.MaterialIndex != 0 {
		t.Errorf("MaterialIndex = %d, want 0", c.MaterialIndex)
	}
}

// S2: rays through a quad all report t=10; rays missing report no contact.
func TestScenarioS2QuadHitAndMiss(t *testing.T) {
	m, _ := newTestManager(t, quadScene(t))

	hit, err := GenerateContact(m.nodes, m.root, types.Vec3{0, 0, 0}, types.Vec3{0, 0, 1}, m.triangleLookup())
	if err != nil {
		t.Fatalf("GenerateContact: %v", err)
	}
	if !hit.Hit || math.Abs(float64(hit.T-10)) > 1e-3 {
		t.Errorf("hit ray: got %+v, want t=10", hit)
	}

	miss, err := GenerateContact(m.nodes, m.root, types.Vec3{5, 5, 0}, types.Vec3{0, 0, 1}, m.triangleLookup())
	if err != nil {
		t.Fatalf("GenerateContact: %v", err)
	}
	if miss.Hit {
		t.Errorf("miss ray: got a hit %+v, want none", miss)
	}
}

// S3: four identical triangles near the scene AABB's center, whose centroids
// therefore share an identical Morton code, still produce a well-formed tree:
// every leaf is reachable, and every internal node's box contains its
// children's boxes.
func TestScenarioS3DuplicateMortonCodes(t *testing.T) {
	center := types.Vec3{0.5, 0.5, 0.5}
	leaves := make([]LeafInput, 4)
	for i := range leaves {
		leaves[i] = LeafInput{
			Model: 0, Submesh: 0, LocalTri: uint32(i),
			V0: center, V1: center.Add(types.Vec3{0.01, 0, 0}), V2: center.Add(types.Vec3{0, 0.01, 0}),
		}
	}
	sceneBox := aabb.Box{Min: types.Vec4{0, 0, 0, 0}, Max: types.Vec4{1, 1, 1, 0}}

	nodes, root, err := Build(leaves, sceneBox)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	seen := make(map[uint32]bool)
	var walk func(idx uint32)
	walk = func(idx uint32) {
		n := nodes[idx]
		if n.IsLeaf() {
			seen[n.Data[TriangleIdx]] = true
			return
		}
		walk(n.Data[ChildAIdx])
		walk(n.Data[ChildBIdx])
	}
	walk(root)
	if len(seen) != 4 {
		t.Fatalf("reached %d distinct leaves from the root, want 4", len(seen))
	}

	var checkBounds func(idx uint32)
	checkBounds = func(idx uint32) {
		n := nodes[idx]
		if n.IsLeaf() {
			return
		}
		a := nodes[n.Data[ChildAIdx]].Box
		b := nodes[n.Data[ChildBIdx]].Box
		for axis := 0; axis < 3; axis++ {
			if a.Min[axis] < n.Box.Min[axis]-1e-6 || a.Max[axis] > n.Box.Max[axis]+1e-6 {
				t.Errorf("node %d does not enclose child A on axis %d", idx, axis)
			}
			if b.Min[axis] < n.Box.Min[axis]-1e-6 || b.Max[axis] > n.Box.Max[axis]+1e-6 {
				t.Errorf("node %d does not enclose child B on axis %d", idx, axis)
			}
		}
		checkBounds(n.Data[ChildAIdx])
		checkBounds(n.Data[ChildBIdx])
	}
	checkBounds(root)
}

// S6: a large batch of parallel rays traces without stack overflow and
// matches a brute-force scan over the same triangle set.
func TestScenarioS6LargeBatchMatchesBruteForce(t *testing.T) {
	m, _ := newTestManager(t, quadScene(t))

	lookup := m.triangleLookup()
	origins := make([]types.Vec3, 2000)
	dirs := make([]types.Vec3, 2000)
	for i := range origins {
		x := float32(i%50)/25 - 1
		y := float32(i/50%40)/20 - 1
		origins[i] = types.Vec3{x, y, 0}
		dirs[i] = types.Vec3{0, 0, 1}
	}

	got, err := m.GenerateContactsRays(origins, dirs)
	if err != nil {
		t.Fatalf("GenerateContactsRays: %v", err)
	}

	for i := range origins {
		want := bruteForce(m.nodes, origins[i], dirs[i], lookup)
		if got[i].Hit != want.Hit {
			t.Fatalf("ray %d: Hit = %v, want %v", i, got[i].Hit, want.Hit)
		}
		if got[i].Hit && math.Abs(float64(got[i].T-want.T)) > 1e-4*float64(want.T) {
			t.Errorf("ray %d: T = %v, want %v", i, got[i].T, want.T)
		}
	}
}

func bruteForce(nodes []Node, origin, dir types.Vec3, lookup TriangleLookup) Contact {
	best := Contact{T: math.MaxFloat32}
	for _, n := range nodes {
		if !n.IsLeaf() {
			continue
		}
		v0, v1, v2, matIdx := lookup(n.Data[ModelIdx], n.Data[SubmeshIdx], n.Data[TriangleIdx])
		c := triangle.Intersect(v0, v1, v2, origin, dir)
		if c.T > 0 && c.T < best.T {
			best = Contact{Hit: true, T: c.T, Normal: c.Normal, MaterialIndex: matIdx}
		}
	}
	if !best.Hit {
		return Contact{}
	}
	return best
}
