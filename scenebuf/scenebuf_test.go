package scenebuf

import (
	"testing"

	"github.com/achilleasa/rtaccel/types"
)

func buildSimpleScene(t *testing.T) *Buffer {
	t.Helper()
	builder := NewBuilder()
	builder.AddLight(Light{Position: types.XYZ(0, 5, 0), Color: types.XYZ(1, 1, 1), Energy: 10})
	builder.AddSphere(Sphere{Center: types.XYZ(0, 0, 0), Radius: 1})
	matIdx := builder.AddMaterial(Material{SurfaceType: 1, IOR: 1.5, Diffuse: types.XYZ(0.8, 0.1, 0.1)})

	builder.AddModel([]SubmeshInput{
		{
			MaterialIndex: matIdx,
			Vertices: []types.Vec3{
				types.XYZ(0, 0, 0),
				types.XYZ(1, 0, 0),
				types.XYZ(0, 1, 0),
				types.XYZ(1, 1, 0),
			},
			Indices: []uint16{0, 1, 2, 1, 3, 2},
		},
	})

	data, err := builder.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	buf, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return buf
}

func TestHeaderCounts(t *testing.T) {
	buf := buildSimpleScene(t)
	h := buf.Header()
	if h.NumberOfLights != 1 || h.NumberOfSpheres != 1 || h.NumberOfMaterials != 1 || h.NumberOfModels != 1 {
		t.Fatalf("unexpected header counts: %+v", h)
	}
	if h.TotalTriangleCount != 2 {
		t.Fatalf("expected 2 triangles, got %d", h.TotalTriangleCount)
	}
}

func TestGetLightSphereMaterial(t *testing.T) {
	buf := buildSimpleScene(t)

	light, err := buf.GetLight(0)
	if err != nil {
		t.Fatalf("GetLight: %v", err)
	}
	if light.Energy != 10 {
		t.Fatalf("unexpected light energy: %v", light.Energy)
	}

	sphere, err := buf.GetSphere(0)
	if err != nil {
		t.Fatalf("GetSphere: %v", err)
	}
	if sphere.Radius != 1 {
		t.Fatalf("unexpected sphere radius: %v", sphere.Radius)
	}

	mat, err := buf.GetMaterial(0)
	if err != nil {
		t.Fatalf("GetMaterial: %v", err)
	}
	if mat.IOR != 1.5 {
		t.Fatalf("unexpected material IOR: %v", mat.IOR)
	}
}

func TestGetModelAndSubmesh(t *testing.T) {
	buf := buildSimpleScene(t)

	mh, modelOff, err := buf.GetModel(0)
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	if mh.NumberOfSubmeshes != 1 {
		t.Fatalf("expected 1 submesh, got %d", mh.NumberOfSubmeshes)
	}

	sm, meshOff, err := buf.GetSubmesh(modelOff, 0)
	if err != nil {
		t.Fatalf("GetSubmesh: %v", err)
	}
	if sm.NumberOfVertices != 4 || sm.NumberOfIndices != 6 {
		t.Fatalf("unexpected submesh counts: %+v", sm)
	}

	v0, err := buf.GetVertex(meshOff, 0)
	if err != nil {
		t.Fatalf("GetVertex: %v", err)
	}
	if v0 != types.XYZ(0, 0, 0) {
		t.Fatalf("unexpected vertex 0: %v", v0)
	}
}

func TestResolveTriangleAndVertices(t *testing.T) {
	buf := buildSimpleScene(t)

	ref, err := buf.ResolveTriangle(1)
	if err != nil {
		t.Fatalf("ResolveTriangle: %v", err)
	}
	if ref.Model != 0 || ref.Submesh != 0 || ref.LocalTri != 1 {
		t.Fatalf("unexpected triangle ref: %+v", ref)
	}

	v0, v1, v2, err := buf.TriangleVertices(1)
	if err != nil {
		t.Fatalf("TriangleVertices: %v", err)
	}
	want := [3]types.Vec3{types.XYZ(1, 0, 0), types.XYZ(1, 1, 0), types.XYZ(0, 1, 0)}
	got := [3]types.Vec3{v0, v1, v2}
	if got != want {
		t.Fatalf("unexpected triangle vertices: got %v want %v", got, want)
	}
}

func TestResolveTriangleOutOfRange(t *testing.T) {
	buf := buildSimpleScene(t)
	if _, err := buf.ResolveTriangle(100); err == nil {
		t.Fatalf("expected an error for an out-of-range triangle index")
	}
}

func TestOpenRejectsTruncatedBuffer(t *testing.T) {
	if _, err := Open([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected an error for a truncated buffer")
	}
}
