package accel

import (
	"testing"

	"github.com/achilleasa/rtaccel/backend/reference"
	"github.com/achilleasa/rtaccel/camera"
	"github.com/achilleasa/rtaccel/scenebuf"
	"github.com/achilleasa/rtaccel/types"
)

func buildSingleTriangleScene(t *testing.T) *scenebuf.Buffer {
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
	scene, err := scenebuf.Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return scene
}

func TestStructureBothKindsHitTheSameTriangle(t *testing.T) {
	for _, kind := range []Kind{KindBVH, KindGrid} {
		t.Run(kind.String(), func(t *testing.T) {
			scene := buildSingleTriangleScene(t)
			s := New(kind, reference.New("test"))
			if err := s.Initialize(""); err != nil {
				t.Fatalf("Initialize: %v", err)
			}
			if err := s.InitializeFrame(scene); err != nil {
				t.Fatalf("InitializeFrame: %v", err)
			}
			if err := s.Construct(); err != nil {
				t.Fatalf("Construct: %v", err)
			}

			contacts, err := s.GenerateContactsRays(
				[]types.Vec3{{0, 0, 0}},
				[]types.Vec3{{0, 0, 1}},
			)
			if err != nil {
				t.Fatalf("GenerateContactsRays: %v", err)
			}
			if len(contacts) != 1 || !contacts[0].Hit {
				t.Fatalf("expected one hit, got %+v", contacts)
			}

			cam := camera.New(1.0, 4, 4, 1)
			if err := s.GenerateContactsCamera(cam); err != nil {
				t.Fatalf("GenerateContactsCamera: %v", err)
			}
			if len(s.PrimaryContacts()) != int(cam.PixelCount()) {
				t.Errorf("PrimaryContacts length = %d, want %d", len(s.PrimaryContacts()), cam.PixelCount())
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("BVH"); err != nil || k != KindBVH {
		t.Errorf("ParseKind(BVH) = %v, %v", k, err)
	}
	if k, err := ParseKind("GRID"); err != nil || k != KindGrid {
		t.Errorf("ParseKind(GRID) = %v, %v", k, err)
	}
	if _, err := ParseKind("bogus"); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}
