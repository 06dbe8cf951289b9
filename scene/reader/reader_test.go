package reader

import (
	"io/ioutil"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/achilleasa/rtaccel/scenebuf"
	"github.com/achilleasa/rtaccel/types"
)

func mockResource(payload string) *resource {
	u, _ := url.Parse("embedded")
	return &resource{
		ReadCloser: ioutil.NopCloser(strings.NewReader(payload)),
		url:        u,
	}
}

func TestParseLightsAndSpheres(t *testing.T) {
	payload := `
# a comment
LIGHT 1 2 3 10

SPHERE 0 0 0 5
`
	r := newSceneReader()
	if err := r.parse(mockResource(payload)); err != nil {
		t.Fatal(err)
	}
	data, err := r.builder.Build()
	if err != nil {
		t.Fatal(err)
	}
	scene, err := scenebuf.Open(data)
	if err != nil {
		t.Fatal(err)
	}

	if scene.Header().NumberOfLights != 1 {
		t.Fatalf("expected 1 light; got %d", scene.Header().NumberOfLights)
	}
	light, err := scene.GetLight(0)
	if err != nil {
		t.Fatal(err)
	}
	if light.Position != (types.Vec3{1, 2, 3}) || light.Energy != 10 {
		t.Fatalf("unexpected light: %+v", light)
	}

	if scene.Header().NumberOfSpheres != 1 {
		t.Fatalf("expected 1 sphere; got %d", scene.Header().NumberOfSpheres)
	}
	sphere, err := scene.GetSphere(0)
	if err != nil {
		t.Fatal(err)
	}
	if sphere.Radius != 5 {
		t.Fatalf("expected radius 5; got %f", sphere.Radius)
	}
}

func TestParseMeshDeduplicatesMaterial(t *testing.T) {
	payload := `
MESH a.model
MESH b.model
`
	r := newSceneReader()
	if err := r.parse(mockResource(payload)); err != nil {
		t.Fatal(err)
	}
	data, err := r.builder.Build()
	if err != nil {
		t.Fatal(err)
	}
	scene, err := scenebuf.Open(data)
	if err != nil {
		t.Fatal(err)
	}

	if scene.Header().NumberOfModels != 2 {
		t.Fatalf("expected 2 models; got %d", scene.Header().NumberOfModels)
	}
	if scene.Header().NumberOfMaterials != 1 {
		t.Fatalf("expected the two default triangles to share one material; got %d", scene.Header().NumberOfMaterials)
	}
}

func TestParseRejectsUnknownDirective(t *testing.T) {
	r := newSceneReader()
	err := r.parse(mockResource("FOO 1 2 3"))
	if err == nil || !strings.Contains(err.Error(), "unsupported directive") {
		t.Fatalf("expected an unsupported-directive error; got %v", err)
	}
}

func TestParseRejectsWrongArgCount(t *testing.T) {
	r := newSceneReader()
	err := r.parse(mockResource("LIGHT 1 2 3"))
	if err == nil || !strings.Contains(err.Error(), "expected 4 arguments") {
		t.Fatalf("expected an argument-count error; got %v", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	f, err := ioutil.TempFile("", "scene-*.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString("LIGHT 0 0 0 5\nSPHERE 1 1 1 2\nMESH mesh.obj\n")
	f.Close()

	scene, err := Load(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if scene.Header().NumberOfLights != 1 || scene.Header().NumberOfSpheres != 1 || scene.Header().NumberOfModels != 1 {
		t.Fatalf("unexpected header: %+v", scene.Header())
	}
}
