package grid

import (
	"math"
	"testing"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/triangle"
	"github.com/achilleasa/rtaccel/types"
)

func sceneBoxUnit() aabb.Box {
	return aabb.Box{Min: types.Vec4{-1, -1, -1, 0}, Max: types.Vec4{1, 1, 1, 0}}
}

// S5: top-level pair count for a single triangle equals its AABB's cell
// count in the top grid, and every surviving leaf-pair entry's leaf cell
// geometrically overlaps the triangle.
func TestScenarioS5SingleTriangleGrid(t *testing.T) {
	leaf := LeafInput{
		Model: 0, Submesh: 0, LocalTri: 0,
		V0: types.Vec3{-0.5, -0.5, 0},
		V1: types.Vec3{0.5, -0.5, 0},
		V2: types.Vec3{0, 0.5, 0},
	}
	box := sceneBoxUnit()

	g, err := Build([]LeafInput{leaf}, box)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	triBox := aabb.TriangleBounds(leaf.V0, leaf.V1, leaf.V2)
	min, max := cellCoordRange(triBox, box.Min.Vec3(), g.Data.Step, g.Data.Res)
	wantCells := int(max[0]-min[0]+1) * int(max[1]-min[1]+1) * int(max[2]-min[2]+1)

	gotCells := 0
	for _, r := range g.TopRanges {
		if r.Begin != UndefinedIndex {
			gotCells += int(r.End - r.Begin)
		}
	}
	if gotCells != wantCells {
		t.Errorf("top-level pair count = %d, want %d", gotCells, wantCells)
	}

	for leafIdx, lr := range g.LeafRanges {
		if lr.Begin == UndefinedIndex {
			continue
		}
		// Locate which top cell owns this leaf index to reconstruct its
		// world-space box for the overlap check.
		var owner TopLevelCell
		var ownerX, ownerY, ownerZ int32
		found := false
		for cellIdx, tc := range g.TopCells {
			if tc.leafCount() == 0 {
				continue
			}
			if uint32(leafIdx) >= tc.FirstLeafIdx && uint32(leafIdx) < tc.FirstLeafIdx+tc.leafCount() {
				owner = tc
				x, y, z := unlinearize(uint32(cellIdx), g.Data.Res)
				ownerX, ownerY, ownerZ = x, y, z
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("leaf %d has a range but no owning top cell", leafIdx)
		}

		rel := uint32(leafIdx) - owner.FirstLeafIdx
		lx, ly, lz := unlinearize(rel, owner.Res)
		origin := cellOrigin(box, g.Data.Step, ownerX, ownerY, ownerZ)
		leafStep := types.Vec3{g.Data.Step[0] / float32(owner.Res[0]), g.Data.Step[1] / float32(owner.Res[1]), g.Data.Step[2] / float32(owner.Res[2])}
		subBox := cellBox(origin, leafStep, lx, ly, lz)
		center := aabb.Centroid(subBox)
		half := types.Vec3{leafStep[0] / 2, leafStep[1] / 2, leafStep[2] / 2}

		if !aabb.TriangleOverlap(center, half, leaf.V0, leaf.V1, leaf.V2) {
			t.Errorf("leaf %d survived refinement but does not overlap the triangle", leafIdx)
		}
	}
}

func TestGenerateContactHitAndMiss(t *testing.T) {
	leaf := LeafInput{
		Model: 0, Submesh: 0, LocalTri: 0,
		V0: types.Vec3{-1, -1, 0},
		V1: types.Vec3{1, -1, 0},
		V2: types.Vec3{1, 1, 0},
	}
	g, err := Build([]LeafInput{leaf}, sceneBoxUnit())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	lookup := func(model, submesh, localTri uint32) uint32 { return 7 }

	hit := GenerateContact(g, types.Vec3{-0.2, -0.2, -2}, types.Vec3{0, 0, 1}, lookup)
	if !hit.Hit {
		t.Fatalf("expected a hit")
	}
	if hit.MaterialIndex != 7 {
		t.Errorf("MaterialIndex = %d, want 7", hit.MaterialIndex)
	}

	miss := GenerateContact(g, types.Vec3{-5, -5, -2}, types.Vec3{0, 0, 1}, lookup)
	if miss.Hit {
		t.Errorf("expected no hit, got %+v", miss)
	}
}

func TestBuildRejectsEmptyLeafSet(t *testing.T) {
	if _, err := Build(nil, sceneBoxUnit()); err == nil {
		t.Fatal("expected an error building a grid from zero leaves")
	}
}

// S6: several stacked triangles overlapping the same leaf cells resolve to
// the closest hit, matching a brute-force scan over every triangle.
func TestScenarioS6StackedTrianglesMatchBruteForce(t *testing.T) {
	leaves := []LeafInput{
		{Model: 0, Submesh: 0, LocalTri: 0, V0: types.Vec3{-1, -1, -0.5}, V1: types.Vec3{1, -1, -0.5}, V2: types.Vec3{0, 1, -0.5}},
		{Model: 0, Submesh: 0, LocalTri: 1, V0: types.Vec3{-1, -1, 0}, V1: types.Vec3{1, -1, 0}, V2: types.Vec3{0, 1, 0}},
		{Model: 0, Submesh: 0, LocalTri: 2, V0: types.Vec3{-1, -1, 0.5}, V1: types.Vec3{1, -1, 0.5}, V2: types.Vec3{0, 1, 0.5}},
	}
	g, err := Build(leaves, sceneBoxUnit())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	lookup := func(model, submesh, localTri uint32) uint32 { return localTri }

	origins := make([]types.Vec3, 400)
	dirs := make([]types.Vec3, 400)
	for i := range origins {
		x := float32(i%20)/10 - 0.9
		y := float32(i/20)/20 - 0.9
		origins[i] = types.Vec3{x, y, -2}
		dirs[i] = types.Vec3{0, 0, 1}
	}

	for i := range origins {
		got := GenerateContact(g, origins[i], dirs[i], lookup)
		want := bruteForceLeaves(leaves, origins[i], dirs[i], lookup)
		if got.Hit != want.Hit {
			t.Fatalf("ray %d: Hit = %v, want %v", i, got.Hit, want.Hit)
		}
		if got.Hit && math.Abs(float64(got.T-want.T)) > 1e-4*float64(want.T) {
			t.Errorf("ray %d: T = %v, want %v", i, got.T, want.T)
		}
	}
}

func bruteForceLeaves(leaves []LeafInput, origin, dir types.Vec3, lookup TriangleLookup) Contact {
	best := Contact{T: math.MaxFloat32}
	for _, leaf := range leaves {
		c := triangle.Intersect(leaf.V0, leaf.V1, leaf.V2, origin, dir)
		if c.T > 0 && c.T < best.T {
			mat := lookup(leaf.Model, leaf.Submesh, leaf.LocalTri)
			best = Contact{Hit: true, T: c.T, Normal: c.Normal, MaterialIndex: mat}
		}
	}
	if !best.Hit {
		return Contact{}
	}
	return best
}
