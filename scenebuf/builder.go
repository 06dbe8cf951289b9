package scenebuf

import (
	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/types"
)

// SubmeshInput is a single material-homogeneous triangle mesh, as supplied
// to Builder.AddModel. Indices are already triangle-list ordered (every
// three consecutive entries form a triangle).
type SubmeshInput struct {
	MaterialIndex int
	Vertices      []types.Vec3
	Indices       []uint16
}

// Builder accumulates a scene in memory and serializes it into the packed
// buffer layout on Build.
type Builder struct {
	lights    []Light
	spheres   []Sphere
	materials []Material
	models    [][]SubmeshInput
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) AddLight(l Light) {
	b.lights = append(b.lights, l)
}

func (b *Builder) AddSphere(s Sphere) {
	b.spheres = append(b.spheres, s)
}

// AddMaterial appends m and returns its index. Callers that want
// de-duplication (as the scene loader does) should track indices
// themselves; Builder does not de-duplicate.
func (b *Builder) AddMaterial(m Material) int {
	b.materials = append(b.materials, m)
	return len(b.materials) - 1
}

// AddModel appends a model made of the given submeshes and returns its
// index.
func (b *Builder) AddModel(submeshes []SubmeshInput) int {
	b.models = append(b.models, submeshes)
	return len(b.models) - 1
}

// Build serializes the accumulated scene into the packed byte layout,
// computing every header's size/count fields and the scene-wide AABB as it
// goes (merged from every submesh AABB).
func (b *Builder) Build() ([]byte, error) {
	modelBlobs := make([][]byte, len(b.models))
	modelHeaders := make([]ModelHeader, len(b.models))
	sceneBox := aabb.Empty()
	totalTriangles := uint32(0)

	for mi, submeshes := range b.models {
		var meshBlobs [][]byte
		modelBox := aabb.Empty()
		modelTriCount := uint32(0)

		for _, sm := range submeshes {
			vertexBlob := make([]byte, len(sm.Vertices)*vertexSize)
			for vi, v := range sm.Vertices {
				writeVec3(vertexBlob[vi*vertexSize:], v)
			}
			indexBlob := make([]byte, len(sm.Indices)*indexSize)
			for ii, idx := range sm.Indices {
				order.PutUint16(indexBlob[ii*indexSize:], idx)
			}

			meshTriCount := uint32(len(sm.Indices) / 3)
			meshBox := meshBoundingBox(sm.Vertices)
			modelBox = aabb.Merge(modelBox, meshBox)
			modelTriCount += meshTriCount

			meshHeader := MeshHeader{
				DataSize:          uint32(meshHeaderSize + len(vertexBlob) + len(indexBlob)),
				NumberOfTriangles: meshTriCount,
				NumberOfVertices:  uint32(len(sm.Vertices)),
				NumberOfIndices:   uint32(len(sm.Indices)),
				MaterialIndex:     uint32(sm.MaterialIndex),
			}
			blob := make([]byte, meshHeader.DataSize)
			writeMeshHeader(blob, meshHeader)
			copy(blob[meshHeaderSize:], vertexBlob)
			copy(blob[meshHeaderSize+len(vertexBlob):], indexBlob)
			meshBlobs = append(meshBlobs, blob)
		}

		modelDataSize := uint32(modelHeaderSize)
		for _, mb := range meshBlobs {
			modelDataSize += uint32(len(mb))
		}
		modelHeaders[mi] = ModelHeader{
			DataSize:          modelDataSize,
			NumberOfSubmeshes: uint32(len(submeshes)),
			NumberOfTriangles: modelTriCount,
			BoundingBox:       modelBox,
		}
		blob := make([]byte, modelDataSize)
		writeModelHeader(blob, modelHeaders[mi])
		off := modelHeaderSize
		for _, mb := range meshBlobs {
			copy(blob[off:], mb)
			off += len(mb)
		}
		modelBlobs[mi] = blob

		sceneBox = aabb.Merge(sceneBox, modelBox)
		totalTriangles += modelTriCount
	}

	modelBufferSize := 0
	for _, mb := range modelBlobs {
		modelBufferSize += len(mb)
	}

	header := Header{
		NumberOfLights:     uint32(len(b.lights)),
		NumberOfSpheres:    uint32(len(b.spheres)),
		NumberOfMaterials:  uint32(len(b.materials)),
		ModelBufferSize:    uint32(modelBufferSize),
		NumberOfModels:     uint32(len(b.models)),
		TotalTriangleCount: totalTriangles,
		ModelsBoundingBox:  sceneBox,
	}
	header.TotalDataSize = uint32(sceneHeaderSize) +
		header.NumberOfLights*lightSize +
		header.NumberOfSpheres*sphereSize +
		header.NumberOfMaterials*materialSize +
		header.ModelBufferSize

	out := make([]byte, header.TotalDataSize)
	writeHeader(out, header)

	off := lightsPtr()
	for _, l := range b.lights {
		writeLight(out[off:], l)
		off += lightSize
	}
	for _, s := range b.spheres {
		writeSphere(out[off:], s)
		off += sphereSize
	}
	for _, m := range b.materials {
		writeMaterial(out[off:], m)
		off += materialSize
	}
	for _, mb := range modelBlobs {
		copy(out[off:], mb)
		off += len(mb)
	}

	return out, nil
}

func meshBoundingBox(vertices []types.Vec3) aabb.Box {
	box := aabb.Empty()
	for _, v := range vertices {
		box = aabb.Merge(box, aabb.Box{Min: v.Vec4(0), Max: v.Vec4(0)})
	}
	return box
}
