// Package scenebuf implements the packed, offset-addressed scene buffer
// layout: a single contiguous byte buffer holding a header, lights,
// spheres, materials and a model region (models, each with submeshes, each
// with vertices and 16-bit indices). Every accessor walks the buffer using
// only offset arithmetic, mirroring how the same layout is consumed as raw
// pointer arithmetic on a compute device.
package scenebuf

import (
	"encoding/binary"
	"fmt"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/types"
)

const (
	sceneHeaderSize = 32 + aabbSize // counts/sizes (padded to 16 bytes) + scene AABB
	aabbSize        = 32              // two Vec4 (min, max)
	lightSize       = 32              // pos(vec4) + color+energy(vec4)
	sphereSize      = 16              // center(vec3) + radius, packed as vec4
	materialSize    = 48              // properties, diffuse, emissive (3 x vec4)
	modelHeaderSize = 16 + aabbSize   // dataSize, numSubmeshes, numTriangles, pad + AABB
	meshHeaderSize  = 24              // dataSize, numTriangles, numVertices, numIndices, materialIndex, pad
	vertexSize      = 12              // vec3, unpadded on the host side
	indexSize       = 2               // u16
)

var order = binary.LittleEndian

// Light is a point light with linear distance falloff.
type Light struct {
	Position types.Vec3
	Color    types.Vec3
	Energy   float32
}

// Sphere is an implicit analytic primitive.
type Sphere struct {
	Center types.Vec3
	Radius float32
}

// Material is a dense material record; SurfaceType and IOR occupy the
// Properties lane the way packedMaterial.Properties does.
type Material struct {
	SurfaceType uint32
	IOR         float32
	Diffuse     types.Vec3
	Emissive    types.Vec3
}

// ModelHeader precedes a model's submeshes in the buffer.
type ModelHeader struct {
	DataSize         uint32
	NumberOfSubmeshes uint32
	NumberOfTriangles uint32
	BoundingBox      aabb.Box
}

// MeshHeader precedes a submesh's vertex/index data.
type MeshHeader struct {
	DataSize          uint32
	NumberOfTriangles uint32
	NumberOfVertices  uint32
	NumberOfIndices   uint32
	MaterialIndex     uint32
}

// Header is the deserialized form of the buffer's fixed-size preamble.
type Header struct {
	TotalDataSize      uint32
	NumberOfLights     uint32
	NumberOfSpheres    uint32
	NumberOfMaterials  uint32
	ModelBufferSize    uint32
	NumberOfModels     uint32
	TotalTriangleCount uint32
	ModelsBoundingBox  aabb.Box
}

func lightsPtr() int    { return sceneHeaderSize }
func spheresPtr(h Header) int  { return lightsPtr() + int(h.NumberOfLights)*lightSize }
func materialsPtr(h Header) int { return spheresPtr(h) + int(h.NumberOfSpheres)*sphereSize }
func modelBufferPtr(h Header) int {
	return materialsPtr(h) + int(h.NumberOfMaterials)*materialSize
}

// Buffer is a read-only view over a serialized scene.
type Buffer struct {
	data   []byte
	header Header
}

// Open parses the header of a byte buffer produced by Builder.Build.
func Open(data []byte) (*Buffer, error) {
	if len(data) < sceneHeaderSize {
		return nil, fmt.Errorf("scenebuf: buffer too small for header (%d bytes)", len(data))
	}
	b := &Buffer{data: data}
	b.header = readHeader(data)
	if int(b.header.TotalDataSize) != len(data) {
		return nil, fmt.Errorf("scenebuf: header total size %d does not match buffer length %d", b.header.TotalDataSize, len(data))
	}
	return b, nil
}

func (b *Buffer) Header() Header { return b.header }

func (b *Buffer) GetLight(i int) (Light, error) {
	if i < 0 || i >= int(b.header.NumberOfLights) {
		return Light{}, fmt.Errorf("scenebuf: light index %d out of range [0,%d)", i, b.header.NumberOfLights)
	}
	off := lightsPtr() + i*lightSize
	return readLight(b.data[off:]), nil
}

func (b *Buffer) GetSphere(i int) (Sphere, error) {
	if i < 0 || i >= int(b.header.NumberOfSpheres) {
		return Sphere{}, fmt.Errorf("scenebuf: sphere index %d out of range [0,%d)", i, b.header.NumberOfSpheres)
	}
	off := spheresPtr(b.header) + i*sphereSize
	return readSphere(b.data[off:]), nil
}

func (b *Buffer) GetMaterial(i int) (Material, error) {
	if i < 0 || i >= int(b.header.NumberOfMaterials) {
		return Material{}, fmt.Errorf("scenebuf: material index %d out of range [0,%d)", i, b.header.NumberOfMaterials)
	}
	off := materialsPtr(b.header) + i*materialSize
	return readMaterial(b.data[off:]), nil
}

// GetModel walks the model region from its start, advancing by each
// model's DataSize, exactly as the device-side accessor does with no side
// table.
func (b *Buffer) GetModel(index int) (ModelHeader, int, error) {
	if index < 0 || index >= int(b.header.NumberOfModels) {
		return ModelHeader{}, 0, fmt.Errorf("scenebuf: model index %d out of range [0,%d)", index, b.header.NumberOfModels)
	}
	off := modelBufferPtr(b.header)
	for i := 0; i < index; i++ {
		mh := readModelHeader(b.data[off:])
		off += int(mh.DataSize)
	}
	return readModelHeader(b.data[off:]), off, nil
}

// GetSubmesh walks a model's submeshes from modelOffset, the value
// returned by GetModel.
func (b *Buffer) GetSubmesh(modelOffset int, j int) (MeshHeader, int, error) {
	mh := readModelHeader(b.data[modelOffset:])
	if j < 0 || j >= int(mh.NumberOfSubmeshes) {
		return MeshHeader{}, 0, fmt.Errorf("scenebuf: submesh index %d out of range [0,%d)", j, mh.NumberOfSubmeshes)
	}
	off := modelOffset + modelHeaderSize
	for i := 0; i < j; i++ {
		sm := readMeshHeader(b.data[off:])
		off += int(sm.DataSize)
	}
	return readMeshHeader(b.data[off:]), off, nil
}

func (b *Buffer) GetVertex(meshOffset int, k int) (types.Vec3, error) {
	mh := readMeshHeader(b.data[meshOffset:])
	if k < 0 || k >= int(mh.NumberOfVertices) {
		return types.Vec3{}, fmt.Errorf("scenebuf: vertex index %d out of range [0,%d)", k, mh.NumberOfVertices)
	}
	base := meshOffset + meshHeaderSize + k*vertexSize
	return readVec3(b.data[base:]), nil
}

func (b *Buffer) GetIndex(meshOffset int, k int) (uint16, error) {
	mh := readMeshHeader(b.data[meshOffset:])
	if k < 0 || k >= int(mh.NumberOfIndices) {
		return 0, fmt.Errorf("scenebuf: index %d out of range [0,%d)", k, mh.NumberOfIndices)
	}
	base := meshOffset + meshHeaderSize + int(mh.NumberOfVertices)*vertexSize + k*indexSize
	return order.Uint16(b.data[base:]), nil
}

// TriangleRef locates a global triangle index within the model/submesh
// hierarchy.
type TriangleRef struct {
	Model      int
	Submesh    int
	LocalTri   int
	MeshOffset int
}

// ResolveTriangle walks models then submeshes accumulating triangle counts
// until the accumulator exceeds g, exactly the two-phase walk used by the
// device-side resolver: no side tables, only header fields.
func (b *Buffer) ResolveTriangle(g int) (TriangleRef, error) {
	if g < 0 || g >= int(b.header.TotalTriangleCount) {
		return TriangleRef{}, fmt.Errorf("scenebuf: global triangle index %d out of range [0,%d)", g, b.header.TotalTriangleCount)
	}

	off := modelBufferPtr(b.header)
	accumulated := 0
	for m := 0; m < int(b.header.NumberOfModels); m++ {
		mh := readModelHeader(b.data[off:])
		if accumulated+int(mh.NumberOfTriangles) > g {
			remaining := g - accumulated
			meshOff := off + modelHeaderSize
			subAccum := 0
			for s := 0; s < int(mh.NumberOfSubmeshes); s++ {
				sm := readMeshHeader(b.data[meshOff:])
				if subAccum+int(sm.NumberOfTriangles) > remaining {
					return TriangleRef{
						Model:      m,
						Submesh:    s,
						LocalTri:   remaining - subAccum,
						MeshOffset: meshOff,
					}, nil
				}
				subAccum += int(sm.NumberOfTriangles)
				meshOff += int(sm.DataSize)
			}
			return TriangleRef{}, fmt.Errorf("scenebuf: model %d's submeshes account for %d triangles, expected at least %d", m, subAccum, remaining+1)
		}
		accumulated += int(mh.NumberOfTriangles)
		off += int(mh.DataSize)
	}
	return TriangleRef{}, fmt.Errorf("scenebuf: triangle %d not found despite passing range check", g)
}

// TriangleVertices resolves and returns the three vertex positions for a
// global triangle index, using the index buffer's implicit
// every-three-consecutive-indices convention.
func (b *Buffer) TriangleVertices(g int) (types.Vec3, types.Vec3, types.Vec3, error) {
	ref, err := b.ResolveTriangle(g)
	if err != nil {
		return types.Vec3{}, types.Vec3{}, types.Vec3{}, err
	}
	i0, err := b.GetIndex(ref.MeshOffset, ref.LocalTri*3)
	if err != nil {
		return types.Vec3{}, types.Vec3{}, types.Vec3{}, err
	}
	i1, err := b.GetIndex(ref.MeshOffset, ref.LocalTri*3+1)
	if err != nil {
		return types.Vec3{}, types.Vec3{}, types.Vec3{}, err
	}
	i2, err := b.GetIndex(ref.MeshOffset, ref.LocalTri*3+2)
	if err != nil {
		return types.Vec3{}, types.Vec3{}, types.Vec3{}, err
	}
	v0, err := b.GetVertex(ref.MeshOffset, int(i0))
	if err != nil {
		return types.Vec3{}, types.Vec3{}, types.Vec3{}, err
	}
	v1, err := b.GetVertex(ref.MeshOffset, int(i1))
	if err != nil {
		return types.Vec3{}, types.Vec3{}, types.Vec3{}, err
	}
	v2, err := b.GetVertex(ref.MeshOffset, int(i2))
	if err != nil {
		return types.Vec3{}, types.Vec3{}, types.Vec3{}, err
	}
	return v0, v1, v2, nil
}
