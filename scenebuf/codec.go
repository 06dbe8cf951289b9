package scenebuf

import (
	"math"

	"github.com/achilleasa/rtaccel/aabb"
	"github.com/achilleasa/rtaccel/types"
)

func writeFloat32(dst []byte, v float32) {
	order.PutUint32(dst, math.Float32bits(v))
}

func readFloat32(src []byte) float32 {
	return math.Float32frombits(order.Uint32(src))
}

func writeVec3(dst []byte, v types.Vec3) {
	writeFloat32(dst[0:4], v[0])
	writeFloat32(dst[4:8], v[1])
	writeFloat32(dst[8:12], v[2])
}

func readVec3(src []byte) types.Vec3 {
	return types.XYZ(readFloat32(src[0:4]), readFloat32(src[4:8]), readFloat32(src[8:12]))
}

func writeVec4(dst []byte, v types.Vec4) {
	writeFloat32(dst[0:4], v[0])
	writeFloat32(dst[4:8], v[1])
	writeFloat32(dst[8:12], v[2])
	writeFloat32(dst[12:16], v[3])
}

func readVec4(src []byte) types.Vec4 {
	return types.XYZW(readFloat32(src[0:4]), readFloat32(src[4:8]), readFloat32(src[8:12]), readFloat32(src[12:16]))
}

func writeAABB(dst []byte, box aabb.Box) {
	writeVec4(dst[0:16], box.Min)
	writeVec4(dst[16:32], box.Max)
}

func readAABB(src []byte) aabb.Box {
	return aabb.Box{Min: readVec4(src[0:16]), Max: readVec4(src[16:32])}
}

func writeHeader(dst []byte, h Header) {
	order.PutUint32(dst[0:4], h.TotalDataSize)
	order.PutUint32(dst[4:8], h.NumberOfLights)
	order.PutUint32(dst[8:12], h.NumberOfSpheres)
	order.PutUint32(dst[12:16], h.NumberOfMaterials)
	order.PutUint32(dst[16:20], h.ModelBufferSize)
	order.PutUint32(dst[20:24], h.NumberOfModels)
	order.PutUint32(dst[24:28], h.TotalTriangleCount)
	// dst[28:32] reserved/padding to keep the AABB 16-byte aligned.
	writeAABB(dst[32:32+aabbSize], h.ModelsBoundingBox)
}

func readHeader(src []byte) Header {
	return Header{
		TotalDataSize:      order.Uint32(src[0:4]),
		NumberOfLights:     order.Uint32(src[4:8]),
		NumberOfSpheres:    order.Uint32(src[8:12]),
		NumberOfMaterials:  order.Uint32(src[12:16]),
		ModelBufferSize:    order.Uint32(src[16:20]),
		NumberOfModels:     order.Uint32(src[20:24]),
		TotalTriangleCount: order.Uint32(src[24:28]),
		ModelsBoundingBox:  readAABB(src[32 : 32+aabbSize]),
	}
}

func writeLight(dst []byte, l Light) {
	writeVec3(dst[0:12], l.Position)
	writeFloat32(dst[12:16], 0)
	writeVec3(dst[16:28], l.Color)
	writeFloat32(dst[28:32], l.Energy)
}

func readLight(src []byte) Light {
	return Light{
		Position: readVec3(src[0:12]),
		Color:    readVec3(src[16:28]),
		Energy:   readFloat32(src[28:32]),
	}
}

func writeSphere(dst []byte, s Sphere) {
	writeVec3(dst[0:12], s.Center)
	writeFloat32(dst[12:16], s.Radius)
}

func readSphere(src []byte) Sphere {
	return Sphere{
		Center: readVec3(src[0:12]),
		Radius: readFloat32(src[12:16]),
	}
}

func writeMaterial(dst []byte, m Material) {
	writeFloat32(dst[0:4], float32(m.SurfaceType))
	writeFloat32(dst[4:8], m.IOR)
	writeVec3(dst[16:28], m.Diffuse)
	writeVec3(dst[32:44], m.Emissive)
}

func readMaterial(src []byte) Material {
	return Material{
		SurfaceType: uint32(readFloat32(src[0:4])),
		IOR:         readFloat32(src[4:8]),
		Diffuse:     readVec3(src[16:28]),
		Emissive:    readVec3(src[32:44]),
	}
}

func writeModelHeader(dst []byte, h ModelHeader) {
	order.PutUint32(dst[0:4], h.DataSize)
	order.PutUint32(dst[4:8], h.NumberOfSubmeshes)
	order.PutUint32(dst[8:12], h.NumberOfTriangles)
	writeAABB(dst[16:16+aabbSize], h.BoundingBox)
}

func readModelHeader(src []byte) ModelHeader {
	return ModelHeader{
		DataSize:          order.Uint32(src[0:4]),
		NumberOfSubmeshes: order.Uint32(src[4:8]),
		NumberOfTriangles: order.Uint32(src[8:12]),
		BoundingBox:       readAABB(src[16 : 16+aabbSize]),
	}
}

func writeMeshHeader(dst []byte, h MeshHeader) {
	order.PutUint32(dst[0:4], h.DataSize)
	order.PutUint32(dst[4:8], h.NumberOfTriangles)
	order.PutUint32(dst[8:12], h.NumberOfVertices)
	order.PutUint32(dst[12:16], h.NumberOfIndices)
	order.PutUint32(dst[16:20], h.MaterialIndex)
}

func readMeshHeader(src []byte) MeshHeader {
	return MeshHeader{
		DataSize:          order.Uint32(src[0:4]),
		NumberOfTriangles: order.Uint32(src[4:8]),
		NumberOfVertices:  order.Uint32(src[8:12]),
		NumberOfIndices:   order.Uint32(src[12:16]),
		MaterialIndex:     order.Uint32(src[16:20]),
	}
}
