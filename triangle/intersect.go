// Package triangle implements Möller–Trumbore ray/triangle intersection.
package triangle

import "github.com/achilleasa/rtaccel/types"

const epsilon = 1e-7

// Contact is the (normal, t) pair returned by Intersect. t is 0 on a miss.
type Contact struct {
	Normal types.Vec3
	T      float32
}

// Centroid returns the average of the triangle's three vertices.
func Centroid(v0, v1, v2 types.Vec3) types.Vec3 {
	return v0.Add(v1).Add(v2).Mul(1.0 / 3.0)
}

// Intersect computes the intersection of a ray with a triangle. The normal
// is always the (unnormalized-input, normalized-output) face normal
// regardless of hit; T is 0 when there is no intersection.
func Intersect(v0, v1, v2, origin, dir types.Vec3) Contact {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)

	pvec := dir.Cross(edge2)
	det := edge1.Dot(pvec)

	normal := edge1.Cross(edge2).Normalize()

	if det > -epsilon && det < epsilon {
		return Contact{Normal: normal, T: 0}
	}
	invDet := 1.0 / det

	tvec := origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return Contact{Normal: normal, T: 0}
	}

	qvec := tvec.Cross(edge1)
	v := dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return Contact{Normal: normal, T: 0}
	}

	t := edge2.Dot(qvec) * invDet
	if t <= 0 {
		return Contact{Normal: normal, T: 0}
	}

	return Contact{Normal: normal, T: t}
}
