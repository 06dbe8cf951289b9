package aabb

import "github.com/achilleasa/rtaccel/types"

// TriangleOverlap implements the full separating-axis test between a box
// (given as center + half-extents) and a triangle: the nine edge-cross-axis
// tests, the three box-axis tests and the plane test.
func TriangleOverlap(center, half types.Vec3, v0, v1, v2 types.Vec3) bool {
	p0 := v0.Sub(center)
	p1 := v1.Sub(center)
	p2 := v2.Sub(center)

	e0 := p1.Sub(p0)
	e1 := p2.Sub(p1)
	e2 := p0.Sub(p2)

	if !axisTestX01(e0[2], e0[1], half, p0, p2) {
		return false
	}
	if !axisTestY02(e0[2], e0[0], half, p0, p2) {
		return false
	}
	if !axisTestZ12(e0[1], e0[0], half, p1, p2) {
		return false
	}

	if !axisTestX01(e1[2], e1[1], half, p0, p2) {
		return false
	}
	if !axisTestY02(e1[2], e1[0], half, p0, p2) {
		return false
	}
	if !axisTestZ0(e1[1], e1[0], half, p0, p1) {
		return false
	}

	if !axisTestX2(e2[2], e2[1], half, p0, p1) {
		return false
	}
	if !axisTestY1(e2[2], e2[0], half, p0, p1) {
		return false
	}
	if !axisTestZ12(e2[1], e2[0], half, p1, p2) {
		return false
	}

	// Axis-aligned box tests: triangle bbox vs half-extents.
	if minf3(p0[0], p1[0], p2[0]) > half[0] || maxf3(p0[0], p1[0], p2[0]) < -half[0] {
		return false
	}
	if minf3(p0[1], p1[1], p2[1]) > half[1] || maxf3(p0[1], p1[1], p2[1]) < -half[1] {
		return false
	}
	if minf3(p0[2], p1[2], p2[2]) > half[2] || maxf3(p0[2], p1[2], p2[2]) < -half[2] {
		return false
	}

	normal := e0.Cross(e1)
	return planeBoxOverlap(normal, p0, half)
}

func planeBoxOverlap(normal, vert, maxBox types.Vec3) bool {
	var vmin, vmax types.Vec3
	for axis := 0; axis < 3; axis++ {
		v := vert[axis]
		if normal[axis] > 0 {
			vmin[axis] = -maxBox[axis] - v
			vmax[axis] = maxBox[axis] - v
		} else {
			vmin[axis] = maxBox[axis] - v
			vmax[axis] = -maxBox[axis] - v
		}
	}
	if normal.Dot(vmin) > 0 {
		return false
	}
	return normal.Dot(vmax) >= 0
}

func axisTestX01(a, b float32, half types.Vec3, v0, v2 types.Vec3) bool {
	p0 := a*v0[1] - b*v0[2]
	p2 := a*v2[1] - b*v2[2]
	lo, hi := minmax(p0, p2)
	rad := absf(a)*half[1] + absf(b)*half[2]
	return lo <= rad && hi >= -rad
}

func axisTestX2(a, b float32, half types.Vec3, v0, v1 types.Vec3) bool {
	p0 := a*v0[1] - b*v0[2]
	p1 := a*v1[1] - b*v1[2]
	lo, hi := minmax(p0, p1)
	rad := absf(a)*half[1] + absf(b)*half[2]
	return lo <= rad && hi >= -rad
}

func axisTestY02(a, b float32, half types.Vec3, v0, v2 types.Vec3) bool {
	p0 := -a*v0[0] + b*v0[2]
	p2 := -a*v2[0] + b*v2[2]
	lo, hi := minmax(p0, p2)
	rad := absf(a)*half[0] + absf(b)*half[2]
	return lo <= rad && hi >= -rad
}

func axisTestY1(a, b float32, half types.Vec3, v0, v1 types.Vec3) bool {
	p0 := -a*v0[0] + b*v0[2]
	p1 := -a*v1[0] + b*v1[2]
	lo, hi := minmax(p0, p1)
	rad := absf(a)*half[0] + absf(b)*half[2]
	return lo <= rad && hi >= -rad
}

func axisTestZ12(a, b float32, half types.Vec3, v1, v2 types.Vec3) bool {
	p1 := a*v1[0] - b*v1[1]
	p2 := a*v2[0] - b*v2[1]
	lo, hi := minmax(p1, p2)
	rad := absf(a)*half[0] + absf(b)*half[1]
	return lo <= rad && hi >= -rad
}

func axisTestZ0(a, b float32, half types.Vec3, v0, v1 types.Vec3) bool {
	p0 := a*v0[0] - b*v0[1]
	p1 := a*v1[0] - b*v1[1]
	lo, hi := minmax(p0, p1)
	rad := absf(a)*half[0] + absf(b)*half[1]
	return lo <= rad && hi >= -rad
}

func minmax(a, b float32) (float32, float32) {
	if a < b {
		return a, b
	}
	return b, a
}

func minf3(a, b, c float32) float32 { return minf(minf(a, b), c) }
func maxf3(a, b, c float32) float32 { return maxf(maxf(a, b), c) }

func absf(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}
