package types

// Matrix3x4 is a row-major affine transform: 3 rows of 4 columns, with an
// implicit fourth row of [0,0,0,1]. The name mirrors the original engine's
// "Matrix4", which despite the name only ever stored 3x4 data.
type Matrix3x4 [12]float32

// Identity3x4 returns the identity affine transform.
func Identity3x4() Matrix3x4 {
	return Matrix3x4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

// SetOrientationAndPos builds the rotation part of m from q and the
// translation part from pos.
func SetOrientationAndPos(q Quat, pos Vec3) Matrix3x4 {
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]
	return Matrix3x4{
		1 - (2*y*y + 2*z*z), 2*x*y + 2*z*w, 2*x*z - 2*y*w, pos[0],
		2*x*y - 2*z*w, 1 - (2*x*x + 2*z*z), 2*y*z + 2*x*w, pos[1],
		2*x*z + 2*y*w, 2*y*z - 2*x*w, 1 - (2*x*x + 2*y*y), pos[2],
	}
}

// Translate returns the translation column of m.
func (m Matrix3x4) Translate() Vec3 {
	return Vec3{m[3], m[7], m[11]}
}

// Forward, Up and Side extract the basis columns of the rotation part.
func (m Matrix3x4) Forward() Vec3 { return Vec3{m[2], m[6], m[10]} }
func (m Matrix3x4) Up() Vec3      { return Vec3{m[1], m[5], m[9]} }
func (m Matrix3x4) Side() Vec3    { return Vec3{m[0], m[4], m[8]} }

// TransformVector applies the affine transform m to v (rotation + translation).
func TransformVector(m Matrix3x4, v Vec3) Vec3 {
	return Vec3{
		v[0]*m[0] + v[1]*m[1] + v[2]*m[2] + m[3],
		v[0]*m[4] + v[1]*m[5] + v[2]*m[6] + m[7],
		v[0]*m[8] + v[1]*m[9] + v[2]*m[10] + m[11],
	}
}

// TransformDirection applies only the rotation part of m to v.
func TransformDirection(m Matrix3x4, v Vec3) Vec3 {
	return Vec3{
		v[0]*m[0] + v[1]*m[1] + v[2]*m[2],
		v[0]*m[4] + v[1]*m[5] + v[2]*m[6],
		v[0]*m[8] + v[1]*m[9] + v[2]*m[10],
	}
}

// Multiply combines two affine transforms so that Multiply(a, b) applied to
// a vector is equivalent to applying b first, then a.
func Multiply(a, b Matrix3x4) Matrix3x4 {
	return Matrix3x4{
		a[0]*b[0] + a[1]*b[4] + a[2]*b[8], a[0]*b[1] + a[1]*b[5] + a[2]*b[9], a[0]*b[2] + a[1]*b[6] + a[2]*b[10], a[0]*b[3] + a[1]*b[7] + a[2]*b[11] + a[3],
		a[4]*b[0] + a[5]*b[4] + a[6]*b[8], a[4]*b[1] + a[5]*b[5] + a[6]*b[9], a[4]*b[2] + a[5]*b[6] + a[6]*b[10], a[4]*b[3] + a[5]*b[7] + a[6]*b[11] + a[7],
		a[8]*b[0] + a[9]*b[4] + a[10]*b[8], a[8]*b[1] + a[9]*b[5] + a[10]*b[9], a[8]*b[2] + a[9]*b[6] + a[10]*b[10], a[8]*b[3] + a[9]*b[7] + a[10]*b[11] + a[11],
	}
}
