package framepace

import "math"

// Quat is a rotation quaternion. The zero value is not a valid rotation;
// use QuatIdentity for "no rotation".
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// QuatAxisAngle returns the rotation of angle radians around the given
// axis. The axis must be non-zero; it is normalized internally.
func QuatAxisAngle(axis Vec3, angle float32) Quat {
	l := axis.Length()
	if l == 0 {
		return QuatIdentity()
	}
	half := float64(angle) * 0.5
	s := float32(math.Sin(half)) / l
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: float32(math.Cos(half)),
	}
}

// Transform is a translation-rotation-scale triple, the unit of input for
// batched matrix composition.
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// TransformIdentity returns the identity transform (no translation,
// no rotation, unit scale).
func TransformIdentity() Transform {
	return Transform{Rotation: QuatIdentity(), Scale: V3(1, 1, 1)}
}

// Mat4 is a 4x4 matrix in column-major order, matching the layout GPU
// shader languages expect: element (row, col) is stored at [col*4+row],
// and the translation occupies indices 12, 13, 14.
type Mat4 [16]float32

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// ComposeTRS composes translation, rotation and scale into a single
// matrix, M = T * R * S: scale is applied first, then rotation, then
// translation.
//
// The arithmetic is plain float32 multiply-add in a fixed order, so the
// result is reproducible bit-for-bit for identical inputs regardless of
// which compute backend evaluates it.
func ComposeTRS(t Transform) Mat4 {
	x, y, z, w := t.Rotation.X, t.Rotation.Y, t.Rotation.Z, t.Rotation.W

	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	// Rotation matrix columns, each scaled by the matching scale factor.
	var m Mat4
	m[0] = (1 - 2*(yy+zz)) * t.Scale.X
	m[1] = 2 * (xy + wz) * t.Scale.X
	m[2] = 2 * (xz - wy) * t.Scale.X
	m[3] = 0

	m[4] = 2 * (xy - wz) * t.Scale.Y
	m[5] = (1 - 2*(xx+zz)) * t.Scale.Y
	m[6] = 2 * (yz + wx) * t.Scale.Y
	m[7] = 0

	m[8] = 2 * (xz + wy) * t.Scale.Z
	m[9] = 2 * (yz - wx) * t.Scale.Z
	m[10] = (1 - 2*(xx+yy)) * t.Scale.Z
	m[11] = 0

	m[12] = t.Position.X
	m[13] = t.Position.Y
	m[14] = t.Position.Z
	m[15] = 1
	return m
}

// Mul multiplies two matrices (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * other[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// TransformPoint applies the matrix to a point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		X: m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12],
		Y: m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13],
		Z: m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14],
	}
}

// IsIdentity returns true if the matrix is exactly the identity matrix.
func (m Mat4) IsIdentity() bool {
	return m == Mat4Identity()
}
