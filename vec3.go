package framepace

import "math"

// Vec3 is a 3D vector or position, float32 to match GPU buffer layouts.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is a convenience function to create a Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

// Sub returns the difference of two vectors.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z}
}

// Mul returns the vector scaled by a scalar.
func (v Vec3) Mul(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(w Vec3) float32 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the cross product of two vectors.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the length (magnitude) of the vector.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Lerp returns the linear interpolation between v and w at parameter t.
func (v Vec3) Lerp(w Vec3, t float32) Vec3 {
	return Vec3{
		X: v.X + (w.X-v.X)*t,
		Y: v.Y + (w.Y-v.Y)*t,
		Z: v.Z + (w.Z-v.Z)*t,
	}
}

// Project returns the isometric 2D projection of the vector, used by
// visualization hosts to place 3D entities on a 2D canvas: both screen
// axes recede by half the depth.
func (v Vec3) Project() (x, y float32) {
	return v.X - v.Z*0.5, v.Y - v.Z*0.5
}
