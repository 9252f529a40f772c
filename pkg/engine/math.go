package engine

import "math"

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Mul returns the component-wise product of v and o.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{X: v.X * o.X, Y: v.Y * o.Y, Z: v.Z * o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// One is the identity scale.
var One = Vec3{X: 1, Y: 1, Z: 1} //nolint:gochecknoglobals // constant

// SpriteMatrix returns the column-major 4x4 model matrix of a sprite: scale, then rotation around
// the Z axis, then translation.
func SpriteMatrix(position Vec3, rotation float64, scale Vec3) [16]float64 {
	sin, cos := math.Sincos(rotation)
	return [16]float64{
		scale.X * cos, -scale.Y * sin, 0, 0,
		scale.X * sin, scale.Y * cos, 0, 0,
		0, 0, scale.Z, 0,
		position.X, position.Y, position.Z, 1,
	}
}
