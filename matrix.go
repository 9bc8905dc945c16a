package rlgl

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Matrix is a 4x4 transform stored column-major: m[0..3] is the first
// column and the translation lives in m[12], m[13], m[14].
//
// Points are treated as row vectors, so A.Multiply(B) applies A first
// and then B.
type Matrix [16]float32

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Matrix {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a scaling matrix.
func Scale(x, y, z float32) Matrix {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}

// Rotate returns a rotation of angle radians around the axis (x, y, z).
// The axis is normalized unless its squared length is 0 or 1.
func Rotate(angle, x, y, z float32) Matrix {
	if l2 := x*x + y*y + z*z; l2 != 1 && l2 != 0 {
		inv := 1 / float32(math.Sqrt(float64(l2)))
		x, y, z = x*inv, y*inv, z*inv
	}
	s64, c64 := math.Sincos(float64(angle))
	s, c := float32(s64), float32(c64)
	t := 1 - c

	return Matrix{
		x*x*t + c, y*x*t + z*s, z*x*t - y*s, 0,
		x*y*t - z*s, y*y*t + c, z*y*t + x*s, 0,
		x*z*t + y*s, y*z*t - x*s, z*z*t + c, 0,
		0, 0, 0, 1,
	}
}

// Frustum returns a perspective projection for the given clip volume.
// Eye-space z = -near maps to depth 0 and z = -far to depth 1.
func Frustum(left, right, bottom, top, near, far float64) Matrix {
	rl := right - left
	tb := top - bottom
	fn := far - near

	var m Matrix
	m[0] = float32(near * 2 / rl)
	m[5] = float32(near * 2 / tb)
	m[8] = float32((right + left) / rl)
	m[9] = float32((top + bottom) / tb)
	m[10] = float32(-far / fn)
	m[11] = -1
	m[14] = float32(-(far * near) / fn)
	return m
}

// Ortho returns an orthographic projection for the given clip volume.
// Eye-space z = -near maps to depth 0 and z = -far to depth 1.
func Ortho(left, right, bottom, top, near, far float64) Matrix {
	rl := right - left
	tb := top - bottom
	fn := far - near

	m := Identity()
	m[0] = float32(2 / rl)
	m[5] = float32(2 / tb)
	m[10] = float32(-1 / fn)
	m[12] = float32(-(left + right) / rl)
	m[13] = float32(-(top + bottom) / tb)
	m[14] = float32(-near / fn)
	return m
}

// Multiply returns m × other.
func (m Matrix) Multiply(other Matrix) Matrix {
	var r Matrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[row*4+k] * other[k*4+col]
			}
			r[row*4+col] = sum
		}
	}
	return r
}

// Transpose returns the transpose of m.
func (m Matrix) Transpose() Matrix {
	var r Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i*4+j] = m[j*4+i]
		}
	}
	return r
}

// TransformPoint applies m to the point p (w = 1).
func (m Matrix) TransformPoint(p f32.Vec3) f32.Vec3 {
	return f32.Vec3{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}

// TransformVector applies m to the direction v, ignoring translation.
func (m Matrix) TransformVector(v f32.Vec3) f32.Vec3 {
	return f32.Vec3{
		m[0]*v[0] + m[4]*v[1] + m[8]*v[2],
		m[1]*v[0] + m[5]*v[1] + m[9]*v[2],
		m[2]*v[0] + m[6]*v[1] + m[10]*v[2],
	}
}

// Float32 returns m as a row-major f32.Mat4, the layout the default
// shaders read the MVP uniform in.
func (m Matrix) Float32() f32.Mat4 {
	return f32.Mat4(m.Transpose())
}

// IsIdentity reports whether m is the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}
