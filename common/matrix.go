package common

import (
	"math"
	"unsafe"
)

// Mat4 is a 4x4 float32 matrix stored in column-major order (WebGPU convention).
// Element (row r, column c) lives at index c*4 + r.
type Mat4 [16]float32

// Identity returns the 4x4 identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns the product m * o, so that o is applied first when transforming a vector.
//
// Parameters:
//   - o: the right-hand matrix
//
// Returns:
//   - Mat4: the product
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+r] * o[c*4+k]
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// TransformPoint transforms a point by m and performs the perspective divide.
//
// Parameters:
//   - p: the point to transform (w = 1)
//
// Returns:
//   - Vec3: the transformed point
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	if w != 0 && w != 1 {
		inv := 1 / w
		return Vec3{x * inv, y * inv, z * inv}
	}
	return Vec3{x, y, z}
}

// Inverse returns the inverse of m computed by cofactor expansion.
// The boolean is false when m is singular, in which case the identity is returned.
//
// Returns:
//   - Mat4: the inverse matrix
//   - bool: false if m could not be inverted
func (m Mat4) Inverse() (Mat4, bool) {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return Identity(), false
	}
	inv := 1 / det

	return Mat4{
		(m[5]*c5 - m[6]*c4 + m[7]*c3) * inv,
		(-m[1]*c5 + m[2]*c4 - m[3]*c3) * inv,
		(m[13]*s5 - m[14]*s4 + m[15]*s3) * inv,
		(-m[9]*s5 + m[10]*s4 - m[11]*s3) * inv,

		(-m[4]*c5 + m[6]*c2 - m[7]*c1) * inv,
		(m[0]*c5 - m[2]*c2 + m[3]*c1) * inv,
		(-m[12]*s5 + m[14]*s2 - m[15]*s1) * inv,
		(m[8]*s5 - m[10]*s2 + m[11]*s1) * inv,

		(m[4]*c4 - m[5]*c2 + m[7]*c0) * inv,
		(-m[0]*c4 + m[1]*c2 - m[3]*c0) * inv,
		(m[12]*s4 - m[13]*s2 + m[15]*s0) * inv,
		(-m[8]*s4 + m[9]*s2 - m[11]*s0) * inv,

		(-m[4]*c3 + m[5]*c1 - m[6]*c0) * inv,
		(m[0]*c3 - m[1]*c1 + m[2]*c0) * inv,
		(-m[12]*s3 + m[13]*s1 - m[14]*s0) * inv,
		(m[8]*s3 - m[9]*s1 + m[10]*s0) * inv,
	}, true
}

// Perspective builds a right-handed perspective projection mapping depth to the
// WebGPU clip range [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: width / height of the viewport
//   - near: near plane distance (> 0)
//   - far: far plane distance (> near)
//
// Returns:
//   - Mat4: the projection matrix
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / float32(math.Tan(float64(fovY)/2))
	var m Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = far / (near - far)
	m[11] = -1
	m[14] = near * far / (near - far)
	return m
}

// Orthographic builds a right-handed orthographic projection mapping depth to [0, 1].
//
// Parameters:
//   - left, right, bottom, top: view volume extents
//   - near, far: depth range along the view direction
//
// Returns:
//   - Mat4: the projection matrix
func Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	rl := 1 / (right - left)
	tb := 1 / (top - bottom)
	fn := 1 / (near - far)

	m := Identity()
	m[0] = 2 * rl
	m[5] = 2 * tb
	m[10] = fn
	m[12] = -(right + left) * rl
	m[13] = -(top + bottom) * tb
	m[14] = near * fn
	return m
}

// LookAt builds a view matrix for an eye at eye looking towards center.
//
// Parameters:
//   - eye: viewer position in world space
//   - center: the point being looked at
//   - up: approximate up direction, typically (0, 1, 0)
//
// Returns:
//   - Mat4: the world to view transform
func LookAt(eye, center, up Vec3) Mat4 {
	z := eye.Sub(center).Normalize()
	if z == (Vec3{}) {
		z = Vec3{0, 0, 1}
	}
	x := up.Cross(z).Normalize()
	y := z.Cross(x)

	return Mat4{
		x[0], y[0], z[0], 0,
		x[1], y[1], z[1], 0,
		x[2], y[2], z[2], 0,
		-x.Dot(eye), -y.Dot(eye), -z.Dot(eye), 1,
	}
}

// TRS builds a model matrix from a translation, Euler rotation (radians, applied
// as Y * X * Z) and a per-axis scale.
//
// Parameters:
//   - t: translation
//   - r: rotation around x, y and z in radians
//   - s: scale factors
//
// Returns:
//   - Mat4: the model matrix
func TRS(t, r, s Vec3) Mat4 {
	cx, sx := float32(math.Cos(float64(r[0]))), float32(math.Sin(float64(r[0])))
	cy, sy := float32(math.Cos(float64(r[1]))), float32(math.Sin(float64(r[1])))
	cz, sz := float32(math.Cos(float64(r[2]))), float32(math.Sin(float64(r[2])))

	return Mat4{
		(cy*cz + sy*sx*sz) * s[0], (cx * sz) * s[0], (-sy*cz + cy*sx*sz) * s[0], 0,
		(-cy*sz + sy*sx*cz) * s[1], (cx * cz) * s[1], (sy*sz + cy*sx*cz) * s[1], 0,
		(sy * cx) * s[2], -sx * s[2], (cy * cx) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}

// SliceToBytes reinterprets a slice of fixed-size values as raw bytes for GPU uploads.
// The returned slice aliases the input memory.
//
// Parameters:
//   - data: source slice
//
// Returns:
//   - []byte: byte view of data, or nil if data is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(unsafe.Sizeof(zero))*len(data))
}
