package common

// Plane is the set of points p where Normal·p + Distance = 0.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// SignedDistance returns the signed distance from p to the plane. Positive values lie
// on the side the normal points to.
func (p Plane) SignedDistance(v Vec3) float32 {
	return p.Normal.Dot(v) + p.Distance
}

// Frustum is a view volume bounded by six inward-facing planes.
type Frustum struct {
	Planes [6]Plane
}

// Plane indices within Frustum.Planes.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// FrustumFromMatrix extracts the six planes of a world to clip matrix using the
// Gribb/Hartmann method. The near plane follows the WebGPU [0, 1] depth convention.
//
// Parameters:
//   - viewProj: the combined projection * view matrix
//
// Returns:
//   - Frustum: the frustum with normalized planes
func FrustumFromMatrix(viewProj Mat4) Frustum {
	row := func(r int) [4]float32 {
		return [4]float32{viewProj[r], viewProj[4+r], viewProj[8+r], viewProj[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combine := func(a, b [4]float32, sign float32) Plane {
		return Plane{
			Normal:   Vec3{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]},
			Distance: a[3] + sign*b[3],
		}
	}

	var f Frustum
	f.Planes[FrustumLeft] = combine(r3, r0, 1)
	f.Planes[FrustumRight] = combine(r3, r0, -1)
	f.Planes[FrustumBottom] = combine(r3, r1, 1)
	f.Planes[FrustumTop] = combine(r3, r1, -1)
	f.Planes[FrustumNear] = Plane{Normal: Vec3{r2[0], r2[1], r2[2]}, Distance: r2[3]}
	f.Planes[FrustumFar] = combine(r3, r2, -1)

	for i := range f.Planes {
		p := &f.Planes[i]
		l := p.Normal.Length()
		if l > 0 {
			p.Normal = p.Normal.Scale(1 / l)
			p.Distance /= l
		}
	}
	return f
}

// IntersectsSphere reports whether a sphere overlaps the frustum.
func (f Frustum) IntersectsSphere(center Vec3, radius float32) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// IntersectsAABB reports whether a box overlaps the frustum. The test is conservative:
// boxes near frustum corners may be reported as visible.
func (f Frustum) IntersectsAABB(b AABB) bool {
	for _, p := range f.Planes {
		// positive vertex: the box corner furthest along the plane normal
		var v Vec3
		for i := 0; i < 3; i++ {
			if p.Normal[i] >= 0 {
				v[i] = b.Max[i]
			} else {
				v[i] = b.Min[i]
			}
		}
		if p.SignedDistance(v) < 0 {
			return false
		}
	}
	return true
}

// FrustumCorners returns the eight world-space corners of the volume described by
// the inverse of a world to clip matrix. The first four corners lie on the near plane.
//
// Parameters:
//   - viewProj: the combined projection * view matrix
//
// Returns:
//   - [8]Vec3: the corners, or all zero if viewProj is singular
func FrustumCorners(viewProj Mat4) [8]Vec3 {
	var corners [8]Vec3
	inv, ok := viewProj.Inverse()
	if !ok {
		return corners
	}
	i := 0
	for _, z := range [2]float32{0, 1} {
		for _, y := range [2]float32{-1, 1} {
			for _, x := range [2]float32{-1, 1} {
				corners[i] = inv.TransformPoint(Vec3{x, y, z})
				i++
			}
		}
	}
	return corners
}
