package common

import "math"

// AABB is an axis-aligned bounding box in world space. A box with Min > Max on any
// axis is empty.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns a box that contains nothing and acts as the identity for Union.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

// AABBFromPoints returns the smallest box containing every point.
func AABBFromPoints(points ...Vec3) AABB {
	b := EmptyAABB()
	for _, p := range points {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Intersects reports whether b and o overlap. Touching boxes intersect.
func (b AABB) Intersects(o AABB) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether the sphere overlaps b.
func (b AABB) IntersectsSphere(center Vec3, radius float32) bool {
	if b.IsEmpty() {
		return false
	}
	var d2 float32
	for i := 0; i < 3; i++ {
		v := center[i]
		if v < b.Min[i] {
			d2 += (b.Min[i] - v) * (b.Min[i] - v)
		} else if v > b.Max[i] {
			d2 += (v - b.Max[i]) * (v - b.Max[i])
		}
	}
	return d2 <= radius*radius
}

// Center returns the midpoint of b.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extent returns the half size of b along each axis.
func (b AABB) Extent() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Radius returns the radius of the sphere enclosing b.
func (b AABB) Radius() float32 {
	if b.IsEmpty() {
		return 0
	}
	return b.Extent().Length()
}
