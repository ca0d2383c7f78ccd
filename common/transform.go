package common

// Transform is a world pose made of a position, an Euler rotation in radians and a scale.
type Transform struct {
	Position Vec3
	Rotation Vec3
	Scale    Vec3
}

// NewTransform returns a transform at the origin with unit scale.
func NewTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// Matrix returns the local to world matrix of the transform.
func (t Transform) Matrix() Mat4 {
	s := t.Scale
	if s == (Vec3{}) {
		s = Vec3{1, 1, 1}
	}
	return TRS(t.Position, t.Rotation, s)
}

// Forward returns the unit direction the transform faces (-Z rotated by Rotation).
func (t Transform) Forward() Vec3 {
	m := TRS(Vec3{}, t.Rotation, Vec3{1, 1, 1})
	return Vec3{-m[8], -m[9], -m[10]}.Normalize()
}

// Up returns the unit up direction (+Y rotated by Rotation).
func (t Transform) Up() Vec3 {
	m := TRS(Vec3{}, t.Rotation, Vec3{1, 1, 1})
	return Vec3{m[4], m[5], m[6]}.Normalize()
}
