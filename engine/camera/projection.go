package camera

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// ProjectionKind selects the projection model of a camera.
type ProjectionKind int

const (
	// ProjectionPerspective projects with a vertical field of view.
	ProjectionPerspective ProjectionKind = iota

	// ProjectionOrthographic projects a box of fixed half height.
	ProjectionOrthographic
)

func (k ProjectionKind) String() string {
	if k == ProjectionOrthographic {
		return "orthographic"
	}
	return "perspective"
}

// ErrInvalidProjection is returned for projection settings that cannot produce a matrix.
var ErrInvalidProjection = errors.New("camera: invalid projection")

// Projection holds the settings needed to build a projection matrix. Aspect ratio is
// not part of it; it comes from the output resolution.
type Projection struct {
	Kind ProjectionKind
	// FovY is the vertical field of view in radians (perspective only).
	FovY float32
	// OrthoHalfHeight is half the visible height in world units (orthographic only).
	OrthoHalfHeight float32
	Near            float32
	Far             float32
}

// DefaultProjection is a 45 degree perspective projection from 0.1 to 100.
var DefaultProjection = Projection{
	Kind: ProjectionPerspective,
	FovY: common.Radians(45),
	Near: 0.1,
	Far:  100,
}

// PerspectiveProjection returns perspective settings.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - Projection: the settings
func PerspectiveProjection(fovY, near, far float32) Projection {
	return Projection{Kind: ProjectionPerspective, FovY: fovY, Near: near, Far: far}
}

// OrthographicProjection returns orthographic settings.
//
// Parameters:
//   - halfHeight: half the visible height in world units
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - Projection: the settings
func OrthographicProjection(halfHeight, near, far float32) Projection {
	return Projection{Kind: ProjectionOrthographic, OrthoHalfHeight: halfHeight, Near: near, Far: far}
}

// Validate reports whether the settings can build a matrix.
func (p Projection) Validate() error {
	switch {
	case p.Far <= p.Near:
		return fmt.Errorf("%w: far %v <= near %v", ErrInvalidProjection, p.Far, p.Near)
	case p.Kind == ProjectionPerspective && p.Near <= 0:
		return fmt.Errorf("%w: perspective near %v <= 0", ErrInvalidProjection, p.Near)
	case p.Kind == ProjectionPerspective && (p.FovY <= 0 || p.FovY >= 3.14159):
		return fmt.Errorf("%w: fov %v", ErrInvalidProjection, p.FovY)
	case p.Kind == ProjectionOrthographic && p.OrthoHalfHeight <= 0:
		return fmt.Errorf("%w: half height %v", ErrInvalidProjection, p.OrthoHalfHeight)
	}
	return nil
}

// Matrix builds the view to clip matrix in WebGPU clip space (depth in [0, 1]).
//
// Parameters:
//   - aspect: output width / height; non-positive values are treated as 1
//
// Returns:
//   - common.Mat4: the projection matrix
func (p Projection) Matrix(aspect float32) common.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	if p.Kind == ProjectionOrthographic {
		h := p.OrthoHalfHeight
		w := h * aspect
		return common.Orthographic(-w, w, -h, h, p.Near, p.Far)
	}
	return common.Perspective(p.FovY, aspect, p.Near, p.Far)
}

// WorldToClip combines a view and a projection matrix.
//
// Parameters:
//   - view: the world to view matrix
//   - proj: the view to clip matrix
//
// Returns:
//   - common.Mat4: proj * view
func WorldToClip(view, proj common.Mat4) common.Mat4 {
	return proj.Mul(view)
}

// ClipToPixel maps normalized device coordinates to pixel coordinates with the origin
// at the top left corner. Depth passes through unchanged.
//
// Parameters:
//   - width, height: the output size in pixels
//
// Returns:
//   - common.Mat4: the viewport matrix
func ClipToPixel(width, height float32) common.Mat4 {
	m := common.Identity()
	m[0] = width / 2
	m[5] = -height / 2
	m[12] = width / 2
	m[13] = height / 2
	return m
}
