package light

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon. Affects all fragments
	// uniformly with no distance attenuation.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Used for bare bulbs, lanterns and candle flames.
	// Attenuates with distance up to a configurable range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	// Used for flashlights, desk lamps, and wall sconces. Attenuates with both
	// distance and angle from the cone axis, controlled by inner and outer cone angles.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	default:
		return "unknown"
	}
}

// kindBehavior holds the operations that differ between light kinds.
type kindBehavior struct {
	// maxCascades is the largest accepted ShadowSettings.Cascades.
	maxCascades int
	// supportsShadows is false for kinds that reject CastShadows.
	supportsShadows bool
	// projection builds the world to clip matrix of one shadow render.
	projection func(l *lightImpl, focal common.Vec3, sceneRadius float32, cascade int) (common.Mat4, error)
	// visible reports whether the light can affect anything inside a camera frustum.
	visible func(l *lightImpl, f common.Frustum) bool
	// inRange reports whether the light can reach a renderer's bounds.
	inRange func(l *lightImpl, b common.AABB) bool
}

var kindBehaviors = [...]kindBehavior{
	LightTypeDirectional: {
		maxCascades:     MaxShadowCascades,
		supportsShadows: true,
		projection:      directionalProjection,
		visible:         func(*lightImpl, common.Frustum) bool { return true },
		inRange:         func(*lightImpl, common.AABB) bool { return true },
	},
	LightTypePoint: {
		maxCascades:     0,
		supportsShadows: false,
		projection: func(l *lightImpl, _ common.Vec3, _ float32, _ int) (common.Mat4, error) {
			return common.Identity(), fmt.Errorf("light %q: %w", l.name, ErrShadowsUnsupported)
		},
		visible: sphereVisible,
		inRange: sphereInRange,
	},
	LightTypeSpot: {
		maxCascades:     0,
		supportsShadows: true,
		projection:      spotProjection,
		visible:         sphereVisible,
		inRange:         sphereInRange,
	},
}

func behaviorOf(t LightType) *kindBehavior {
	if t < 0 || int(t) >= len(kindBehaviors) {
		return &kindBehaviors[LightTypePoint]
	}
	return &kindBehaviors[t]
}

func sphereVisible(l *lightImpl, f common.Frustum) bool {
	return f.IntersectsSphere(l.position, l.lightRange)
}

func sphereInRange(l *lightImpl, b common.AABB) bool {
	return b.IntersectsSphere(l.position, l.lightRange)
}

// stableUp returns an up vector that is not parallel to dir.
func stableUp(dir common.Vec3) common.Vec3 {
	if common.Abs(dir[1]) > 0.99 {
		return common.Vec3{1, 0, 0}
	}
	return common.Vec3{0, 1, 0}
}

// directionalProjection fits an orthographic box around the focal point. The last
// cascade covers the whole scene radius; each earlier cascade halves the extent.
func directionalProjection(l *lightImpl, focal common.Vec3, sceneRadius float32, cascade int) (common.Mat4, error) {
	renders := l.shadowRenders()
	if cascade < 0 || cascade >= max(renders, 1) {
		return common.Identity(), fmt.Errorf("light %q: cascade %d of %d: %w", l.name, cascade, renders, ErrCascadeOutOfRange)
	}
	if sceneRadius <= 0 {
		sceneRadius = DefaultShadowSceneRadius
	}
	halfExtent := sceneRadius / float32(int(1)<<(max(renders, 1)-1-cascade))

	dir := l.direction
	eye := focal.Sub(dir.Scale(2 * sceneRadius))
	view := common.LookAt(eye, focal, stableUp(dir))
	proj := common.Orthographic(-halfExtent, halfExtent, -halfExtent, halfExtent, 0, 4*sceneRadius)
	return proj.Mul(view), nil
}

// spotProjection builds a perspective frustum enclosing the outer cone.
func spotProjection(l *lightImpl, _ common.Vec3, _ float32, cascade int) (common.Mat4, error) {
	if cascade != 0 {
		return common.Identity(), fmt.Errorf("light %q: cascade %d of 1: %w", l.name, cascade, ErrCascadeOutOfRange)
	}
	fov := 2 * float32(math.Acos(float64(l.outerCone)))
	fov = min(max(fov, 0.01), math.Pi-0.01)
	far := max(l.lightRange, 0.1)
	near := max(far*0.01, 0.05)
	if near >= far {
		near = far * 0.5
	}

	view := common.LookAt(l.position, l.position.Add(l.direction), stableUp(l.direction))
	proj := common.Perspective(fov, 1, near, far)
	return proj.Mul(view), nil
}
