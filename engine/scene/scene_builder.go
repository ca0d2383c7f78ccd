package scene

import (
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithAmbientColor sets the ambient light color.
//
// Parameters:
//   - c: the ambient color in linear RGB
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbientColor(c common.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.ambientColor = c
	}
}

// WithShadowRadius sets the world radius covered by directional shadow maps.
// Defaults to light.DefaultShadowSceneRadius.
//
// Parameters:
//   - r: the radius, values <= 0 are ignored
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadowRadius(r float32) SceneBuilderOption {
	return func(s *scene) {
		if r > 0 {
			s.shadowRadius = r
		}
	}
}

// WithSpatialIndex sets the spatial index queried for renderers each frame.
//
// Parameters:
//   - idx: the spatial index
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSpatialIndex(idx SpatialIndex) SceneBuilderOption {
	return func(s *scene) {
		s.index = idx
	}
}

// WithRenderers registers unpartitioned renderers.
func WithRenderers(renderers ...Renderer) SceneBuilderOption {
	return func(s *scene) {
		s.renderers = append(s.renderers, renderers...)
	}
}

// WithCameras registers cameras.
func WithCameras(cameras ...camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.cameras = append(s.cameras, cameras...)
	}
}

// WithLights registers lights.
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = append(s.lights, lights...)
	}
}
