package mesh

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
)

// MeshRendererBuilderOption is a functional option for configuring a MeshRenderer.
type MeshRendererBuilderOption func(*meshRenderer)

// WithRenderMode selects the pass the mesh draws in. Defaults to scene.RenderModeOpaque.
//
// Parameters:
//   - mode: the render mode
//
// Returns:
//   - MeshRendererBuilderOption: option function to apply
func WithRenderMode(mode scene.RenderMode) MeshRendererBuilderOption {
	return func(m *meshRenderer) {
		m.mode = mode
	}
}

// WithLayerMask sets the layers the mesh belongs to. Defaults to every layer.
//
// Parameters:
//   - mask: the layer bit mask
//
// Returns:
//   - MeshRendererBuilderOption: option function to apply
func WithLayerMask(mask uint32) MeshRendererBuilderOption {
	return func(m *meshRenderer) {
		m.layerMask = mask
	}
}

// WithTransform sets the initial mesh to world transform.
func WithTransform(t common.Transform) MeshRendererBuilderOption {
	return func(m *meshRenderer) {
		m.transform = t
	}
}

// WithColor sets the linear RGBA base color.
func WithColor(r, g, b, a float32) MeshRendererBuilderOption {
	return func(m *meshRenderer) {
		m.color = [4]float32{r, g, b, a}
	}
}

// WithLogger sets the logger for draw failures.
func WithLogger(logger *slog.Logger) MeshRendererBuilderOption {
	return func(m *meshRenderer) {
		if logger != nil {
			m.logger = logger
		}
	}
}
