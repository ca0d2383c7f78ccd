package stack

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/engine/scene_render"
)

// StackBuilderOption is a functional option for configuring a Stack.
// Options are read by Initialize, so they survive Reset.
type StackBuilderOption func(*stack)

// WithMaxShadowedLights caps how many lights get shadow maps per frame.
// Values <= 0 are ignored.
//
// Parameters:
//   - n: the maximum number of shadow-mapped lights
//
// Returns:
//   - StackBuilderOption: option function to apply
func WithMaxShadowedLights(n int) StackBuilderOption {
	return func(s *stack) {
		if n > 0 {
			s.maxShadowedLights = n
		}
	}
}

// WithShadowResolution sets the width and height of every shadow map layer.
// A resolution of 0 is ignored.
//
// Parameters:
//   - resolution: the shadow map size in texels
//
// Returns:
//   - StackBuilderOption: option function to apply
func WithShadowResolution(resolution uint32) StackBuilderOption {
	return func(s *stack) {
		if resolution > 0 {
			s.shadowResolution = resolution
		}
	}
}

// WithComputeWorkers sets how many workers run the per-frame light visibility tests.
// Zero or less runs them on the render goroutine.
//
// Parameters:
//   - n: the maximum number of workers
//
// Returns:
//   - StackBuilderOption: option function to apply
func WithComputeWorkers(n int) StackBuilderOption {
	return func(s *stack) {
		s.computeWorkers = max(n, 0)
	}
}

// WithLogger sets the logger shared by every stage of the stack.
//
// Parameters:
//   - logger: the logger, nil is ignored
//
// Returns:
//   - StackBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) StackBuilderOption {
	return func(s *stack) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPostProcessors appends post processors to a stage of every camera.
//
// Parameters:
//   - stage: scene_render.PostScene or scene_render.PostUI
//   - processors: the processors, in order
//
// Returns:
//   - StackBuilderOption: option function to apply
func WithPostProcessors(stage scene_render.PostStage, processors ...scene_render.PostProcessor) StackBuilderOption {
	return func(s *stack) {
		if stage != scene_render.PostScene && stage != scene_render.PostUI {
			return
		}
		s.post[stage] = append(s.post[stage], processors...)
	}
}
