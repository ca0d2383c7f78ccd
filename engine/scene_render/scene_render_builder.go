package scene_render

import "log/slog"

// SceneRenderBuilderOption is a functional option for configuring a SceneRender.
type SceneRenderBuilderOption func(*sceneRender)

// WithLogger sets the logger used for camera and draw failures.
//
// Parameters:
//   - logger: the logger, nil is ignored
//
// Returns:
//   - SceneRenderBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SceneRenderBuilderOption {
	return func(d *sceneRender) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithPostProcessors appends processors to a stage, in order.
//
// Parameters:
//   - stage: PostScene or PostUI
//   - processors: the processors
//
// Returns:
//   - SceneRenderBuilderOption: option function to apply
func WithPostProcessors(stage PostStage, processors ...PostProcessor) SceneRenderBuilderOption {
	return func(d *sceneRender) {
		for _, p := range processors {
			d.AddPostProcessor(stage, p)
		}
	}
}
