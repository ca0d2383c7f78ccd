package camera

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

type CameraBuilderOption func(*cameraImpl)

// WithProjection sets the camera's projection settings. Invalid settings are ignored.
//
// Parameters:
//   - p: the projection settings
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithProjection(p Projection) CameraBuilderOption {
	return func(c *cameraImpl) {
		if p.Validate() == nil {
			c.projection = p
		}
	}
}

// WithOutput sets the camera's output description.
//
// Parameters:
//   - o: the output description
//
// Returns:
//   - CameraBuilderOption: a function that sets the output
func WithOutput(o OutputDescription) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.output = o
	}
}

// WithTransform sets the camera's initial world pose.
//
// Parameters:
//   - t: the pose
//
// Returns:
//   - CameraBuilderOption: a function that sets the transform
func WithTransform(t common.Transform) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.transform = t
	}
}

// WithClearSettings sets how BeginDrawing clears the camera's targets.
//
// Parameters:
//   - s: the clear settings
//
// Returns:
//   - CameraBuilderOption: a function that sets the clear settings
func WithClearSettings(s ClearSettings) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.clear = s
	}
}

// WithLayerMask sets which layers the camera sees.
//
// Parameters:
//   - mask: the layer bit mask
//
// Returns:
//   - CameraBuilderOption: a function that sets the layer mask
func WithLayerMask(mask uint32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.layerMask = mask
	}
}

// WithPriority sets the camera's draw priority. Higher priorities draw first.
//
// Parameters:
//   - priority: the priority
//
// Returns:
//   - CameraBuilderOption: a function that sets the priority
func WithPriority(priority int) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.priority = priority
	}
}

// WithMain marks the camera as the one presenting to the display surface.
//
// Returns:
//   - CameraBuilderOption: a function that marks the camera as main
func WithMain() CameraBuilderOption {
	return func(c *cameraImpl) {
		c.main = true
	}
}

// WithLogger sets the logger used for camera diagnostics.
//
// Parameters:
//   - logger: the logger; nil keeps the package logger
//
// Returns:
//   - CameraBuilderOption: a function that sets the logger
func WithLogger(logger *slog.Logger) CameraBuilderOption {
	return func(c *cameraImpl) {
		if logger != nil {
			c.logger = logger
		}
	}
}
