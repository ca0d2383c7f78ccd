package renderer

import "log/slog"

// DeviceBuilderOption is a functional option applied to the WebGPU device during NewWGPUDevice.
type DeviceBuilderOption func(*wgpuDevice)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.presentMode = mode
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU fallback adapter instead of hardware
// acceleration. Requires a software Vulkan ICD such as lavapipe or SwiftShader.
//
// Parameters:
//   - force: true to force the software fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback adapter option
func WithForceSoftwareRenderer(force bool) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithSurfaceSize sets the initial display surface size in pixels.
//
// Parameters:
//   - width, height: the surface size
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface size option
func WithSurfaceSize(width, height int) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.width, d.height = width, height
	}
}

// WithLogger sets the structured logger used for device diagnostics.
//
// Parameters:
//   - logger: the logger, nil keeps the default no-op logger
//
// Returns:
//   - DeviceBuilderOption: a function that applies the logger option
func WithLogger(logger *slog.Logger) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		if logger != nil {
			d.logger = logger
		}
	}
}
