package shadow

import "log/slog"

// ShadowMapsBuilderOption is a functional option for configuring ShadowMaps.
type ShadowMapsBuilderOption func(*shadowMaps)

// WithResolution sets the width and height of every shadow map layer.
// Defaults to light.ShadowMapResolution.
//
// Parameters:
//   - resolution: layer size in texels, 0 is ignored
//
// Returns:
//   - ShadowMapsBuilderOption: option function to apply
func WithResolution(resolution uint32) ShadowMapsBuilderOption {
	return func(s *shadowMaps) {
		if resolution > 0 {
			s.resolution = resolution
		}
	}
}

// WithLogger sets the logger used for shadow diagnostics.
//
// Parameters:
//   - logger: the logger, nil is ignored
//
// Returns:
//   - ShadowMapsBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) ShadowMapsBuilderOption {
	return func(s *shadowMaps) {
		if logger != nil {
			s.logger = logger
		}
	}
}
