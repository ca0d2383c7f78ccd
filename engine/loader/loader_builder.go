package loader

import "log/slog"

// LoaderBuilderOption is a functional option for configuring a Loader.
type LoaderBuilderOption func(*loader)

// WithScale multiplies every position by s. Values <= 0 are ignored.
//
// Parameters:
//   - s: the uniform scale
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithScale(s float32) LoaderBuilderOption {
	return func(l *loader) {
		if s > 0 {
			l.scale = s
		}
	}
}

// WithFlipWinding reverses the winding of every triangle, for assets authored clockwise.
//
// Parameters:
//   - flip: true to reverse the winding
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithFlipWinding(flip bool) LoaderBuilderOption {
	return func(l *loader) {
		l.flipWinding = flip
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
