package composition

import "log/slog"

// CompositorBuilderOption is a functional option for configuring a Compositor.
type CompositorBuilderOption func(*compositor)

// WithLogger sets the logger used for composition diagnostics.
//
// Parameters:
//   - logger: the logger, nil is ignored
//
// Returns:
//   - CompositorBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) CompositorBuilderOption {
	return func(c *compositor) {
		if logger != nil {
			c.logger = logger
		}
	}
}
