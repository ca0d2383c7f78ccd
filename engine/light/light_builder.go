package light

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition sets the world position of point and spot lights.
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = common.Vec3{x, y, z}
	}
}

// WithDirection sets the direction the light travels in, normalized.
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = common.Vec3{x, y, z}.Normalize()
	}
}

// WithColor sets the linear RGB color.
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = common.Vec3{r, g, b}
	}
}

// WithIntensity sets the scalar multiplier applied to the color.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange is an option builder that sets the maximum attenuation distance.
//
// Parameters:
//   - lightRange: the range value
//
// Returns:
//   - LightBuilderOption: a function that applies the range option to a lightImpl
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightRange = lightRange
	}
}

// WithSpotCone is an option builder that sets the inner and outer cone half-angles.
// Angles are in degrees and stored as cosines.
//
// Parameters:
//   - innerDeg: inner cone half-angle in degrees
//   - outerDeg: outer cone half-angle in degrees
//
// Returns:
//   - LightBuilderOption: a function that applies the spot cone option to a lightImpl
func WithSpotCone(innerDeg, outerDeg float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.innerCone = common.Deg2Cos(innerDeg)
		l.outerCone = common.Deg2Cos(outerDeg)
	}
}

// WithEnabled is an option builder that sets whether the light is active.
//
// Parameters:
//   - enabled: true to enable the light
//
// Returns:
//   - LightBuilderOption: a function that applies the enabled option to a lightImpl
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// WithLayerMask is an option builder that sets the layers the light affects.
//
// Parameters:
//   - mask: the layer bit mask
//
// Returns:
//   - LightBuilderOption: a function that applies the layer mask to a lightImpl
func WithLayerMask(mask uint32) LightBuilderOption {
	return func(l *lightImpl) {
		l.layerMask = mask
	}
}

// WithPriority is an option builder that sets the light priority.
//
// Parameters:
//   - priority: higher values are packed and shadow-mapped first
//
// Returns:
//   - LightBuilderOption: a function that applies the priority to a lightImpl
func WithPriority(priority int) LightBuilderOption {
	return func(l *lightImpl) {
		l.priority = priority
	}
}

// WithShadows is an option builder that enables shadow casting with the given cascade
// count and default biases. Kinds without shadow support ignore it.
//
// Parameters:
//   - cascades: extra cascades; the light renders cascades+1 maps
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow option to a lightImpl
func WithShadows(cascades int) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadow.CastShadows = true
		l.shadow.Cascades = cascades
	}
}

// WithShadowSettings is an option builder that replaces the shadow settings.
//
// Parameters:
//   - s: the shadow settings
//
// Returns:
//   - LightBuilderOption: a function that applies the settings to a lightImpl
func WithShadowSettings(s ShadowSettings) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadow = s
	}
}

// WithStatic is an option builder that makes the light cache its shadow maps.
//
// Returns:
//   - LightBuilderOption: a function that marks the light static
func WithStatic() LightBuilderOption {
	return func(l *lightImpl) {
		l.static = true
	}
}

// WithLogger is an option builder that sets the logger for light diagnostics.
//
// Parameters:
//   - logger: the logger; nil keeps the package logger
//
// Returns:
//   - LightBuilderOption: a function that sets the logger
func WithLogger(logger *slog.Logger) LightBuilderOption {
	return func(l *lightImpl) {
		if logger != nil {
			l.logger = logger
		}
	}
}
