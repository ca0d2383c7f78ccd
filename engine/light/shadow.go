package light

import "github.com/gogpu/gputypes"

// ShadowMapResolution is the default width and height in texels of each shadow
// map layer. Stacks use this as their initial value but can override it
// via the WithShadowResolution builder option.
const ShadowMapResolution = 2048

// MaxShadowCascades is the largest cascade count any light kind accepts. A light
// renders Cascades+1 shadow maps.
const MaxShadowCascades = 4

// DefaultMaxShadowedLights is the default cap on lights that receive shadow maps in
// one frame.
const DefaultMaxShadowedLights = 4

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001

// DefaultShadowNormalBias is the world-space distance fragment positions are pushed
// along their normal before the shadow lookup. Higher values reduce self-shadowing on
// concave geometry at the cost of slight shadow detachment from contact points.
const DefaultShadowNormalBias float32 = 0.02

// DefaultShadowSceneRadius is used for directional cascades when the scene radius is unknown.
const DefaultShadowSceneRadius float32 = 40.0

// Shadow map texture formats. Per-light caches use the same formats as the shared
// shadow map array so layers can be copied between them.
const (
	ShadowDepthFormat  = gputypes.TextureFormatDepth32Float
	ShadowNormalFormat = gputypes.TextureFormatRGBA16Float
)

// ShadowSettings controls how a light casts shadows.
type ShadowSettings struct {
	CastShadows bool
	// Cascades is the number of extra cascades; a light renders Cascades+1 maps.
	// The value is clamped to the kind's maximum.
	Cascades   int
	NormalBias float32
	DepthBias  float32
}

// DefaultShadowSettings returns settings with shadows off and default biases.
func DefaultShadowSettings() ShadowSettings {
	return ShadowSettings{
		NormalBias: DefaultShadowNormalBias,
		DepthBias:  DefaultShadowBias,
	}
}
