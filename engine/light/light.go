package light

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
)

var (
	// ErrShadowsUnsupported is returned when shadows are requested from a kind that cannot cast them.
	ErrShadowsUnsupported = errors.New("light: shadows unsupported for this light type")

	// ErrCascadeOutOfRange is returned for a cascade index the light does not render.
	ErrCascadeOutOfRange = errors.New("light: cascade out of range")
)

// StaticDirty is the invalidation state of a static light's cached shadow maps.
// Data covers the packed light record; Frame covers the cached shadow map contents.
type StaticDirty struct {
	Data  common.DirtyState
	Frame common.DirtyState
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	name       string
	lightType  LightType
	position   common.Vec3
	direction  common.Vec3
	color      common.Vec3
	intensity  float32
	lightRange float32
	innerCone  float32 // stored as cos(angle in radians)
	outerCone  float32 // stored as cos(angle in radians)
	enabled    bool
	layerMask  uint32
	priority   int

	shadow      ShadowSettings
	static      bool
	staticDirty StaticDirty

	shadowSlot   uint32
	shadowMapped bool
	resources    *cascadeResources

	logger *slog.Logger
}

// Light defines the interface for a light source in the scene.
//
// Lights are a closed set of kinds (directional, point, spot). The operations that differ
// per kind go through a dispatch table; kind-specific getters (e.g. cone angles for spot
// lights) return their stored values regardless of kind.
//
// Shadow-casting lights own one ShadowCascade per shadow map they render. Turning shadows
// off releases those resources and frees the light's shadow map slot. A static light keeps
// a private copy of its shadow maps and is only redrawn while its Frame state is dirty.
//
// Lights are not safe for concurrent mutation. Read-only queries may run concurrently.
type Light interface {
	// Name returns the light name used in logs and resource labels.
	Name() string

	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (directional, point, or spot)
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for directional lights.
	//
	// Returns:
	//   - common.Vec3: position as (x, y, z)
	Position() common.Vec3

	// Direction returns the normalized direction of the light.
	// For directional lights this is the light direction. For spot lights this
	// is the cone axis. Meaningless for point lights.
	//
	// Returns:
	//   - common.Vec3: normalized direction as (x, y, z)
	Direction() common.Vec3

	// Color returns the RGB color of the light.
	Color() common.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	Intensity() float32

	// Range returns the maximum attenuation distance for point and spot lights.
	// Beyond this distance the light contributes zero energy.
	Range() float32

	// InnerCone returns the cosine of the inner cone half-angle for spot lights.
	InnerCone() float32

	// OuterCone returns the cosine of the outer cone half-angle for spot lights.
	OuterCone() float32

	// Enabled returns whether this light is active for rendering.
	Enabled() bool

	// LayerMask returns the layers the light affects. A zero mask excludes the light.
	LayerMask() uint32

	// Priority returns the light priority. Higher priorities are packed first.
	Priority() int

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetDirection sets the direction of the light and normalizes it.
	//
	// Parameters:
	//   - x, y, z: direction components (will be normalized)
	SetDirection(x, y, z float32)

	// SetColor sets the RGB color of the light.
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	SetIntensity(intensity float32)

	// SetRange sets the maximum attenuation distance.
	SetRange(lightRange float32)

	// SetSpotCone sets the inner and outer cone half-angles for spot lights.
	// Angles are specified in degrees and stored internally as cosines.
	//
	// Parameters:
	//   - innerDeg: inner cone half-angle in degrees
	//   - outerDeg: outer cone half-angle in degrees
	SetSpotCone(innerDeg, outerDeg float32)

	// SetEnabled enables or disables the light for rendering.
	SetEnabled(enabled bool)

	// SetLayerMask sets the layers the light affects.
	SetLayerMask(mask uint32)

	// SetPriority sets the light priority.
	SetPriority(priority int)

	// SupportsShadows reports whether the light kind can cast shadows.
	SupportsShadows() bool

	// MaxCascades returns the largest cascade count the light kind accepts.
	MaxCascades() int

	// ShadowSettings returns the shadow settings with Cascades clamped to the kind maximum.
	ShadowSettings() ShadowSettings

	// SetShadowSettings replaces the shadow settings.
	//
	// Parameters:
	//   - s: the new settings; Cascades is clamped to [0, MaxCascades()]
	//
	// Returns:
	//   - error: ErrShadowsUnsupported if s.CastShadows is set on a kind without shadows
	SetShadowSettings(s ShadowSettings) error

	// CastsShadows returns whether this light is eligible for shadow map generation.
	CastsShadows() bool

	// SetCastShadows toggles shadow casting. Turning it off releases every cascade and
	// resets the shadow slot to 0; turning it on schedules a full redraw.
	//
	// Parameters:
	//   - cast: true to enable shadow casting
	//
	// Returns:
	//   - error: ErrShadowsUnsupported when enabling on a kind without shadows
	SetCastShadows(cast bool) error

	// ShadowRenders returns how many shadow maps the light renders per frame, Cascades+1
	// when casting shadows and 0 otherwise.
	ShadowRenders() int

	// Static reports whether the light caches its shadow maps.
	Static() bool

	// SetStatic toggles shadow map caching. Changing it schedules a full redraw.
	SetStatic(static bool)

	// StaticDirty returns the invalidation state of the cached shadow data.
	StaticDirty() StaticDirty

	// MarkDirty raises both static dirty states to at least state.
	MarkDirty(state common.DirtyState)

	// ClearFrameDirty marks the cached shadow maps as current.
	ClearFrameDirty()

	// ClearDataDirty marks the packed light record as current.
	ClearDataDirty()

	// ShadowSlot returns the first shadow map array layer assigned to the light.
	ShadowSlot() uint32

	// ShadowMapped reports whether the light holds shadow map slots this frame.
	ShadowMapped() bool

	// AssignShadowSlot gives the light the layers [slot, slot+ShadowRenders()).
	AssignShadowSlot(slot uint32)

	// ClearShadowSlot releases the light's slot and resets it to 0.
	ClearShadowSlot()

	// ShadowCascades returns the cascade resources, or nil when they are not prepared.
	ShadowCascades() []*ShadowCascade

	// HasShadowCache reports whether cached shadow maps exist for every cascade.
	HasShadowCache() bool

	// PrepareCascades creates or recreates cascade resources to match the shadow settings,
	// static flag and resolution. Existing resources are kept when they already match.
	//
	// Parameters:
	//   - device: the device creating the resources
	//   - resolution: the shadow map width and height in texels
	//
	// Returns:
	//   - bool: true if resources were (re)created
	//   - error: a creation error; prior resources are kept on failure
	PrepareCascades(device renderer.Device, resolution uint32) (bool, error)

	// ReleaseShadowResources releases every cascade and the static cache.
	ReleaseShadowResources()

	// GetLightSourceData packs the light into its GPU record.
	GetLightSourceData() GPULight

	// RecalculateShadowProjectionMatrix builds the world to clip matrix of one shadow
	// render and stores it on the cascade when resources exist.
	//
	// Parameters:
	//   - focal: the point shadows are centered on (directional lights)
	//   - sceneRadius: radius of the region to cover (directional lights)
	//   - cascade: the cascade index in [0, ShadowRenders())
	//
	// Returns:
	//   - common.Mat4: the matrix
	//   - error: ErrShadowsUnsupported or ErrCascadeOutOfRange
	RecalculateShadowProjectionMatrix(focal common.Vec3, sceneRadius float32, cascade int) (common.Mat4, error)

	// CheckVisibilityByCamera reports whether the light can affect anything inside f.
	CheckVisibilityByCamera(f common.Frustum) bool

	// CheckIsRendererInRange reports whether the light can reach a renderer with bounds b.
	CheckIsRendererInRange(b common.AABB) bool

	// Release releases every GPU resource held by the light.
	Release()
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - name: the light name used in logs and resource labels
//   - lightType: the kind of light to create (directional, point, or spot)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(name string, lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		name:        name,
		lightType:   lightType,
		direction:   common.Vec3{0, -1, 0},
		color:       common.Vec3{1, 1, 1},
		intensity:   1.0,
		lightRange:  10.0,
		innerCone:   0.9063, // cos(25°)
		outerCone:   0.8192, // cos(35°)
		enabled:     true,
		layerMask:   ^uint32(0),
		shadow:      DefaultShadowSettings(),
		staticDirty: StaticDirty{Data: common.NeedsRebuild, Frame: common.NeedsRebuild},
		logger:      common.Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.shadow.Cascades = l.clampCascades(l.shadow.Cascades)
	if l.shadow.CastShadows && !l.behavior().supportsShadows {
		l.logger.Warn("shadows unsupported, ignoring", "light", l.name, "type", l.lightType)
		l.shadow.CastShadows = false
	}
	return l
}

func (l *lightImpl) behavior() *kindBehavior {
	return behaviorOf(l.lightType)
}

func (l *lightImpl) clampCascades(n int) int {
	return common.Clamp(n, 0, l.behavior().maxCascades)
}

// touch records a property change. Static lights must redraw their cache.
func (l *lightImpl) touch() {
	if l.static {
		l.MarkDirty(common.NeedsUpdate)
	}
}

func (l *lightImpl) shadowRenders() int {
	if !l.shadow.CastShadows {
		return 0
	}
	return l.shadow.Cascades + 1
}

func (l *lightImpl) Name() string {
	return l.name
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() common.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() common.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() common.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) LayerMask() uint32 {
	return l.layerMask
}

func (l *lightImpl) Priority() int {
	return l.priority
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	p := common.Vec3{x, y, z}
	if p == l.position {
		return
	}
	l.position = p
	l.touch()
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	d := common.Vec3{x, y, z}.Normalize()
	if d == l.direction {
		return
	}
	l.direction = d
	l.touch()
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = common.Vec3{r, g, b}
	l.touch()
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
	l.touch()
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.lightRange = lightRange
	l.touch()
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.innerCone = common.Deg2Cos(innerDeg)
	l.outerCone = common.Deg2Cos(outerDeg)
	l.touch()
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetLayerMask(mask uint32) {
	l.layerMask = mask
}

func (l *lightImpl) SetPriority(priority int) {
	l.priority = priority
}

func (l *lightImpl) SupportsShadows() bool {
	return l.behavior().supportsShadows
}

func (l *lightImpl) MaxCascades() int {
	return l.behavior().maxCascades
}

func (l *lightImpl) ShadowSettings() ShadowSettings {
	return l.shadow
}

func (l *lightImpl) SetShadowSettings(s ShadowSettings) error {
	s.Cascades = l.clampCascades(s.Cascades)
	if err := l.SetCastShadows(s.CastShadows); err != nil {
		return err
	}
	if s.Cascades != l.shadow.Cascades {
		l.MarkDirty(common.NeedsRebuild)
	} else if s != l.shadow {
		l.touch()
	}
	l.shadow = s
	return nil
}

func (l *lightImpl) CastsShadows() bool {
	return l.shadow.CastShadows
}

func (l *lightImpl) SetCastShadows(cast bool) error {
	if cast == l.shadow.CastShadows {
		return nil
	}
	if !cast {
		l.shadow.CastShadows = false
		l.ReleaseShadowResources()
		l.ClearShadowSlot()
		return nil
	}
	if !l.behavior().supportsShadows {
		return fmt.Errorf("light %q (%s): %w", l.name, l.lightType, ErrShadowsUnsupported)
	}
	l.shadow.CastShadows = true
	l.MarkDirty(common.NeedsRebuild)
	return nil
}

func (l *lightImpl) ShadowRenders() int {
	return l.shadowRenders()
}

func (l *lightImpl) Static() bool {
	return l.static
}

func (l *lightImpl) SetStatic(static bool) {
	if static == l.static {
		return
	}
	l.static = static
	l.MarkDirty(common.NeedsRebuild)
}

func (l *lightImpl) StaticDirty() StaticDirty {
	return l.staticDirty
}

func (l *lightImpl) MarkDirty(state common.DirtyState) {
	l.staticDirty.Data = l.staticDirty.Data.Raise(state)
	l.staticDirty.Frame = l.staticDirty.Frame.Raise(state)
}

func (l *lightImpl) ClearFrameDirty() {
	l.staticDirty.Frame = common.Clean
}

func (l *lightImpl) ClearDataDirty() {
	l.staticDirty.Data = common.Clean
}

func (l *lightImpl) ShadowSlot() uint32 {
	return l.shadowSlot
}

func (l *lightImpl) ShadowMapped() bool {
	return l.shadowMapped
}

func (l *lightImpl) AssignShadowSlot(slot uint32) {
	l.shadowSlot = slot
	l.shadowMapped = true
}

func (l *lightImpl) ClearShadowSlot() {
	l.shadowSlot = 0
	l.shadowMapped = false
}

func (l *lightImpl) ShadowCascades() []*ShadowCascade {
	if l.resources == nil {
		return nil
	}
	return l.resources.cascades
}

func (l *lightImpl) HasShadowCache() bool {
	return l.resources != nil && l.resources.cache != nil
}

func (l *lightImpl) PrepareCascades(device renderer.Device, resolution uint32) (bool, error) {
	renders := l.shadowRenders()
	if renders == 0 {
		l.ReleaseShadowResources()
		return false, nil
	}
	if r := l.resources; r != nil && len(r.cascades) == renders && r.resolution == resolution && r.static == l.static {
		return false, nil
	}

	res, err := createCascadeResources(device, l.name, renders, resolution, l.static)
	if err != nil {
		l.logger.Error("shadow cascades", "light", l.name, "error", err)
		return false, err
	}
	l.ReleaseShadowResources()
	l.resources = res
	// a fresh cache holds nothing to reuse
	l.staticDirty.Frame = common.NeedsRebuild
	l.logger.Debug("shadow cascades created", "light", l.name, "cascades", renders, "static", l.static)
	return true, nil
}

func (l *lightImpl) ReleaseShadowResources() {
	if l.resources == nil {
		return
	}
	l.resources.release()
	l.resources = nil
}

func (l *lightImpl) GetLightSourceData() GPULight {
	g := GPULight{
		Position:   l.position,
		LightType:  uint32(l.lightType),
		Color:      l.color,
		Intensity:  l.intensity,
		Direction:  l.direction,
		LightRange: l.lightRange,
		InnerCone:  l.innerCone,
		OuterCone:  l.outerCone,
		DepthBias:  l.shadow.DepthBias,
		NormalBias: l.shadow.NormalBias,
	}
	if l.shadowMapped && l.shadow.CastShadows {
		g.ShadowSlot = l.shadowSlot
		g.CascadeCount = uint32(l.shadowRenders())
		g.Flags |= FlagShadowMapped
	}
	if l.static {
		g.Flags |= FlagStatic
	}
	return g
}

func (l *lightImpl) RecalculateShadowProjectionMatrix(focal common.Vec3, sceneRadius float32, cascade int) (common.Mat4, error) {
	m, err := l.behavior().projection(l, focal, sceneRadius, cascade)
	if err != nil {
		return m, err
	}
	if cs := l.ShadowCascades(); cascade < len(cs) {
		cs[cascade].Matrix = m
	}
	return m, nil
}

func (l *lightImpl) CheckVisibilityByCamera(f common.Frustum) bool {
	return l.behavior().visible(l, f)
}

func (l *lightImpl) CheckIsRendererInRange(b common.AABB) bool {
	return l.behavior().inRange(l, b)
}

func (l *lightImpl) Release() {
	l.ReleaseShadowResources()
	l.ClearShadowSlot()
}
