package scene

import "github.com/Carmen-Shannon/oxy-forward/common"

// RenderMode selects the pass a renderer draws in.
type RenderMode int

const (
	// RenderModeOpaque renderers draw in the opaque pass and cast shadows.
	RenderModeOpaque RenderMode = iota

	// RenderModeTransparent renderers draw in the transparent pass over the opaque depth
	// and cast shadows.
	RenderModeTransparent

	// RenderModeUI renderers draw in the UI pass. They never cast shadows.
	RenderModeUI
)

func (m RenderMode) String() string {
	switch m {
	case RenderModeOpaque:
		return "opaque"
	case RenderModeTransparent:
		return "transparent"
	case RenderModeUI:
		return "ui"
	default:
		return "unknown"
	}
}

// Renderer is anything that issues draw calls for the scene: a mesh, a particle system, a
// UI panel. The render stack calls it once per applicable pass and never inspects what it
// draws.
//
// Implementations must not retain the PassContext beyond the call. The dynamic type must
// be comparable (usually a pointer) because snapshots deduplicate renderers by identity.
type Renderer interface {
	// Name returns the renderer name used in logs.
	Name() string

	// Enabled reports whether the renderer is enabled in the scene hierarchy.
	Enabled() bool

	// LayerMask returns the bit mask of layers the renderer belongs to.
	LayerMask() uint32

	// RenderMode returns the pass the renderer draws in.
	RenderMode() RenderMode

	// Bounds returns the world-space bounds used for culling and light range tests.
	Bounds() common.AABB

	// Draw records the draw calls of one camera pass.
	//
	// Parameters:
	//   - ctx: the frame context
	//   - pass: the pass being recorded
	//
	// Returns:
	//   - bool: false if drawing failed; siblings still draw
	Draw(ctx *Context, pass *PassContext) bool

	// DrawShadowMap records the depth-only draw calls of one shadow cascade.
	//
	// Parameters:
	//   - ctx: the frame context
	//   - pass: the shadow pass being recorded
	//
	// Returns:
	//   - bool: false if drawing failed; siblings still draw
	DrawShadowMap(ctx *Context, pass *PassContext) bool
}

// SpatialIndex answers bounds queries over the renderers of a scene.
type SpatialIndex interface {
	// GetObjectsInBounds returns every renderer whose bounds overlap b.
	GetObjectsInBounds(b common.AABB) []Renderer
}
