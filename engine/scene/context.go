package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/gogpu/gputypes"
)

// Context is the per-frame state shared by every pass of one DrawStack call.
type Context struct {
	// Scene is the scene being drawn.
	Scene Scene
	// Device creates and writes GPU resources.
	Device renderer.Device
	// Frame is the frame counter, starting at 1.
	Frame uint64
	// Objects is this frame's snapshot.
	Objects *Objects
	// Logger receives per-frame diagnostics.
	Logger *slog.Logger

	// ShadowDepth is the shared shadow depth array, nil before the first shadow pass.
	ShadowDepth renderer.Texture
	// ShadowNormal is the shared shadow normal array.
	ShadowNormal renderer.Texture
	// ShadowMatrices is the storage buffer of per-slot world to light clip matrices.
	ShadowMatrices renderer.Buffer
	// ShadowSampler is the comparison sampler of ShadowDepth.
	ShadowSampler renderer.Sampler
	// ResourceVersion increments whenever a shadow resource above is replaced.
	ResourceVersion uint64
}

// PassKind identifies the pass a PassContext belongs to.
type PassKind int

const (
	PassShadow PassKind = iota
	PassOpaque
	PassTransparent
	PassUI
)

func (k PassKind) String() string {
	switch k {
	case PassShadow:
		return "shadow"
	case PassOpaque:
		return "opaque"
	case PassTransparent:
		return "transparent"
	case PassUI:
		return "ui"
	default:
		return "unknown"
	}
}

// PassContext bundles what a renderer needs to record one pass. It is valid only for the
// duration of the Draw or DrawShadowMap call it is passed to.
type PassContext struct {
	Kind      PassKind
	Frame     uint64
	PassIndex int

	// Commands is the open command list; a render pass is active on it.
	Commands renderer.CommandList
	// ResourceSet is the bound per-view set: the camera set for scene passes, the cascade
	// constants for shadow passes.
	ResourceSet renderer.ResourceSet

	// Camera is the drawing camera, nil for shadow passes.
	Camera camera.Camera
	// Light and Cascade identify the shadow render, nil and 0 for scene passes.
	Light   light.Light
	Cascade int
	// Slot is the shared shadow array layer of a shadow pass.
	Slot uint32

	View           common.Mat4
	Projection     common.Mat4
	ViewProjection common.Mat4
	CameraPosition common.Vec3

	LightCount         int
	ShadowedLightCount int
	TileCountX         uint32
	TileCountY         uint32

	Width       uint32
	Height      uint32
	ColorFormat gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat
}

// Accepts reports whether a renderer with the given layer mask draws in this pass.
func (p *PassContext) Accepts(mask uint32) bool {
	switch {
	case p.Camera != nil:
		return p.Camera.LayerMask()&mask != 0
	case p.Light != nil:
		return p.Light.LayerMask()&mask != 0
	default:
		return mask != 0
	}
}
