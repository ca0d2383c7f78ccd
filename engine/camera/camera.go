package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/gogpu/gputypes"
)

var (
	// ErrFramebufferReleased is returned when the override framebuffer was released by its owner.
	ErrFramebufferReleased = errors.New("camera: override framebuffer released")

	// ErrOutputMismatch is returned when an override framebuffer does not match the output description.
	ErrOutputMismatch = errors.New("camera: framebuffer does not match output")

	// ErrAlreadyDrawing is returned by BeginDrawing while a drawing span is active.
	ErrAlreadyDrawing = errors.New("camera: already drawing")

	// ErrNotDrawing is returned by EndDrawing when no drawing span is active.
	ErrNotDrawing = errors.New("camera: not drawing")
)

// OutputDescription describes the render targets a camera draws into.
type OutputDescription struct {
	Width       uint32
	Height      uint32
	ColorFormat gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat
	HasStencil  bool
}

// Aspect returns width / height, or 1 for an empty output.
func (o OutputDescription) Aspect() float32 {
	if o.Width == 0 || o.Height == 0 {
		return 1
	}
	return float32(o.Width) / float32(o.Height)
}

// DescribeFramebuffer returns the output description matching an existing framebuffer.
func DescribeFramebuffer(fb renderer.Framebuffer) OutputDescription {
	return OutputDescription{
		Width:       fb.Width(),
		Height:      fb.Height(),
		ColorFormat: fb.ColorFormat(),
		DepthFormat: fb.DepthFormat(),
		HasStencil:  renderer.HasStencil(fb.DepthFormat()),
	}
}

// ClearSettings selects which attachments BeginDrawing clears and to what.
type ClearSettings struct {
	ClearColor   bool
	Color        gputypes.Color
	ClearDepth   bool
	Depth        float32
	ClearStencil bool
	Stencil      uint32
}

// PassOps converts the settings into render pass ops.
func (s ClearSettings) PassOps() renderer.PassOps {
	return renderer.PassOps{
		ClearColor:   s.ClearColor,
		Color:        s.Color,
		ClearDepth:   s.ClearDepth,
		Depth:        s.Depth,
		ClearStencil: s.ClearStencil,
		Stencil:      s.Stencil,
	}
}

// DirtyFlags is the invalidation state of each camera concern.
type DirtyFlags struct {
	Transformation common.DirtyState
	Output         common.DirtyState
	Projection     common.DirtyState
	Clearing       common.DirtyState
}

// Any reports whether any concern is dirty.
func (d DirtyFlags) Any() bool {
	return d.Transformation.IsDirty() || d.Output.IsDirty() || d.Projection.IsDirty() || d.Clearing.IsDirty()
}

type cameraImpl struct {
	mu sync.Mutex

	name   string
	device renderer.Device
	logger *slog.Logger

	enabled   bool
	main      bool
	layerMask uint32
	priority  int

	transform  common.Transform
	projection Projection
	output     OutputDescription
	clear      ClearSettings
	dirty      DirtyFlags

	// owned targets, created lazily for ownedDesc
	ownedColor renderer.Texture
	ownedDepth renderer.Texture
	owned      renderer.Framebuffer
	ownedDesc  OutputDescription

	// override is borrowed and never released here
	override renderer.Framebuffer

	matricesStale bool
	view          common.Mat4
	proj          common.Mat4
	viewProj      common.Mat4
	invProj       common.Mat4

	drawing  bool
	released bool
}

// Camera is a viewpoint that renders the scene into a framebuffer it owns or borrows.
//
// A camera tracks which of its concerns changed since it last drew. The flags are raised by
// the setters and cleared only by a successful BeginDrawing, so render code can tell whether
// derived GPU data has to be refreshed for this frame. At most one BeginDrawing/EndDrawing
// span is active at a time.
type Camera interface {
	// Name returns the camera name used in logs.
	Name() string

	// Enabled reports whether the camera takes part in rendering.
	Enabled() bool

	// SetEnabled enables or disables the camera.
	SetEnabled(enabled bool)

	// LayerMask returns the bit mask of layers the camera sees.
	LayerMask() uint32

	// SetLayerMask sets the layer mask. A zero mask disables the camera for culling.
	SetLayerMask(mask uint32)

	// Priority returns the draw priority. Higher priorities draw first.
	Priority() int

	// SetPriority sets the draw priority.
	SetPriority(priority int)

	// IsMain reports whether the camera presents to the display surface.
	IsMain() bool

	// SetMain marks the camera as the one presenting to the display surface.
	SetMain(main bool)

	// Transform returns the world pose of the camera.
	Transform() common.Transform

	// SetTransform sets the world pose and marks the transformation dirty.
	//
	// Parameters:
	//   - t: the new pose
	SetTransform(t common.Transform)

	// LookAt orients the camera at eye towards target.
	//
	// Parameters:
	//   - eye: the camera position
	//   - target: the point to look at
	LookAt(eye, target common.Vec3)

	// Projection returns the projection settings.
	Projection() Projection

	// SetProjection replaces the projection settings.
	//
	// Parameters:
	//   - p: the new settings
	//
	// Returns:
	//   - error: ErrInvalidProjection if the settings cannot build a matrix
	SetProjection(p Projection) error

	// Output returns the output description.
	Output() OutputDescription

	// SetOutput replaces the output description. Owned targets are recreated on the next
	// GetOrCreateFramebuffer.
	//
	// Parameters:
	//   - o: the new output description
	SetOutput(o OutputDescription)

	// ClearSettings returns the clear settings used by BeginDrawing.
	ClearSettings() ClearSettings

	// SetClearSettings replaces the clear settings.
	SetClearSettings(s ClearSettings)

	// Dirty returns the current invalidation state of every concern.
	Dirty() DirtyFlags

	// GetOrCreateFramebuffer returns the framebuffer the camera draws into. The override wins
	// when set; otherwise owned targets matching the output description are created lazily.
	//
	// Parameters:
	//   - forceRecreate: recreate owned targets even if they match
	//
	// Returns:
	//   - renderer.Framebuffer: the target
	//   - error: ErrFramebufferReleased for a released override, or a creation error
	GetOrCreateFramebuffer(forceRecreate bool) (renderer.Framebuffer, error)

	// SetOverrideFramebuffer redirects output to a framebuffer the camera does not own.
	// Owned targets are kept for when the override is cleared.
	//
	// Parameters:
	//   - fb: the override, or nil to clear it
	//   - adjustIfMismatched: rewrite the output description to match fb instead of failing
	//
	// Returns:
	//   - error: ErrOutputMismatch or ErrFramebufferReleased
	SetOverrideFramebuffer(fb renderer.Framebuffer, adjustIfMismatched bool) error

	// OverrideFramebuffer returns the override framebuffer, or nil.
	OverrideFramebuffer() renderer.Framebuffer

	// BeginDrawing opens a render pass on the camera framebuffer with a full viewport and
	// scissor, clearing per the clear settings when clear is true.
	//
	// Parameters:
	//   - cmd: the command list to record into
	//   - clear: apply the clear settings
	//   - recalcMatrices: recompute matrices even if nothing is dirty
	//
	// Returns:
	//   - error: ErrAlreadyDrawing, or a framebuffer or pass error
	BeginDrawing(cmd renderer.CommandList, clear, recalcMatrices bool) error

	// EndDrawing closes the pass opened by BeginDrawing.
	//
	// Parameters:
	//   - cmd: the command list passed to BeginDrawing
	//
	// Returns:
	//   - error: ErrNotDrawing when idle
	EndDrawing(cmd renderer.CommandList) error

	// AbortDrawing returns the camera to idle without touching the command list. Used when
	// the list was discarded mid pass.
	AbortDrawing()

	// IsDrawing reports whether a drawing span is active.
	IsDrawing() bool

	// ViewMatrix returns the world to view matrix.
	ViewMatrix() common.Mat4

	// ProjectionMatrix returns the view to clip matrix.
	ProjectionMatrix() common.Mat4

	// ViewProjectionMatrix returns the world to clip matrix.
	ViewProjectionMatrix() common.Mat4

	// InverseProjectionMatrix returns the clip to view matrix.
	InverseProjectionMatrix() common.Mat4

	// Frustum returns the world-space view frustum.
	Frustum() common.Frustum

	// FrustumBounds returns the world AABB enclosing the view frustum.
	FrustumBounds() common.AABB

	// Uniform returns the GPU uniform for the current matrices.
	Uniform() GPUCameraUniform

	// Release releases owned targets. The override is left alone.
	Release()
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera drawing through device. The default output is empty; a
// camera without SetOutput or an override framebuffer cannot draw.
//
// Parameters:
//   - name: the camera name used in logs and resource labels
//   - device: the device that creates owned targets
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(name string, device renderer.Device, options ...CameraBuilderOption) Camera {
	if device == nil {
		panic("camera: nil device")
	}
	c := &cameraImpl{
		name:       name,
		device:     device,
		logger:     common.Logger(),
		enabled:    true,
		layerMask:  ^uint32(0),
		transform:  common.NewTransform(),
		projection: DefaultProjection,
		output: OutputDescription{
			ColorFormat: gputypes.TextureFormatRGBA8Unorm,
			DepthFormat: gputypes.TextureFormatDepth32Float,
		},
		clear: ClearSettings{
			ClearColor: true,
			Color:      gputypes.Color{R: 0, G: 0, B: 0, A: 1},
			ClearDepth: true,
			Depth:      1,
		},
		dirty: DirtyFlags{
			Transformation: common.NeedsUpdate,
			Output:         common.NeedsRebuild,
			Projection:     common.NeedsUpdate,
			Clearing:       common.NeedsUpdate,
		},
		matricesStale: true,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Name() string {
	return c.name
}

func (c *cameraImpl) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && !c.released
}

func (c *cameraImpl) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

func (c *cameraImpl) LayerMask() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layerMask
}

func (c *cameraImpl) SetLayerMask(mask uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layerMask = mask
}

func (c *cameraImpl) Priority() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priority
}

func (c *cameraImpl) SetPriority(priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.priority = priority
}

func (c *cameraImpl) IsMain() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.main
}

func (c *cameraImpl) SetMain(main bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.main = main
}

func (c *cameraImpl) Transform() common.Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transform
}

func (c *cameraImpl) SetTransform(t common.Transform) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transform = t
	c.dirty.Transformation = c.dirty.Transformation.Raise(common.NeedsUpdate)
	c.matricesStale = true
}

func (c *cameraImpl) LookAt(eye, target common.Vec3) {
	dir := target.Sub(eye).Normalize()
	if dir == (common.Vec3{}) {
		return
	}
	// yaw about Y, then pitch about X, matching Transform.Forward (-Z)
	yaw := float32(math.Atan2(float64(-dir[0]), float64(-dir[2])))
	pitch := float32(math.Asin(float64(dir[1])))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.transform.Position = eye
	c.transform.Rotation = common.Vec3{pitch, yaw, 0}
	c.dirty.Transformation = c.dirty.Transformation.Raise(common.NeedsUpdate)
	c.matricesStale = true
}

func (c *cameraImpl) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) SetProjection(p Projection) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == c.projection {
		return nil
	}
	c.projection = p
	c.dirty.Projection = c.dirty.Projection.Raise(common.NeedsUpdate)
	c.matricesStale = true
	return nil
}

func (c *cameraImpl) Output() OutputDescription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

func (c *cameraImpl) SetOutput(o OutputDescription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setOutputLocked(o)
}

func (c *cameraImpl) setOutputLocked(o OutputDescription) {
	if o == c.output {
		return
	}
	if o.Width != c.output.Width || o.Height != c.output.Height {
		c.matricesStale = true
		c.dirty.Projection = c.dirty.Projection.Raise(common.NeedsUpdate)
	}
	c.output = o
	c.dirty.Output = common.NeedsRebuild
}

func (c *cameraImpl) ClearSettings() ClearSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clear
}

func (c *cameraImpl) SetClearSettings(s ClearSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == c.clear {
		return
	}
	c.clear = s
	c.dirty.Clearing = c.dirty.Clearing.Raise(common.NeedsUpdate)
}

func (c *cameraImpl) Dirty() DirtyFlags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *cameraImpl) GetOrCreateFramebuffer(forceRecreate bool) (renderer.Framebuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framebufferLocked(forceRecreate)
}

func (c *cameraImpl) framebufferLocked(forceRecreate bool) (renderer.Framebuffer, error) {
	if c.released {
		return nil, fmt.Errorf("camera %q: %w", c.name, renderer.ErrReleasedResource)
	}
	if c.override != nil {
		if c.override.Released() {
			return nil, fmt.Errorf("camera %q: %w", c.name, ErrFramebufferReleased)
		}
		return c.override, nil
	}
	if c.owned != nil && !c.owned.Released() && !forceRecreate && c.ownedDesc == c.output {
		return c.owned, nil
	}
	return c.createOwnedLocked()
}

// createOwnedLocked creates targets for the current output. The previous targets are
// released only after every new resource was created.
func (c *cameraImpl) createOwnedLocked() (renderer.Framebuffer, error) {
	o := c.output
	if o.Width == 0 || o.Height == 0 {
		return nil, fmt.Errorf("camera %q: empty output %dx%d: %w", c.name, o.Width, o.Height, renderer.ErrInvalidDescriptor)
	}
	usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc

	var color, depth renderer.Texture
	var err error
	if o.ColorFormat != gputypes.TextureFormatUndefined {
		color, err = c.device.CreateTexture(renderer.TextureDescriptor{
			Label:  c.name + " Color",
			Width:  o.Width,
			Height: o.Height,
			Format: o.ColorFormat,
			Usage:  usage,
		})
		if err != nil {
			return nil, fmt.Errorf("camera %q: color target: %w", c.name, err)
		}
	}
	if o.DepthFormat != gputypes.TextureFormatUndefined {
		depth, err = c.device.CreateTexture(renderer.TextureDescriptor{
			Label:  c.name + " Depth",
			Width:  o.Width,
			Height: o.Height,
			Format: o.DepthFormat,
			Usage:  usage,
		})
		if err != nil {
			releaseAll(color)
			return nil, fmt.Errorf("camera %q: depth target: %w", c.name, err)
		}
	}
	fb, err := c.device.CreateFramebuffer(renderer.FramebufferDescriptor{
		Label: c.name + " Framebuffer",
		Color: color,
		Depth: depth,
	})
	if err != nil {
		releaseAll(color, depth)
		return nil, fmt.Errorf("camera %q: framebuffer: %w", c.name, err)
	}

	c.releaseOwnedLocked()
	c.ownedColor, c.ownedDepth, c.owned = color, depth, fb
	c.ownedDesc = o
	c.logger.Debug("camera targets created", "camera", c.name, "width", o.Width, "height", o.Height)
	return fb, nil
}

func (c *cameraImpl) releaseOwnedLocked() {
	if c.owned != nil {
		c.owned.Release()
	}
	releaseAll(c.ownedColor, c.ownedDepth)
	c.owned, c.ownedColor, c.ownedDepth = nil, nil, nil
	c.ownedDesc = OutputDescription{}
}

func releaseAll(textures ...renderer.Texture) {
	for _, t := range textures {
		if t != nil {
			t.Release()
		}
	}
}

func (c *cameraImpl) SetOverrideFramebuffer(fb renderer.Framebuffer, adjustIfMismatched bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fb == nil {
		if c.override != nil {
			c.override = nil
			c.dirty.Output = c.dirty.Output.Raise(common.NeedsUpdate)
		}
		return nil
	}
	if fb.Released() {
		return fmt.Errorf("camera %q: %w", c.name, ErrFramebufferReleased)
	}
	desc := DescribeFramebuffer(fb)
	if desc != c.output {
		if !adjustIfMismatched {
			return fmt.Errorf("camera %q: %dx%d %v/%v vs %dx%d %v/%v: %w", c.name,
				desc.Width, desc.Height, desc.ColorFormat, desc.DepthFormat,
				c.output.Width, c.output.Height, c.output.ColorFormat, c.output.DepthFormat,
				ErrOutputMismatch)
		}
		c.setOutputLocked(desc)
	}
	if c.override != fb {
		c.override = fb
		c.dirty.Output = c.dirty.Output.Raise(common.NeedsUpdate)
	}
	return nil
}

func (c *cameraImpl) OverrideFramebuffer() renderer.Framebuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.override
}

func (c *cameraImpl) BeginDrawing(cmd renderer.CommandList, clear, recalcMatrices bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drawing {
		return fmt.Errorf("camera %q: %w", c.name, ErrAlreadyDrawing)
	}
	fb, err := c.framebufferLocked(false)
	if err != nil {
		return err
	}

	ops := renderer.LoadAll()
	if clear {
		ops = c.clear.PassOps()
	}
	if err := cmd.BeginPass(fb, ops); err != nil {
		return fmt.Errorf("camera %q: %w", c.name, err)
	}
	w, h := fb.Width(), fb.Height()
	cmd.SetViewport(0, 0, float32(w), float32(h))
	cmd.SetScissor(0, 0, w, h)

	if recalcMatrices || c.matricesStale {
		c.updateMatrices()
	}
	c.dirty = DirtyFlags{}
	c.drawing = true
	return nil
}

func (c *cameraImpl) EndDrawing(cmd renderer.CommandList) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.drawing {
		return fmt.Errorf("camera %q: %w", c.name, ErrNotDrawing)
	}
	c.drawing = false
	if err := cmd.EndPass(); err != nil {
		return fmt.Errorf("camera %q: %w", c.name, err)
	}
	return nil
}

func (c *cameraImpl) AbortDrawing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drawing = false
}

func (c *cameraImpl) IsDrawing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawing
}

func (c *cameraImpl) ViewMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMatrices()
	return c.view
}

func (c *cameraImpl) ProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMatrices()
	return c.proj
}

func (c *cameraImpl) ViewProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMatrices()
	return c.viewProj
}

func (c *cameraImpl) InverseProjectionMatrix() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMatrices()
	return c.invProj
}

func (c *cameraImpl) Frustum() common.Frustum {
	return common.FrustumFromMatrix(c.ViewProjectionMatrix())
}

func (c *cameraImpl) FrustumBounds() common.AABB {
	corners := common.FrustumCorners(c.ViewProjectionMatrix())
	return common.AABBFromPoints(corners[:]...)
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMatrices()
	return GPUCameraUniform{
		ViewProj:       c.viewProj,
		View:           c.view,
		Proj:           c.proj,
		InverseProj:    c.invProj,
		CameraPosition: c.transform.Position,
		Near:           c.projection.Near,
		Viewport:       [2]float32{float32(c.output.Width), float32(c.output.Height)},
		Far:            c.projection.Far,
	}
}

func (c *cameraImpl) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseOwnedLocked()
	c.override = nil
	c.released = true
}

// ensureMatrices recomputes matrices if an input changed. Dirty flags are not touched.
// Caller must hold the mutex.
func (c *cameraImpl) ensureMatrices() {
	if c.matricesStale {
		c.updateMatrices()
	}
}

// updateMatrices recalculates the view, projection, view-projection and inverse projection
// matrices from the transform, projection settings and output aspect.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	eye := c.transform.Position
	c.view = common.LookAt(eye, eye.Add(c.transform.Forward()), c.transform.Up())
	c.proj = c.projection.Matrix(c.output.Aspect())
	c.viewProj = WorldToClip(c.view, c.proj)
	if inv, ok := c.proj.Inverse(); ok {
		c.invProj = inv
	} else {
		c.invProj = common.Identity()
	}
	c.matricesStale = false
}
