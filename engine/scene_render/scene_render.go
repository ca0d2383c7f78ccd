package scene_render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/composition"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/gogpu/gputypes"
)

var (
	// ErrNilContext is returned by Render without a frame context or snapshot.
	ErrNilContext = errors.New("scene_render: nil scene context or objects")

	// ErrNoShadowResources is returned for a camera drawn before the shadow resources of
	// the frame were prepared.
	ErrNoShadowResources = errors.New("scene_render: shadow resources not prepared")

	// ErrCameraFailed wraps the failure of one camera's frame.
	ErrCameraFailed = errors.New("scene_render: camera frame failed")
)

// defaultAmbient is written to the light header when the frame has no scene.
var defaultAmbient = common.Vec3{0.03, 0.03, 0.03}

// RenderStats summarizes one Render call.
type RenderStats struct {
	Cameras       int
	Failed        int
	FailedCameras []string

	Passes        int
	DrawCalls     int
	FailedDraws   int
	Composites    int
	PostProcesses int

	LightsUploaded    int
	BufferRecreations int
	SetRebuilds       int

	// SurfaceWritten is set when the main camera's last step wrote the display surface.
	SurfaceWritten bool
}

// cameraState is what the driver keeps per camera across frames.
type cameraState struct {
	lights      light.LightDataBuffer
	uniform     renderer.Buffer
	provider    bind_group_provider.BindGroupProvider
	composition composition.Composition

	transparent offscreen
	ui          offscreen
	scene       offscreen
	composite   offscreen
	post        [2]offscreen

	output renderer.Framebuffer
}

func (st *cameraState) release() {
	st.lights.Release()
	if st.uniform != nil {
		st.uniform.Release()
		st.uniform = nil
	}
	st.provider.Release()
	st.composition.Release()
	for _, o := range []*offscreen{&st.transparent, &st.ui, &st.scene, &st.composite, &st.post[0], &st.post[1]} {
		o.release()
	}
	st.output = nil
}

type sceneRender struct {
	device     renderer.Device
	logger     *slog.Logger
	compositor composition.Compositor
	post       [2][]PostProcessor
	cameras    map[camera.Camera]*cameraState
}

// SceneRender draws every active camera of a frame: light upload, opaque, transparent and
// UI passes, scene composite, scene post processing, UI composite and post-UI processing,
// recorded into one command list per camera and submitted in that order.
//
// Each camera fails alone. A renderer whose Draw returns false is counted and logged and its
// siblings still draw; an error or panic aborts only the camera it happened in, discarding
// its command list.
type SceneRender interface {
	// Render draws the active cameras of a snapshot in order. The shadow resources of ctx
	// must already be prepared and submitted.
	//
	// Parameters:
	//   - ctx: the frame context
	//   - objs: the frame snapshot
	//   - surface: the display surface the main camera ends on, or nil
	//
	// Returns:
	//   - RenderStats: what was drawn
	//   - error: the failed cameras, joined
	Render(ctx *scene.Context, objs *scene.Objects, surface renderer.Framebuffer) (RenderStats, error)

	// CameraOutput returns the framebuffer holding a camera's final image of the last frame
	// it rendered, the display surface for a main camera that wrote it.
	//
	// Parameters:
	//   - cam: the camera
	//
	// Returns:
	//   - renderer.Framebuffer: the output, or nil
	CameraOutput(cam camera.Camera) renderer.Framebuffer

	// LightBuffer returns a camera's light data buffer, or nil before it rendered.
	LightBuffer(cam camera.Camera) light.LightDataBuffer

	// CameraResourceSet returns the set bound at CameraGroup for a camera, or nil.
	CameraResourceSet(cam camera.Camera) renderer.ResourceSet

	// AddPostProcessor appends a processor to a stage.
	AddPostProcessor(stage PostStage, p PostProcessor)

	// Forget releases the state kept for a camera.
	Forget(cam camera.Camera)

	// Release releases all camera state and the shared composition resources.
	Release()
}

var _ SceneRender = &sceneRender{}

// NewSceneRender creates a render driver.
//
// Parameters:
//   - device: the device that records and submits the camera passes
//   - options: functional options to configure the driver
//
// Returns:
//   - SceneRender: the new driver
func NewSceneRender(device renderer.Device, options ...SceneRenderBuilderOption) SceneRender {
	if device == nil {
		panic("scene_render: nil device")
	}
	d := &sceneRender{
		device:  device,
		logger:  common.Logger(),
		cameras: make(map[camera.Camera]*cameraState),
	}
	for _, option := range options {
		option(d)
	}
	d.compositor = composition.NewCompositor(device, composition.WithLogger(d.logger))
	return d
}

func (d *sceneRender) state(cam camera.Camera) *cameraState {
	st, ok := d.cameras[cam]
	if ok {
		return st
	}
	name := cam.Name()
	st = &cameraState{
		lights:      light.NewLightDataBuffer(d.device, name+" Lights"),
		provider:    bind_group_provider.NewBindGroupProvider(name+" Camera", CameraLayout),
		composition: d.compositor.NewComposition(name),
		transparent: offscreen{label: name + " Transparent"},
		ui:          offscreen{label: name + " UI"},
		scene:       offscreen{label: name + " Scene Composite"},
		composite:   offscreen{label: name + " UI Composite"},
		post:        [2]offscreen{{label: name + " Post A"}, {label: name + " Post B"}},
	}
	d.cameras[cam] = st
	return st
}

func (d *sceneRender) Render(ctx *scene.Context, objs *scene.Objects, surface renderer.Framebuffer) (stats RenderStats, err error) {
	if ctx == nil || objs == nil {
		return stats, ErrNilContext
	}
	main := objs.MainCamera()

	var errs []error
	for _, cam := range objs.Cameras {
		stats.Cameras++
		var target renderer.Framebuffer
		if cam == main {
			target = surface
		}
		if cerr := d.renderCamera(ctx, objs, cam, target, &stats); cerr != nil {
			stats.Failed++
			stats.FailedCameras = append(stats.FailedCameras, cam.Name())
			d.logger.Error("camera frame failed", "camera", cam.Name(), "frame", ctx.Frame, "error", cerr)
			errs = append(errs, fmt.Errorf("camera %q: %w: %w", cam.Name(), ErrCameraFailed, cerr))
		}
	}
	for _, l := range objs.Lights {
		l.ClearDataDirty()
	}
	return stats, errors.Join(errs...)
}

// renderCamera records and submits one camera's frame. On any error or panic the command
// list is discarded and the camera's drawing span closed.
func (d *sceneRender) renderCamera(ctx *scene.Context, objs *scene.Objects, cam camera.Camera, surface renderer.Framebuffer, stats *RenderStats) (err error) {
	st := d.state(cam)
	cmd, err := d.device.BeginCommands(cam.Name())
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			cam.AbortDrawing()
			cmd.Discard()
		}
	}()

	if ctx.ShadowDepth == nil || ctx.ShadowNormal == nil || ctx.ShadowMatrices == nil || ctx.ShadowSampler == nil {
		return ErrNoShadowResources
	}

	lights, shadowed := objs.LightsForCamera(cam)
	recreated, err := st.lights.PrepareBufLights(len(lights))
	if err != nil {
		return err
	}
	if recreated {
		stats.BufferRecreations++
		d.logger.Debug("light buffer recreated", "camera", cam.Name(), "capacity", st.lights.Capacity())
	}
	for i, l := range lights {
		if err := st.lights.SetLightData(i, l.GetLightSourceData()); err != nil {
			return err
		}
	}
	ambient := defaultAmbient
	if ctx.Scene != nil {
		ambient = ctx.Scene.AmbientColor()
	}
	st.lights.SetHeader(ambient, shadowed)
	if err := st.lights.FinalizeBufLights(cmd); err != nil {
		return err
	}
	stats.LightsUploaded += len(lights)

	fb, err := cam.GetOrCreateFramebuffer(false)
	if err != nil {
		return err
	}
	u := cam.Uniform()
	if st.uniform == nil || st.uniform.Released() {
		st.uniform, err = d.device.CreateBuffer(renderer.BufferDescriptor{
			Label: cam.Name() + " Camera Uniform",
			Size:  uint64(u.Size()),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
	}
	if err := cmd.WriteBuffer(st.uniform, 0, u.Marshal()); err != nil {
		return err
	}

	st.provider.SetBuffer(BindingCamera, st.uniform)
	st.provider.SetBuffer(BindingLights, st.lights.Buffer())
	st.provider.SetTexture(BindingShadowDepth, ctx.ShadowDepth)
	st.provider.SetTexture(BindingShadowNormal, ctx.ShadowNormal)
	st.provider.SetBuffer(BindingShadowMatrices, ctx.ShadowMatrices)
	st.provider.SetSampler(BindingShadowSampler, ctx.ShadowSampler)
	set, rebuilt, err := st.provider.Ensure(d.device, ctx.ResourceVersion)
	if err != nil {
		return err
	}
	if rebuilt {
		stats.SetRebuilds++
	}

	w, h := fb.Width(), fb.Height()
	tx, ty := light.TileCounts(w, h)
	base := scene.PassContext{
		Frame:              ctx.Frame,
		Commands:           cmd,
		ResourceSet:        set,
		Camera:             cam,
		View:               common.Mat4(u.View),
		Projection:         common.Mat4(u.Proj),
		ViewProjection:     common.Mat4(u.ViewProj),
		CameraPosition:     common.Vec3(u.CameraPosition),
		LightCount:         len(lights),
		ShadowedLightCount: shadowed,
		TileCountX:         tx,
		TileCountY:         ty,
		Width:              w,
		Height:             h,
		ColorFormat:        fb.ColorFormat(),
		DepthFormat:        fb.DepthFormat(),
	}
	frustum := cam.Frustum()

	if err := cam.BeginDrawing(cmd, true, false); err != nil {
		return err
	}
	cmd.SetResourceSet(CameraGroup, set)
	d.drawBucket(ctx, &base, scene.PassOpaque, objs.Opaque, &frustum, stats)
	if err := cam.EndDrawing(cmd); err != nil {
		return err
	}

	color := fb.ColorFormat()
	if color == gputypes.TextureFormatUndefined {
		// depth-only cameras stop after the opaque pass
		st.output = fb
		return d.device.Submit(cmd)
	}

	tfb, err := st.transparent.ensure(d.device, w, h, color, fb.DepthFormat())
	if err != nil {
		return err
	}
	if fb.Depth() != nil {
		if err := cmd.CopyTextureRegion(fb, tfb); err != nil {
			return err
		}
	}
	if err := d.beginOffscreen(cmd, tfb, set); err != nil {
		return err
	}
	d.drawBucket(ctx, &base, scene.PassTransparent, objs.Transparent, &frustum, stats)
	if err := cmd.EndPass(); err != nil {
		return err
	}

	ufb, err := st.ui.ensure(d.device, w, h, color, gputypes.TextureFormatUndefined)
	if err != nil {
		return err
	}
	if err := d.beginOffscreen(cmd, ufb, set); err != nil {
		return err
	}
	d.drawBucket(ctx, &base, scene.PassUI, objs.UI, nil, stats)
	if err := cmd.EndPass(); err != nil {
		return err
	}

	sfb, err := st.scene.ensure(d.device, w, h, color, gputypes.TextureFormatUndefined)
	if err != nil {
		return err
	}
	err = st.composition.Composite(cmd, composition.StageScene, composition.Inputs{
		SceneColor:       fb.Color(),
		SceneDepth:       fb.Depth(),
		TransparentColor: tfb.Color(),
		TransparentDepth: tfb.Depth(),
	}, sfb)
	if err != nil {
		return err
	}
	stats.Composites++
	current, err := d.postProcess(ctx, cmd, cam, st, PostScene, sfb, nil, stats)
	if err != nil {
		return err
	}

	// the UI composite goes straight to the surface when nothing follows it
	target := surface
	if target == nil || len(d.post[PostUI]) > 0 {
		if target, err = st.composite.ensure(d.device, w, h, color, gputypes.TextureFormatUndefined); err != nil {
			return err
		}
	}
	err = st.composition.Composite(cmd, composition.StageUI, composition.Inputs{
		SceneColor: current.Color(),
		UIColor:    ufb.Color(),
	}, target)
	if err != nil {
		return err
	}
	stats.Composites++
	out, err := d.postProcess(ctx, cmd, cam, st, PostUI, target, surface, stats)
	if err != nil {
		return err
	}

	if err := d.device.Submit(cmd); err != nil {
		return err
	}
	st.output = out
	if surface != nil && out == surface {
		stats.SurfaceWritten = true
	}
	return nil
}

func (d *sceneRender) beginOffscreen(cmd renderer.CommandList, fb renderer.Framebuffer, set renderer.ResourceSet) error {
	if err := cmd.BeginPass(fb, renderer.PassOps{ClearColor: true}); err != nil {
		return err
	}
	cmd.SetViewport(0, 0, float32(fb.Width()), float32(fb.Height()))
	cmd.SetScissor(0, 0, fb.Width(), fb.Height())
	cmd.SetResourceSet(CameraGroup, set)
	return nil
}

// drawBucket calls Draw on every renderer of a bucket accepted by the camera. Renderers with
// bounds outside frustum are skipped; a nil frustum draws everything.
func (d *sceneRender) drawBucket(ctx *scene.Context, base *scene.PassContext, kind scene.PassKind, bucket []scene.Renderer, frustum *common.Frustum, stats *RenderStats) {
	pass := *base
	pass.Kind = kind
	pass.PassIndex = stats.Passes
	stats.Passes++
	for _, r := range bucket {
		if !pass.Accepts(r.LayerMask()) {
			continue
		}
		if b := r.Bounds(); frustum != nil && !b.IsEmpty() && !frustum.IntersectsAABB(b) {
			continue
		}
		p := pass
		stats.DrawCalls++
		if !r.Draw(ctx, &p) {
			stats.FailedDraws++
			d.logger.Warn("draw failed", "camera", base.Camera.Name(), "pass", kind, "renderer", r.Name())
		}
	}
}

// postProcess runs the processors of a stage starting from source. The last processor
// writes final when it is non-nil; the others ping-pong between the camera's post targets.
// Returns the framebuffer holding the result.
func (d *sceneRender) postProcess(ctx *scene.Context, cmd renderer.CommandList, cam camera.Camera, st *cameraState, stage PostStage, source, final renderer.Framebuffer, stats *RenderStats) (renderer.Framebuffer, error) {
	procs := d.post[stage]
	current := source
	for i, p := range procs {
		target := final
		if i < len(procs)-1 || final == nil {
			var err error
			target, err = st.post[i%2].ensure(d.device, source.Width(), source.Height(), source.ColorFormat(), gputypes.TextureFormatUndefined)
			if err != nil {
				return nil, err
			}
		}
		post := &PostContext{Stage: stage, Commands: cmd, Camera: cam, Source: current, Target: target}
		if err := p.Process(ctx, post); err != nil {
			return nil, fmt.Errorf("%s post processor %q: %w", stage, p.Name(), err)
		}
		stats.PostProcesses++
		current = target
	}
	return current, nil
}

func (d *sceneRender) CameraOutput(cam camera.Camera) renderer.Framebuffer {
	if st, ok := d.cameras[cam]; ok {
		return st.output
	}
	return nil
}

func (d *sceneRender) LightBuffer(cam camera.Camera) light.LightDataBuffer {
	if st, ok := d.cameras[cam]; ok {
		return st.lights
	}
	return nil
}

func (d *sceneRender) CameraResourceSet(cam camera.Camera) renderer.ResourceSet {
	if st, ok := d.cameras[cam]; ok {
		return st.provider.BindGroup()
	}
	return nil
}

func (d *sceneRender) AddPostProcessor(stage PostStage, p PostProcessor) {
	if p == nil || stage < PostScene || stage > PostUI {
		return
	}
	d.post[stage] = append(d.post[stage], p)
}

func (d *sceneRender) Forget(cam camera.Camera) {
	if st, ok := d.cameras[cam]; ok {
		st.release()
		delete(d.cameras, cam)
	}
}

func (d *sceneRender) Release() {
	for cam, st := range d.cameras {
		st.release()
		delete(d.cameras, cam)
	}
	d.compositor.Release()
}
