package scene_render_test

import (
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene/scenetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene_render"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
	"github.com/gogpu/gputypes"
)

var output = camera.OutputDescription{
	Width:       64,
	Height:      32,
	ColorFormat: gputypes.TextureFormatRGBA8Unorm,
	DepthFormat: gputypes.TextureFormatDepth32Float,
}

type fixture struct {
	dev       *renderertest.Device
	maps      shadow.ShadowMaps
	drv       scene_render.SceneRender
	scn       scene.Scene
	cameras   []camera.Camera
	renderers []scene.Renderer
	frame     uint64
}

func newFixture(t *testing.T, opts ...scene_render.SceneRenderBuilderOption) *fixture {
	t.Helper()
	dev := renderertest.NewDevice(renderertest.WithSurface(64, 32, gputypes.TextureFormatBGRA8Unorm))
	f := &fixture{
		dev:  dev,
		maps: shadow.NewShadowMaps(dev, shadow.WithResolution(32)),
		drv:  scene_render.NewSceneRender(dev, opts...),
		scn:  scene.NewScene("test"),
	}
	t.Cleanup(func() {
		f.drv.Release()
		f.maps.Release()
	})
	return f
}

func (f *fixture) camera(name string, opts ...camera.CameraBuilderOption) camera.Camera {
	c := camera.NewCamera(name, f.dev, append([]camera.CameraBuilderOption{camera.WithOutput(output)}, opts...)...)
	f.cameras = append(f.cameras, c)
	return c
}

func (f *fixture) add(rs ...*scenetest.Renderer) {
	for _, r := range rs {
		f.renderers = append(f.renderers, r)
	}
}

func (f *fixture) render(t *testing.T, lights ...light.Light) (scene_render.RenderStats, error) {
	t.Helper()
	f.frame++
	objs := scene.BuildObjects(f.scn, f.renderers, f.cameras, lights, scene.BuildOptions{})
	ctx := &scene.Context{Scene: f.scn, Device: f.dev, Frame: f.frame, Objects: objs}
	if _, err := f.maps.Render(ctx, objs); err != nil {
		t.Fatalf("shadow Render() error = %v", err)
	}
	var surface renderer.Framebuffer
	if objs.MainCamera() != nil {
		var err error
		if surface, err = f.dev.AcquireSurface(); err != nil {
			t.Fatal(err)
		}
	}
	return f.drv.Render(ctx, objs, surface)
}

func at(name string, mode scene.RenderMode) *scenetest.Renderer {
	return scenetest.NewRenderer(name, mode).At(common.Vec3{0, 0, -10})
}

func TestRenderRunsPassesInOrder(t *testing.T) {
	f := newFixture(t)
	f.camera("main", camera.WithMain())
	var order []scene.PassKind
	record := func(_ *scene.Context, pass *scene.PassContext) { order = append(order, pass.Kind) }
	o, tr, ui := at("opaque", scene.RenderModeOpaque), at("glass", scene.RenderModeTransparent), at("hud", scene.RenderModeUI)
	for _, r := range []*scenetest.Renderer{o, tr, ui} {
		r.OnDraw = record
	}
	f.add(ui, tr, o)

	stats, err := f.render(t)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := []scene.PassKind{scene.PassOpaque, scene.PassTransparent, scene.PassUI}
	if !slices.Equal(order, want) {
		t.Errorf("draw order = %v, want %v", order, want)
	}
	if stats.Passes != 3 || stats.DrawCalls != 3 || stats.Composites != 2 {
		t.Errorf("stats = %+v, want 3 passes, 3 draws, 2 composites", stats)
	}
	if !stats.SurfaceWritten {
		t.Error("main camera did not end on the surface")
	}

	cmds := f.dev.Commands()
	var last renderertest.Command
	for _, c := range cmds {
		if c.Op == renderertest.OpBeginPass {
			last = c
		}
	}
	if last.Target != renderer.Framebuffer(f.dev.Surface()) {
		t.Errorf("last pass target = %q, want the surface", last.Target.Label())
	}
	if got := f.drv.CameraOutput(f.cameras[0]); got != renderer.Framebuffer(f.dev.Surface()) {
		t.Errorf("CameraOutput(main) = %v, want the surface", got)
	}
	for _, p := range o.Draws() {
		if p.Camera != f.cameras[0] || p.Commands == nil || p.ResourceSet == nil {
			t.Error("opaque pass context is missing the camera, commands or resource set")
		}
		if p.Width != output.Width || p.Height != output.Height {
			t.Errorf("pass size = %dx%d, want %dx%d", p.Width, p.Height, output.Width, output.Height)
		}
	}
}

func TestRenderUploadsCameraLights(t *testing.T) {
	f := newFixture(t)
	cam := f.camera("main")
	f.add(at("r", scene.RenderModeOpaque))
	sun := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1))
	lamp := light.NewLight("lamp", light.LightTypePoint, light.WithPosition(0, 0, -5), light.WithRange(2), light.WithPriority(9))

	stats, err := f.render(t, lamp, sun)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.LightsUploaded != 2 || stats.BufferRecreations != 1 {
		t.Errorf("stats = %+v, want 2 lights uploaded in a new buffer", stats)
	}
	buf := f.drv.LightBuffer(cam)
	if buf == nil || buf.Count() != 2 {
		t.Fatalf("LightBuffer(main) count = %v, want 2", buf)
	}
	first, _ := buf.Light(0)
	second, _ := buf.Light(1)
	if first.Flags&light.FlagShadowMapped == 0 || second.Flags&light.FlagShadowMapped != 0 {
		t.Errorf("light flags = %#x, %#x, want the shadow-mapped light first", first.Flags, second.Flags)
	}

	data := buf.Buffer().(*renderertest.Buffer).Data
	if got := binary.LittleEndian.Uint32(data[12:]); got != 2 {
		t.Errorf("header light_count = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(data[16:]); got != 1 {
		t.Errorf("header shadowed_count = %d, want 1", got)
	}
	if sun.StaticDirty().Data.IsDirty() || lamp.StaticDirty().Data.IsDirty() {
		t.Error("light data still dirty after upload")
	}
}

func TestRenderIsolatesDrawFailures(t *testing.T) {
	f := newFixture(t)
	f.camera("main")
	bad, good := at("bad", scene.RenderModeOpaque), at("good", scene.RenderModeOpaque)
	bad.FailDraw = true
	f.add(bad, good)

	stats, err := f.render(t)
	if err != nil {
		t.Fatalf("Render() error = %v, want nil for a failed draw", err)
	}
	if stats.FailedDraws != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 1 failed draw and no failed camera", stats)
	}
	if good.DrawsIn(scene.PassOpaque) != 1 {
		t.Error("sibling of a failed renderer did not draw")
	}
	if len(f.dev.Submitted) != 2 {
		t.Errorf("submitted lists = %d, want shadow and camera", len(f.dev.Submitted))
	}
}

func TestRenderPanicAbortsOnlyThatCamera(t *testing.T) {
	f := newFixture(t)
	left := f.camera("left", camera.WithLayerMask(1), camera.WithPriority(2))
	right := f.camera("right", camera.WithLayerMask(2), camera.WithPriority(1))
	boom := at("boom", scene.RenderModeOpaque)
	boom.Mask, boom.PanicDraw = 1, "broken mesh"
	fine := at("fine", scene.RenderModeOpaque)
	fine.Mask = 2
	f.add(boom, fine)

	stats, err := f.render(t)
	if !errors.Is(err, scene_render.ErrCameraFailed) {
		t.Fatalf("Render() error = %v, want ErrCameraFailed", err)
	}
	if stats.Failed != 1 || !slices.Equal(stats.FailedCameras, []string{"left"}) {
		t.Errorf("failed cameras = %v, want [left]", stats.FailedCameras)
	}
	if left.IsDrawing() {
		t.Error("failed camera is still drawing")
	}
	if fine.DrawsIn(scene.PassOpaque) != 1 {
		t.Error("camera after the failed one did not draw")
	}
	if f.drv.CameraOutput(right) == nil {
		t.Error("CameraOutput(right) = nil after a successful frame")
	}
	for _, c := range f.dev.Submitted {
		if c.Label() == "left" {
			t.Error("failed camera's command list was submitted")
		}
	}

	boom.PanicDraw = nil
	if _, err := f.render(t); err != nil {
		t.Errorf("next frame Render() error = %v", err)
	}
}

func TestRenderRebuildsSetOnlyWhenResourcesChange(t *testing.T) {
	f := newFixture(t)
	cam := f.camera("main")
	f.add(at("r", scene.RenderModeOpaque))
	a := light.NewLight("a", light.LightTypeDirectional, light.WithShadows(1))
	b := light.NewLight("b", light.LightTypeDirectional, light.WithShadows(1))

	steps := []struct {
		name        string
		lights      []light.Light
		wantRebuild int
	}{
		{"first frame", []light.Light{a}, 1},
		{"unchanged", []light.Light{a}, 0},
		{"shadow array grows", []light.Light{a, b}, 1},
		{"shrinking demand keeps resources", []light.Light{a}, 0},
	}
	for _, st := range steps {
		before := f.drv.CameraResourceSet(cam)
		stats, err := f.render(t, st.lights...)
		if err != nil {
			t.Fatalf("%s: Render() error = %v", st.name, err)
		}
		if stats.SetRebuilds != st.wantRebuild {
			t.Errorf("%s: SetRebuilds = %d, want %d", st.name, stats.SetRebuilds, st.wantRebuild)
		}
		after := f.drv.CameraResourceSet(cam)
		if (before != after) != (st.wantRebuild > 0) {
			t.Errorf("%s: set replaced = %v, want %v", st.name, before != after, st.wantRebuild > 0)
		}
	}
}

func TestRenderRebuildsSetWhenLightBufferGrows(t *testing.T) {
	f := newFixture(t)
	cam := f.camera("main")
	var lamps []light.Light
	for range 9 {
		lamps = append(lamps, light.NewLight("lamp", light.LightTypePoint, light.WithPosition(0, 0, -5), light.WithRange(2)))
	}

	if _, err := f.render(t, lamps[:1]...); err != nil {
		t.Fatal(err)
	}
	buf := f.drv.LightBuffer(cam).Buffer()
	stats, err := f.render(t, lamps...)
	if err != nil {
		t.Fatal(err)
	}
	if stats.BufferRecreations != 1 || stats.SetRebuilds != 1 {
		t.Errorf("stats = %+v, want one buffer recreation and one set rebuild", stats)
	}
	if !buf.Released() {
		t.Error("old light buffer was not released")
	}
	e, _ := f.drv.CameraResourceSet(cam).Entry(scene_render.BindingLights)
	if e.Buffer != f.drv.LightBuffer(cam).Buffer() {
		t.Error("camera set does not reference the new light buffer")
	}
}

type recordingPost struct {
	name  string
	calls []scene_render.PostContext
	err   error
}

func (p *recordingPost) Name() string { return p.name }

func (p *recordingPost) Process(_ *scene.Context, post *scene_render.PostContext) error {
	p.calls = append(p.calls, *post)
	return p.err
}

func TestRenderPostProcessors(t *testing.T) {
	bloom, tonemap, grade := &recordingPost{name: "bloom"}, &recordingPost{name: "tonemap"}, &recordingPost{name: "grade"}
	f := newFixture(t,
		scene_render.WithPostProcessors(scene_render.PostScene, bloom, tonemap),
		scene_render.WithPostProcessors(scene_render.PostUI, grade),
	)
	main := f.camera("main", camera.WithMain(), camera.WithPriority(1))
	probe := f.camera("probe")

	stats, err := f.render(t)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.PostProcesses != 6 {
		t.Errorf("PostProcesses = %d, want 6", stats.PostProcesses)
	}

	surface := renderer.Framebuffer(f.dev.Surface())
	b, tm, g := bloom.calls[0], tonemap.calls[0], grade.calls[0]
	if tm.Source != b.Target || b.Target == b.Source {
		t.Error("scene processors do not chain source to target")
	}
	if b.Source == surface || tm.Target == surface {
		t.Error("scene processors wrote the surface")
	}
	if g.Camera != main || g.Target != surface {
		t.Errorf("main camera post-UI target = %v, want the surface", g.Target.Label())
	}
	if grade.calls[1].Camera != probe || grade.calls[1].Target == surface {
		t.Error("non-main camera wrote the surface")
	}
	if f.drv.CameraOutput(probe) != grade.calls[1].Target {
		t.Error("CameraOutput(probe) is not the last post target")
	}
}

func TestRenderPostProcessorErrorAbortsCamera(t *testing.T) {
	broken := &recordingPost{name: "broken", err: errors.New("shader missing")}
	f := newFixture(t, scene_render.WithPostProcessors(scene_render.PostScene, broken))
	f.camera("main")

	stats, err := f.render(t)
	if !errors.Is(err, scene_render.ErrCameraFailed) {
		t.Fatalf("Render() error = %v, want ErrCameraFailed", err)
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
}

func TestRenderFiltersByLayerAndFrustum(t *testing.T) {
	f := newFixture(t)
	f.camera("main", camera.WithLayerMask(1))
	visible := at("visible", scene.RenderModeOpaque)
	hidden := at("hidden", scene.RenderModeOpaque)
	hidden.Mask = 2
	behind := scenetest.NewRenderer("behind", scene.RenderModeOpaque).At(common.Vec3{0, 0, 10})
	f.add(visible, hidden, behind)

	if _, err := f.render(t); err != nil {
		t.Fatal(err)
	}
	if visible.DrawsIn(scene.PassOpaque) != 1 {
		t.Error("visible renderer did not draw")
	}
	if hidden.DrawsIn(scene.PassOpaque) != 0 || behind.DrawsIn(scene.PassOpaque) != 0 {
		t.Error("renderer outside the camera layer or frustum drew")
	}
}

func TestRenderRequiresShadowResources(t *testing.T) {
	f := newFixture(t)
	f.camera("main")
	objs := scene.BuildObjects(f.scn, nil, f.cameras, nil, scene.BuildOptions{})

	_, err := f.drv.Render(&scene.Context{Device: f.dev, Frame: 1, Objects: objs}, objs, nil)
	if !errors.Is(err, scene_render.ErrNoShadowResources) {
		t.Errorf("Render() error = %v, want ErrNoShadowResources", err)
	}
	if len(f.dev.Submitted) != 0 {
		t.Errorf("submitted lists = %d, want 0", len(f.dev.Submitted))
	}
	if _, err := f.drv.Render(nil, objs, nil); !errors.Is(err, scene_render.ErrNilContext) {
		t.Errorf("Render(nil) error = %v, want ErrNilContext", err)
	}
}
