package stack_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene/scenetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/stack"
	"github.com/gogpu/gputypes"
)

var output = camera.OutputDescription{
	Width:       64,
	Height:      32,
	ColorFormat: gputypes.TextureFormatRGBA8Unorm,
	DepthFormat: gputypes.TextureFormatDepth32Float,
}

func newStack(t *testing.T, dev *renderertest.Device, opts ...stack.StackBuilderOption) (stack.Stack, scene.Scene) {
	t.Helper()
	opts = append([]stack.StackBuilderOption{stack.WithShadowResolution(32), stack.WithComputeWorkers(2)}, opts...)
	s := stack.NewStack(dev, opts...)
	scn := scene.NewScene("test")
	if err := s.Initialize(scn); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s, scn
}

func TestDrawStackEndToEnd(t *testing.T) {
	dev := renderertest.NewDevice(renderertest.WithSurface(64, 32, gputypes.TextureFormatBGRA8Unorm))
	s, scn := newStack(t, dev)

	cam := camera.NewCamera("main", dev, camera.WithOutput(output), camera.WithMain())
	sun := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1))
	a := scenetest.NewRenderer("a", scene.RenderModeOpaque).At(common.Vec3{-1, 0, -10})
	b := scenetest.NewRenderer("b", scene.RenderModeOpaque).At(common.Vec3{1, 0, -10})

	if !s.DrawStack(scn, []scene.Renderer{a, b}, []camera.Camera{cam}, []light.Light{sun}) {
		t.Fatalf("DrawStack() = false, stats %+v", s.LastFrame())
	}

	if got := s.ShadowMaps().Array().Capacity(); got < 2 {
		t.Errorf("shadow array capacity = %d, want >= 2", got)
	}
	if got := s.Driver().LightBuffer(cam).Count(); got != 1 {
		t.Errorf("light buffer count = %d, want 1", got)
	}
	// a single-cascade light renders its map twice, once per slot
	renders := sun.ShadowRenders()
	for _, r := range []*scenetest.Renderer{a, b} {
		if got := len(r.ShadowDraws()); got != renders {
			t.Errorf("%s DrawShadowMap calls = %d, want %d", r.Name(), got, renders)
		}
		for i, p := range r.ShadowDraws() {
			if p.Cascade != i || p.Light != sun {
				t.Errorf("%s shadow draw %d: cascade %d light %v", r.Name(), i, p.Cascade, p.Light)
			}
		}
		if got := r.DrawsIn(scene.PassOpaque); got != 1 {
			t.Errorf("%s opaque Draw calls = %d, want 1", r.Name(), got)
		}
	}

	frame := s.LastFrame()
	if !frame.Success || !frame.Presented || frame.Frame != 1 {
		t.Errorf("LastFrame() = %+v, want a successful presented first frame", frame)
	}
	if dev.Presents != 1 {
		t.Errorf("Presents = %d, want 1", dev.Presents)
	}
	if len(dev.Submitted) < 2 || dev.Submitted[0].Label() != "Shadow Maps" {
		t.Error("shadow maps were not submitted before the camera passes")
	}
}

func TestDrawStackStaticLightCachesAcrossFrames(t *testing.T) {
	dev := renderertest.NewDevice()
	s, scn := newStack(t, dev)
	cam := camera.NewCamera("probe", dev, camera.WithOutput(output))
	lamp := light.NewLight("lamp", light.LightTypeDirectional, light.WithShadows(0), light.WithStatic())
	r := scenetest.NewRenderer("r", scene.RenderModeOpaque).At(common.Vec3{0, 0, -10})

	draw := func() stack.FrameStats {
		t.Helper()
		if !s.DrawStack(scn, []scene.Renderer{r}, []camera.Camera{cam}, []light.Light{lamp}) {
			t.Fatalf("DrawStack() = false, stats %+v", s.LastFrame())
		}
		return s.LastFrame()
	}

	if first := draw(); first.Shadow.Redrawn != 1 {
		t.Errorf("frame 1 shadow = %+v, want a redraw", first.Shadow)
	}
	second := draw()
	if second.Shadow.Reused != 1 || second.Shadow.DrawCalls != 0 || second.Shadow.Copies != lamp.ShadowRenders() {
		t.Errorf("frame 2 shadow = %+v, want one cached light copied per render", second.Shadow)
	}
	if second.Presented {
		t.Error("frame without a main camera presented")
	}
}

func TestDrawStackReportsCameraFailure(t *testing.T) {
	dev := renderertest.NewDevice()
	s, scn := newStack(t, dev)
	cam := camera.NewCamera("main", dev, camera.WithOutput(output))
	r := scenetest.NewRenderer("r", scene.RenderModeOpaque).At(common.Vec3{0, 0, -10})
	r.PanicDraw = "bad state"

	if s.DrawStack(scn, []scene.Renderer{r}, []camera.Camera{cam}, nil) {
		t.Error("DrawStack() = true with a failed camera")
	}
	if got := s.LastFrame().Render.FailedCameras; len(got) != 1 || got[0] != "main" {
		t.Errorf("FailedCameras = %v, want [main]", got)
	}

	r.PanicDraw = nil
	if !s.DrawStack(nil, []scene.Renderer{r}, []camera.Camera{cam}, nil) {
		t.Error("DrawStack() = false after the failure cleared")
	}
}

func TestDrawStackPresentsOnlyWrittenSurface(t *testing.T) {
	dev := renderertest.NewDevice(renderertest.WithSurface(64, 32, gputypes.TextureFormatBGRA8Unorm))
	s, scn := newStack(t, dev)
	cam := camera.NewCamera("main", dev, camera.WithOutput(output), camera.WithMain())
	r := scenetest.NewRenderer("r", scene.RenderModeOpaque).At(common.Vec3{0, 0, -10})
	r.PanicDraw = "lost buffer"

	if s.DrawStack(scn, []scene.Renderer{r}, []camera.Camera{cam}, nil) {
		t.Error("DrawStack() = true with a failed main camera")
	}
	if frame := s.LastFrame(); frame.Presented || frame.Render.SurfaceWritten {
		t.Errorf("failed frame presented = %v, surface written = %v", frame.Presented, frame.Render.SurfaceWritten)
	}
	if dev.Presents != 0 {
		t.Errorf("Presents = %d, want 0", dev.Presents)
	}

	r.PanicDraw = nil
	if !s.DrawStack(scn, []scene.Renderer{r}, []camera.Camera{cam}, nil) {
		t.Fatalf("DrawStack() = false after recovery, stats %+v", s.LastFrame())
	}
	if !s.LastFrame().Presented || dev.Presents != 1 {
		t.Errorf("recovered frame presented = %v, Presents = %d, want true, 1", s.LastFrame().Presented, dev.Presents)
	}
}

func TestDrawStackShadowResourceFailure(t *testing.T) {
	dev := renderertest.NewDevice()
	s, scn := newStack(t, dev)
	cam := camera.NewCamera("main", dev, camera.WithOutput(output))
	sun := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1))
	dev.FailCreate = func(kind renderertest.Kind, label string) error {
		if kind == renderertest.KindTexture && label == "Shadow Maps Depth" {
			return errors.New("out of memory")
		}
		return nil
	}

	if s.DrawStack(scn, nil, []camera.Camera{cam}, []light.Light{sun}) {
		t.Error("DrawStack() = true after a shadow resource failure")
	}
	if sun.ShadowMapped() {
		t.Error("light kept its slot after the shadow array failed to grow")
	}

	dev.FailCreate = nil
	if !s.DrawStack(scn, nil, []camera.Camera{cam}, []light.Light{sun}) {
		t.Errorf("DrawStack() = false after recovery, stats %+v", s.LastFrame())
	}
}

func TestStackLifecycle(t *testing.T) {
	dev := renderertest.NewDevice()
	s := stack.NewStack(dev, stack.WithComputeWorkers(0))
	scn := scene.NewScene("life")
	cam := camera.NewCamera("main", dev, camera.WithOutput(output))

	if s.DrawStack(scn, nil, []camera.Camera{cam}, nil) {
		t.Error("DrawStack() before Initialize = true")
	}
	if err := s.Initialize(nil); !errors.Is(err, stack.ErrNilScene) {
		t.Errorf("Initialize(nil) error = %v, want ErrNilScene", err)
	}
	if err := s.Initialize(scn); err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(scn); !errors.Is(err, stack.ErrAlreadyInitialized) {
		t.Errorf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}
	if !s.DrawStack(nil, nil, []camera.Camera{cam}, nil) {
		t.Fatalf("DrawStack() = false, stats %+v", s.LastFrame())
	}
	maps := s.ShadowMaps()

	if err := s.Reset(nil); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if s.Scene() != scn || !s.Initialized() {
		t.Error("Reset(nil) did not keep the scene")
	}
	if s.ShadowMaps() == maps {
		t.Error("Reset() kept the previous shadow orchestrator")
	}
	if maps.Array().DepthArray() != nil {
		t.Error("Reset() did not release the previous shadow array")
	}

	s.Shutdown()
	s.Shutdown()
	if s.Initialized() || s.Driver() != nil {
		t.Error("Shutdown() left the stack initialized")
	}
	if s.DrawStack(scn, nil, []camera.Camera{cam}, nil) {
		t.Error("DrawStack() after Shutdown = true")
	}
}
