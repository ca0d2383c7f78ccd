package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

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

func newScene(dev *renderertest.Device, name string, cameras int, main bool) scene.Scene {
	scn := scene.NewScene(name)
	for i := range cameras {
		opts := []camera.CameraBuilderOption{camera.WithOutput(output)}
		if main && i == 0 {
			opts = append(opts, camera.WithMain())
		}
		scn.AddCamera(camera.NewCamera(name+" camera", dev, opts...))
	}
	scn.AddLight(light.NewLight(name+" sun", light.LightTypeDirectional, light.WithShadows(0)))
	scn.AddRenderer(scenetest.NewRenderer(name+" box", scene.RenderModeOpaque).At(common.Vec3{0, 0, -10}))
	return scn
}

func TestDrawFrameDrawsActiveScenesInOrder(t *testing.T) {
	dev := renderertest.NewDevice(renderertest.WithSurface(64, 32, gputypes.TextureFormatBGRA8Unorm))
	world := newScene(dev, "world", 1, true)
	overlay := newScene(dev, "overlay", 2, false)
	hidden := newScene(dev, "hidden", 1, false)
	hidden.SetActive(false)

	e := NewEngine(
		WithDevice(dev),
		WithScene(10, overlay),
		WithScene(0, world),
		WithScene(5, hidden),
		WithStackOptions(stack.WithShadowResolution(32), stack.WithComputeWorkers(0)),
	)
	t.Cleanup(e.(*engine).shutdownStacks)

	frames := e.DrawFrame(1.0 / 60)
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if frames[0].Cameras != 1 || frames[1].Cameras != 2 {
		t.Errorf("frame cameras = %d, %d, want 1, 2 in z order", frames[0].Cameras, frames[1].Cameras)
	}
	for i, f := range frames {
		if !f.Success {
			t.Errorf("frame %d failed: %+v", i, f)
		}
	}
	if !frames[0].Presented || frames[1].Presented {
		t.Error("only the scene with a main camera should present")
	}
	if e.Stack(5).Initialized() {
		t.Error("inactive scene stack was initialized")
	}
}

func TestSceneRegistryShutsDownStacks(t *testing.T) {
	dev := renderertest.NewDevice()
	e := NewEngine(WithDevice(dev), WithStackOptions(stack.WithComputeWorkers(0)))
	first := newScene(dev, "first", 1, false)
	e.AddScene(0, first)
	e.DrawFrame(0)

	old := e.Stack(0)
	if !old.Initialized() {
		t.Fatal("stack not initialized by DrawFrame")
	}
	e.AddScene(0, newScene(dev, "second", 1, false))
	if old.Initialized() {
		t.Error("replaced scene kept its stack running")
	}
	if got := e.Scene(0).Name(); got != "second" {
		t.Errorf("Scene(0) = %q, want second", got)
	}

	e.DrawFrame(0)
	current := e.Stack(0)
	e.RemoveScene(0)
	if current.Initialized() || e.Stack(0) != nil || len(e.Scenes()) != 0 {
		t.Error("RemoveScene did not shut down and forget the scene")
	}
}

func TestResizeUpdatesMainCameras(t *testing.T) {
	dev := renderertest.NewDevice(renderertest.WithSurface(64, 32, gputypes.TextureFormatBGRA8Unorm))
	scn := newScene(dev, "world", 2, true)
	e := NewEngine(WithDevice(dev), WithScene(0, scn)).(*engine)

	e.resize(128, 96)
	for _, c := range scn.Cameras() {
		out := c.Output()
		want := output.Width
		if c.IsMain() {
			want = 128
		}
		if out.Width != want {
			t.Errorf("%s width = %d, want %d", c.Name(), out.Width, want)
		}
	}
	if w, h := dev.Surface().Width(), dev.Surface().Height(); w != 128 || h != 96 {
		t.Errorf("surface = %dx%d, want 128x96", w, h)
	}
}

func TestRunHeadless(t *testing.T) {
	if err := NewEngine().Run(); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Run() without a device error = %v, want ErrNoDevice", err)
	}

	dev := renderertest.NewDevice()
	e := NewEngine(
		WithDevice(dev),
		WithScene(0, newScene(dev, "world", 1, false)),
		WithStackOptions(stack.WithComputeWorkers(0)),
		WithTickRate(500),
	)
	var rendered atomic.Int32
	e.SetRenderCallback(func(_ float32, frames []stack.FrameStats) {
		if len(frames) == 1 && rendered.Add(1) == 3 {
			e.Quit()
		}
	})

	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("Run() did not return after Quit")
	}

	if rendered.Load() < 3 {
		t.Errorf("rendered %d frames, want >= 3", rendered.Load())
	}
	if e.Stack(0).Initialized() {
		t.Error("Run() returned with a live stack")
	}
}

func TestTicksNeverOverlapFrames(t *testing.T) {
	dev := renderertest.NewDevice()
	scn := newScene(dev, "world", 1, false)
	sun := scn.Lights()[0]
	box := scn.Renderers()[0].(*scenetest.Renderer)

	e := NewEngine(
		WithDevice(dev),
		WithScene(0, scn),
		WithStackOptions(stack.WithComputeWorkers(0)),
		WithTickRate(500),
	)

	var ticking, overlaps, ticks atomic.Int32
	box.OnDraw = func(*scene.Context, *scene.PassContext) {
		if ticking.Load() != 0 {
			overlaps.Add(1)
		}
	}
	e.SetTickCallback(func(dt float32) {
		ticking.Store(1)
		defer ticking.Store(0)
		i := ticks.Add(1)
		sun.SetDirection(float32(i%7)-3, -1, 0.5)
		_ = sun.SetCastShadows(i%2 == 0)
	})

	var rendered atomic.Int32
	e.SetRenderCallback(func(_ float32, frames []stack.FrameStats) {
		if len(frames) == 1 && rendered.Add(1) >= 20 && ticks.Load() >= 3 {
			e.Quit()
		}
	})

	stop := make(chan struct{})
	updaterDone := make(chan struct{})
	go func() {
		defer close(updaterDone)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			e.Update(func() {
				sun.SetEnabled(i%3 != 0)
				sun.SetIntensity(float32(i%5) + 1)
			})
			time.Sleep(time.Millisecond)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		e.Quit()
		t.Fatal("Run() did not return after Quit")
	}
	close(stop)
	<-updaterDone

	if rendered.Load() < 20 {
		t.Errorf("rendered %d frames, want >= 20", rendered.Load())
	}
	if ticks.Load() < 3 {
		t.Errorf("tick callback ran %d times, want >= 3", ticks.Load())
	}
	if n := overlaps.Load(); n != 0 {
		t.Errorf("%d draws ran during a tick", n)
	}
	if e.Stack(0).Initialized() {
		t.Error("Run() returned with a live stack")
	}
}

func TestUpdatesApplyBeforeNextFrame(t *testing.T) {
	dev := renderertest.NewDevice()
	scn := newScene(dev, "world", 1, false)
	box := scn.Renderers()[0].(*scenetest.Renderer)
	e := NewEngine(WithDevice(dev), WithScene(0, scn), WithStackOptions(stack.WithComputeWorkers(0)))
	t.Cleanup(e.(*engine).shutdownStacks)

	e.DrawFrame(0)
	before := e.Stack(0).ShadowMaps()
	if before == nil {
		t.Fatal("ShadowMaps() = nil after the first frame")
	}

	var ran bool
	e.Update(func() {
		ran = true
		box.Disabled = true
	})
	e.ResetStacks()
	if ran {
		t.Fatal("Update ran before the next frame")
	}
	if e.Stack(0).ShadowMaps() != before {
		t.Fatal("ResetStacks() reset outside a frame")
	}

	draws := len(box.Draws())
	frames := e.DrawFrame(0)
	if !ran {
		t.Error("Update did not run on the next frame")
	}
	if got := len(box.Draws()); got != draws {
		t.Errorf("disabled renderer drew %d times, want 0", got-draws)
	}
	if len(frames) != 1 || !frames[0].Success {
		t.Errorf("frames after reset = %+v, want one successful frame", frames)
	}
	after := e.Stack(0).ShadowMaps()
	if after == nil || after == before {
		t.Error("ResetStacks() did not rebuild the stack on the next frame")
	}
}
