package stack

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene_render"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
)

var (
	// ErrNilScene is returned by Initialize without a scene.
	ErrNilScene = errors.New("stack: nil scene")

	// ErrAlreadyInitialized is returned by Initialize on an initialized stack.
	ErrAlreadyInitialized = errors.New("stack: already initialized")
)

// computeQueueSize is the task queue length of the visibility worker pool.
const computeQueueSize = 256

// FrameStats describes the last DrawStack call.
type FrameStats struct {
	Frame   uint64
	Success bool

	Cameras      int
	Lights       int
	ShadowLights int
	Opaque       int
	Transparent  int
	UI           int

	Shadow shadow.ShadowStats
	Render scene_render.RenderStats

	// Presented is set when the display surface was presented.
	Presented bool
	Duration  time.Duration
}

type stack struct {
	mu sync.Mutex

	device renderer.Device
	logger *slog.Logger

	maxShadowedLights int
	shadowResolution  uint32
	computeWorkers    int
	post              [2][]scene_render.PostProcessor

	scene       scene.Scene
	shadows     shadow.ShadowMaps
	driver      scene_render.SceneRender
	pool        worker.DynamicWorkerPool
	initialized bool

	frame uint64
	last  FrameStats
}

// Stack draws a scene once per frame: it snapshots the frame's cameras, lights and
// renderers, renders and submits the shadow maps, draws every active camera and presents
// the display surface when a main camera ended on it.
//
// A Stack is bound to a scene between Initialize and Shutdown and owns every shared GPU
// resource of the pipeline during that time. DrawStack is safe to call from one render
// goroutine while another goroutine calls Shutdown.
type Stack interface {
	// Initialize creates the shadow orchestrator, the render driver and the worker pool.
	//
	// Parameters:
	//   - scn: the scene drawn by default
	//
	// Returns:
	//   - error: ErrNilScene or ErrAlreadyInitialized
	Initialize(scn scene.Scene) error

	// Shutdown releases everything Initialize created. Calling it twice is a no-op.
	Shutdown()

	// Reset shuts the stack down and initializes it again.
	//
	// Parameters:
	//   - scn: the scene, nil keeps the current one
	//
	// Returns:
	//   - error: an Initialize error
	Reset(scn scene.Scene) error

	// DrawStack draws one frame.
	//
	// Parameters:
	//   - scn: the scene, nil uses the initialized one
	//   - renderers: unpartitioned renderers drawn in addition to the spatial index results
	//   - cameras: candidate cameras
	//   - lights: candidate lights
	//
	// Returns:
	//   - bool: false when not initialized, when shadow rendering failed or when any camera
	//     failed
	DrawStack(scn scene.Scene, renderers []scene.Renderer, cameras []camera.Camera, lights []light.Light) bool

	// Initialized reports whether Initialize succeeded and Shutdown was not called since.
	Initialized() bool

	// Scene returns the initialized scene.
	Scene() scene.Scene

	// LastFrame returns the statistics of the last DrawStack call.
	LastFrame() FrameStats

	// ShadowMaps returns the shadow orchestrator, nil when not initialized.
	ShadowMaps() shadow.ShadowMaps

	// Driver returns the render driver, nil when not initialized.
	Driver() scene_render.SceneRender
}

var _ Stack = &stack{}

// NewStack creates a stack drawing through device. Call Initialize before DrawStack.
//
// Parameters:
//   - device: the device every pass is recorded on
//   - options: functional options to configure the stack
//
// Returns:
//   - Stack: the new stack
func NewStack(device renderer.Device, options ...StackBuilderOption) Stack {
	if device == nil {
		panic("stack: nil device")
	}
	s := &stack{
		device:            device,
		logger:            common.Logger(),
		maxShadowedLights: light.DefaultMaxShadowedLights,
		shadowResolution:  light.ShadowMapResolution,
		computeWorkers:    max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *stack) Initialize(scn scene.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(scn)
}

func (s *stack) initializeLocked(scn scene.Scene) error {
	if scn == nil {
		return ErrNilScene
	}
	if s.initialized {
		return fmt.Errorf("scene %q: %w", scn.Name(), ErrAlreadyInitialized)
	}
	s.scene = scn
	s.shadows = shadow.NewShadowMaps(s.device,
		shadow.WithResolution(s.shadowResolution),
		shadow.WithLogger(s.logger),
	)
	s.driver = scene_render.NewSceneRender(s.device,
		scene_render.WithLogger(s.logger),
		scene_render.WithPostProcessors(scene_render.PostScene, s.post[scene_render.PostScene]...),
		scene_render.WithPostProcessors(scene_render.PostUI, s.post[scene_render.PostUI]...),
	)
	if s.computeWorkers > 0 {
		s.pool = worker.NewDynamicWorkerPool(s.computeWorkers, computeQueueSize, time.Second)
	}
	s.initialized = true
	s.logger.Info("stack initialized", "scene", scn.Name(), "workers", s.computeWorkers, "shadow_resolution", s.shadowResolution)
	return nil
}

func (s *stack) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownLocked()
}

func (s *stack) shutdownLocked() {
	if !s.initialized {
		return
	}
	s.driver.Release()
	s.shadows.Release()
	if s.pool != nil {
		s.pool.Stop()
		s.pool = nil
	}
	s.driver, s.shadows = nil, nil
	s.initialized = false
	s.logger.Info("stack shut down", "scene", s.scene.Name(), "frames", s.frame)
}

func (s *stack) Reset(scn scene.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scn == nil {
		scn = s.scene
	}
	s.shutdownLocked()
	return s.initializeLocked(scn)
}

func (s *stack) DrawStack(scn scene.Scene, renderers []scene.Renderer, cameras []camera.Camera, lights []light.Light) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		s.logger.Warn("draw on an uninitialized stack")
		return false
	}
	if scn == nil {
		scn = s.scene
	}
	start := time.Now()
	s.frame++

	objs := scene.BuildObjects(scn, renderers, cameras, lights, scene.BuildOptions{
		MaxShadowedLights: s.maxShadowedLights,
		Pool:              s.pool,
	})
	ctx := &scene.Context{
		Scene:   scn,
		Device:  s.device,
		Frame:   s.frame,
		Objects: objs,
		Logger:  s.logger,
	}
	stats := FrameStats{
		Frame:        s.frame,
		Cameras:      len(objs.Cameras),
		Lights:       len(objs.Lights),
		ShadowLights: len(objs.ShadowLights),
		Opaque:       len(objs.Opaque),
		Transparent:  len(objs.Transparent),
		UI:           len(objs.UI),
	}
	ok := true

	shadowStats, err := s.shadows.Render(ctx, objs)
	stats.Shadow = shadowStats
	if err != nil {
		ok = false
		s.logger.Error("shadow maps failed", "scene", scn.Name(), "frame", s.frame, "error", err)
	}

	var surface renderer.Framebuffer
	if objs.MainCamera() != nil {
		surface, err = s.device.AcquireSurface()
		switch {
		case errors.Is(err, renderer.ErrNoSurface):
			surface = nil
		case err != nil:
			surface = nil
			s.logger.Warn("surface unavailable", "scene", scn.Name(), "frame", s.frame, "error", err)
		}
	}

	renderStats, err := s.driver.Render(ctx, objs, surface)
	stats.Render = renderStats
	if err != nil {
		ok = false
	}
	// an unwritten image stays acquired and is reused by the next frame
	if surface != nil && renderStats.SurfaceWritten {
		s.device.Present()
		stats.Presented = true
	}

	stats.Success = ok
	stats.Duration = time.Since(start)
	s.last = stats
	return ok
}

func (s *stack) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *stack) Scene() scene.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

func (s *stack) LastFrame() FrameStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *stack) ShadowMaps() shadow.ShadowMaps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shadows
}

func (s *stack) Driver() scene_render.SceneRender {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}
