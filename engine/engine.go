package engine

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/profiler"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/Carmen-Shannon/oxy-forward/engine/stack"
	"github.com/Carmen-Shannon/oxy-forward/engine/window"
)

// ErrNoDevice is returned by Run when the engine was built without a device.
var ErrNoDevice = errors.New("engine: no device")

// sceneEntry pairs a registered scene with the stack that draws it.
type sceneEntry struct {
	scene scene.Scene
	stack stack.Stack
}

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	device renderer.Device
	window window.Window
	logger *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32, frames []stack.FrameStats)

	// frameMu serializes scene mutation (ticks, updates, resizes, registry changes) with
	// drawing. Lock order is frameMu, then mu.
	frameMu sync.Mutex

	mu           sync.Mutex
	scenes       map[int]*sceneEntry
	stackOptions []stack.StackBuilderOption
	pending      map[int]scene.Scene
	updates      []func()
	resetPending bool

	renderFrameLimit time.Duration
}

// Engine runs the fixed-rate tick loop and the render loop. Every registered scene is
// drawn by its own stack.Stack in ascending z-index order; only one scene should own a
// main camera because each stack presents the surface when its main camera wrote it.
type Engine interface {
	// Window returns the window, nil for a headless engine.
	Window() window.Window

	// Device returns the device every stack draws through.
	Device() renderer.Device

	// EnableProfiler enables per-interval frame reports on the logger.
	EnableProfiler()

	// DisableProfiler disables frame reports.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for scene logic: moving cameras, lights and renderers. Ticks never overlap a
	// frame; the callback must not call AddScene or RemoveScene.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds and the frame statistics of
	//     every drawn scene in z order
	SetRenderCallback(callback func(deltaTime float32, frames []stack.FrameStats))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Update queues fn to run on the render goroutine before the next frame is drawn. Use it
	// to mutate scene objects from other goroutines such as window input callbacks.
	//
	// Parameters:
	//   - fn: the mutation to apply
	Update(fn func())

	// AddScene registers a scene at the given z-index key, replacing and shutting down the
	// stack of any scene already there. Its stack is initialized on the first frame.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key and shuts down its stack.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key, or nil.
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// Stack returns the stack drawing the scene at key, or nil.
	Stack(key int) stack.Stack

	// ResetStacks resets every initialized stack before the next frame, dropping all cached
	// GPU resources.
	ResetStacks()

	// DrawFrame draws every active scene once in z order.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame
	//
	// Returns:
	//   - []stack.FrameStats: the statistics of each drawn scene
	DrawFrame(deltaTime float32) []stack.FrameStats

	// Run starts the tick and render loops. With a window it blocks in the message loop
	// until the window closes; headless it blocks until Quit. Every stack is shut down
	// before Run returns.
	//
	// Returns:
	//   - error: ErrNoDevice
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (device, window, scenes, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]*sceneEntry),
		pending:         make(map[int]scene.Scene),
		logger:          common.Logger(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	// scenes given as options wait for the device and stack options
	for key, s := range e.pending {
		e.addSceneLocked(key, s)
	}
	e.pending = nil
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Device() renderer.Device {
	return e.device
}

func (e *engine) Run() error {
	if e.device == nil {
		return ErrNoDevice
	}
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
	e.shutdownStacks()
	return nil
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the tick, render and quit goroutines.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop. Listens for rate changes on tickRateChannel
// and exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.frameMu.Lock()
				e.tickCallback(dt)
				e.frameMu.Unlock()
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop. A panic escaping a stack
// stops the engine instead of crashing the process.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			frames := e.DrawFrame(dt)

			if e.renderCallback != nil {
				e.renderCallback(dt, frames)
			}

			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) Update(fn func()) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updates = append(e.updates, fn)
}

// applyUpdates runs queued updates and a pending stack reset. Callers hold frameMu.
func (e *engine) applyUpdates() {
	e.mu.Lock()
	updates, reset := e.updates, e.resetPending
	e.updates, e.resetPending = nil, false
	e.mu.Unlock()

	for _, fn := range updates {
		fn()
	}
	if reset {
		e.resetStacks()
	}
}

func (e *engine) DrawFrame(deltaTime float32) []stack.FrameStats {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.applyUpdates()

	entries := e.activeEntries()
	if len(entries) == 0 || e.device == nil {
		return nil
	}

	frames := make([]stack.FrameStats, 0, len(entries))
	sample := profiler.Sample{}
	for _, entry := range entries {
		if !entry.stack.Initialized() {
			if err := entry.stack.Initialize(entry.scene); err != nil {
				e.logger.Error("stack initialize", "scene", entry.scene.Name(), "error", err)
				continue
			}
		}
		s := entry.scene
		if !entry.stack.DrawStack(s, s.Renderers(), s.Cameras(), s.Lights()) {
			e.logger.Debug("frame dropped", "scene", s.Name(), "dt", deltaTime)
		}
		stats := entry.stack.LastFrame()
		frames = append(frames, stats)

		sample.Duration += stats.Duration
		sample.Failed = sample.Failed || !stats.Success
		sample.Cameras += stats.Render.Cameras
		sample.DrawCalls += stats.Render.DrawCalls
		sample.ShadowDraws += stats.Shadow.DrawCalls
		sample.Presented = sample.Presented || stats.Presented
	}

	if e.profilingEnabled.Load() {
		e.profiler.Tick(sample)
	}
	return frames
}

// activeEntries returns the active scenes in ascending z order.
func (e *engine) activeEntries() []*sceneEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]*sceneEntry, 0, len(keys))
	for _, k := range keys {
		if entry := e.scenes[k]; entry.scene.Active() {
			entries = append(entries, entry)
		}
	}
	return entries
}

// resize reconfigures the surface and resizes every main camera to match it.
func (e *engine) resize(width, height int) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	if e.device != nil {
		e.device.Resize(width, height)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.scenes {
		for _, c := range entry.scene.Cameras() {
			if !c.IsMain() {
				continue
			}
			out := c.Output()
			out.Width, out.Height = uint32(width), uint32(height)
			c.SetOutput(out)
		}
	}
}

func (e *engine) shutdownStacks() {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.scenes {
		entry.stack.Shutdown()
	}
}

func (e *engine) ResetStacks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetPending = true
}

// resetStacks resets every initialized stack. Callers hold frameMu.
func (e *engine) resetStacks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.scenes {
		if !entry.stack.Initialized() {
			continue
		}
		if err := entry.stack.Reset(nil); err != nil {
			e.logger.Error("stack reset", "scene", entry.scene.Name(), "error", err)
		}
	}
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if !e.running {
		e.engineTickRate = newRate
		return
	}
	// replace any pending update
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32, frames []stack.FrameStats)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addSceneLocked(key, s)
}

func (e *engine) addSceneLocked(key int, s scene.Scene) {
	if old, ok := e.scenes[key]; ok {
		old.stack.Shutdown()
	}
	if e.device == nil {
		panic("engine: AddScene without a device")
	}
	opts := append([]stack.StackBuilderOption{stack.WithLogger(e.logger)}, e.stackOptions...)
	e.scenes[key] = &sceneEntry{scene: s, stack: stack.NewStack(e.device, opts...)}
}

func (e *engine) RemoveScene(key int) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.scenes[key]; ok {
		entry.stack.Shutdown()
		delete(e.scenes, key)
	}
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.scenes[key]; ok {
		return entry.scene
	}
	return nil
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v.scene
	}
	return cp
}

func (e *engine) Stack(key int) stack.Stack {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.scenes[key]; ok {
		return entry.stack
	}
	return nil
}
