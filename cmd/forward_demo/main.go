package main

import (
	"flag"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/loader"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/Carmen-Shannon/oxy-forward/engine/stack"
	"github.com/Carmen-Shannon/oxy-forward/engine/window"
	"github.com/charmbracelet/harmonica"
	"github.com/gogpu/gputypes"
)

const tickRate = 60

func main() {
	modelPath := flag.String("model", "", "glTF/GLB file to place on the floor (a cube when empty)")
	width := flag.Int("width", 1280, "window width")
	height := flag.Int("height", 720, "window height")
	shadowRes := flag.Uint("shadow-res", 2048, "shadow map resolution")
	profile := flag.Bool("profile", false, "log frame reports")
	fps := flag.Float64("fps", 0, "render frame cap, 0 for uncapped")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	common.SetLogger(logger)

	if err := run(*modelPath, *width, *height, uint32(*shadowRes), *profile, *fps); err != nil {
		logger.Error("forward demo", "error", err)
		os.Exit(1)
	}
}

func run(modelPath string, width, height int, shadowRes uint32, profile bool, fps float64) error {
	// ── Window + Device ─────────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle("oxy-forward - Forward+ lighting"),
		window.WithSize(width, height),
	)
	if err != nil {
		return err
	}
	device, err := renderer.NewWGPUDevice(
		win.SurfaceDescriptor(),
		renderer.WithSurfaceSize(win.Width(), win.Height()),
	)
	if err != nil {
		win.Close()
		return err
	}
	defer device.Release()

	// ── Camera ──────────────────────────────────────────────────────────
	view := common.NewTransform()
	view.Position = common.Vec3{0, 4, 12}
	view.Rotation = common.Vec3{common.Radians(-15), 0, 0}
	cam := camera.NewCamera("main", device,
		camera.WithMain(),
		camera.WithTransform(view),
		camera.WithOutput(camera.OutputDescription{
			Width:       uint32(win.Width()),
			Height:      uint32(win.Height()),
			ColorFormat: device.SurfaceFormat(),
			DepthFormat: gputypes.TextureFormatDepth32Float,
		}),
	)

	// ── Lights ──────────────────────────────────────────────────────────
	sun := light.NewLight("sun", light.LightTypeDirectional,
		light.WithDirection(1, -0.8, 0),
		light.WithColor(1, 0.95, 0.85),
		light.WithIntensity(2),
		light.WithShadows(2),
	)
	lamps := []light.Light{
		light.NewLight("lamp red", light.LightTypePoint,
			light.WithPosition(-4, 2, 0),
			light.WithColor(1, 0.2, 0.1),
			light.WithIntensity(6),
			light.WithRange(8),
		),
		light.NewLight("spot blue", light.LightTypeSpot,
			light.WithPosition(4, 5, 2),
			light.WithDirection(-0.5, -1, -0.2),
			light.WithColor(0.2, 0.4, 1),
			light.WithIntensity(10),
			light.WithRange(15),
			light.WithSpotCone(20, 30),
			light.WithShadows(0),
			light.WithStatic(),
		),
	}

	// ── Meshes ──────────────────────────────────────────────────────────
	pipelines := mesh.NewPipelines(device)
	defer pipelines.Release()

	subject, err := subjectMesh(modelPath)
	if err != nil {
		return err
	}
	floorPose := common.NewTransform()
	floorPose.Scale = common.Vec3{20, 0.1, 20}
	floorPose.Position = common.Vec3{0, -0.05, 0}
	floor, err := mesh.NewMeshRenderer("floor", cube(), pipelines,
		mesh.WithTransform(floorPose),
		mesh.WithColor(0.6, 0.6, 0.6, 1),
	)
	if err != nil {
		return err
	}
	subjectPose := common.NewTransform()
	subjectPose.Position = common.Vec3{0, 1, 0}
	hero, err := mesh.NewMeshRenderer(subject.Name, subject, pipelines,
		mesh.WithTransform(subjectPose),
		mesh.WithColor(0.9, 0.7, 0.3, 1),
	)
	if err != nil {
		return err
	}
	glassPose := common.NewTransform()
	glassPose.Position = common.Vec3{2.5, 1, 1.5}
	glass, err := mesh.NewMeshRenderer("glass", cube(), pipelines,
		mesh.WithTransform(glassPose),
		mesh.WithRenderMode(scene.RenderModeTransparent),
		mesh.WithColor(0.3, 0.8, 1, 0.4),
	)
	if err != nil {
		return err
	}

	// ── Scene ───────────────────────────────────────────────────────────
	world := scene.NewScene("forward",
		scene.WithAmbientColor(common.Vec3{0.05, 0.05, 0.07}),
		scene.WithSpatialIndex(scene.NewGridIndex(8)),
		scene.WithCameras(cam),
		scene.WithLights(append([]light.Light{sun}, lamps...)...),
		scene.WithRenderers(floor, hero, glass),
	)

	// ── Engine ──────────────────────────────────────────────────────────
	eng := engine.NewEngine(
		engine.WithDevice(device),
		engine.WithWindow(win),
		engine.WithTickRate(tickRate),
		engine.WithRenderFrameLimit(fps),
		engine.WithProfiling(profile),
		engine.WithScene(0, world),
		engine.WithStackOptions(
			stack.WithShadowResolution(shadowRes),
			stack.WithMaxShadowedLights(4),
		),
	)

	orbit := newSunOrbit()
	eng.SetTickCallback(func(dt float32) {
		x, y, z := orbit.step(dt)
		sun.SetDirection(x, y, z)

		pose := hero.Transform()
		pose.Rotation[1] += dt * 0.5
		hero.SetTransform(pose)
	})

	// Space pauses the sun, S toggles its shadows, L the lamps, P the profiler and R resets
	// the stacks. Key presses arrive on the window thread and are applied between frames.
	profiling := profile
	lampsOn := true
	handleKey := func(key uint32) {
		switch key {
		case common.KeySpace:
			orbit.togglePause()
		case common.KeyS:
			cast := !sun.CastsShadows()
			if err := sun.SetCastShadows(cast); err != nil {
				common.Logger().Warn("sun shadows", "cast", cast, "error", err)
			}
		case common.KeyL:
			lampsOn = !lampsOn
			for _, l := range lamps {
				l.SetEnabled(lampsOn)
			}
		case common.KeyP:
			profiling = !profiling
			if profiling {
				eng.EnableProfiler()
			} else {
				eng.DisableProfiler()
			}
		case common.KeyR:
			eng.ResetStacks()
		}
	}
	win.SetKeyDownCallback(func(key uint32) {
		eng.Update(func() { handleKey(key) })
	})

	return eng.Run()
}

// sunOrbit swings the sun around the vertical axis. The azimuth follows a steadily
// advancing target through a critically damped spring so pausing and resuming eases.
type sunOrbit struct {
	mu     sync.Mutex
	spring harmonica.Spring
	angle  float64
	vel    float64
	target float64
	paused bool
}

func newSunOrbit() *sunOrbit {
	return &sunOrbit{spring: harmonica.NewSpring(harmonica.FPS(tickRate), 2.0, 1.0)}
}

func (o *sunOrbit) togglePause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = !o.paused
}

// step advances the orbit by dt seconds and returns the sun direction.
func (o *sunOrbit) step(dt float32) (x, y, z float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.paused {
		o.target += float64(dt) * 0.4
	}
	o.angle, o.vel = o.spring.Update(o.angle, o.vel, o.target)
	return float32(math.Cos(o.angle)), -0.8, float32(math.Sin(o.angle))
}

// subjectMesh loads the model at path, or returns a unit cube.
func subjectMesh(path string) (*loader.Mesh, error) {
	if path == "" {
		return cube(), nil
	}
	return loader.NewLoader().Load(path)
}

// cube returns a unit cube centred on the origin with per-face normals.
func cube() *loader.Mesh {
	faces := []struct {
		normal common.Vec3
		u, v   common.Vec3
	}{
		{common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}, common.Vec3{0, 1, 0}},
		{common.Vec3{-1, 0, 0}, common.Vec3{0, 0, 1}, common.Vec3{0, 1, 0}},
		{common.Vec3{0, 1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}},
		{common.Vec3{0, -1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1}},
		{common.Vec3{0, 0, 1}, common.Vec3{1, 0, 0}, common.Vec3{0, 1, 0}},
		{common.Vec3{0, 0, -1}, common.Vec3{-1, 0, 0}, common.Vec3{0, 1, 0}},
	}
	m := &loader.Mesh{Name: "cube"}
	for _, f := range faces {
		base := uint32(len(m.Positions))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			var p common.Vec3
			for i := range p {
				p[i] = 0.5*f.normal[i] + 0.5*c[0]*f.u[i] + 0.5*c[1]*f.v[i]
			}
			m.Positions = append(m.Positions, p)
			m.Normals = append(m.Normals, f.normal)
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	m.Bounds = common.AABBFromPoints(m.Positions...)
	return m
}
