package scene

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
)

// Scene is the registry of cameras, lights and renderers drawn by the render stack, plus
// the scene-wide lighting parameters. Renderers added to the spatial index are found by
// bounds queries; renderers added with AddRenderer are always considered.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// AmbientColor returns the ambient light color written to the light buffer header.
	AmbientColor() common.Vec3

	// SetAmbientColor sets the ambient light color.
	SetAmbientColor(c common.Vec3)

	// ShadowRadius returns the world radius directional shadows cover around the view.
	ShadowRadius() float32

	// SetShadowRadius sets the directional shadow radius. Values <= 0 restore the default.
	SetShadowRadius(r float32)

	// SpatialIndex returns the index queried for renderers, or nil.
	SpatialIndex() SpatialIndex

	// SetSpatialIndex replaces the spatial index.
	SetSpatialIndex(idx SpatialIndex)

	// AddRenderer registers an unpartitioned renderer.
	AddRenderer(r Renderer)

	// RemoveRenderer unregisters an unpartitioned renderer.
	RemoveRenderer(r Renderer)

	// Renderers returns a copy of the unpartitioned renderers.
	Renderers() []Renderer

	// AddCamera registers a camera.
	AddCamera(c camera.Camera)

	// RemoveCamera unregisters a camera. The camera is not released.
	RemoveCamera(c camera.Camera)

	// Cameras returns a copy of the registered cameras.
	Cameras() []camera.Camera

	// MainCamera returns the first registered camera flagged main, or nil.
	MainCamera() camera.Camera

	// AddLight registers a light.
	AddLight(l light.Light)

	// RemoveLight unregisters a light. The light is not released.
	RemoveLight(l light.Light)

	// Lights returns a copy of the registered lights.
	Lights() []light.Light

	// Release releases every registered camera and light and clears the registry.
	Release()
}

type scene struct {
	mu *sync.RWMutex

	name         string
	active       bool
	ambientColor common.Vec3
	shadowRadius float32
	index        SpatialIndex

	renderers []Renderer
	cameras   []camera.Camera
	lights    []light.Light
}

var _ Scene = &scene{}

// NewScene creates a new empty Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:           &sync.RWMutex{},
		name:         name,
		active:       true,
		ambientColor: common.Vec3{0.03, 0.03, 0.03},
		shadowRadius: light.DefaultShadowSceneRadius,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) AmbientColor() common.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *scene) SetAmbientColor(c common.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = c
}

func (s *scene) ShadowRadius() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shadowRadius
}

func (s *scene) SetShadowRadius(r float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r <= 0 {
		r = light.DefaultShadowSceneRadius
	}
	s.shadowRadius = r
}

func (s *scene) SpatialIndex() SpatialIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *scene) SetSpatialIndex(idx SpatialIndex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = idx
}

func (s *scene) AddRenderer(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.renderers, r) {
		s.renderers = append(s.renderers, r)
	}
}

func (s *scene) RemoveRenderer(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderers = slices.DeleteFunc(s.renderers, func(o Renderer) bool { return o == r })
}

func (s *scene) Renderers() []Renderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.renderers)
}

func (s *scene) AddCamera(c camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.cameras, c) {
		s.cameras = append(s.cameras, c)
	}
}

func (s *scene) RemoveCamera(c camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = slices.DeleteFunc(s.cameras, func(o camera.Camera) bool { return o == c })
}

func (s *scene) Cameras() []camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cameras)
}

func (s *scene) MainCamera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cameras {
		if c.IsMain() {
			return c
		}
	}
	return nil
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.lights, l) {
		s.lights = append(s.lights, l)
	}
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = slices.DeleteFunc(s.lights, func(o light.Light) bool { return o == l })
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cameras {
		c.Release()
	}
	for _, l := range s.lights {
		l.Release()
	}
	s.cameras, s.lights, s.renderers = nil, nil, nil
}
