package scene

import (
	"cmp"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
)

// BuildOptions configures BuildObjects.
type BuildOptions struct {
	// MaxShadowedLights caps the shadow-mapped prefix. Values <= 0 use
	// light.DefaultMaxShadowedLights.
	MaxShadowedLights int

	// Pool runs the light visibility tests in parallel when set.
	Pool worker.DynamicWorkerPool
}

// Objects is the snapshot of what one frame draws. It owns no GPU resources and is rebuilt
// every frame.
type Objects struct {
	// Cameras are the active cameras by descending priority.
	Cameras []camera.Camera

	// Lights are the lights seen by at least one camera. Shadow casters come first, then
	// higher priorities; shaders rely on this order.
	Lights []light.Light

	// ShadowLights is the shadow-mapped prefix of Lights.
	ShadowLights []light.Light

	// OtherLights is the rest of Lights.
	OtherLights []light.Light

	Opaque        []Renderer
	Transparent   []Renderer
	UI            []Renderer
	ShadowCasters []Renderer

	// Bounds is the union of the active camera frustum bounds.
	Bounds common.AABB

	cameraIndex map[camera.Camera]int
	visibility  map[light.Light][]bool
	mapped      map[light.Light]bool
}

// lightEntry is a kept light with its per-camera visibility.
type lightEntry struct {
	light   light.Light
	casts   bool
	visible []bool
}

// BuildObjects culls and partitions the inputs of one frame.
//
// Cameras are kept when enabled with a non-zero layer mask. Lights are kept when enabled
// with a non-zero layer mask and visible to at least one kept camera sharing a layer. Kept
// lights are stably sorted shadow casters first, then by descending priority, and the first
// MaxShadowedLights casters form the shadow-mapped prefix. Renderers come from the scene's
// spatial index queried with the union of camera frustum bounds, plus the given
// unpartitioned renderers, deduplicated and bucketed by render mode.
//
// Parameters:
//   - scn: the scene, may be nil
//   - renderers: unpartitioned renderers, always considered
//   - cameras: candidate cameras
//   - lights: candidate lights
//   - opts: build options
//
// Returns:
//   - *Objects: the snapshot
func BuildObjects(scn Scene, renderers []Renderer, cameras []camera.Camera, lights []light.Light, opts BuildOptions) *Objects {
	o := &Objects{
		Bounds:      common.EmptyAABB(),
		cameraIndex: make(map[camera.Camera]int),
		visibility:  make(map[light.Light][]bool),
		mapped:      make(map[light.Light]bool),
	}

	for _, c := range cameras {
		if c == nil || !c.Enabled() || c.LayerMask() == 0 {
			continue
		}
		o.Cameras = append(o.Cameras, c)
	}
	slices.SortStableFunc(o.Cameras, func(a, b camera.Camera) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
	frustums := make([]common.Frustum, len(o.Cameras))
	masks := make([]uint32, len(o.Cameras))
	for i, c := range o.Cameras {
		o.cameraIndex[c] = i
		frustums[i] = c.Frustum()
		masks[i] = c.LayerMask()
		o.Bounds = o.Bounds.Union(c.FrustumBounds())
	}

	o.collectLights(lights, frustums, masks, opts)
	o.collectRenderers(scn, renderers)
	return o
}

func (o *Objects) collectLights(lights []light.Light, frustums []common.Frustum, masks []uint32, opts BuildOptions) {
	entries := make([]lightEntry, 0, len(lights))
	for _, l := range lights {
		if l == nil || !l.Enabled() || l.LayerMask() == 0 {
			continue
		}
		entries = append(entries, lightEntry{light: l, casts: l.CastsShadows(), visible: make([]bool, len(frustums))})
	}
	if len(frustums) == 0 {
		return
	}

	test := func(e *lightEntry) {
		for ci := range frustums {
			e.visible[ci] = masks[ci]&e.light.LayerMask() != 0 && e.light.CheckVisibilityByCamera(frustums[ci])
		}
	}
	if opts.Pool != nil && len(entries) > 1 {
		wg := sync.WaitGroup{}
		wg.Add(len(entries))
		for i := range entries {
			e := &entries[i]
			opts.Pool.SubmitTask(worker.Task{
				ID: i,
				Do: func() (any, error) {
					defer wg.Done()
					test(e)
					return nil, nil
				},
			})
		}
		wg.Wait()
	} else {
		for i := range entries {
			test(&entries[i])
		}
	}

	entries = slices.DeleteFunc(entries, func(e lightEntry) bool {
		return !slices.Contains(e.visible, true)
	})
	slices.SortStableFunc(entries, func(a, b lightEntry) int {
		if a.casts != b.casts {
			if a.casts {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.light.Priority(), a.light.Priority())
	})

	maxShadowed := opts.MaxShadowedLights
	if maxShadowed <= 0 {
		maxShadowed = light.DefaultMaxShadowedLights
	}
	for _, e := range entries {
		o.Lights = append(o.Lights, e.light)
		o.visibility[e.light] = e.visible
		if e.casts && len(o.ShadowLights) < maxShadowed {
			o.ShadowLights = append(o.ShadowLights, e.light)
			o.mapped[e.light] = true
		} else {
			o.OtherLights = append(o.OtherLights, e.light)
		}
	}
}

func (o *Objects) collectRenderers(scn Scene, renderers []Renderer) {
	var candidates []Renderer
	if scn != nil && !o.Bounds.IsEmpty() {
		if idx := scn.SpatialIndex(); idx != nil {
			candidates = idx.GetObjectsInBounds(o.Bounds)
		}
	}
	candidates = append(candidates, renderers...)

	seen := make(map[Renderer]struct{}, len(candidates))
	for _, r := range candidates {
		if r == nil || !r.Enabled() {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		switch r.RenderMode() {
		case RenderModeOpaque:
			o.Opaque = append(o.Opaque, r)
			o.ShadowCasters = append(o.ShadowCasters, r)
		case RenderModeTransparent:
			o.Transparent = append(o.Transparent, r)
			o.ShadowCasters = append(o.ShadowCasters, r)
		case RenderModeUI:
			o.UI = append(o.UI, r)
		}
	}
}

// ShadowMapped reports whether l is in the shadow-mapped prefix.
func (o *Objects) ShadowMapped(l light.Light) bool {
	return o.mapped[l]
}

// LightsForCamera returns the lights visible to c in snapshot order, so the shadow-mapped
// lights still form a prefix.
//
// Parameters:
//   - c: an active camera of the snapshot
//
// Returns:
//   - []light.Light: the visible lights
//   - int: the length of the shadow-mapped prefix
func (o *Objects) LightsForCamera(c camera.Camera) ([]light.Light, int) {
	ci, ok := o.cameraIndex[c]
	if !ok {
		return nil, 0
	}
	var out []light.Light
	shadowed := 0
	for _, l := range o.Lights {
		if !o.visibility[l][ci] {
			continue
		}
		out = append(out, l)
		if o.mapped[l] {
			shadowed++
		}
	}
	return out, shadowed
}

// MainCamera returns the highest priority active camera flagged main, or nil.
func (o *Objects) MainCamera() camera.Camera {
	for _, c := range o.Cameras {
		if c.IsMain() {
			return c
		}
	}
	return nil
}
