package mesh

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene_render"
	"github.com/gogpu/gputypes"
)

// pipelineKey identifies a compiled mesh pipeline: pass kind and target formats.
type pipelineKey struct {
	kind  scene.PassKind
	color gputypes.TextureFormat
	depth gputypes.TextureFormat
}

type pipelines struct {
	mu     sync.Mutex
	device renderer.Device
	cache  map[pipelineKey]renderer.Pipeline
}

// Pipelines compiles and caches mesh pipelines, shared by every MeshRenderer of a device.
type Pipelines interface {
	// Get returns the pipeline for a pass, compiling it on first use.
	//
	// Parameters:
	//   - pass: the pass being recorded
	//
	// Returns:
	//   - renderer.Pipeline: the cached pipeline
	//   - error: a compile error
	Get(pass *scene.PassContext) (renderer.Pipeline, error)

	// Len returns the number of compiled pipelines.
	Len() int

	// Release releases every compiled pipeline.
	Release()
}

var _ Pipelines = &pipelines{}

// NewPipelines creates an empty pipeline cache.
//
// Parameters:
//   - device: the device pipelines are compiled on
//
// Returns:
//   - Pipelines: the cache
func NewPipelines(device renderer.Device) Pipelines {
	if device == nil {
		panic("mesh: nil device")
	}
	return &pipelines{device: device, cache: make(map[pipelineKey]renderer.Pipeline)}
}

func (p *pipelines) Get(pass *scene.PassContext) (renderer.Pipeline, error) {
	key := pipelineKey{kind: pass.Kind, color: pass.ColorFormat, depth: pass.DepthFormat}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pl, ok := p.cache[key]; ok && !pl.Released() {
		return pl, nil
	}
	pl, err := p.device.CreatePipeline(describe(key))
	if err != nil {
		return nil, fmt.Errorf("mesh: %s pipeline: %w", key.kind, err)
	}
	p.cache[key] = pl
	return pl, nil
}

// describe builds the pipeline descriptor of a key.
func describe(key pipelineKey) renderer.PipelineDescriptor {
	desc := renderer.PipelineDescriptor{
		Label:         fmt.Sprintf("Mesh %s %v", key.kind, key.color),
		Source:        LitSource,
		VertexEntry:   VertexEntry,
		FragmentEntry: FragmentEntry,
		Layouts:       []renderer.ResourceLayout{scene_render.CameraLayout, ObjectLayout},
		ColorFormat:   key.color,
		DepthFormat:   key.depth,
		DepthTest:     true,
		DepthWrite:    true,
		CullBackFaces: true,
	}
	switch key.kind {
	case scene.PassShadow:
		desc.Source = ShadowSource
		desc.VertexEntry = ShadowVertexEntry
		desc.FragmentEntry = ShadowFragmentEntry
		desc.Layouts = []renderer.ResourceLayout{ObjectLayout, light.ShadowPassLayout}
		desc.DepthBias = 2
		desc.DepthBiasSlope = 2
	case scene.PassTransparent:
		desc.Blend = true
		desc.DepthWrite = false
		desc.CullBackFaces = false
	case scene.PassUI:
		desc.Blend = true
		desc.DepthTest = false
		desc.DepthWrite = false
	}
	return desc
}

func (p *pipelines) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

func (p *pipelines) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, pl := range p.cache {
		pl.Release()
		delete(p.cache, key)
	}
}
