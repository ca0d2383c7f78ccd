package renderertest

import (
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/gogpu/gputypes"
)

type resource struct {
	label    string
	released bool
}

func (r *resource) Label() string  { return r.label }
func (r *resource) Released() bool { return r.released }
func (r *resource) Release()       { r.released = true }

// Texture is an in-memory texture.
type Texture struct {
	resource
	Desc renderer.TextureDescriptor
}

func (t *Texture) Width() uint32                  { return t.Desc.Width }
func (t *Texture) Height() uint32                 { return t.Desc.Height }
func (t *Texture) Layers() uint32                 { return t.Desc.Layers }
func (t *Texture) Format() gputypes.TextureFormat { return t.Desc.Format }
func (t *Texture) IsArray() bool                  { return t.Desc.Array || t.Desc.Layers > 1 }

// Framebuffer is an in-memory render target.
type Framebuffer struct {
	resource
	Desc          renderer.FramebufferDescriptor
	width, height uint32
}

func (f *Framebuffer) Width() uint32      { return f.width }
func (f *Framebuffer) Height() uint32     { return f.height }
func (f *Framebuffer) Color() renderer.Texture {
	return f.Desc.Color
}
func (f *Framebuffer) ColorLayer() uint32 { return f.Desc.ColorLayer }
func (f *Framebuffer) Depth() renderer.Texture {
	return f.Desc.Depth
}
func (f *Framebuffer) DepthLayer() uint32 { return f.Desc.DepthLayer }

func (f *Framebuffer) ColorFormat() gputypes.TextureFormat {
	if f.Desc.Color == nil {
		return gputypes.TextureFormatUndefined
	}
	return f.Desc.Color.Format()
}

func (f *Framebuffer) DepthFormat() gputypes.TextureFormat {
	if f.Desc.Depth == nil {
		return gputypes.TextureFormatUndefined
	}
	return f.Desc.Depth.Format()
}

// Buffer is an in-memory buffer. Writes land in Data immediately.
type Buffer struct {
	resource
	Desc renderer.BufferDescriptor
	Data []byte
}

func (b *Buffer) Size() uint64 { return b.Desc.Size }

// Sampler is an in-memory sampler.
type Sampler struct {
	resource
	Desc renderer.SamplerDescriptor
}

func (s *Sampler) IsComparison() bool { return s.Desc.Compare }

// ResourceSet is an in-memory resource set.
type ResourceSet struct {
	resource
	Desc renderer.ResourceSetDescriptor
}

func (r *ResourceSet) Layout() renderer.ResourceLayout { return r.Desc.Layout }

func (r *ResourceSet) Entry(binding uint32) (renderer.ResourceEntry, bool) {
	for _, e := range r.Desc.Entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return renderer.ResourceEntry{}, false
}

// Pipeline is an in-memory pipeline.
type Pipeline struct {
	resource
	Desc renderer.PipelineDescriptor
}

func (p *Pipeline) Descriptor() renderer.PipelineDescriptor { return p.Desc }

var (
	_ renderer.Texture     = &Texture{}
	_ renderer.Framebuffer = &Framebuffer{}
	_ renderer.Buffer      = &Buffer{}
	_ renderer.Sampler     = &Sampler{}
	_ renderer.ResourceSet = &ResourceSet{}
	_ renderer.Pipeline    = &Pipeline{}
)
