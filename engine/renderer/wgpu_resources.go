package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

type wgpuTexture struct {
	label    string
	desc     TextureDescriptor
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	format   wgpu.TextureFormat
	surface  bool
	released bool
}

var _ Texture = &wgpuTexture{}

func (t *wgpuTexture) Label() string                  { return t.label }
func (t *wgpuTexture) Released() bool                 { return t.released }
func (t *wgpuTexture) Width() uint32                  { return t.desc.Width }
func (t *wgpuTexture) Height() uint32                 { return t.desc.Height }
func (t *wgpuTexture) Layers() uint32                 { return t.desc.Layers }
func (t *wgpuTexture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *wgpuTexture) IsArray() bool                  { return t.desc.Array || t.desc.Layers > 1 }

func (t *wgpuTexture) Release() {
	if t.released {
		return
	}
	t.released = true
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

type wgpuFramebuffer struct {
	label         string
	width, height uint32
	color         Texture
	colorLayer    uint32
	colorView     *wgpu.TextureView
	depth         Texture
	depthLayer    uint32
	depthView     *wgpu.TextureView
	// borrowed framebuffers reuse the texture's own view and must not release it
	borrowed bool
	released bool
}

var _ Framebuffer = &wgpuFramebuffer{}

func (f *wgpuFramebuffer) Label() string      { return f.label }
func (f *wgpuFramebuffer) Released() bool     { return f.released }
func (f *wgpuFramebuffer) Width() uint32      { return f.width }
func (f *wgpuFramebuffer) Height() uint32     { return f.height }
func (f *wgpuFramebuffer) Color() Texture     { return f.color }
func (f *wgpuFramebuffer) ColorLayer() uint32 { return f.colorLayer }
func (f *wgpuFramebuffer) Depth() Texture     { return f.depth }
func (f *wgpuFramebuffer) DepthLayer() uint32 { return f.depthLayer }

func (f *wgpuFramebuffer) ColorFormat() gputypes.TextureFormat {
	if f.color == nil {
		return gputypes.TextureFormatUndefined
	}
	return f.color.Format()
}

func (f *wgpuFramebuffer) DepthFormat() gputypes.TextureFormat {
	if f.depth == nil {
		return gputypes.TextureFormatUndefined
	}
	return f.depth.Format()
}

func (f *wgpuFramebuffer) Release() {
	if f.released {
		return
	}
	f.released = true
	if f.borrowed {
		return
	}
	if f.colorView != nil {
		f.colorView.Release()
	}
	if f.depthView != nil {
		f.depthView.Release()
	}
}

type wgpuBuffer struct {
	label    string
	buffer   *wgpu.Buffer
	size     uint64
	released bool
}

var _ Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string  { return b.label }
func (b *wgpuBuffer) Released() bool { return b.released }
func (b *wgpuBuffer) Size() uint64   { return b.size }

func (b *wgpuBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.buffer.Release()
}

type wgpuSampler struct {
	label    string
	sampler  *wgpu.Sampler
	compare  bool
	released bool
}

var _ Sampler = &wgpuSampler{}

func (s *wgpuSampler) Label() string      { return s.label }
func (s *wgpuSampler) Released() bool     { return s.released }
func (s *wgpuSampler) IsComparison() bool { return s.compare }

func (s *wgpuSampler) Release() {
	if s.released {
		return
	}
	s.released = true
	s.sampler.Release()
}

type wgpuResourceSet struct {
	label    string
	group    *wgpu.BindGroup
	layout   ResourceLayout
	entries  []ResourceEntry
	released bool
}

var _ ResourceSet = &wgpuResourceSet{}

func (r *wgpuResourceSet) Label() string          { return r.label }
func (r *wgpuResourceSet) Released() bool         { return r.released }
func (r *wgpuResourceSet) Layout() ResourceLayout { return r.layout }

func (r *wgpuResourceSet) Entry(binding uint32) (ResourceEntry, bool) {
	for _, e := range r.entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return ResourceEntry{}, false
}

func (r *wgpuResourceSet) Release() {
	if r.released {
		return
	}
	r.released = true
	r.group.Release()
}

type wgpuPipeline struct {
	label    string
	pipeline *wgpu.RenderPipeline
	desc     PipelineDescriptor
	released bool
}

var _ Pipeline = &wgpuPipeline{}

func (p *wgpuPipeline) Label() string                  { return p.label }
func (p *wgpuPipeline) Released() bool                 { return p.released }
func (p *wgpuPipeline) Descriptor() PipelineDescriptor { return p.desc }

func (p *wgpuPipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	p.pipeline.Release()
}

// toWGPUFormat maps the formats the engine allocates to their WebGPU equivalents.
func toWGPUFormat(f gputypes.TextureFormat) (wgpu.TextureFormat, bool) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, true
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb, true
	case gputypes.TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, true
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb, true
	case gputypes.TextureFormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float, true
	case gputypes.TextureFormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float, true
	case gputypes.TextureFormatR8Unorm:
		return wgpu.TextureFormatR8Unorm, true
	case gputypes.TextureFormatDepth16Unorm:
		return wgpu.TextureFormatDepth16Unorm, true
	case gputypes.TextureFormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus, true
	case gputypes.TextureFormatDepth24PlusStencil8:
		return wgpu.TextureFormatDepth24PlusStencil8, true
	case gputypes.TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float, true
	case gputypes.TextureFormatDepth32FloatStencil8:
		return wgpu.TextureFormatDepth32FloatStencil8, true
	}
	return wgpu.TextureFormatUndefined, false
}

func fromWGPUFormat(f wgpu.TextureFormat) gputypes.TextureFormat {
	switch f {
	case wgpu.TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm
	case wgpu.TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return gputypes.TextureFormatBGRA8UnormSrgb
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return gputypes.TextureFormatRGBA8UnormSrgb
	}
	return gputypes.TextureFormatUndefined
}

func toWGPUTextureUsage(u gputypes.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&gputypes.TextureUsageCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&gputypes.TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	if u&gputypes.TextureUsageTextureBinding != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&gputypes.TextureUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	return out
}

func toWGPUBufferUsage(u gputypes.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	pairs := []struct {
		from gputypes.BufferUsage
		to   wgpu.BufferUsage
	}{
		{gputypes.BufferUsageCopySrc, wgpu.BufferUsageCopySrc},
		{gputypes.BufferUsageCopyDst, wgpu.BufferUsageCopyDst},
		{gputypes.BufferUsageUniform, wgpu.BufferUsageUniform},
		{gputypes.BufferUsageStorage, wgpu.BufferUsageStorage},
		{gputypes.BufferUsageVertex, wgpu.BufferUsageVertex},
		{gputypes.BufferUsageMapRead, wgpu.BufferUsageMapRead},
	}
	for _, p := range pairs {
		if u&p.from != 0 {
			out |= p.to
		}
	}
	return out
}
