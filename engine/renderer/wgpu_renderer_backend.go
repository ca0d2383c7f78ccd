package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

type wgpuDevice struct {
	mu     sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        wgpu.TextureFormat
	surfaceGPUFormat     gputypes.TextureFormat
	presentMode          PresentMode
	forceFallbackAdapter bool
	width, height        int

	// bind group layouts are shared between every set and pipeline with the same shape
	layouts map[string]*wgpu.BindGroupLayout

	// surface image held between AcquireSurface and Present
	frameTexture     *wgpuTexture
	frameFramebuffer *wgpuFramebuffer

	logger *slog.Logger
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice creates a Device backed by WebGPU. When surfaceDescriptor is nil the
// device is headless and AcquireSurface returns ErrNoSurface.
//
// The calling goroutine is locked to its OS thread because the native surface must be
// driven from the thread that created it.
//
// Parameters:
//   - surfaceDescriptor: the native window surface, or nil for offscreen rendering
//   - opts: DeviceBuilderOption functions to configure the device
//
// Returns:
//   - Device: the WebGPU device
//   - error: an error if no adapter or device could be obtained
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, opts ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		instance:    wgpu.CreateInstance(nil),
		presentMode: PresentModeVSync,
		layouts:     make(map[string]*wgpu.BindGroupLayout),
		logger:      common.Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	d.adapter = a

	// the forward pass binds camera, material and object groups on top of the engine groups
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		d.adapter.Release()
		d.instance.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if d.surface != nil {
		d.configureSurface()
	}
	d.logger.Info("renderer: device created", "surface", d.surface != nil, "format", d.surfaceGPUFormat)
	return d, nil
}

func (d *wgpuDevice) configureSurface() {
	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]
	d.surfaceGPUFormat = fromWGPUFormat(d.surfaceFormat)
	for _, f := range capabilities.Formats {
		if g := fromWGPUFormat(f); g != gputypes.TextureFormatUndefined {
			d.surfaceFormat, d.surfaceGPUFormat = f, g
			break
		}
	}

	presentMode := wgpu.PresentModeFifo
	if d.presentMode == PresentModeUncapped {
		presentMode = wgpu.PresentModeImmediate
	}

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(max(d.width, 1)),
		Height:      uint32(max(d.height, 1)),
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (d *wgpuDevice) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.width, d.height = width, height
	if d.surface != nil && width > 0 && height > 0 {
		d.configureSurface()
	}
}

func (d *wgpuDevice) SurfaceFormat() gputypes.TextureFormat {
	return d.surfaceGPUFormat
}

func (d *wgpuDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	format, ok := toWGPUFormat(desc.Format)
	if !ok || desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: texture %q (%dx%d, %v)", ErrInvalidDescriptor, desc.Label, desc.Width, desc.Height, desc.Format)
	}
	layers := max(desc.Layers, 1)

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         toWGPUTextureUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create texture %q: %w", desc.Label, err)
	}

	dimension := wgpu.TextureViewDimension2D
	if desc.Array || layers > 1 {
		dimension = wgpu.TextureViewDimension2DArray
	}
	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label + " View",
		Format:          format,
		Dimension:       dimension,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("renderer: create texture view %q: %w", desc.Label, err)
	}

	desc.Layers = layers
	return &wgpuTexture{label: desc.Label, desc: desc, texture: tex, view: view, format: format}, nil
}

func (d *wgpuDevice) CreateFramebuffer(desc FramebufferDescriptor) (Framebuffer, error) {
	w, h, err := ValidateFramebuffer(desc)
	if err != nil {
		return nil, err
	}

	fb := &wgpuFramebuffer{
		label:      desc.Label,
		width:      w,
		height:     h,
		color:      desc.Color,
		colorLayer: desc.ColorLayer,
		depth:      desc.Depth,
		depthLayer: desc.DepthLayer,
	}
	if desc.Color != nil {
		if fb.colorView, err = layerView(desc.Color, desc.ColorLayer); err != nil {
			return nil, err
		}
	}
	if desc.Depth != nil {
		if fb.depthView, err = layerView(desc.Depth, desc.DepthLayer); err != nil {
			fb.Release()
			return nil, err
		}
	}
	return fb, nil
}

func layerView(t Texture, layer uint32) (*wgpu.TextureView, error) {
	tex, ok := t.(*wgpuTexture)
	if !ok {
		return nil, fmt.Errorf("%w: texture %q was not created by this device", ErrInvalidDescriptor, t.Label())
	}
	if tex.surface {
		return tex.view, nil
	}
	view, err := tex.texture.CreateView(&wgpu.TextureViewDescriptor{
		Label:           fmt.Sprintf("%s Layer %d", tex.label, layer),
		Format:          tex.format,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  layer,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create layer view %q[%d]: %w", tex.label, layer, err)
	}
	return view, nil
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: buffer %q has zero size", ErrInvalidDescriptor, desc.Label)
	}
	// WebGPU requires buffer sizes to be a multiple of 4
	size := (desc.Size + 3) &^ 3
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: toWGPUBufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create buffer %q: %w", desc.Label, err)
	}
	return &wgpuBuffer{label: desc.Label, buffer: buf, size: desc.Size}, nil
}

func (d *wgpuDevice) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	filter := wgpu.FilterModeLinear
	if desc.Nearest {
		filter = wgpu.FilterModeNearest
	}
	sd := &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if desc.Compare {
		sd.Compare = wgpu.CompareFunctionLess
	}
	s, err := d.device.CreateSampler(sd)
	if err != nil {
		return nil, fmt.Errorf("renderer: create sampler %q: %w", desc.Label, err)
	}
	return &wgpuSampler{label: desc.Label, sampler: s, compare: desc.Compare}, nil
}

func (d *wgpuDevice) bindGroupLayout(l ResourceLayout) (*wgpu.BindGroupLayout, error) {
	var key strings.Builder
	for _, e := range l.Entries {
		fmt.Fprintf(&key, "%d:%d;", e.Binding, e.Kind)
	}
	if layout, ok := d.layouts[key.String()]; ok {
		return layout, nil
	}

	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	entries := make([]wgpu.BindGroupLayoutEntry, len(l.Entries))
	for i, e := range l.Entries {
		entry := wgpu.BindGroupLayoutEntry{Binding: e.Binding, Visibility: visibility}
		switch e.Kind {
		case BindingUniformBuffer:
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case BindingStorageBuffer:
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		case BindingTexture:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		case BindingTextureArray:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2DArray
		case BindingDepthTexture:
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		case BindingDepthTextureArray:
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2DArray
		case BindingSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		case BindingComparisonSampler:
			entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		}
		entries[i] = entry
	}

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   l.Label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create bind group layout %q: %w", l.Label, err)
	}
	d.layouts[key.String()] = layout
	return layout, nil
}

func (d *wgpuDevice) CreateResourceSet(desc ResourceSetDescriptor) (ResourceSet, error) {
	if err := desc.Layout.Validate(desc.Entries); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.bindGroupLayout(desc.Layout)
	if err != nil {
		return nil, err
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			entry.Buffer = e.Buffer.(*wgpuBuffer).buffer
			entry.Size = wgpu.WholeSize
		case e.Texture != nil:
			entry.TextureView = e.Texture.(*wgpuTexture).view
		case e.Sampler != nil:
			entry.Sampler = e.Sampler.(*wgpuSampler).sampler
		}
		entries[i] = entry
	}

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create bind group %q: %w", desc.Label, err)
	}
	return &wgpuResourceSet{
		label:   desc.Label,
		group:   group,
		layout:  desc.Layout,
		entries: append([]ResourceEntry(nil), desc.Entries...),
	}, nil
}

func (d *wgpuDevice) CreatePipeline(desc PipelineDescriptor) (Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: compile shader %q: %w", desc.Label, err)
	}
	defer module.Release()

	groupLayouts := make([]*wgpu.BindGroupLayout, len(desc.Layouts))
	for i, l := range desc.Layouts {
		if groupLayouts[i], err = d.bindGroupLayout(l); err != nil {
			return nil, err
		}
	}
	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: groupLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create pipeline layout %q: %w", desc.Label, err)
	}
	defer pipelineLayout.Release()

	rpd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if desc.CullBackFaces {
		rpd.Primitive.CullMode = wgpu.CullModeBack
	}

	if desc.ColorFormat != gputypes.TextureFormatUndefined {
		format, ok := toWGPUFormat(desc.ColorFormat)
		if !ok {
			return nil, fmt.Errorf("%w: pipeline %q color format %v", ErrInvalidDescriptor, desc.Label, desc.ColorFormat)
		}
		target := wgpu.ColorTargetState{
			Format:    format,
			WriteMask: wgpu.ColorWriteMaskAll,
		}
		if desc.Blend {
			// premultiplied alpha over
			target.Blend = &wgpu.BlendState{
				Color: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorOne,
					DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					Operation: wgpu.BlendOperationAdd,
				},
				Alpha: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorOne,
					DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
					Operation: wgpu.BlendOperationAdd,
				},
			}
		}
		rpd.Fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		}
	}

	if desc.DepthFormat != gputypes.TextureFormatUndefined {
		format, ok := toWGPUFormat(desc.DepthFormat)
		if !ok {
			return nil, fmt.Errorf("%w: pipeline %q depth format %v", ErrInvalidDescriptor, desc.Label, desc.DepthFormat)
		}
		compare := wgpu.CompareFunctionAlways
		if desc.DepthTest {
			compare = wgpu.CompareFunctionLessEqual
		}
		rpd.DepthStencil = &wgpu.DepthStencilState{
			Format:              format,
			DepthWriteEnabled:   desc.DepthWrite,
			DepthCompare:        compare,
			DepthBias:           desc.DepthBias,
			DepthBiasSlopeScale: desc.DepthBiasSlope,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := d.device.CreateRenderPipeline(rpd)
	if err != nil {
		return nil, fmt.Errorf("renderer: create render pipeline %q: %w", desc.Label, err)
	}
	return &wgpuPipeline{label: desc.Label, pipeline: created, desc: desc}, nil
}

func (d *wgpuDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, err := d.checkWrite(buf, offset, data)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue.WriteBuffer(b.buffer, offset, data)
	return nil
}

func (d *wgpuDevice) checkWrite(buf Buffer, offset uint64, data []byte) (*wgpuBuffer, error) {
	if err := CheckLive(buf); err != nil {
		return nil, err
	}
	if offset+uint64(len(data)) > buf.Size() {
		return nil, fmt.Errorf("%w: %d bytes at %d into %q (%d bytes)", ErrOutOfRange, len(data), offset, buf.Label(), buf.Size())
	}
	b, ok := buf.(*wgpuBuffer)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %q was not created by this device", ErrInvalidDescriptor, buf.Label())
	}
	return b, nil
}

func (d *wgpuDevice) BeginCommands(label string) (CommandList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("renderer: create command encoder %q: %w", label, err)
	}
	return &wgpuCommandList{device: d, label: label, encoder: encoder}, nil
}

func (d *wgpuDevice) Submit(cmd CommandList) error {
	c, ok := cmd.(*wgpuCommandList)
	if !ok {
		return fmt.Errorf("%w: command list %q was not created by this device", ErrInvalidDescriptor, cmd.Label())
	}
	if c.closed {
		return fmt.Errorf("%w: %q", ErrCommandListClosed, c.label)
	}
	if c.pass != nil {
		return fmt.Errorf("%w: submit %q", ErrPassActive, c.label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c.closed = true
	defer c.encoder.Release()
	commandBuffer, err := c.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("renderer: finish %q: %w", c.label, err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (d *wgpuDevice) AcquireSurface() (Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return nil, ErrNoSurface
	}
	// a surface image can only be acquired once per present
	if d.frameFramebuffer != nil {
		return d.frameFramebuffer, nil
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("renderer: acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("renderer: create surface view: %w", err)
	}

	tex := &wgpuTexture{
		label:   "Surface",
		texture: surfaceTexture,
		view:    view,
		format:  d.surfaceFormat,
		surface: true,
		desc: TextureDescriptor{
			Label:  "Surface",
			Width:  uint32(max(d.width, 1)),
			Height: uint32(max(d.height, 1)),
			Layers: 1,
			Format: d.surfaceGPUFormat,
			Usage:  gputypes.TextureUsageRenderAttachment,
		},
	}
	d.frameTexture = tex
	d.frameFramebuffer = &wgpuFramebuffer{
		label:     "Surface Framebuffer",
		width:     tex.desc.Width,
		height:    tex.desc.Height,
		color:     tex,
		colorView: view,
		borrowed:  true,
	}
	return d.frameFramebuffer, nil
}

func (d *wgpuDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameTexture == nil {
		return
	}
	d.surface.Present()
	d.frameFramebuffer.released = true
	d.frameTexture.Release()
	d.frameTexture = nil
	d.frameFramebuffer = nil
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, l := range d.layouts {
		l.Release()
		delete(d.layouts, key)
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

type wgpuCommandList struct {
	device  *wgpuDevice
	label   string
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	closed  bool
}

var _ CommandList = &wgpuCommandList{}

func (c *wgpuCommandList) Label() string {
	return c.label
}

func (c *wgpuCommandList) BeginPass(fb Framebuffer, ops PassOps) error {
	if c.closed {
		return fmt.Errorf("%w: %q", ErrCommandListClosed, c.label)
	}
	if c.pass != nil {
		return fmt.Errorf("%w: begin %q", ErrPassActive, fb.Label())
	}
	if err := CheckLive(fb); err != nil {
		return err
	}
	f, ok := fb.(*wgpuFramebuffer)
	if !ok {
		return fmt.Errorf("%w: framebuffer %q was not created by this device", ErrInvalidDescriptor, fb.Label())
	}

	desc := &wgpu.RenderPassDescriptor{Label: c.label}
	if f.colorView != nil {
		attachment := wgpu.RenderPassColorAttachment{
			View:    f.colorView,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if ops.ClearColor {
			attachment.LoadOp = wgpu.LoadOpClear
			attachment.ClearValue = wgpu.Color{
				R: float64(ops.Color.R),
				G: float64(ops.Color.G),
				B: float64(ops.Color.B),
				A: float64(ops.Color.A),
			}
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{attachment}
	}
	if f.depthView != nil {
		attachment := &wgpu.RenderPassDepthStencilAttachment{
			View:         f.depthView,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if ops.ClearDepth {
			attachment.DepthLoadOp = wgpu.LoadOpClear
			attachment.DepthClearValue = ops.Depth
		}
		if HasStencil(f.DepthFormat()) {
			attachment.StencilLoadOp = wgpu.LoadOpLoad
			attachment.StencilStoreOp = wgpu.StoreOpStore
			if ops.ClearStencil {
				attachment.StencilLoadOp = wgpu.LoadOpClear
				attachment.StencilClearValue = ops.Stencil
			}
		}
		desc.DepthStencilAttachment = attachment
	}

	c.pass = c.encoder.BeginRenderPass(desc)
	return nil
}

func (c *wgpuCommandList) SetViewport(x, y, width, height float32) {
	if c.pass != nil {
		c.pass.SetViewport(x, y, width, height, 0, 1)
	}
}

func (c *wgpuCommandList) SetScissor(x, y, width, height uint32) {
	if c.pass != nil {
		c.pass.SetScissorRect(x, y, width, height)
	}
}

func (c *wgpuCommandList) SetPipeline(p Pipeline) {
	if c.pass != nil {
		c.pass.SetPipeline(p.(*wgpuPipeline).pipeline)
	}
}

func (c *wgpuCommandList) SetResourceSet(group uint32, set ResourceSet) {
	if c.pass != nil {
		c.pass.SetBindGroup(group, set.(*wgpuResourceSet).group, nil)
	}
}

func (c *wgpuCommandList) SetVertexBuffer(slot uint32, buf Buffer) {
	if c.pass != nil {
		c.pass.SetVertexBuffer(slot, buf.(*wgpuBuffer).buffer, 0, wgpu.WholeSize)
	}
}

func (c *wgpuCommandList) Draw(vertexCount, instanceCount uint32) {
	if c.pass != nil {
		c.pass.Draw(vertexCount, instanceCount, 0, 0)
	}
}

func (c *wgpuCommandList) EndPass() error {
	if c.pass == nil {
		return ErrNoActivePass
	}
	c.pass.End()
	c.pass = nil
	return nil
}

func (c *wgpuCommandList) CopyTextureRegion(src, dst Framebuffer) error {
	if c.closed {
		return fmt.Errorf("%w: %q", ErrCommandListClosed, c.label)
	}
	if c.pass != nil {
		return fmt.Errorf("%w: copy %q", ErrPassActive, src.Label())
	}
	if err := errors.Join(CheckLive(src), CheckLive(dst)); err != nil {
		return err
	}
	if !Compatible(src, dst) {
		return fmt.Errorf("%w: copy %q -> %q", ErrLayoutMismatch, src.Label(), dst.Label())
	}

	size := &wgpu.Extent3D{Width: src.Width(), Height: src.Height(), DepthOrArrayLayers: 1}
	copyLayer := func(s, d Texture, sl, dl uint32) {
		c.encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{Texture: s.(*wgpuTexture).texture, Origin: wgpu.Origin3D{Z: sl}, Aspect: wgpu.TextureAspectAll},
			&wgpu.ImageCopyTexture{Texture: d.(*wgpuTexture).texture, Origin: wgpu.Origin3D{Z: dl}, Aspect: wgpu.TextureAspectAll},
			size,
		)
	}
	if src.Color() != nil {
		copyLayer(src.Color(), dst.Color(), src.ColorLayer(), dst.ColorLayer())
	}
	if src.Depth() != nil {
		copyLayer(src.Depth(), dst.Depth(), src.DepthLayer(), dst.DepthLayer())
	}
	return nil
}

func (c *wgpuCommandList) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	if c.closed {
		return fmt.Errorf("%w: %q", ErrCommandListClosed, c.label)
	}
	return c.device.WriteBuffer(buf, offset, data)
}

func (c *wgpuCommandList) Discard() {
	if c.closed {
		return
	}
	if c.pass != nil {
		c.pass.End()
		c.pass = nil
	}
	c.closed = true
	c.encoder.Release()
}
