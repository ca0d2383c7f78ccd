// Package renderertest provides an in-memory renderer.Device that records every
// command it receives, for use in tests.
package renderertest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/gogpu/gputypes"
)

// Kind names a resource type for failure injection.
type Kind string

const (
	KindTexture     Kind = "texture"
	KindFramebuffer Kind = "framebuffer"
	KindBuffer      Kind = "buffer"
	KindSampler     Kind = "sampler"
	KindResourceSet Kind = "resource-set"
	KindPipeline    Kind = "pipeline"
	KindCommands    Kind = "commands"
)

// Device is a recording renderer.Device. All created resources are kept so tests can
// inspect what was allocated and released.
type Device struct {
	mu sync.Mutex

	Textures     []*Texture
	Framebuffers []*Framebuffer
	Buffers      []*Buffer
	Samplers     []*Sampler
	ResourceSets []*ResourceSet
	Pipelines    []*Pipeline

	// Submitted holds command lists in submission order.
	Submitted []*CommandList
	Presents  int

	// FailCreate, when set, is consulted before every creation. A non-nil return
	// value fails the creation with that error.
	FailCreate func(kind Kind, label string) error

	surface       *Framebuffer
	surfaceFormat gputypes.TextureFormat
	acquired      bool
	released      bool
}

var _ renderer.Device = &Device{}

// Option configures a Device.
type Option func(*Device)

// WithSurface gives the device a display surface of the given size and format.
func WithSurface(width, height uint32, format gputypes.TextureFormat) Option {
	return func(d *Device) {
		d.surfaceFormat = format
		tex := &Texture{
			resource: resource{label: "Surface"},
			Desc: renderer.TextureDescriptor{
				Label: "Surface", Width: width, Height: height, Layers: 1, Format: format,
				Usage: gputypes.TextureUsageRenderAttachment,
			},
		}
		d.surface = &Framebuffer{
			resource: resource{label: "Surface Framebuffer"},
			Desc:     renderer.FramebufferDescriptor{Label: "Surface Framebuffer", Color: tex},
			width:    width,
			height:   height,
		}
	}
}

// NewDevice creates a recording device.
func NewDevice(opts ...Option) *Device {
	d := &Device{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) fail(kind Kind, label string) error {
	if d.FailCreate == nil {
		return nil
	}
	if err := d.FailCreate(kind, label); err != nil {
		return fmt.Errorf("renderertest: create %s %q: %w", kind, label, err)
	}
	return nil
}

func (d *Device) CreateTexture(desc renderer.TextureDescriptor) (renderer.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(KindTexture, desc.Label); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 || desc.Format == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("%w: texture %q", renderer.ErrInvalidDescriptor, desc.Label)
	}
	desc.Layers = max(desc.Layers, 1)
	t := &Texture{resource: resource{label: desc.Label}, Desc: desc}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) CreateFramebuffer(desc renderer.FramebufferDescriptor) (renderer.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(KindFramebuffer, desc.Label); err != nil {
		return nil, err
	}
	w, h, err := renderer.ValidateFramebuffer(desc)
	if err != nil {
		return nil, err
	}
	f := &Framebuffer{resource: resource{label: desc.Label}, Desc: desc, width: w, height: h}
	d.Framebuffers = append(d.Framebuffers, f)
	return f, nil
}

func (d *Device) CreateBuffer(desc renderer.BufferDescriptor) (renderer.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(KindBuffer, desc.Label); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("%w: buffer %q", renderer.ErrInvalidDescriptor, desc.Label)
	}
	b := &Buffer{resource: resource{label: desc.Label}, Desc: desc, Data: make([]byte, desc.Size)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateSampler(desc renderer.SamplerDescriptor) (renderer.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(KindSampler, desc.Label); err != nil {
		return nil, err
	}
	s := &Sampler{resource: resource{label: desc.Label}, Desc: desc}
	d.Samplers = append(d.Samplers, s)
	return s, nil
}

func (d *Device) CreateResourceSet(desc renderer.ResourceSetDescriptor) (renderer.ResourceSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(KindResourceSet, desc.Label); err != nil {
		return nil, err
	}
	if err := desc.Layout.Validate(desc.Entries); err != nil {
		return nil, err
	}
	desc.Entries = append([]renderer.ResourceEntry(nil), desc.Entries...)
	r := &ResourceSet{resource: resource{label: desc.Label}, Desc: desc}
	d.ResourceSets = append(d.ResourceSets, r)
	return r, nil
}

func (d *Device) CreatePipeline(desc renderer.PipelineDescriptor) (renderer.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(KindPipeline, desc.Label); err != nil {
		return nil, err
	}
	p := &Pipeline{resource: resource{label: desc.Label}, Desc: desc}
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

func (d *Device) WriteBuffer(buf renderer.Buffer, offset uint64, data []byte) error {
	if err := renderer.CheckLive(buf); err != nil {
		return err
	}
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: foreign buffer %q", renderer.ErrInvalidDescriptor, buf.Label())
	}
	if offset+uint64(len(data)) > b.Size() {
		return fmt.Errorf("%w: %d bytes at %d into %q", renderer.ErrOutOfRange, len(data), offset, b.Label())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(b.Data[offset:], data)
	return nil
}

func (d *Device) BeginCommands(label string) (renderer.CommandList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(KindCommands, label); err != nil {
		return nil, err
	}
	return &CommandList{device: d, label: label}, nil
}

func (d *Device) Submit(cmd renderer.CommandList) error {
	c, ok := cmd.(*CommandList)
	if !ok {
		return fmt.Errorf("%w: foreign command list %q", renderer.ErrInvalidDescriptor, cmd.Label())
	}
	if c.closed {
		return fmt.Errorf("%w: %q", renderer.ErrCommandListClosed, c.label)
	}
	if c.pass != nil {
		return fmt.Errorf("%w: submit %q", renderer.ErrPassActive, c.label)
	}
	c.closed = true

	d.mu.Lock()
	defer d.mu.Unlock()
	d.Submitted = append(d.Submitted, c)
	return nil
}

func (d *Device) AcquireSurface() (renderer.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return nil, renderer.ErrNoSurface
	}
	d.acquired = true
	return d.surface, nil
}

func (d *Device) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.acquired {
		d.Presents++
		d.acquired = false
	}
}

func (d *Device) SurfaceFormat() gputypes.TextureFormat {
	return d.surfaceFormat
}

// Surface returns the display surface framebuffer, or nil for headless devices.
func (d *Device) Surface() *Framebuffer {
	return d.surface
}

func (d *Device) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface != nil {
		d.surface.width, d.surface.height = uint32(width), uint32(height)
		if tex, ok := d.surface.Desc.Color.(*Texture); ok {
			tex.Desc.Width, tex.Desc.Height = uint32(width), uint32(height)
		}
	}
}

func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
}

// Commands returns every command of every submitted list in submission order.
func (d *Device) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Command
	for _, c := range d.Submitted {
		out = append(out, c.Commands...)
	}
	return out
}

// Count returns how many submitted commands have the given op.
func (d *Device) Count(op Op) int {
	n := 0
	for _, c := range d.Commands() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets submitted command lists and presents while keeping created resources.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Submitted = nil
	d.Presents = 0
}

// Live returns how many resources of the given kind are not released.
func (d *Device) Live(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := func(released []bool) int {
		n := 0
		for _, r := range released {
			if !r {
				n++
			}
		}
		return n
	}
	var states []bool
	switch kind {
	case KindTexture:
		for _, r := range d.Textures {
			states = append(states, r.released)
		}
	case KindFramebuffer:
		for _, r := range d.Framebuffers {
			states = append(states, r.released)
		}
	case KindBuffer:
		for _, r := range d.Buffers {
			states = append(states, r.released)
		}
	case KindSampler:
		for _, r := range d.Samplers {
			states = append(states, r.released)
		}
	case KindResourceSet:
		for _, r := range d.ResourceSets {
			states = append(states, r.released)
		}
	case KindPipeline:
		for _, r := range d.Pipelines {
			states = append(states, r.released)
		}
	}
	return count(states)
}
