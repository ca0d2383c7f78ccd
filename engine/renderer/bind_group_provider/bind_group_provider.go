package bind_group_provider

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label used for the created resource sets.
	label string
	// layout is the fixed shape every built set follows.
	layout renderer.ResourceLayout

	// resources currently assigned to each binding; the provider never owns them
	buffers  map[uint32]renderer.Buffer
	textures map[uint32]renderer.Texture
	samplers map[uint32]renderer.Sampler

	// bindGroup is the last built set, nil until the first Ensure.
	bindGroup renderer.ResourceSet
	// built records the resource identity bound at each binding when bindGroup was built.
	built map[uint32]renderer.Resource
	// version is the external resource version bindGroup was built against.
	version uint64
	// rebuilds counts how many sets were created over the provider lifetime.
	rebuilds int
}

// BindGroupProvider assembles a resource set for a fixed layout and rebuilds it only when
// something it references changed.
//
// A set is stale when any of the following holds:
//  1. it was never built, was invalidated or was released out-of-band
//  2. the resource assigned to a binding is a different object than the one bound
//  3. a bound resource was released
//  4. the caller's resource version moved since the set was built
//
// Usage pattern:
//  1. Create a provider with the layout and any long-lived resources
//  2. Each frame assign the current resources with SetBuffer / SetTexture / SetSampler
//  3. Call Ensure with the current resource version and bind the returned set
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Layout returns the layout the provider builds sets for.
	//
	// Returns:
	//   - renderer.ResourceLayout: the layout
	Layout() renderer.ResourceLayout

	// SetBuffer assigns a buffer to a binding. Takes effect on the next Ensure.
	//
	// Parameters:
	//   - binding: the binding slot
	//   - buf: the buffer to bind
	SetBuffer(binding uint32, buf renderer.Buffer)

	// SetTexture assigns a texture to a binding. Takes effect on the next Ensure.
	//
	// Parameters:
	//   - binding: the binding slot
	//   - tex: the texture to bind
	SetTexture(binding uint32, tex renderer.Texture)

	// SetSampler assigns a sampler to a binding. Takes effect on the next Ensure.
	//
	// Parameters:
	//   - binding: the binding slot
	//   - s: the sampler to bind
	SetSampler(binding uint32, s renderer.Sampler)

	// Buffer returns the buffer assigned to a binding, or nil.
	Buffer(binding uint32) renderer.Buffer

	// Texture returns the texture assigned to a binding, or nil.
	Texture(binding uint32) renderer.Texture

	// Sampler returns the sampler assigned to a binding, or nil.
	Sampler(binding uint32) renderer.Sampler

	// BindGroup returns the last built set without checking staleness.
	//
	// Returns:
	//   - renderer.ResourceSet: the set, or nil if never built
	BindGroup() renderer.ResourceSet

	// Version returns the resource version the current set was built against.
	Version() uint64

	// Rebuilds returns how many sets have been created by this provider.
	Rebuilds() int

	// Stale reports whether Ensure would rebuild the set.
	//
	// Parameters:
	//   - version: the caller's current resource version
	//
	// Returns:
	//   - bool: true if the set must be rebuilt
	Stale(version uint64) bool

	// Ensure returns an up to date set, rebuilding it if stale. On failure the previous
	// set is kept and returned alongside the error.
	//
	// Parameters:
	//   - device: the device used to create the set
	//   - version: the caller's current resource version
	//
	// Returns:
	//   - renderer.ResourceSet: the current set
	//   - bool: true if a new set was created
	//   - error: an error if creation failed
	Ensure(device renderer.Device, version uint64) (renderer.ResourceSet, bool, error)

	// Invalidate forces the next Ensure to rebuild.
	Invalidate()

	// Release releases the built set. Assigned resources are left untouched.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a provider for the given layout.
//
// Parameters:
//   - label: debug label for created sets
//   - layout: the fixed layout of the sets
//   - opts: BindGroupProviderOption functions assigning initial resources
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, layout renderer.ResourceLayout, opts ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		layout:   layout,
		buffers:  make(map[uint32]renderer.Buffer),
		textures: make(map[uint32]renderer.Texture),
		samplers: make(map[uint32]renderer.Sampler),
		built:    make(map[uint32]renderer.Resource),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Layout() renderer.ResourceLayout {
	return p.layout
}

func (p *bindGroupProvider) SetBuffer(binding uint32, buf renderer.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding uint32, tex renderer.Texture) {
	p.textures[binding] = tex
}

func (p *bindGroupProvider) SetSampler(binding uint32, s renderer.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) Buffer(binding uint32) renderer.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Texture(binding uint32) renderer.Texture {
	return p.textures[binding]
}

func (p *bindGroupProvider) Sampler(binding uint32) renderer.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) BindGroup() renderer.ResourceSet {
	return p.bindGroup
}

func (p *bindGroupProvider) Version() uint64 {
	return p.version
}

func (p *bindGroupProvider) Rebuilds() int {
	return p.rebuilds
}

// resource returns the resource assigned to binding according to the layout kind.
func (p *bindGroupProvider) resource(e renderer.LayoutEntry) renderer.Resource {
	switch {
	case e.Kind.IsBuffer():
		if b := p.buffers[e.Binding]; b != nil {
			return b
		}
	case e.Kind.IsTexture():
		if t := p.textures[e.Binding]; t != nil {
			return t
		}
	case e.Kind.IsSampler():
		if s := p.samplers[e.Binding]; s != nil {
			return s
		}
	}
	return nil
}

func (p *bindGroupProvider) Stale(version uint64) bool {
	if p.bindGroup == nil || p.bindGroup.Released() || p.version != version {
		return true
	}
	for _, e := range p.layout.Entries {
		r := p.resource(e)
		if r == nil || r != p.built[e.Binding] || r.Released() {
			return true
		}
	}
	return false
}

func (p *bindGroupProvider) Ensure(device renderer.Device, version uint64) (renderer.ResourceSet, bool, error) {
	if !p.Stale(version) {
		return p.bindGroup, false, nil
	}

	entries := make([]renderer.ResourceEntry, 0, len(p.layout.Entries))
	built := make(map[uint32]renderer.Resource, len(p.layout.Entries))
	for _, e := range p.layout.Entries {
		r := p.resource(e)
		if r == nil {
			return p.bindGroup, false, fmt.Errorf("%s: binding %d (%s) has no resource: %w", p.label, e.Binding, e.Kind, renderer.ErrLayoutMismatch)
		}
		entry := renderer.ResourceEntry{Binding: e.Binding}
		switch {
		case e.Kind.IsBuffer():
			entry.Buffer = p.buffers[e.Binding]
		case e.Kind.IsTexture():
			entry.Texture = p.textures[e.Binding]
		case e.Kind.IsSampler():
			entry.Sampler = p.samplers[e.Binding]
		}
		entries = append(entries, entry)
		built[e.Binding] = r
	}

	set, err := device.CreateResourceSet(renderer.ResourceSetDescriptor{
		Label:   p.label,
		Layout:  p.layout,
		Entries: slices.Clip(entries),
	})
	if err != nil {
		return p.bindGroup, false, fmt.Errorf("%s: %w", p.label, err)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	p.bindGroup = set
	p.built = built
	p.version = version
	p.rebuilds++
	return set, true, nil
}

func (p *bindGroupProvider) Invalidate() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.Invalidate()
	clear(p.built)
}
