package renderer

// BindingKind is the type of resource a layout slot accepts.
type BindingKind int

const (
	BindingUniformBuffer BindingKind = iota
	BindingStorageBuffer
	BindingTexture
	BindingTextureArray
	BindingDepthTexture
	BindingDepthTextureArray
	BindingSampler
	BindingComparisonSampler
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniformBuffer:
		return "uniform"
	case BindingStorageBuffer:
		return "storage"
	case BindingTexture:
		return "texture_2d"
	case BindingTextureArray:
		return "texture_2d_array"
	case BindingDepthTexture:
		return "texture_depth_2d"
	case BindingDepthTextureArray:
		return "texture_depth_2d_array"
	case BindingSampler:
		return "sampler"
	case BindingComparisonSampler:
		return "sampler_comparison"
	default:
		return "unknown"
	}
}

// IsBuffer reports whether the kind binds a Buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingUniformBuffer || k == BindingStorageBuffer
}

// IsTexture reports whether the kind binds a Texture.
func (k BindingKind) IsTexture() bool {
	return k >= BindingTexture && k <= BindingDepthTextureArray
}

// IsSampler reports whether the kind binds a Sampler.
func (k BindingKind) IsSampler() bool {
	return k == BindingSampler || k == BindingComparisonSampler
}

// LayoutEntry describes one binding slot of a ResourceLayout.
type LayoutEntry struct {
	Binding uint32
	Kind    BindingKind
}

// ResourceLayout is the fixed shape of a resource set, shared by the shaders that read it.
type ResourceLayout struct {
	Label   string
	Entries []LayoutEntry
}

// Entry returns the layout entry for binding.
func (l ResourceLayout) Entry(binding uint32) (LayoutEntry, bool) {
	for _, e := range l.Entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return LayoutEntry{}, false
}

// Validate checks that entries bind exactly the resources the layout expects.
//
// Parameters:
//   - entries: the resources to bind
//
// Returns:
//   - error: an error wrapping ErrLayoutMismatch or ErrReleasedResource
func (l ResourceLayout) Validate(entries []ResourceEntry) error {
	if len(entries) != len(l.Entries) {
		return layoutErrorf(l, "expected %d entries, got %d", len(l.Entries), len(entries))
	}
	for _, e := range entries {
		le, ok := l.Entry(e.Binding)
		if !ok {
			return layoutErrorf(l, "binding %d is not part of the layout", e.Binding)
		}
		var r Resource
		switch {
		case le.Kind.IsBuffer() && e.Buffer != nil:
			r = e.Buffer
		case le.Kind.IsTexture() && e.Texture != nil:
			r = e.Texture
			arrayKind := le.Kind == BindingTextureArray || le.Kind == BindingDepthTextureArray
			if arrayKind != e.Texture.IsArray() {
				return layoutErrorf(l, "binding %d (%s) got texture %q with array=%t", e.Binding, le.Kind, e.Texture.Label(), e.Texture.IsArray())
			}
		case le.Kind.IsSampler() && e.Sampler != nil:
			r = e.Sampler
			if (le.Kind == BindingComparisonSampler) != e.Sampler.IsComparison() {
				return layoutErrorf(l, "binding %d (%s) got incompatible sampler %q", e.Binding, le.Kind, e.Sampler.Label())
			}
		default:
			return layoutErrorf(l, "binding %d (%s) has no matching resource", e.Binding, le.Kind)
		}
		if r.Released() {
			return releasedErrorf(r)
		}
	}
	return nil
}
