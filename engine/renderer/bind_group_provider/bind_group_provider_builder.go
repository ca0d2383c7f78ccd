package bind_group_provider

import "github.com/Carmen-Shannon/oxy-forward/engine/renderer"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer assigns a buffer to a binding.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to bind
//
// Returns:
//   - BindGroupProviderOption: a function that assigns the buffer
func WithBuffer(binding uint32, buf renderer.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithTexture assigns a texture to a binding.
//
// Parameters:
//   - binding: the binding index for this texture
//   - tex: the texture to bind
//
// Returns:
//   - BindGroupProviderOption: a function that assigns the texture
func WithTexture(binding uint32, tex renderer.Texture) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textures[binding] = tex
	}
}

// WithSampler assigns a sampler to a binding.
//
// Parameters:
//   - binding: the binding index for this sampler
//   - s: the sampler to bind
//
// Returns:
//   - BindGroupProviderOption: a function that assigns the sampler
func WithSampler(binding uint32, s renderer.Sampler) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.samplers[binding] = s
	}
}
