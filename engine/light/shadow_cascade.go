package light

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/bind_group_provider"
	"github.com/gogpu/gputypes"
)

// ShadowCascade holds the GPU resources of one shadow map render of a light.
type ShadowCascade struct {
	// Index is the cascade index within the light, 0 being the tightest.
	Index int
	// Matrix is the world to light clip matrix of the last render.
	Matrix common.Mat4
	// Constants is the GPUShadowPass uniform buffer of this cascade.
	Constants renderer.Buffer
	// Provider builds the shadow pass resource set and tracks the resource version it was
	// built against.
	Provider bind_group_provider.BindGroupProvider
	// Framebuffer targets the light's cache layer for this cascade. Only static lights
	// have one; dynamic lights render straight into the shared array.
	Framebuffer renderer.Framebuffer
}

func (c *ShadowCascade) release() {
	if c.Provider != nil {
		c.Provider.Release()
	}
	if c.Constants != nil {
		c.Constants.Release()
	}
	if c.Framebuffer != nil {
		c.Framebuffer.Release()
	}
}

// shadowCache is the private depth and normal array of a static light.
type shadowCache struct {
	depth  renderer.Texture
	normal renderer.Texture
}

func (c *shadowCache) release() {
	if c == nil {
		return
	}
	c.depth.Release()
	c.normal.Release()
}

// cascadeResources is the full set created by one PrepareCascades call.
type cascadeResources struct {
	cascades   []*ShadowCascade
	cache      *shadowCache
	resolution uint32
	static     bool
}

func (r *cascadeResources) release() {
	for _, c := range r.cascades {
		c.release()
	}
	r.cache.release()
	r.cascades, r.cache = nil, nil
}

// createCascadeResources creates every cascade of a light. On failure everything created
// so far is released.
func createCascadeResources(device renderer.Device, name string, renders int, resolution uint32, static bool) (_ *cascadeResources, err error) {
	res := &cascadeResources{resolution: resolution, static: static}
	defer func() {
		if err != nil {
			res.release()
		}
	}()

	if static {
		usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc
		cache := &shadowCache{}
		cache.depth, err = device.CreateTexture(renderer.TextureDescriptor{
			Label: name + " Shadow Cache Depth", Width: resolution, Height: resolution,
			Layers: uint32(renders), Array: true, Format: ShadowDepthFormat, Usage: usage,
		})
		if err != nil {
			return nil, fmt.Errorf("light %q: shadow cache: %w", name, err)
		}
		cache.normal, err = device.CreateTexture(renderer.TextureDescriptor{
			Label: name + " Shadow Cache Normal", Width: resolution, Height: resolution,
			Layers: uint32(renders), Array: true, Format: ShadowNormalFormat, Usage: usage,
		})
		if err != nil {
			cache.depth.Release()
			return nil, fmt.Errorf("light %q: shadow cache: %w", name, err)
		}
		res.cache = cache
	}

	for i := range renders {
		label := name + " Cascade " + strconv.Itoa(i)
		c := &ShadowCascade{Index: i, Matrix: common.Identity()}
		res.cascades = append(res.cascades, c)

		c.Constants, err = device.CreateBuffer(renderer.BufferDescriptor{
			Label: label + " Constants",
			Size:  GPUShadowPassSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("light %q: cascade %d: %w", name, i, err)
		}
		c.Provider = bind_group_provider.NewBindGroupProvider(label, ShadowPassLayout,
			bind_group_provider.WithBuffer(0, c.Constants),
		)

		if res.cache != nil {
			c.Framebuffer, err = device.CreateFramebuffer(renderer.FramebufferDescriptor{
				Label:      label + " Cache",
				Color:      res.cache.normal,
				ColorLayer: uint32(i),
				Depth:      res.cache.depth,
				DepthLayer: uint32(i),
			})
			if err != nil {
				return nil, fmt.Errorf("light %q: cascade %d: %w", name, i, err)
			}
		}
	}
	return res, nil
}
