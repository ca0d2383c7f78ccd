package scene_render

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/gogpu/gputypes"
)

const targetUsage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst

// offscreen is a driver-owned render target recreated when its description changes.
type offscreen struct {
	label string
	color renderer.Texture
	depth renderer.Texture
	fb    renderer.Framebuffer
}

func (o *offscreen) matches(w, h uint32, colorFormat, depthFormat gputypes.TextureFormat) bool {
	return o.fb != nil && !o.fb.Released() &&
		o.fb.Width() == w && o.fb.Height() == h &&
		o.fb.ColorFormat() == colorFormat && o.fb.DepthFormat() == depthFormat
}

// ensure returns a framebuffer of the given description. The previous targets are released
// only after the replacements were created.
func (o *offscreen) ensure(device renderer.Device, w, h uint32, colorFormat, depthFormat gputypes.TextureFormat) (renderer.Framebuffer, error) {
	if o.matches(w, h, colorFormat, depthFormat) {
		return o.fb, nil
	}
	color, err := device.CreateTexture(renderer.TextureDescriptor{
		Label: o.label + " Color", Width: w, Height: h, Format: colorFormat, Usage: targetUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.label, err)
	}
	var depth renderer.Texture
	if depthFormat != gputypes.TextureFormatUndefined {
		depth, err = device.CreateTexture(renderer.TextureDescriptor{
			Label: o.label + " Depth", Width: w, Height: h, Format: depthFormat, Usage: targetUsage,
		})
		if err != nil {
			color.Release()
			return nil, fmt.Errorf("%s: %w", o.label, err)
		}
	}
	fb, err := device.CreateFramebuffer(renderer.FramebufferDescriptor{Label: o.label, Color: color, Depth: depth})
	if err != nil {
		color.Release()
		if depth != nil {
			depth.Release()
		}
		return nil, fmt.Errorf("%s: %w", o.label, err)
	}
	o.release()
	o.color, o.depth, o.fb = color, depth, fb
	return fb, nil
}

func (o *offscreen) release() {
	for _, r := range []renderer.Resource{o.fb, o.color, o.depth} {
		if r != nil {
			r.Release()
		}
	}
	o.fb, o.color, o.depth = nil, nil, nil
}
