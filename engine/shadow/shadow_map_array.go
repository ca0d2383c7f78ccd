package shadow

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/gogpu/gputypes"
)

// ErrSlotOutOfRange is returned by GetFramebuffer for a slot past the array capacity.
var ErrSlotOutOfRange = errors.New("shadow: slot out of range")

type shadowMapArray struct {
	device     renderer.Device
	label      string
	resolution uint32

	depth        renderer.Texture
	normal       renderer.Texture
	framebuffers []renderer.Framebuffer
}

// ShadowMapArray is the shared GPU storage every shadow-mapped light renders into: a
// depth array and a normal array of equal length with one framebuffer per layer.
//
// Capacity only grows. Growing replaces both textures, so anything bound to DepthArray or
// NormalArray must be rebuilt whenever Prepare reports a resize.
type ShadowMapArray interface {
	// Prepare makes room for at least required layers.
	//
	// Parameters:
	//   - required: the number of layers needed this frame
	//
	// Returns:
	//   - bool: true if the textures were replaced
	//   - error: a creation error; the previous textures are kept on failure
	Prepare(required int) (bool, error)

	// GetFramebuffer returns the framebuffer of one layer.
	//
	// Parameters:
	//   - slot: the layer index
	//
	// Returns:
	//   - renderer.Framebuffer: the layer framebuffer
	//   - error: ErrSlotOutOfRange if slot >= Capacity()
	GetFramebuffer(slot uint32) (renderer.Framebuffer, error)

	// Capacity returns the number of layers.
	Capacity() int

	// Resolution returns the width and height of every layer.
	Resolution() uint32

	// DepthArray returns the depth texture array, nil before the first Prepare.
	DepthArray() renderer.Texture

	// NormalArray returns the normal texture array, nil before the first Prepare.
	NormalArray() renderer.Texture

	// Release releases the textures and framebuffers.
	Release()
}

var _ ShadowMapArray = &shadowMapArray{}

// NewShadowMapArray creates an empty shadow map array. No GPU memory is allocated until
// Prepare.
//
// Parameters:
//   - device: the device that creates the textures
//   - label: debug label prefix
//   - resolution: layer width and height; 0 uses light.ShadowMapResolution
//
// Returns:
//   - ShadowMapArray: the new array
func NewShadowMapArray(device renderer.Device, label string, resolution uint32) ShadowMapArray {
	if resolution == 0 {
		resolution = light.ShadowMapResolution
	}
	return &shadowMapArray{device: device, label: label, resolution: resolution}
}

func (a *shadowMapArray) live() bool {
	return a.depth != nil && !a.depth.Released() && !a.normal.Released()
}

func (a *shadowMapArray) Prepare(required int) (bool, error) {
	if required <= len(a.framebuffers) && a.live() {
		return false, nil
	}
	layers := max(required, len(a.framebuffers), 1)

	usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst
	depth, err := a.device.CreateTexture(renderer.TextureDescriptor{
		Label: a.label + " Depth", Width: a.resolution, Height: a.resolution,
		Layers: uint32(layers), Array: true, Format: light.ShadowDepthFormat, Usage: usage,
	})
	if err != nil {
		return false, fmt.Errorf("%s: depth array of %d: %w", a.label, layers, err)
	}
	normal, err := a.device.CreateTexture(renderer.TextureDescriptor{
		Label: a.label + " Normal", Width: a.resolution, Height: a.resolution,
		Layers: uint32(layers), Array: true, Format: light.ShadowNormalFormat, Usage: usage,
	})
	if err != nil {
		depth.Release()
		return false, fmt.Errorf("%s: normal array of %d: %w", a.label, layers, err)
	}

	framebuffers := make([]renderer.Framebuffer, 0, layers)
	for i := range layers {
		fb, err := a.device.CreateFramebuffer(renderer.FramebufferDescriptor{
			Label:      a.label + " Slot " + strconv.Itoa(i),
			Color:      normal,
			ColorLayer: uint32(i),
			Depth:      depth,
			DepthLayer: uint32(i),
		})
		if err != nil {
			for _, created := range framebuffers {
				created.Release()
			}
			normal.Release()
			depth.Release()
			return false, fmt.Errorf("%s: slot %d: %w", a.label, i, err)
		}
		framebuffers = append(framebuffers, fb)
	}

	a.Release()
	a.depth, a.normal, a.framebuffers = depth, normal, framebuffers
	return true, nil
}

func (a *shadowMapArray) GetFramebuffer(slot uint32) (renderer.Framebuffer, error) {
	if int(slot) >= len(a.framebuffers) {
		return nil, fmt.Errorf("%s: slot %d, capacity %d: %w", a.label, slot, len(a.framebuffers), ErrSlotOutOfRange)
	}
	return a.framebuffers[slot], nil
}

func (a *shadowMapArray) Capacity() int {
	return len(a.framebuffers)
}

func (a *shadowMapArray) Resolution() uint32 {
	return a.resolution
}

func (a *shadowMapArray) DepthArray() renderer.Texture {
	return a.depth
}

func (a *shadowMapArray) NormalArray() renderer.Texture {
	return a.normal
}

func (a *shadowMapArray) Release() {
	for _, fb := range a.framebuffers {
		fb.Release()
	}
	if a.depth != nil {
		a.depth.Release()
	}
	if a.normal != nil {
		a.normal.Release()
	}
	a.depth, a.normal, a.framebuffers = nil, nil, nil
}
