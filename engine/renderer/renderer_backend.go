package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// BackendType identifies the GPU API used by a Device.
type BackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based device.
	BackendTypeWGPU BackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately. May tear.
	PresentModeUncapped
)

var (
	// ErrInvalidDescriptor is returned when a resource description cannot be satisfied.
	ErrInvalidDescriptor = errors.New("renderer: invalid descriptor")

	// ErrReleasedResource is returned when a released resource is used.
	ErrReleasedResource = errors.New("renderer: resource was released")

	// ErrLayoutMismatch is returned when resources do not match the layout they are bound to.
	ErrLayoutMismatch = errors.New("renderer: resource layout mismatch")

	// ErrPassActive is returned when an operation requires no open render pass.
	ErrPassActive = errors.New("renderer: render pass already active")

	// ErrNoActivePass is returned when an operation requires an open render pass.
	ErrNoActivePass = errors.New("renderer: no active render pass")

	// ErrCommandListClosed is returned when a submitted or discarded command list is reused.
	ErrCommandListClosed = errors.New("renderer: command list closed")

	// ErrNoSurface is returned by AcquireSurface on devices without a display surface.
	ErrNoSurface = errors.New("renderer: device has no display surface")

	// ErrOutOfRange is returned when a buffer write exceeds the buffer size.
	ErrOutOfRange = errors.New("renderer: write out of range")
)

func layoutErrorf(l ResourceLayout, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrLayoutMismatch, l.Label, fmt.Sprintf(format, args...))
}

func releasedErrorf(r Resource) error {
	return fmt.Errorf("%w: %q", ErrReleasedResource, r.Label())
}

// CheckLive returns an error wrapping ErrReleasedResource if r is nil or released.
//
// Parameters:
//   - r: the resource to check
//
// Returns:
//   - error: nil if r is usable
func CheckLive(r Resource) error {
	if r == nil {
		return fmt.Errorf("%w: nil resource", ErrReleasedResource)
	}
	if r.Released() {
		return releasedErrorf(r)
	}
	return nil
}

// IsDepthFormat reports whether f is a depth or depth-stencil format.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatDepth16Unorm,
		gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float,
		gputypes.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

// HasStencil reports whether f carries a stencil aspect.
func HasStencil(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatDepth24PlusStencil8 || f == gputypes.TextureFormatDepth32FloatStencil8
}

// ValidateFramebuffer checks a framebuffer description and returns its size.
//
// Parameters:
//   - desc: the attachments to validate
//
// Returns:
//   - uint32, uint32: the framebuffer width and height
//   - error: an error wrapping ErrInvalidDescriptor or ErrReleasedResource
func ValidateFramebuffer(desc FramebufferDescriptor) (uint32, uint32, error) {
	if desc.Color == nil && desc.Depth == nil {
		return 0, 0, fmt.Errorf("%w: framebuffer %q has no attachments", ErrInvalidDescriptor, desc.Label)
	}
	var w, h uint32
	check := func(tex Texture, layer uint32, depth bool) error {
		if tex == nil {
			return nil
		}
		if err := CheckLive(tex); err != nil {
			return err
		}
		if IsDepthFormat(tex.Format()) != depth {
			return fmt.Errorf("%w: framebuffer %q attachment %q has format %v", ErrInvalidDescriptor, desc.Label, tex.Label(), tex.Format())
		}
		if layer >= max(tex.Layers(), 1) {
			return fmt.Errorf("%w: framebuffer %q layer %d out of range for %q", ErrInvalidDescriptor, desc.Label, layer, tex.Label())
		}
		if w != 0 && (tex.Width() != w || tex.Height() != h) {
			return fmt.Errorf("%w: framebuffer %q attachments differ in size", ErrInvalidDescriptor, desc.Label)
		}
		w, h = tex.Width(), tex.Height()
		return nil
	}
	if err := check(desc.Color, desc.ColorLayer, false); err != nil {
		return 0, 0, err
	}
	if err := check(desc.Depth, desc.DepthLayer, true); err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// Compatible reports whether CopyTextureRegion can copy src into dst.
func Compatible(src, dst Framebuffer) bool {
	return src.Width() == dst.Width() && src.Height() == dst.Height() &&
		src.ColorFormat() == dst.ColorFormat() && src.DepthFormat() == dst.DepthFormat()
}
