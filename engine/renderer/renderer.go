package renderer

import (
	"github.com/gogpu/gputypes"
)

// Resource is implemented by every GPU object handed out by a Device.
// Release is idempotent; once released the object must not be bound again.
type Resource interface {
	// Label returns the debug label the resource was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Release frees the GPU memory backing the resource.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once the resource has been released
	Released() bool
}

// TextureDescriptor describes a 2D texture or 2D texture array.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	// Layers is the array layer count. Zero is treated as one.
	Layers uint32
	// Array forces an array view even for a single layer so the texture can be bound
	// to texture_2d_array / texture_depth_2d_array slots.
	Array  bool
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// Texture is a GPU texture created by a Device.
type Texture interface {
	Resource
	Width() uint32
	Height() uint32
	Layers() uint32
	Format() gputypes.TextureFormat
	IsArray() bool
}

// FramebufferDescriptor describes a render target made of an optional color attachment
// and an optional depth attachment, each referencing a single layer of a texture.
type FramebufferDescriptor struct {
	Label      string
	Color      Texture
	ColorLayer uint32
	Depth      Texture
	DepthLayer uint32
}

// Framebuffer is a render target. Releasing a framebuffer releases its attachment views
// but never the textures it references.
type Framebuffer interface {
	Resource
	Width() uint32
	Height() uint32

	// Color returns the color attachment texture, or nil for depth-only targets.
	Color() Texture
	ColorLayer() uint32

	// Depth returns the depth attachment texture, or nil for color-only targets.
	Depth() Texture
	DepthLayer() uint32

	// ColorFormat returns the color attachment format, or TextureFormatUndefined.
	ColorFormat() gputypes.TextureFormat

	// DepthFormat returns the depth attachment format, or TextureFormatUndefined.
	DepthFormat() gputypes.TextureFormat
}

// BufferDescriptor describes a GPU buffer.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// Buffer is a GPU buffer created by a Device.
type Buffer interface {
	Resource
	Size() uint64
}

// SamplerDescriptor describes a texture sampler.
type SamplerDescriptor struct {
	Label string
	// Compare creates a depth comparison sampler (less-than) for shadow lookups.
	Compare bool
	// Nearest selects point filtering instead of linear filtering.
	Nearest bool
}

// Sampler is a GPU sampler created by a Device.
type Sampler interface {
	Resource
	IsComparison() bool
}

// ResourceEntry binds one GPU object to a binding slot of a ResourceSet. Exactly one of
// Buffer, Texture or Sampler is set, matching the layout entry kind.
type ResourceEntry struct {
	Binding uint32
	Buffer  Buffer
	Texture Texture
	Sampler Sampler
}

// ResourceSetDescriptor describes a bound group of GPU resources consumed by shaders.
type ResourceSetDescriptor struct {
	Label   string
	Layout  ResourceLayout
	Entries []ResourceEntry
}

// ResourceSet is an immutable group of bound resources (a WebGPU bind group).
type ResourceSet interface {
	Resource

	// Layout returns the layout the set was built against.
	Layout() ResourceLayout

	// Entry returns the resource bound at the given binding.
	//
	// Parameters:
	//   - binding: the binding slot
	//
	// Returns:
	//   - ResourceEntry: the bound resource
	//   - bool: false if nothing is bound at binding
	Entry(binding uint32) (ResourceEntry, bool)
}

// PipelineDescriptor describes a render pipeline built from a single WGSL module.
type PipelineDescriptor struct {
	Label          string
	Source         string
	VertexEntry    string
	FragmentEntry  string
	Layouts        []ResourceLayout
	ColorFormat    gputypes.TextureFormat
	DepthFormat    gputypes.TextureFormat
	Blend          bool
	DepthWrite     bool
	DepthTest      bool
	CullBackFaces  bool
	DepthBias      int32
	DepthBiasSlope float32
}

// Pipeline is a compiled render pipeline.
type Pipeline interface {
	Resource
	Descriptor() PipelineDescriptor
}

// Device creates GPU resources, records command lists and submits them for execution.
//
// A Device is driven from a single rendering goroutine. Submission is asynchronous from
// the GPU point of view but ordered: command lists execute in submission order.
type Device interface {
	// CreateTexture allocates a 2D texture or texture array.
	//
	// Parameters:
	//   - desc: the texture description
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error wrapping ErrInvalidDescriptor or the backend failure
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateFramebuffer creates a render target over existing textures.
	//
	// Parameters:
	//   - desc: the attachments of the framebuffer
	//
	// Returns:
	//   - Framebuffer: the new framebuffer
	//   - error: an error if an attachment is missing, released or out of range
	CreateFramebuffer(desc FramebufferDescriptor) (Framebuffer, error)

	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - desc: the buffer description
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if allocation fails
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// CreateSampler creates a texture sampler.
	//
	// Parameters:
	//   - desc: the sampler description
	//
	// Returns:
	//   - Sampler: the new sampler
	//   - error: an error if creation fails
	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	// CreateResourceSet binds resources to the slots of a layout.
	//
	// Parameters:
	//   - desc: the layout and the resources to bind
	//
	// Returns:
	//   - ResourceSet: the new resource set
	//   - error: an error wrapping ErrReleasedResource or ErrLayoutMismatch
	CreateResourceSet(desc ResourceSetDescriptor) (ResourceSet, error)

	// CreatePipeline compiles a render pipeline.
	//
	// Parameters:
	//   - desc: the pipeline description
	//
	// Returns:
	//   - Pipeline: the compiled pipeline
	//   - error: an error if shader compilation or pipeline creation fails
	CreatePipeline(desc PipelineDescriptor) (Pipeline, error)

	// WriteBuffer queues a write into buf that completes before the next submitted
	// command list executes.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if buf is released or the write is out of range
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// BeginCommands starts recording a new command list.
	//
	// Parameters:
	//   - label: debug label for the list
	//
	// Returns:
	//   - CommandList: the command list in the recording state
	//   - error: an error if the backend could not create an encoder
	BeginCommands(label string) (CommandList, error)

	// Submit finishes a command list and queues it for execution. The list cannot be
	// used afterwards.
	//
	// Parameters:
	//   - cmd: the command list to submit
	//
	// Returns:
	//   - error: an error if the list has an open pass or was already finished
	Submit(cmd CommandList) error

	// AcquireSurface returns a framebuffer wrapping the display surface image for the
	// current frame. The image stays acquired, and later calls return it, until Present.
	//
	// Returns:
	//   - Framebuffer: the surface framebuffer (color only)
	//   - error: ErrNoSurface for headless devices or the backend failure
	AcquireSurface() (Framebuffer, error)

	// Present displays the acquired surface image. It is a no-op if nothing was acquired.
	Present()

	// SurfaceFormat returns the color format of the display surface.
	//
	// Returns:
	//   - gputypes.TextureFormat: the surface format, or TextureFormatUndefined when headless
	SurfaceFormat() gputypes.TextureFormat

	// Resize reconfigures the display surface.
	//
	// Parameters:
	//   - width, height: the new surface size in pixels
	Resize(width, height int)

	// Release destroys the device and every backend object it owns.
	Release()
}
