package renderer

import "github.com/gogpu/gputypes"

// PassOps selects how a render pass treats the existing contents of its framebuffer.
// Attachments that are not cleared are loaded.
type PassOps struct {
	ClearColor   bool
	Color        gputypes.Color
	ClearDepth   bool
	Depth        float32
	ClearStencil bool
	Stencil      uint32
}

// LoadAll returns pass ops that keep every attachment's contents.
func LoadAll() PassOps {
	return PassOps{}
}

// ClearAll returns pass ops that clear color to c, depth to 1 and stencil to 0.
func ClearAll(c gputypes.Color) PassOps {
	return PassOps{ClearColor: true, Color: c, ClearDepth: true, Depth: 1, ClearStencil: true}
}

// CommandList records GPU commands for later submission through Device.Submit.
//
// A command list holds at most one open render pass. Draw state (pipeline, resource
// sets, viewport) is only valid inside a pass.
type CommandList interface {
	// Label returns the debug label of the list.
	Label() string

	// BeginPass opens a render pass on fb.
	//
	// Parameters:
	//   - fb: the render target
	//   - ops: clear or load behavior per attachment
	//
	// Returns:
	//   - error: ErrPassActive if a pass is already open, ErrReleasedResource if fb is released
	BeginPass(fb Framebuffer, ops PassOps) error

	// SetViewport sets the viewport rectangle of the open pass in pixels.
	SetViewport(x, y, width, height float32)

	// SetScissor sets the scissor rectangle of the open pass in pixels.
	SetScissor(x, y, width, height uint32)

	// SetPipeline binds the pipeline used by subsequent draws.
	SetPipeline(p Pipeline)

	// SetResourceSet binds a resource set to the given group index.
	SetResourceSet(group uint32, set ResourceSet)

	// SetVertexBuffer binds a vertex buffer to the given slot.
	SetVertexBuffer(slot uint32, buf Buffer)

	// Draw issues a non-indexed draw.
	//
	// Parameters:
	//   - vertexCount: vertices per instance
	//   - instanceCount: number of instances
	Draw(vertexCount, instanceCount uint32)

	// EndPass closes the open pass.
	//
	// Returns:
	//   - error: ErrNoActivePass if no pass is open
	EndPass() error

	// CopyTextureRegion copies every attachment of src into the matching attachment of
	// dst, layer to layer. Both framebuffers must have the same size and formats.
	//
	// Parameters:
	//   - src: the source framebuffer
	//   - dst: the destination framebuffer
	//
	// Returns:
	//   - error: ErrPassActive inside a pass, ErrLayoutMismatch for incompatible targets
	CopyTextureRegion(src, dst Framebuffer) error

	// WriteBuffer queues a buffer write that is visible to this list's commands.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: byte offset into buf
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if buf is released or the write is out of range
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// Discard abandons the recorded commands, closing any open pass.
	Discard()
}
