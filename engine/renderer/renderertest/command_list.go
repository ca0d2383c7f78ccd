package renderertest

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
)

// Op identifies a recorded command.
type Op int

const (
	OpBeginPass Op = iota
	OpEndPass
	OpSetViewport
	OpSetScissor
	OpSetPipeline
	OpSetResourceSet
	OpSetVertexBuffer
	OpDraw
	OpCopy
	OpWriteBuffer
)

func (o Op) String() string {
	return [...]string{
		"begin-pass", "end-pass", "viewport", "scissor", "pipeline",
		"resource-set", "vertex-buffer", "draw", "copy", "write-buffer",
	}[o]
}

// Command is one recorded command.
type Command struct {
	Op       Op
	List     string
	Target   renderer.Framebuffer
	Source   renderer.Framebuffer
	PassOps  renderer.PassOps
	Pipeline renderer.Pipeline
	Set      renderer.ResourceSet
	Group    uint32
	Buffer   renderer.Buffer
	Offset   uint64
	Data     []byte
	Vertices uint32
	Instance uint32
	Rect     [4]float32
}

// CommandList records commands in memory.
type CommandList struct {
	device   *Device
	label    string
	pass     renderer.Framebuffer
	closed   bool
	Commands []Command
	// Discarded is set when the list was abandoned instead of submitted.
	Discarded bool
}

var _ renderer.CommandList = &CommandList{}

func (c *CommandList) Label() string { return c.label }

func (c *CommandList) record(cmd Command) {
	cmd.List = c.label
	c.Commands = append(c.Commands, cmd)
}

func (c *CommandList) BeginPass(fb renderer.Framebuffer, ops renderer.PassOps) error {
	if c.closed {
		return fmt.Errorf("%w: %q", renderer.ErrCommandListClosed, c.label)
	}
	if c.pass != nil {
		return fmt.Errorf("%w: begin %q", renderer.ErrPassActive, fb.Label())
	}
	if err := renderer.CheckLive(fb); err != nil {
		return err
	}
	c.pass = fb
	c.record(Command{Op: OpBeginPass, Target: fb, PassOps: ops})
	return nil
}

func (c *CommandList) SetViewport(x, y, width, height float32) {
	c.record(Command{Op: OpSetViewport, Rect: [4]float32{x, y, width, height}})
}

func (c *CommandList) SetScissor(x, y, width, height uint32) {
	c.record(Command{Op: OpSetScissor, Rect: [4]float32{float32(x), float32(y), float32(width), float32(height)}})
}

func (c *CommandList) SetPipeline(p renderer.Pipeline) {
	c.record(Command{Op: OpSetPipeline, Pipeline: p})
}

func (c *CommandList) SetResourceSet(group uint32, set renderer.ResourceSet) {
	c.record(Command{Op: OpSetResourceSet, Group: group, Set: set})
}

func (c *CommandList) SetVertexBuffer(slot uint32, buf renderer.Buffer) {
	c.record(Command{Op: OpSetVertexBuffer, Group: slot, Buffer: buf})
}

func (c *CommandList) Draw(vertexCount, instanceCount uint32) {
	c.record(Command{Op: OpDraw, Target: c.pass, Vertices: vertexCount, Instance: instanceCount})
}

func (c *CommandList) EndPass() error {
	if c.pass == nil {
		return renderer.ErrNoActivePass
	}
	c.record(Command{Op: OpEndPass, Target: c.pass})
	c.pass = nil
	return nil
}

func (c *CommandList) CopyTextureRegion(src, dst renderer.Framebuffer) error {
	if c.closed {
		return fmt.Errorf("%w: %q", renderer.ErrCommandListClosed, c.label)
	}
	if c.pass != nil {
		return fmt.Errorf("%w: copy %q", renderer.ErrPassActive, src.Label())
	}
	if err := errors.Join(renderer.CheckLive(src), renderer.CheckLive(dst)); err != nil {
		return err
	}
	if !renderer.Compatible(src, dst) {
		return fmt.Errorf("%w: copy %q -> %q", renderer.ErrLayoutMismatch, src.Label(), dst.Label())
	}
	c.record(Command{Op: OpCopy, Source: src, Target: dst})
	return nil
}

func (c *CommandList) WriteBuffer(buf renderer.Buffer, offset uint64, data []byte) error {
	if c.closed {
		return fmt.Errorf("%w: %q", renderer.ErrCommandListClosed, c.label)
	}
	if err := c.device.WriteBuffer(buf, offset, data); err != nil {
		return err
	}
	c.record(Command{Op: OpWriteBuffer, Buffer: buf, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (c *CommandList) Discard() {
	c.pass = nil
	c.closed = true
	c.Discarded = true
}

// Count returns how many recorded commands have the given op.
func (c *CommandList) Count(op Op) int {
	n := 0
	for _, cmd := range c.Commands {
		if cmd.Op == op {
			n++
		}
	}
	return n
}

// InPass reports whether a pass is open.
func (c *CommandList) InPass() bool {
	return c.pass != nil
}
