package composition

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/bind_group_provider"
	"github.com/gogpu/gputypes"
)

// ErrNoTarget is returned by Composite without a live target framebuffer.
var ErrNoTarget = errors.New("composition: no target framebuffer")

// Stage selects one of the two composition passes.
type Stage int

const (
	// StageScene merges the opaque and transparent targets of a camera.
	StageScene Stage = iota
	// StageUI merges the scene composite with the UI target.
	StageUI
)

func (s Stage) String() string {
	switch s {
	case StageScene:
		return "scene"
	case StageUI:
		return "ui"
	default:
		return "unknown"
	}
}

func (s Stage) fragmentEntry() string {
	if s == StageUI {
		return UIFragmentEntry
	}
	return SceneFragmentEntry
}

// Inputs are the textures one composition pass reads. Nil or released textures are
// replaced by placeholders. StageScene reads the scene and transparent pairs; StageUI
// reads SceneColor and UIColor.
type Inputs struct {
	SceneColor       renderer.Texture
	SceneDepth       renderer.Texture
	TransparentColor renderer.Texture
	TransparentDepth renderer.Texture
	UIColor          renderer.Texture
}

type pipelineKey struct {
	stage  Stage
	format gputypes.TextureFormat
}

type compositor struct {
	device renderer.Device
	logger *slog.Logger

	placeholderColor renderer.Texture
	placeholderDepth renderer.Texture
	sampler          renderer.Sampler
	pipelines        map[pipelineKey]renderer.Pipeline
}

// Compositor owns what every composition shares: the pipelines per stage and target
// format, the placeholders and the sampler. Per-camera resource sets live in the
// Compositions it creates.
type Compositor interface {
	// NewComposition creates the per-camera composition state.
	//
	// Parameters:
	//   - label: debug label, usually the camera name
	//
	// Returns:
	//   - Composition: the new composition
	NewComposition(label string) Composition

	// Pipeline returns the pipeline of a stage for a target format, creating it once.
	//
	// Parameters:
	//   - stage: the composition stage
	//   - format: the target color format
	//
	// Returns:
	//   - renderer.Pipeline: the pipeline
	//   - error: a creation error
	Pipeline(stage Stage, format gputypes.TextureFormat) (renderer.Pipeline, error)

	// Placeholders returns the 1x1 transparent color and depth textures substituted for
	// absent inputs, creating them on first use.
	Placeholders() (color, depth renderer.Texture, err error)

	// Release releases pipelines, placeholders and the sampler.
	Release()
}

var _ Compositor = &compositor{}

// NewCompositor creates a compositor. GPU objects are created on first use.
//
// Parameters:
//   - device: the device that creates pipelines and placeholders
//   - options: functional options to configure the compositor
//
// Returns:
//   - Compositor: the new compositor
func NewCompositor(device renderer.Device, options ...CompositorBuilderOption) Compositor {
	if device == nil {
		panic("composition: nil device")
	}
	c := &compositor{
		device:    device,
		logger:    common.Logger(),
		pipelines: make(map[pipelineKey]renderer.Pipeline),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *compositor) Pipeline(stage Stage, format gputypes.TextureFormat) (renderer.Pipeline, error) {
	key := pipelineKey{stage: stage, format: format}
	if p, ok := c.pipelines[key]; ok && !p.Released() {
		return p, nil
	}
	p, err := c.device.CreatePipeline(renderer.PipelineDescriptor{
		Label:         "Composition " + stage.String(),
		Source:        Source,
		VertexEntry:   VertexEntry,
		FragmentEntry: stage.fragmentEntry(),
		Layouts:       []renderer.ResourceLayout{Layout},
		ColorFormat:   format,
	})
	if err != nil {
		return nil, fmt.Errorf("composition %s pipeline for %v: %w", stage, format, err)
	}
	c.pipelines[key] = p
	c.logger.Debug("composition pipeline created", "stage", stage, "format", format)
	return p, nil
}

func (c *compositor) Placeholders() (renderer.Texture, renderer.Texture, error) {
	if c.placeholderColor == nil || c.placeholderColor.Released() {
		tex, err := c.device.CreateTexture(renderer.TextureDescriptor{
			Label: "Composition Placeholder Color", Width: 1, Height: 1,
			Format: gputypes.TextureFormatRGBA8Unorm,
			Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("composition placeholder: %w", err)
		}
		c.placeholderColor = tex
	}
	if c.placeholderDepth == nil || c.placeholderDepth.Released() {
		tex, err := c.device.CreateTexture(renderer.TextureDescriptor{
			Label: "Composition Placeholder Depth", Width: 1, Height: 1,
			Format: gputypes.TextureFormatDepth32Float,
			Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("composition placeholder: %w", err)
		}
		c.placeholderDepth = tex
	}
	return c.placeholderColor, c.placeholderDepth, nil
}

func (c *compositor) inputSampler() (renderer.Sampler, error) {
	if c.sampler == nil || c.sampler.Released() {
		s, err := c.device.CreateSampler(renderer.SamplerDescriptor{Label: "Composition"})
		if err != nil {
			return nil, fmt.Errorf("composition sampler: %w", err)
		}
		c.sampler = s
	}
	return c.sampler, nil
}

func (c *compositor) Release() {
	for k, p := range c.pipelines {
		p.Release()
		delete(c.pipelines, k)
	}
	for _, r := range []renderer.Resource{c.placeholderColor, c.placeholderDepth, c.sampler} {
		if r != nil {
			r.Release()
		}
	}
	c.placeholderColor, c.placeholderDepth, c.sampler = nil, nil, nil
}

func (c *compositor) NewComposition(label string) Composition {
	return &composition{
		compositor: c,
		label:      label,
		providers: [...]bind_group_provider.BindGroupProvider{
			StageScene: bind_group_provider.NewBindGroupProvider(label+" Scene Composition", Layout),
			StageUI:    bind_group_provider.NewBindGroupProvider(label+" UI Composition", Layout),
		},
	}
}

type composition struct {
	compositor *compositor
	label      string
	providers  [2]bind_group_provider.BindGroupProvider
}

// Composition is the per-camera state of the two composition passes: one resource set per
// stage, rebuilt only when an input texture identity changes or the cached set was
// released.
type Composition interface {
	// Composite records one full-screen pass merging the inputs into target.
	//
	// Parameters:
	//   - cmd: the command list; no pass may be active
	//   - stage: the composition stage
	//   - in: the input textures
	//   - target: the framebuffer to write
	//
	// Returns:
	//   - error: ErrNoTarget, or a resource or recording error
	Composite(cmd renderer.CommandList, stage Stage, in Inputs, target renderer.Framebuffer) error

	// ResourceSet returns the cached set of a stage, or nil.
	ResourceSet(stage Stage) renderer.ResourceSet

	// Rebuilds returns how many times the set of a stage was built.
	Rebuilds(stage Stage) int

	// Release releases the cached sets.
	Release()
}

var _ Composition = &composition{}

func orPlaceholder(tex, placeholder renderer.Texture) renderer.Texture {
	if tex == nil || tex.Released() {
		return placeholder
	}
	return tex
}

func (c *composition) Composite(cmd renderer.CommandList, stage Stage, in Inputs, target renderer.Framebuffer) error {
	if target == nil || target.Released() {
		return fmt.Errorf("%s %s composition: %w", c.label, stage, ErrNoTarget)
	}
	color, depth, err := c.compositor.Placeholders()
	if err != nil {
		return err
	}
	sampler, err := c.compositor.inputSampler()
	if err != nil {
		return err
	}
	pipeline, err := c.compositor.Pipeline(stage, target.ColorFormat())
	if err != nil {
		return err
	}

	p := c.providers[stage]
	p.SetTexture(BindingSceneColor, orPlaceholder(in.SceneColor, color))
	p.SetTexture(BindingSceneDepth, orPlaceholder(in.SceneDepth, depth))
	p.SetTexture(BindingTransparentColor, orPlaceholder(in.TransparentColor, color))
	p.SetTexture(BindingTransparentDepth, orPlaceholder(in.TransparentDepth, depth))
	p.SetTexture(BindingUIColor, orPlaceholder(in.UIColor, color))
	p.SetSampler(BindingSampler, sampler)
	set, rebuilt, err := p.Ensure(c.compositor.device, 0)
	if err != nil {
		return err
	}
	if rebuilt {
		c.compositor.logger.Debug("composition set rebuilt", "camera", c.label, "stage", stage, "rebuilds", p.Rebuilds())
	}

	if err := cmd.BeginPass(target, renderer.PassOps{ClearColor: true}); err != nil {
		return fmt.Errorf("%s %s composition: %w", c.label, stage, err)
	}
	cmd.SetViewport(0, 0, float32(target.Width()), float32(target.Height()))
	cmd.SetScissor(0, 0, target.Width(), target.Height())
	cmd.SetPipeline(pipeline)
	cmd.SetResourceSet(0, set)
	cmd.Draw(3, 1)
	return cmd.EndPass()
}

func (c *composition) ResourceSet(stage Stage) renderer.ResourceSet {
	return c.providers[stage].BindGroup()
}

func (c *composition) Rebuilds(stage Stage) int {
	return c.providers[stage].Rebuilds()
}

func (c *composition) Release() {
	for _, p := range c.providers {
		p.Release()
	}
}
