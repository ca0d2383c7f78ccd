package shadow

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/gogpu/gputypes"
)

var (
	// ErrNilContext is returned by Render without a frame context or snapshot.
	ErrNilContext = errors.New("shadow: nil scene context or objects")

	// ErrShadowDraw is returned when a light's shadow maps could not be produced.
	ErrShadowDraw = errors.New("shadow: light shadow render failed")
)

// ShadowPassGroup is the resource set group the cascade constants are bound at.
const ShadowPassGroup uint32 = 1

// matrixSize is the byte size of one slot in the matrix buffer.
const matrixSize = 64

// ShadowAction is the per-frame decision for one shadow-mapped light.
type ShadowAction int

const (
	// ShadowSkip renders nothing for the light.
	ShadowSkip ShadowAction = iota
	// ShadowReuseCache copies the light's cached maps into its slots without drawing.
	ShadowReuseCache
	// ShadowRedraw recomputes the cascade matrices and draws every caster.
	ShadowRedraw
)

func (a ShadowAction) String() string {
	switch a {
	case ShadowSkip:
		return "skip"
	case ShadowReuseCache:
		return "reuse-cache"
	case ShadowRedraw:
		return "redraw"
	default:
		return "unknown"
	}
}

// DecideAction returns what the orchestrator does with a shadow-mapped light this frame.
// Static lights with a clean cache are copied; every other caster is redrawn.
func DecideAction(l light.Light) ShadowAction {
	if !l.CastsShadows() || l.ShadowRenders() == 0 {
		return ShadowSkip
	}
	if l.Static() && l.HasShadowCache() && !l.StaticDirty().Frame.IsDirty() {
		return ShadowReuseCache
	}
	return ShadowRedraw
}

// ShadowStats summarizes one Render call.
type ShadowStats struct {
	Lights      int
	Slots       int
	Redrawn     int
	Reused      int
	Skipped     int
	Failed      int
	Passes      int
	DrawCalls   int
	FailedDraws int
	Copies      int
	Resized     bool
}

type shadowMaps struct {
	device     renderer.Device
	logger     *slog.Logger
	resolution uint32

	array       ShadowMapArray
	matrices    renderer.Buffer
	matrixSlots int
	sampler     renderer.Sampler
	version     uint64
	staging     []common.Mat4
}

// ShadowMaps renders the shadow maps of every shadow-mapped light of a frame into the
// shared ShadowMapArray and uploads one world to light clip matrix per slot.
//
// Each light gets a contiguous run of slots, one per cascade render, in snapshot order.
// Whenever the array or the matrix buffer is replaced the resource version increments;
// resource sets built against an older version must be rebuilt before the next scene pass.
type ShadowMaps interface {
	// Render assigns slots, grows resources and records and submits the shadow passes of
	// the frame. It fills the shadow fields of ctx. The submission happens before Render
	// returns, so scene passes submitted afterwards see the maps.
	//
	// Parameters:
	//   - ctx: the frame context
	//   - objs: the frame snapshot
	//
	// Returns:
	//   - ShadowStats: what was rendered
	//   - error: resource failures and lights that could not be rendered, joined
	Render(ctx *scene.Context, objs *scene.Objects) (ShadowStats, error)

	// ResourceVersion returns the current shadow resource version.
	ResourceVersion() uint64

	// Array returns the shared shadow map array.
	Array() ShadowMapArray

	// MatrixBuffer returns the per-slot matrix storage buffer, nil before the first Render.
	MatrixBuffer() renderer.Buffer

	// Sampler returns the comparison sampler for the depth array, nil before the first Render.
	Sampler() renderer.Sampler

	// Resolution returns the shadow map resolution.
	Resolution() uint32

	// Release releases the shared resources. Light cascades are owned by the lights.
	Release()
}

var _ ShadowMaps = &shadowMaps{}

// NewShadowMaps creates a shadow map orchestrator.
//
// Parameters:
//   - device: the device that creates shared resources and records passes
//   - options: functional options to configure the orchestrator
//
// Returns:
//   - ShadowMaps: the new orchestrator
func NewShadowMaps(device renderer.Device, options ...ShadowMapsBuilderOption) ShadowMaps {
	if device == nil {
		panic("shadow: nil device")
	}
	s := &shadowMaps{
		device:     device,
		logger:     common.Logger(),
		resolution: light.ShadowMapResolution,
	}
	for _, option := range options {
		option(s)
	}
	s.array = NewShadowMapArray(device, "Shadow Maps", s.resolution)
	return s
}

func (s *shadowMaps) ResourceVersion() uint64 {
	return s.version
}

func (s *shadowMaps) Array() ShadowMapArray {
	return s.array
}

func (s *shadowMaps) MatrixBuffer() renderer.Buffer {
	return s.matrices
}

func (s *shadowMaps) Sampler() renderer.Sampler {
	return s.sampler
}

func (s *shadowMaps) Resolution() uint32 {
	return s.resolution
}

func (s *shadowMaps) Release() {
	s.array.Release()
	if s.matrices != nil {
		s.matrices.Release()
		s.matrices = nil
	}
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
	s.matrixSlots = 0
}

// assignSlots gives each shadow-mapped light its run of slots and frees the slots of
// every other light of the frame. Returns the total slot demand.
func assignSlots(objs *scene.Objects) int {
	for _, l := range objs.OtherLights {
		if l.ShadowMapped() {
			l.ClearShadowSlot()
		}
	}
	demand := 0
	for _, l := range objs.ShadowLights {
		l.AssignShadowSlot(uint32(demand))
		demand += l.ShadowRenders()
	}
	return demand
}

// prepare grows the shared resources for demand slots.
func (s *shadowMaps) prepare(demand int) (bool, error) {
	resized, err := s.array.Prepare(max(demand, 1))
	if err != nil {
		return false, err
	}
	if resized {
		s.version++
	}

	if s.matrices == nil || s.matrices.Released() || demand > s.matrixSlots {
		slots := max(demand, s.matrixSlots, 1)
		buf, err := s.device.CreateBuffer(renderer.BufferDescriptor{
			Label: "Shadow Matrices",
			Size:  uint64(slots * matrixSize),
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return resized, fmt.Errorf("shadow matrices for %d slots: %w", slots, err)
		}
		if s.matrices != nil {
			s.matrices.Release()
		}
		s.matrices, s.matrixSlots = buf, slots
		s.version++
		resized = true
	}

	if s.sampler == nil || s.sampler.Released() {
		sampler, err := s.device.CreateSampler(renderer.SamplerDescriptor{Label: "Shadow Comparison", Compare: true})
		if err != nil {
			return resized, fmt.Errorf("shadow sampler: %w", err)
		}
		s.sampler = sampler
		s.version++
		resized = true
	}
	return resized, nil
}

func (s *shadowMaps) Render(ctx *scene.Context, objs *scene.Objects) (stats ShadowStats, err error) {
	if ctx == nil || objs == nil {
		return stats, ErrNilContext
	}
	demand := assignSlots(objs)
	stats.Lights, stats.Slots = len(objs.ShadowLights), demand

	stats.Resized, err = s.prepare(demand)
	if err != nil {
		s.logger.Error("shadow resources", "slots", demand, "error", err)
		clearSlots(objs)
		return stats, err
	}
	ctx.ShadowDepth = s.array.DepthArray()
	ctx.ShadowNormal = s.array.NormalArray()
	ctx.ShadowMatrices = s.matrices
	ctx.ShadowSampler = s.sampler
	ctx.ResourceVersion = s.version
	if stats.Resized {
		s.logger.Debug("shadow resources grown", "slots", s.array.Capacity(), "version", s.version)
	}

	cmd, err := s.device.BeginCommands("Shadow Maps")
	if err != nil {
		s.logger.Error("shadow commands", "error", err)
		clearSlots(objs)
		return stats, fmt.Errorf("shadow commands: %w", err)
	}

	s.staging = s.staging[:0]
	for range max(demand, 1) {
		s.staging = append(s.staging, common.Identity())
	}

	focal := common.Vec3{}
	if !objs.Bounds.IsEmpty() {
		focal = objs.Bounds.Center()
	}
	radius := light.DefaultShadowSceneRadius
	if ctx.Scene != nil {
		radius = ctx.Scene.ShadowRadius()
	}

	var errs []error
	for _, l := range objs.ShadowLights {
		if lerr := s.renderLight(ctx, objs, cmd, l, focal, radius, &stats); lerr != nil {
			stats.Failed++
			l.ClearShadowSlot()
			s.logger.Warn("shadow render failed", "light", l.Name(), "error", lerr)
			errs = append(errs, fmt.Errorf("light %q: %w: %w", l.Name(), ErrShadowDraw, lerr))
			continue
		}
		for i, c := range l.ShadowCascades() {
			s.staging[int(l.ShadowSlot())+i] = c.Matrix
		}
	}

	if werr := cmd.WriteBuffer(s.matrices, 0, common.SliceToBytes(s.staging)); werr != nil {
		errs = append(errs, fmt.Errorf("shadow matrices upload: %w", werr))
	}
	if serr := s.device.Submit(cmd); serr != nil {
		cmd.Discard()
		clearSlots(objs)
		errs = append(errs, fmt.Errorf("shadow submit: %w", serr))
	}
	s.logger.Debug("shadow maps rendered",
		"frame", ctx.Frame, "lights", stats.Lights, "slots", stats.Slots,
		"redrawn", stats.Redrawn, "reused", stats.Reused, "draws", stats.DrawCalls)
	return stats, errors.Join(errs...)
}

// clearSlots drops the slots of every shadow light so none is packed as shadow mapped
// against layers that were not rendered this frame.
func clearSlots(objs *scene.Objects) {
	for _, l := range objs.ShadowLights {
		l.ClearShadowSlot()
	}
}

// renderLight records the passes of one light. A panic from a renderer is turned into an
// error after closing the open pass so the remaining lights still render.
func (s *shadowMaps) renderLight(ctx *scene.Context, objs *scene.Objects, cmd renderer.CommandList, l light.Light, focal common.Vec3, radius float32, stats *ShadowStats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			_ = cmd.EndPass()
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if _, err := l.PrepareCascades(s.device, s.resolution); err != nil {
		return err
	}

	switch DecideAction(l) {
	case ShadowSkip:
		stats.Skipped++
		return nil
	case ShadowReuseCache:
		for i, c := range l.ShadowCascades() {
			dst, err := s.array.GetFramebuffer(l.ShadowSlot() + uint32(i))
			if err != nil {
				return err
			}
			if err := cmd.CopyTextureRegion(c.Framebuffer, dst); err != nil {
				return err
			}
			stats.Copies++
		}
		stats.Reused++
		return nil
	}

	for i, c := range l.ShadowCascades() {
		slot := l.ShadowSlot() + uint32(i)
		dst, err := s.array.GetFramebuffer(slot)
		if err != nil {
			return err
		}
		// static lights draw into their cache and copy it over
		target := dst
		if c.Framebuffer != nil {
			target = c.Framebuffer
		}

		m, err := l.RecalculateShadowProjectionMatrix(focal, radius, i)
		if err != nil {
			return err
		}
		settings := l.ShadowSettings()
		constants := light.GPUShadowPass{
			LightVP:    m,
			DepthBias:  settings.DepthBias,
			NormalBias: settings.NormalBias,
			Slot:       slot,
			Cascade:    uint32(i),
		}
		if err := cmd.WriteBuffer(c.Constants, 0, constants.Marshal()); err != nil {
			return err
		}
		set, _, err := c.Provider.Ensure(s.device, s.version)
		if err != nil {
			return err
		}

		if err := cmd.BeginPass(target, renderer.PassOps{ClearColor: true, ClearDepth: true, Depth: 1}); err != nil {
			return err
		}
		cmd.SetViewport(0, 0, float32(s.resolution), float32(s.resolution))
		cmd.SetScissor(0, 0, s.resolution, s.resolution)
		cmd.SetResourceSet(ShadowPassGroup, set)

		pass := &scene.PassContext{
			Kind:           scene.PassShadow,
			Frame:          ctx.Frame,
			PassIndex:      stats.Passes,
			Commands:       cmd,
			ResourceSet:    set,
			Light:          l,
			Cascade:        i,
			Slot:           slot,
			View:           common.Identity(),
			Projection:     m,
			ViewProjection: m,
			Width:          s.resolution,
			Height:         s.resolution,
			ColorFormat:    light.ShadowNormalFormat,
			DepthFormat:    light.ShadowDepthFormat,
		}
		for _, r := range objs.ShadowCasters {
			if !pass.Accepts(r.LayerMask()) || !l.CheckIsRendererInRange(r.Bounds()) {
				continue
			}
			stats.DrawCalls++
			if !r.DrawShadowMap(ctx, pass) {
				stats.FailedDraws++
				s.logger.Warn("shadow draw failed", "light", l.Name(), "cascade", i, "renderer", r.Name())
			}
		}
		stats.Passes++
		if err := cmd.EndPass(); err != nil {
			return err
		}

		if target != dst {
			if err := cmd.CopyTextureRegion(target, dst); err != nil {
				return err
			}
			stats.Copies++
		}
	}
	l.ClearFrameDirty()
	stats.Redrawn++
	return nil
}
