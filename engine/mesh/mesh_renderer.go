package mesh

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/loader"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/gogpu/gputypes"
)

// ErrEmptyMesh is returned by NewMeshRenderer for a mesh without triangles.
var ErrEmptyMesh = errors.New("mesh: empty mesh")

type meshRenderer struct {
	mu sync.Mutex

	name      string
	mesh      *loader.Mesh
	pipelines Pipelines
	logger    *slog.Logger

	mode      scene.RenderMode
	layerMask uint32
	enabled   bool
	transform common.Transform
	color     [4]float32
	bounds    common.AABB

	// uniformDirty is set when the transform or color changed since the last upload.
	uniformDirty bool
	vertices     renderer.Buffer
	uniform      renderer.Buffer
	provider     bind_group_provider.BindGroupProvider
}

// MeshRenderer draws a loaded mesh with forward lighting in the pass matching its render
// mode, and into the shadow maps of every light that reaches it unless it is a UI mesh.
type MeshRenderer interface {
	scene.Renderer

	// Mesh returns the drawn geometry.
	Mesh() *loader.Mesh

	// Transform returns the mesh to world transform.
	Transform() common.Transform

	// SetTransform moves the mesh and recomputes its world bounds.
	SetTransform(t common.Transform)

	// SetColor sets the linear RGBA base color.
	SetColor(r, g, b, a float32)

	// SetEnabled enables or disables drawing.
	SetEnabled(enabled bool)

	// Release releases the GPU buffers. The renderer recreates them on its next draw.
	Release()
}

var _ MeshRenderer = &meshRenderer{}

// NewMeshRenderer creates a renderer for mesh. GPU buffers are created on the first draw.
//
// Parameters:
//   - name: the renderer name used in logs and resource labels
//   - mesh: the geometry
//   - pipelines: the shared pipeline cache
//   - options: functional options to configure the renderer
//
// Returns:
//   - MeshRenderer: the renderer
//   - error: ErrEmptyMesh
func NewMeshRenderer(name string, mesh *loader.Mesh, pipelines Pipelines, options ...MeshRendererBuilderOption) (MeshRenderer, error) {
	if mesh == nil || mesh.VertexCount() == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyMesh)
	}
	m := &meshRenderer{
		name:         name,
		mesh:         mesh,
		pipelines:    pipelines,
		logger:       common.Logger(),
		layerMask:    ^uint32(0),
		enabled:      true,
		transform:    common.NewTransform(),
		color:        [4]float32{0.8, 0.8, 0.8, 1},
		uniformDirty: true,
	}
	for _, opt := range options {
		opt(m)
	}
	m.bounds = worldBounds(mesh.Bounds, m.transform.Matrix())
	return m, nil
}

// worldBounds returns the box enclosing the eight transformed corners of b.
func worldBounds(b common.AABB, m common.Mat4) common.AABB {
	corners := make([]common.Vec3, 0, 8)
	for i := range 8 {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		corners = append(corners, m.TransformPoint(c))
	}
	return common.AABBFromPoints(corners...)
}

func (m *meshRenderer) Name() string                 { return m.name }
func (m *meshRenderer) RenderMode() scene.RenderMode { return m.mode }
func (m *meshRenderer) LayerMask() uint32            { return m.layerMask }
func (m *meshRenderer) Mesh() *loader.Mesh           { return m.mesh }

func (m *meshRenderer) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *meshRenderer) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

func (m *meshRenderer) Bounds() common.AABB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

func (m *meshRenderer) Transform() common.Transform {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transform
}

func (m *meshRenderer) SetTransform(t common.Transform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transform = t
	m.bounds = worldBounds(m.mesh.Bounds, t.Matrix())
	m.uniformDirty = true
}

func (m *meshRenderer) SetColor(r, g, b, a float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.color = [4]float32{r, g, b, a}
	m.uniformDirty = true
}

func (m *meshRenderer) Draw(ctx *scene.Context, pass *scene.PassContext) bool {
	return m.record(ctx, pass, SceneObjectGroup)
}

func (m *meshRenderer) DrawShadowMap(ctx *scene.Context, pass *scene.PassContext) bool {
	return m.record(ctx, pass, ShadowObjectGroup)
}

// record binds the object set at group and draws the expanded triangles.
func (m *meshRenderer) record(ctx *scene.Context, pass *scene.PassContext, group uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, err := m.prepare(ctx.Device)
	if err != nil {
		m.logger.Warn("mesh resources", "renderer", m.name, "error", err)
		return false
	}
	pl, err := m.pipelines.Get(pass)
	if err != nil {
		m.logger.Warn("mesh pipeline", "renderer", m.name, "pass", pass.Kind, "error", err)
		return false
	}

	cmd := pass.Commands
	cmd.SetPipeline(pl)
	cmd.SetResourceSet(group, set)
	cmd.Draw(uint32(m.mesh.VertexCount()), 1)
	return true
}

// prepare creates the buffers on first use, uploads a dirty uniform and returns the
// current object set.
func (m *meshRenderer) prepare(device renderer.Device) (renderer.ResourceSet, error) {
	if m.vertices == nil || m.vertices.Released() {
		data := m.mesh.VertexData()
		buf, err := device.CreateBuffer(renderer.BufferDescriptor{
			Label: m.name + " Vertices",
			Size:  uint64(len(data)),
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		if err := device.WriteBuffer(buf, 0, data); err != nil {
			buf.Release()
			return nil, err
		}
		m.vertices = buf
	}
	if m.uniform == nil || m.uniform.Released() {
		buf, err := device.CreateBuffer(renderer.BufferDescriptor{
			Label: m.name + " Object",
			Size:  GPUObjectUniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		m.uniform = buf
		m.uniformDirty = true
	}
	if m.uniformDirty {
		u := GPUObjectUniform{Model: m.transform.Matrix(), Color: m.color}
		if err := device.WriteBuffer(m.uniform, 0, u.Marshal()); err != nil {
			return nil, err
		}
		m.uniformDirty = false
	}

	if m.provider == nil {
		m.provider = bind_group_provider.NewBindGroupProvider(m.name+" Object", ObjectLayout)
	}
	m.provider.SetBuffer(BindingObject, m.uniform)
	m.provider.SetBuffer(BindingVertices, m.vertices)
	set, _, err := m.provider.Ensure(device, 0)
	return set, err
}

func (m *meshRenderer) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.provider != nil {
		m.provider.Release()
	}
	if m.vertices != nil {
		m.vertices.Release()
	}
	if m.uniform != nil {
		m.uniform.Release()
	}
	m.vertices, m.uniform = nil, nil
}
