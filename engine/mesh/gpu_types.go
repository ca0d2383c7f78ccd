package mesh

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene_render"
)

//go:embed assets/object.wgsl
var objectSource string

//go:embed assets/mesh_lit.wgsl
var litSource string

//go:embed assets/mesh_shadow.wgsl
var shadowSource string

// LitSource is the complete WGSL of the opaque, transparent and UI mesh passes.
var LitSource = scene_render.SceneBindingsSource + "\n" + objectSource + "\n" + litSource

// ShadowSource is the complete WGSL of the shadow mesh pass.
var ShadowSource = light.GPUShadowPassSource + "\n" + objectSource + "\n" + shadowSource

// Entry points of LitSource and ShadowSource.
const (
	VertexEntry         = "vs_main"
	FragmentEntry       = "fs_main"
	ShadowVertexEntry   = "vs_shadow"
	ShadowFragmentEntry = "fs_shadow"
)

// Groups the object set is bound at.
const (
	SceneObjectGroup  uint32 = 1
	ShadowObjectGroup uint32 = 0
)

// Bindings of ObjectLayout.
const (
	BindingObject uint32 = iota
	BindingVertices
)

// ObjectLayout is the per-renderer resource layout: the object uniform and the expanded
// vertex storage buffer.
var ObjectLayout = renderer.ResourceLayout{
	Label: "Mesh Object",
	Entries: []renderer.LayoutEntry{
		{Binding: BindingObject, Kind: renderer.BindingUniformBuffer},
		{Binding: BindingVertices, Kind: renderer.BindingStorageBuffer},
	},
}

// GPUObjectUniformSize is the packed size of GPUObjectUniform.
const GPUObjectUniformSize = 80

// GPUObjectUniform matches the WGSL ObjectUniform struct.
type GPUObjectUniform struct {
	Model common.Mat4
	// Color is linear RGBA, alpha is used by the transparent pass.
	Color [4]float32
}

// Marshal packs the uniform into its WGSL layout.
func (u *GPUObjectUniform) Marshal() []byte {
	buf := make([]byte, GPUObjectUniformSize)
	copy(buf[:64], common.SliceToBytes([]common.Mat4{u.Model}))
	for i, c := range u.Color {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(c))
	}
	return buf
}
