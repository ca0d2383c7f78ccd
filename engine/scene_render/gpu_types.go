package scene_render

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
)

//go:embed assets/scene_bindings.wgsl
var sceneBindings string

// SceneBindingsSource is the WGSL prelude of every scene pass shader: the camera, light
// and shadow structs and the CameraLayout declarations at CameraGroup.
var SceneBindingsSource = camera.GPUCameraUniformSource + "\n" +
	light.GPULightSource + "\n" +
	light.GPULightHeaderSource + "\n" +
	sceneBindings

// CameraGroup is the resource set group the camera set is bound at in scene passes.
const CameraGroup uint32 = 0

// Bindings of CameraLayout.
const (
	BindingCamera uint32 = iota
	BindingLights
	BindingShadowDepth
	BindingShadowNormal
	BindingShadowMatrices
	BindingShadowSampler
)

// CameraLayout is the per-camera resource layout of the opaque, transparent and UI passes.
var CameraLayout = renderer.ResourceLayout{
	Label: "Camera",
	Entries: []renderer.LayoutEntry{
		{Binding: BindingCamera, Kind: renderer.BindingUniformBuffer},
		{Binding: BindingLights, Kind: renderer.BindingStorageBuffer},
		{Binding: BindingShadowDepth, Kind: renderer.BindingDepthTextureArray},
		{Binding: BindingShadowNormal, Kind: renderer.BindingTextureArray},
		{Binding: BindingShadowMatrices, Kind: renderer.BindingStorageBuffer},
		{Binding: BindingShadowSampler, Kind: renderer.BindingComparisonSampler},
	},
}
