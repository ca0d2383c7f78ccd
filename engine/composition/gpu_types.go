package composition

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
)

// Source is the WGSL of both composition passes.
//
//go:embed assets/composition.wgsl
var Source string

// Entry points of Source.
const (
	VertexEntry        = "vs_main"
	SceneFragmentEntry = "fs_scene"
	UIFragmentEntry    = "fs_ui"
)

// Bindings of Layout.
const (
	BindingSceneColor uint32 = iota
	BindingSceneDepth
	BindingTransparentColor
	BindingTransparentDepth
	BindingUIColor
	BindingSampler
)

// Layout is the fixed resource layout of both composition passes. Every binding is always
// populated; absent inputs are replaced by placeholders.
var Layout = renderer.ResourceLayout{
	Label: "Composition",
	Entries: []renderer.LayoutEntry{
		{Binding: BindingSceneColor, Kind: renderer.BindingTexture},
		{Binding: BindingSceneDepth, Kind: renderer.BindingDepthTexture},
		{Binding: BindingTransparentColor, Kind: renderer.BindingTexture},
		{Binding: BindingTransparentDepth, Kind: renderer.BindingDepthTexture},
		{Binding: BindingUIColor, Kind: renderer.BindingTexture},
		{Binding: BindingSampler, Kind: renderer.BindingSampler},
	},
}
