package scene_render

import (
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
)

// PostStage selects where a post processor runs in a camera's frame.
type PostStage int

const (
	// PostScene runs after the scene composite, before the UI is merged in.
	PostScene PostStage = iota
	// PostUI runs after the UI composite.
	PostUI
)

func (s PostStage) String() string {
	switch s {
	case PostScene:
		return "scene"
	case PostUI:
		return "ui"
	default:
		return "unknown"
	}
}

// PostContext is handed to a PostProcessor for one camera. No render pass is active on
// Commands when Process is called, and none may be left active when it returns.
type PostContext struct {
	Stage    PostStage
	Commands renderer.CommandList
	Camera   camera.Camera
	// Source holds the image produced by the previous step.
	Source renderer.Framebuffer
	// Target receives the processed image. It is the display surface when this is the
	// main camera's last step.
	Target renderer.Framebuffer
}

// PostProcessor is a full-image effect applied to a camera's output.
type PostProcessor interface {
	// Name identifies the processor in logs.
	Name() string

	// Process records the passes reading post.Source and writing post.Target.
	//
	// Parameters:
	//   - ctx: the frame context
	//   - post: the images and command list of this step
	//
	// Returns:
	//   - error: aborts the camera's frame
	Process(ctx *scene.Context, post *PostContext) error
}
