// Package scenetest provides scene collaborators for tests: a recording Renderer and a
// list-backed SpatialIndex.
package scenetest

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
)

// Renderer records every call made to it.
type Renderer struct {
	mu sync.Mutex

	RendererName string
	Mode         scene.RenderMode
	Mask         uint32
	Disabled     bool
	Box          common.AABB

	// FailDraw and FailShadow make the calls report failure.
	FailDraw   bool
	FailShadow bool
	// PanicDraw panics inside Draw with its value when non-nil.
	PanicDraw any

	// OnDraw runs inside Draw before it returns.
	OnDraw func(ctx *scene.Context, pass *scene.PassContext)

	draws   []scene.PassContext
	shadows []scene.PassContext
}

var _ scene.Renderer = &Renderer{}

// NewRenderer returns an enabled renderer on every layer with bounds around the origin.
func NewRenderer(name string, mode scene.RenderMode) *Renderer {
	return &Renderer{
		RendererName: name,
		Mode:         mode,
		Mask:         ^uint32(0),
		Box:          common.AABB{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}},
	}
}

// At moves the bounds to a unit box centered on p.
func (r *Renderer) At(p common.Vec3) *Renderer {
	r.Box = common.AABB{Min: p.Sub(common.Vec3{1, 1, 1}), Max: p.Add(common.Vec3{1, 1, 1})}
	return r
}

func (r *Renderer) Name() string                 { return r.RendererName }
func (r *Renderer) Enabled() bool                { return !r.Disabled }
func (r *Renderer) LayerMask() uint32            { return r.Mask }
func (r *Renderer) RenderMode() scene.RenderMode { return r.Mode }
func (r *Renderer) Bounds() common.AABB          { return r.Box }

func (r *Renderer) Draw(ctx *scene.Context, pass *scene.PassContext) bool {
	if r.PanicDraw != nil {
		panic(r.PanicDraw)
	}
	r.mu.Lock()
	r.draws = append(r.draws, *pass)
	r.mu.Unlock()
	if r.OnDraw != nil {
		r.OnDraw(ctx, pass)
	}
	return !r.FailDraw
}

func (r *Renderer) DrawShadowMap(_ *scene.Context, pass *scene.PassContext) bool {
	r.mu.Lock()
	r.shadows = append(r.shadows, *pass)
	r.mu.Unlock()
	return !r.FailShadow
}

// Draws returns copies of the pass contexts passed to Draw.
func (r *Renderer) Draws() []scene.PassContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scene.PassContext(nil), r.draws...)
}

// DrawsIn counts Draw calls for one pass kind.
func (r *Renderer) DrawsIn(kind scene.PassKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.draws {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// ShadowDraws returns copies of the pass contexts passed to DrawShadowMap.
func (r *Renderer) ShadowDraws() []scene.PassContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scene.PassContext(nil), r.shadows...)
}

// Reset forgets recorded calls.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws, r.shadows = nil, nil
}

// Index is a SpatialIndex over a fixed list that counts its queries.
type Index struct {
	Items   []scene.Renderer
	Queries []common.AABB
}

var _ scene.SpatialIndex = &Index{}

func (x *Index) GetObjectsInBounds(b common.AABB) []scene.Renderer {
	x.Queries = append(x.Queries, b)
	var out []scene.Renderer
	for _, r := range x.Items {
		if r.Bounds().Intersects(b) {
			out = append(out, r)
		}
	}
	return out
}
