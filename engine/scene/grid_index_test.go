package scene_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene/scenetest"
)

func box(lo, hi common.Vec3) common.AABB {
	return common.AABB{Min: lo, Max: hi}
}

func contains(list []scene.Renderer, r scene.Renderer) bool {
	for _, o := range list {
		if o == r {
			return true
		}
	}
	return false
}

func TestGridIndexQueries(t *testing.T) {
	idx := scene.NewGridIndex(4)
	near := scenetest.NewRenderer("near", scene.RenderModeOpaque).At(common.Vec3{1, 1, 1})
	far := scenetest.NewRenderer("far", scene.RenderModeOpaque).At(common.Vec3{100, 0, 0})
	huge := scenetest.NewRenderer("huge", scene.RenderModeOpaque)
	huge.Box = box(common.Vec3{-500, -500, -500}, common.Vec3{500, 500, 500})
	for _, r := range []*scenetest.Renderer{near, far, huge} {
		idx.Insert(r)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", idx.Len())
	}

	tests := []struct {
		name  string
		query common.AABB
		want  []*scenetest.Renderer
		not   []*scenetest.Renderer
	}{
		{"origin", box(common.Vec3{-2, -2, -2}, common.Vec3{2, 2, 2}), []*scenetest.Renderer{near, huge}, []*scenetest.Renderer{far}},
		{"far", box(common.Vec3{98, -2, -2}, common.Vec3{102, 2, 2}), []*scenetest.Renderer{far, huge}, []*scenetest.Renderer{near}},
		{"wide", box(common.Vec3{-1e4, -1e4, -1e4}, common.Vec3{1e4, 1e4, 1e4}), []*scenetest.Renderer{near, far, huge}, nil},
		{"empty", common.EmptyAABB(), nil, []*scenetest.Renderer{near, far, huge}},
	}
	for _, tt := range tests {
		got := idx.GetObjectsInBounds(tt.query)
		for _, r := range tt.want {
			if !contains(got, r) {
				t.Errorf("%s: missing %s", tt.name, r.Name())
			}
		}
		for _, r := range tt.not {
			if contains(got, r) {
				t.Errorf("%s: unexpected %s", tt.name, r.Name())
			}
		}
		if len(got) != len(tt.want) {
			t.Errorf("%s: len = %d, want %d", tt.name, len(got), len(tt.want))
		}
	}
}

func TestGridIndexUpdateAndRemove(t *testing.T) {
	idx := scene.NewGridIndex(0)
	r := scenetest.NewRenderer("mover", scene.RenderModeOpaque).At(common.Vec3{0, 0, 0})
	idx.Insert(r)

	origin := box(common.Vec3{-2, -2, -2}, common.Vec3{2, 2, 2})
	away := box(common.Vec3{198, -2, -2}, common.Vec3{202, 2, 2})

	r.At(common.Vec3{200, 0, 0})
	idx.Update(r)
	if got := idx.GetObjectsInBounds(origin); len(got) != 0 {
		t.Errorf("old cell still holds %d renderers", len(got))
	}
	if got := idx.GetObjectsInBounds(away); !contains(got, r) {
		t.Error("moved renderer not found in new cell")
	}

	idx.Remove(r)
	if idx.Len() != 0 {
		t.Errorf("Len() = %d after Remove, want 0", idx.Len())
	}
	if got := idx.GetObjectsInBounds(away); len(got) != 0 {
		t.Errorf("removed renderer still returned: %v", got)
	}
}
