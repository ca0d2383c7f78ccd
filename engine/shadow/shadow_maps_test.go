package shadow_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene"
	"github.com/Carmen-Shannon/oxy-forward/engine/scene/scenetest"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
)

type fixture struct {
	dev       *renderertest.Device
	maps      shadow.ShadowMaps
	cam       camera.Camera
	scn       scene.Scene
	renderers []scene.Renderer
	frame     uint64
}

func newFixture(renderers ...*scenetest.Renderer) *fixture {
	dev := renderertest.NewDevice()
	f := &fixture{
		dev:  dev,
		maps: shadow.NewShadowMaps(dev, shadow.WithResolution(32)),
		cam:  camera.NewCamera("main", dev),
		scn:  scene.NewScene("test"),
	}
	for _, r := range renderers {
		f.renderers = append(f.renderers, r)
	}
	return f
}

func (f *fixture) render(t *testing.T, lights ...light.Light) (shadow.ShadowStats, *scene.Context, error) {
	t.Helper()
	f.frame++
	objs := scene.BuildObjects(f.scn, f.renderers, []camera.Camera{f.cam}, lights, scene.BuildOptions{})
	ctx := &scene.Context{Scene: f.scn, Device: f.dev, Frame: f.frame, Objects: objs}
	stats, err := f.maps.Render(ctx, objs)
	return stats, ctx, err
}

func opaque(name string) *scenetest.Renderer {
	return scenetest.NewRenderer(name, scene.RenderModeOpaque).At(common.Vec3{0, 0, -10})
}

func TestDecideAction(t *testing.T) {
	dev := renderertest.NewDevice()

	cleanStatic := light.NewLight("static", light.LightTypeDirectional, light.WithShadows(0), light.WithStatic())
	if _, err := cleanStatic.PrepareCascades(dev, 32); err != nil {
		t.Fatal(err)
	}
	cleanStatic.ClearFrameDirty()

	dirtyStatic := light.NewLight("dirty", light.LightTypeDirectional, light.WithShadows(0), light.WithStatic())
	if _, err := dirtyStatic.PrepareCascades(dev, 32); err != nil {
		t.Fatal(err)
	}

	dynamic := light.NewLight("dynamic", light.LightTypeDirectional, light.WithShadows(0))
	if _, err := dynamic.PrepareCascades(dev, 32); err != nil {
		t.Fatal(err)
	}
	dynamic.ClearFrameDirty()

	tests := []struct {
		light light.Light
		want  shadow.ShadowAction
	}{
		{light.NewLight("off", light.LightTypeDirectional), shadow.ShadowSkip},
		{cleanStatic, shadow.ShadowReuseCache},
		{dirtyStatic, shadow.ShadowRedraw},
		{dynamic, shadow.ShadowRedraw},
	}
	for _, tt := range tests {
		if got := shadow.DecideAction(tt.light); got != tt.want {
			t.Errorf("DecideAction(%s) = %v, want %v", tt.light.Name(), got, tt.want)
		}
	}
}

func TestDynamicLightRedrawsEveryFrame(t *testing.T) {
	a, b := opaque("a"), opaque("b")
	f := newFixture(a, b)
	sun := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1))

	for frame := 1; frame <= 2; frame++ {
		stats, _, err := f.render(t, sun)
		if err != nil {
			t.Fatalf("frame %d: Render() error = %v", frame, err)
		}
		if stats.Redrawn != 1 || stats.Reused != 0 || stats.Passes != 2 || stats.Copies != 0 {
			t.Errorf("frame %d: stats = %+v, want 1 redraw of 2 passes", frame, stats)
		}
		for _, r := range []*scenetest.Renderer{a, b} {
			if got := len(r.ShadowDraws()); got != 2*frame {
				t.Errorf("frame %d: %s shadow draws = %d, want %d", frame, r.Name(), got, 2*frame)
			}
		}
	}
	if f.maps.Array().Capacity() < 2 {
		t.Errorf("Capacity() = %d, want >= 2", f.maps.Array().Capacity())
	}
	if got := len(f.dev.Submitted); got != 2 {
		t.Errorf("submitted lists = %d, want 2", got)
	}
}

func TestStaticLightReusesCache(t *testing.T) {
	r := opaque("r")
	f := newFixture(r)
	lamp := light.NewLight("lamp", light.LightTypeDirectional, light.WithShadows(1), light.WithStatic())

	stats, _, err := f.render(t, lamp)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Redrawn != 1 || stats.Copies != 2 {
		t.Errorf("first frame stats = %+v, want a redraw with 2 cache copies", stats)
	}
	if lamp.StaticDirty().Frame.IsDirty() {
		t.Error("Frame dirty after redraw")
	}

	drawsBefore := len(r.ShadowDraws())
	stats, _, err = f.render(t, lamp)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Reused != 1 || stats.Redrawn != 0 {
		t.Errorf("second frame stats = %+v, want a reuse", stats)
	}
	if got := len(r.ShadowDraws()) - drawsBefore; got != 0 {
		t.Errorf("second frame shadow draws = %d, want 0", got)
	}
	last := f.dev.Submitted[len(f.dev.Submitted)-1]
	if got := last.Count(renderertest.OpCopy); got != 2 {
		t.Errorf("second frame copies = %d, want 2 (one per cascade)", got)
	}
	if got := last.Count(renderertest.OpBeginPass); got != 0 {
		t.Errorf("second frame passes = %d, want 0", got)
	}

	lamp.SetIntensity(3)
	if stats, _, _ = f.render(t, lamp); stats.Redrawn != 1 {
		t.Errorf("after a property change stats = %+v, want a redraw", stats)
	}
}

func TestSlotsAreContiguousAndMatricesUploaded(t *testing.T) {
	f := newFixture(opaque("r"))
	sun := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1), light.WithPriority(3))
	spot := light.NewLight("spot", light.LightTypeSpot,
		light.WithPosition(0, 0, -5), light.WithDirection(0, 0, -1), light.WithShadows(0), light.WithPriority(2))
	moon := light.NewLight("moon", light.LightTypeDirectional, light.WithShadows(0), light.WithPriority(1))
	fill := light.NewLight("fill", light.LightTypeDirectional)

	stats, ctx, err := f.render(t, fill, moon, spot, sun)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Slots != 4 {
		t.Errorf("Slots = %d, want 4", stats.Slots)
	}
	wantSlots := map[light.Light]uint32{sun: 0, spot: 2, moon: 3}
	for l, want := range wantSlots {
		if !l.ShadowMapped() || l.ShadowSlot() != want {
			t.Errorf("%s slot = %d (mapped %v), want %d", l.Name(), l.ShadowSlot(), l.ShadowMapped(), want)
		}
	}
	if fill.ShadowMapped() {
		t.Error("non-casting light got a slot")
	}

	buf, ok := ctx.ShadowMatrices.(*renderertest.Buffer)
	if !ok {
		t.Fatalf("ShadowMatrices is %T", ctx.ShadowMatrices)
	}
	for l, slot := range wantSlots {
		for i, c := range l.ShadowCascades() {
			want := common.SliceToBytes([]common.Mat4{c.Matrix})
			off := (int(slot) + i) * 64
			if !bytes.Equal(buf.Data[off:off+64], want) {
				t.Errorf("matrix of %s cascade %d not uploaded at slot %d", l.Name(), i, int(slot)+i)
			}
		}
	}
}

func TestResourceVersionTracksGrowth(t *testing.T) {
	f := newFixture(opaque("r"))
	a := light.NewLight("a", light.LightTypeDirectional, light.WithShadows(0))
	b := light.NewLight("b", light.LightTypeDirectional, light.WithShadows(2))

	_, ctx, err := f.render(t, a)
	if err != nil {
		t.Fatal(err)
	}
	v1 := f.maps.ResourceVersion()
	if v1 == 0 || ctx.ResourceVersion != v1 {
		t.Fatalf("version after first frame = %d (ctx %d), want > 0 and equal", v1, ctx.ResourceVersion)
	}

	stats, _, _ := f.render(t, a)
	if stats.Resized || f.maps.ResourceVersion() != v1 {
		t.Errorf("version moved without growth: %d -> %d", v1, f.maps.ResourceVersion())
	}

	stats, ctx, _ = f.render(t, a, b)
	if !stats.Resized || f.maps.ResourceVersion() <= v1 || ctx.ResourceVersion != f.maps.ResourceVersion() {
		t.Errorf("version after growth = %d, want > %d", f.maps.ResourceVersion(), v1)
	}
	if ctx.ShadowDepth.Layers() != 4 {
		t.Errorf("depth layers = %d, want 4", ctx.ShadowDepth.Layers())
	}

	v2 := f.maps.ResourceVersion()
	if stats, _, _ = f.render(t, a); stats.Resized || f.maps.ResourceVersion() != v2 || f.maps.Array().Capacity() != 4 {
		t.Error("array shrank or version moved when demand dropped")
	}
}

func TestDisablingShadowsFreesSlotAndRedrawsOnReenable(t *testing.T) {
	f := newFixture(opaque("r"))
	lamp := light.NewLight("lamp", light.LightTypeDirectional, light.WithShadows(1), light.WithStatic())
	if _, _, err := f.render(t, lamp); err != nil {
		t.Fatal(err)
	}
	if len(lamp.ShadowCascades()) != 2 {
		t.Fatalf("cascades = %d, want 2", len(lamp.ShadowCascades()))
	}
	cascades := lamp.ShadowCascades()

	if err := lamp.SetCastShadows(false); err != nil {
		t.Fatal(err)
	}
	if lamp.ShadowCascades() != nil || lamp.ShadowSlot() != 0 || lamp.ShadowMapped() {
		t.Error("disabling shadows kept cascades or the slot")
	}
	for _, c := range cascades {
		if !c.Constants.Released() || !c.Framebuffer.Released() {
			t.Errorf("cascade %d resources not released", c.Index)
		}
	}

	if err := lamp.SetCastShadows(true); err != nil {
		t.Fatal(err)
	}
	if got := shadow.DecideAction(lamp); got != shadow.ShadowRedraw {
		t.Errorf("DecideAction after re-enable = %v, want redraw", got)
	}
	if stats, _, _ := f.render(t, lamp); stats.Redrawn != 1 {
		t.Errorf("stats after re-enable = %+v, want a redraw", stats)
	}
}

func TestShadowDrawFailuresAreIsolated(t *testing.T) {
	bad, good := opaque("bad"), opaque("good")
	bad.FailShadow = true
	f := newFixture(bad, good)
	sun := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1))

	stats, _, err := f.render(t, sun)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.FailedDraws != 2 || stats.DrawCalls != 4 {
		t.Errorf("stats = %+v, want 2 failed of 4 draws", stats)
	}
	if got := len(good.ShadowDraws()); got != 2 {
		t.Errorf("good shadow draws = %d, want 2", got)
	}
}

func TestCastersFilteredByLayerAndRange(t *testing.T) {
	near := opaque("near")
	other := opaque("other")
	other.Mask = 0b10
	far := scenetest.NewRenderer("far", scene.RenderModeOpaque).At(common.Vec3{0, 0, -500})
	hud := scenetest.NewRenderer("hud", scene.RenderModeUI)
	f := newFixture(near, other, far, hud)

	spot := light.NewLight("spot", light.LightTypeSpot,
		light.WithPosition(0, 0, -5), light.WithDirection(0, 0, -1), light.WithRange(10),
		light.WithLayerMask(0b01), light.WithShadows(0))
	if _, _, err := f.render(t, spot); err != nil {
		t.Fatal(err)
	}

	if got := len(near.ShadowDraws()); got != 1 {
		t.Errorf("near shadow draws = %d, want 1", got)
	}
	for _, r := range []*scenetest.Renderer{other, far, hud} {
		if got := len(r.ShadowDraws()); got != 0 {
			t.Errorf("%s shadow draws = %d, want 0", r.Name(), got)
		}
	}
	pass := near.ShadowDraws()[0]
	if pass.Kind != scene.PassShadow || pass.Light != spot || pass.ResourceSet == nil {
		t.Errorf("pass context = %+v, want a shadow pass of spot with a resource set", pass)
	}
}

func TestRenderResourceFailure(t *testing.T) {
	f := newFixture(opaque("r"))
	boom := errors.New("device lost")
	f.dev.FailCreate = func(kind renderertest.Kind, _ string) error {
		if kind == renderertest.KindTexture {
			return boom
		}
		return nil
	}
	sun := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(0))

	_, _, err := f.render(t, sun)
	if !errors.Is(err, boom) {
		t.Fatalf("Render() error = %v, want %v", err, boom)
	}
	if sun.ShadowMapped() {
		t.Error("light kept a slot after the shared array failed")
	}
	if len(f.dev.Submitted) != 0 {
		t.Error("commands submitted after a resource failure")
	}
}

func TestRenderCommandFailureClearsSlots(t *testing.T) {
	f := newFixture(opaque("r"))
	boom := errors.New("device lost")
	f.dev.FailCreate = func(kind renderertest.Kind, label string) error {
		if kind == renderertest.KindCommands && label == "Shadow Maps" {
			return boom
		}
		return nil
	}
	sun := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1))

	_, _, err := f.render(t, sun)
	if !errors.Is(err, boom) {
		t.Fatalf("Render() error = %v, want %v", err, boom)
	}
	if sun.ShadowMapped() {
		t.Error("light kept its slots although no shadow pass was recorded")
	}
	if g := sun.GetLightSourceData(); g.Flags&light.FlagShadowMapped != 0 {
		t.Errorf("packed flags = %#x, want no shadow-mapped flag", g.Flags)
	}

	f.dev.FailCreate = nil
	if stats, _, err := f.render(t, sun); err != nil || stats.Redrawn != 1 || !sun.ShadowMapped() {
		t.Errorf("Render() after recovery = %+v, %v, want one redraw", stats, err)
	}
}

func TestRenderNilContext(t *testing.T) {
	maps := shadow.NewShadowMaps(renderertest.NewDevice())
	if _, err := maps.Render(nil, nil); !errors.Is(err, shadow.ErrNilContext) {
		t.Errorf("Render(nil, nil) error = %v, want ErrNilContext", err)
	}
}
