package light_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/renderertest"
)

func TestPointLightRejectsShadows(t *testing.T) {
	l := light.NewLight("bulb", light.LightTypePoint, light.WithShadows(2))
	if l.CastsShadows() {
		t.Error("point light accepted shadows at construction")
	}
	if err := l.SetCastShadows(true); !errors.Is(err, light.ErrShadowsUnsupported) {
		t.Errorf("SetCastShadows(true) error = %v, want ErrShadowsUnsupported", err)
	}
	if l.CastsShadows() || l.ShadowRenders() != 0 {
		t.Error("point light casts shadows after rejected request")
	}
	if err := l.SetShadowSettings(light.ShadowSettings{CastShadows: true}); !errors.Is(err, light.ErrShadowsUnsupported) {
		t.Errorf("SetShadowSettings() error = %v, want ErrShadowsUnsupported", err)
	}
}

func TestCascadesClampedPerKind(t *testing.T) {
	tests := []struct {
		kind     light.LightType
		cascades int
		want     int
	}{
		{light.LightTypeDirectional, 9, light.MaxShadowCascades},
		{light.LightTypeDirectional, -1, 0},
		{light.LightTypeDirectional, 2, 2},
		{light.LightTypeSpot, 3, 0},
	}
	for _, tt := range tests {
		l := light.NewLight("l", tt.kind, light.WithShadows(tt.cascades))
		if got := l.ShadowSettings().Cascades; got != tt.want {
			t.Errorf("%v WithShadows(%d): Cascades = %d, want %d", tt.kind, tt.cascades, got, tt.want)
		}
		if got := l.ShadowRenders(); got != tt.want+1 {
			t.Errorf("%v ShadowRenders() = %d, want %d", tt.kind, got, tt.want+1)
		}
	}
}

func TestDisableShadowsTearsDownResources(t *testing.T) {
	dev := renderertest.NewDevice()
	l := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1))

	recreated, err := l.PrepareCascades(dev, 64)
	if err != nil || !recreated {
		t.Fatalf("PrepareCascades() = %v, %v", recreated, err)
	}
	if got := len(l.ShadowCascades()); got != 2 {
		t.Fatalf("len(ShadowCascades()) = %d, want 2", got)
	}
	l.AssignShadowSlot(3)
	l.ClearFrameDirty()
	l.ClearDataDirty()

	if err := l.SetCastShadows(false); err != nil {
		t.Fatal(err)
	}
	if l.ShadowCascades() != nil {
		t.Error("cascades survived SetCastShadows(false)")
	}
	if l.ShadowSlot() != 0 || l.ShadowMapped() {
		t.Errorf("slot = %d mapped = %v, want 0 false", l.ShadowSlot(), l.ShadowMapped())
	}
	if got := dev.Live(renderertest.KindBuffer); got != 0 {
		t.Errorf("live buffers = %d, want 0", got)
	}

	if err := l.SetCastShadows(true); err != nil {
		t.Fatal(err)
	}
	want := light.StaticDirty{Data: common.NeedsRebuild, Frame: common.NeedsRebuild}
	if got := l.StaticDirty(); got != want {
		t.Errorf("StaticDirty() = %+v, want %+v", got, want)
	}
}

func TestStaticLightCache(t *testing.T) {
	dev := renderertest.NewDevice()
	l := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1), light.WithStatic())

	if _, err := l.PrepareCascades(dev, 32); err != nil {
		t.Fatal(err)
	}
	if !l.HasShadowCache() {
		t.Fatal("static light has no cache")
	}
	for i, c := range l.ShadowCascades() {
		if c.Framebuffer == nil || c.Framebuffer.DepthLayer() != uint32(i) {
			t.Errorf("cascade %d framebuffer = %v, want cache layer %d", i, c.Framebuffer, i)
		}
	}
	if recreated, _ := l.PrepareCascades(dev, 32); recreated {
		t.Error("PrepareCascades() recreated matching resources")
	}

	l.SetStatic(false)
	if recreated, _ := l.PrepareCascades(dev, 32); !recreated {
		t.Error("PrepareCascades() did not react to SetStatic(false)")
	}
	if l.HasShadowCache() {
		t.Error("dynamic light kept its cache")
	}
	if got := dev.Live(renderertest.KindTexture); got != 0 {
		t.Errorf("live textures = %d, want 0", got)
	}
}

func TestPrepareCascadesFailureKeepsResources(t *testing.T) {
	dev := renderertest.NewDevice()
	l := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(0))
	if _, err := l.PrepareCascades(dev, 32); err != nil {
		t.Fatal(err)
	}
	prev := l.ShadowCascades()

	dev.FailCreate = func(renderertest.Kind, string) error { return errors.New("oom") }
	if _, err := l.PrepareCascades(dev, 64); err == nil {
		t.Fatal("PrepareCascades() should fail")
	}
	if got := l.ShadowCascades(); len(got) != 1 || got[0] != prev[0] || prev[0].Constants.Released() {
		t.Error("failed PrepareCascades() replaced or released the previous cascades")
	}
}

func TestStaticDirtyOnPropertyChange(t *testing.T) {
	static := light.NewLight("s", light.LightTypeSpot, light.WithStatic())
	dynamic := light.NewLight("d", light.LightTypeSpot)
	for _, l := range []light.Light{static, dynamic} {
		l.ClearDataDirty()
		l.ClearFrameDirty()
		l.SetIntensity(3)
	}
	if got := static.StaticDirty(); got.Data != common.NeedsUpdate || got.Frame != common.NeedsUpdate {
		t.Errorf("static StaticDirty() = %+v, want both needs-update", got)
	}
	if got := dynamic.StaticDirty(); got != (light.StaticDirty{}) {
		t.Errorf("dynamic StaticDirty() = %+v, want clean", got)
	}
}

func maxAbsNDC(p common.Vec3) float32 {
	return max(common.Abs(p[0]), common.Abs(p[1]))
}

func TestDirectionalProjectionCascades(t *testing.T) {
	l := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(1), light.WithDirection(0, -1, 0))
	focal := common.Vec3{1, 0, 1}
	probe := focal.Add(common.Vec3{8, 0, 0})

	wide, err := l.RecalculateShadowProjectionMatrix(focal, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	tight, err := l.RecalculateShadowProjectionMatrix(focal, 10, 0)
	if err != nil {
		t.Fatal(err)
	}

	if p := wide.TransformPoint(probe); maxAbsNDC(p) > 1 {
		t.Errorf("widest cascade misses probe: %v", p)
	}
	if p := tight.TransformPoint(probe); maxAbsNDC(p) <= 1 {
		t.Errorf("tightest cascade should not contain probe: %v", p)
	}
	if c := wide.TransformPoint(focal); common.Abs(c[0]) > 1e-4 || common.Abs(c[1]) > 1e-4 || c[2] <= 0 || c[2] >= 1 {
		t.Errorf("focal point = %v, want centered inside the depth range", c)
	}

	if _, err := l.RecalculateShadowProjectionMatrix(focal, 10, 2); !errors.Is(err, light.ErrCascadeOutOfRange) {
		t.Errorf("cascade 2 error = %v, want ErrCascadeOutOfRange", err)
	}
}

func TestProjectionStoredOnCascade(t *testing.T) {
	dev := renderertest.NewDevice()
	l := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(0))
	if _, err := l.PrepareCascades(dev, 16); err != nil {
		t.Fatal(err)
	}
	m, _ := l.RecalculateShadowProjectionMatrix(common.Vec3{}, 5, 0)
	if l.ShadowCascades()[0].Matrix != m {
		t.Error("cascade matrix not updated")
	}
}

func TestSpotProjection(t *testing.T) {
	l := light.NewLight("lamp", light.LightTypeSpot,
		light.WithShadows(0), light.WithDirection(0, 0, -1), light.WithRange(10), light.WithSpotCone(20, 35))

	m, err := l.RecalculateShadowProjectionMatrix(common.Vec3{}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	p := m.TransformPoint(common.Vec3{0, 0, -5})
	if maxAbsNDC(p) > 1e-4 || p[2] <= 0 || p[2] >= 1 {
		t.Errorf("cone axis point = %v, want centered inside the depth range", p)
	}
	if beyond := m.TransformPoint(common.Vec3{0, 0, -20}); beyond[2] <= 1 {
		t.Errorf("point past range has depth %v, want > 1", beyond[2])
	}
	if _, err := l.RecalculateShadowProjectionMatrix(common.Vec3{}, 0, 1); !errors.Is(err, light.ErrCascadeOutOfRange) {
		t.Errorf("spot cascade 1 error = %v, want ErrCascadeOutOfRange", err)
	}
}

func TestPointProjectionUnsupported(t *testing.T) {
	l := light.NewLight("bulb", light.LightTypePoint)
	if _, err := l.RecalculateShadowProjectionMatrix(common.Vec3{}, 10, 0); !errors.Is(err, light.ErrShadowsUnsupported) {
		t.Errorf("error = %v, want ErrShadowsUnsupported", err)
	}
}

func TestVisibilityAndRange(t *testing.T) {
	view := common.LookAt(common.Vec3{}, common.Vec3{0, 0, -1}, common.Vec3{0, 1, 0})
	frustum := common.FrustumFromMatrix(common.Perspective(1, 1, 0.1, 20).Mul(view))

	tests := []struct {
		name string
		l    light.Light
		want bool
	}{
		{"far point", light.NewLight("p", light.LightTypePoint, light.WithPosition(0, 0, -50), light.WithRange(5)), false},
		{"large point", light.NewLight("p", light.LightTypePoint, light.WithPosition(0, 0, -50), light.WithRange(40)), true},
		{"spot behind", light.NewLight("s", light.LightTypeSpot, light.WithPosition(0, 0, 30), light.WithRange(5)), false},
		{"directional", light.NewLight("d", light.LightTypeDirectional, light.WithPosition(0, 0, 1000)), true},
	}
	for _, tt := range tests {
		if got := tt.l.CheckVisibilityByCamera(frustum); got != tt.want {
			t.Errorf("%s: CheckVisibilityByCamera() = %v, want %v", tt.name, got, tt.want)
		}
	}

	box := common.AABB{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}}
	near := light.NewLight("p", light.LightTypePoint, light.WithPosition(3, 0, 0), light.WithRange(2.5))
	far := light.NewLight("p", light.LightTypePoint, light.WithPosition(5, 0, 0), light.WithRange(2.5))
	if !near.CheckIsRendererInRange(box) || far.CheckIsRendererInRange(box) {
		t.Error("CheckIsRendererInRange() range test wrong")
	}
}

func TestGetLightSourceData(t *testing.T) {
	l := light.NewLight("sun", light.LightTypeDirectional, light.WithShadows(2), light.WithColor(1, 0.5, 0.25))
	if g := l.GetLightSourceData(); g.Flags&light.FlagShadowMapped != 0 || g.CascadeCount != 0 {
		t.Errorf("unmapped light packed as shadow mapped: %+v", g)
	}

	l.AssignShadowSlot(4)
	g := l.GetLightSourceData()
	if g.Flags&light.FlagShadowMapped == 0 || g.ShadowSlot != 4 || g.CascadeCount != 3 {
		t.Errorf("mapped light = slot %d cascades %d flags %b", g.ShadowSlot, g.CascadeCount, g.Flags)
	}
	if g.Color != [3]float32{1, 0.5, 0.25} || g.LightType != uint32(light.LightTypeDirectional) {
		t.Errorf("GetLightSourceData() = %+v", g)
	}
	if back := light.UnmarshalGPULight(g.Marshal()); back != g {
		t.Errorf("UnmarshalGPULight(Marshal()) = %+v, want %+v", back, g)
	}
}

func TestTileCounts(t *testing.T) {
	tests := []struct {
		w, h, x, y uint32
	}{
		{1920, 1080, 120, 68},
		{16, 16, 1, 1},
		{17, 1, 2, 1},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		if x, y := light.TileCounts(tt.w, tt.h); x != tt.x || y != tt.y {
			t.Errorf("TileCounts(%d, %d) = %d, %d, want %d, %d", tt.w, tt.h, x, y, tt.x, tt.y)
		}
	}
}
