package shadow_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
)

func TestShadowMapArrayCapacityIsMonotonic(t *testing.T) {
	dev := renderertest.NewDevice()
	arr := shadow.NewShadowMapArray(dev, "test", 64)

	steps := []struct {
		required    int
		wantResized bool
		wantCap     int
	}{
		{3, true, 3},
		{1, false, 3},
		{5, true, 5},
		{2, false, 5},
		{5, false, 5},
		{0, false, 5},
	}
	largest := 0
	for _, st := range steps {
		resized, err := arr.Prepare(st.required)
		if err != nil {
			t.Fatalf("Prepare(%d) error = %v", st.required, err)
		}
		largest = max(largest, st.required)
		if resized != st.wantResized {
			t.Errorf("Prepare(%d) resized = %v, want %v", st.required, resized, st.wantResized)
		}
		if arr.Capacity() != st.wantCap {
			t.Errorf("Prepare(%d) Capacity() = %d, want %d", st.required, arr.Capacity(), st.wantCap)
		}
		for i := range largest {
			if _, err := arr.GetFramebuffer(uint32(i)); err != nil {
				t.Errorf("after Prepare(%d) GetFramebuffer(%d) error = %v", st.required, i, err)
			}
		}
	}

	if _, err := arr.GetFramebuffer(uint32(arr.Capacity())); !errors.Is(err, shadow.ErrSlotOutOfRange) {
		t.Errorf("GetFramebuffer(capacity) error = %v, want ErrSlotOutOfRange", err)
	}
	if got := dev.Live(renderertest.KindTexture); got != 2 {
		t.Errorf("live textures = %d, want 2 after growth", got)
	}
	if got := dev.Live(renderertest.KindFramebuffer); got != 5 {
		t.Errorf("live framebuffers = %d, want 5", got)
	}
	if d, n := arr.DepthArray(), arr.NormalArray(); d.Layers() != 5 || n.Layers() != 5 || !d.IsArray() {
		t.Errorf("array layers = %d/%d, want 5/5", d.Layers(), n.Layers())
	}
}

func TestShadowMapArrayGetFramebufferBeforePrepare(t *testing.T) {
	arr := shadow.NewShadowMapArray(renderertest.NewDevice(), "test", 64)
	if _, err := arr.GetFramebuffer(0); !errors.Is(err, shadow.ErrSlotOutOfRange) {
		t.Errorf("GetFramebuffer(0) error = %v, want ErrSlotOutOfRange", err)
	}
}

func TestShadowMapArrayFailedGrowthKeepsState(t *testing.T) {
	dev := renderertest.NewDevice()
	arr := shadow.NewShadowMapArray(dev, "test", 64)
	if _, err := arr.Prepare(2); err != nil {
		t.Fatal(err)
	}
	depth := arr.DepthArray()

	boom := errors.New("out of memory")
	dev.FailCreate = func(kind renderertest.Kind, label string) error {
		if kind == renderertest.KindFramebuffer && label == "test Slot 3" {
			return boom
		}
		return nil
	}
	resized, err := arr.Prepare(4)
	if !errors.Is(err, boom) {
		t.Fatalf("Prepare(4) error = %v, want %v", err, boom)
	}
	if resized {
		t.Error("Prepare(4) reported a resize on failure")
	}
	if arr.Capacity() != 2 || arr.DepthArray() != depth || depth.Released() {
		t.Error("failed Prepare replaced or released the previous array")
	}
	if got := dev.Live(renderertest.KindTexture); got != 2 {
		t.Errorf("live textures = %d, want 2", got)
	}
	if got := dev.Live(renderertest.KindFramebuffer); got != 2 {
		t.Errorf("live framebuffers = %d, want 2", got)
	}

	dev.FailCreate = nil
	arr.Release()
	if dev.Live(renderertest.KindTexture) != 0 || dev.Live(renderertest.KindFramebuffer) != 0 {
		t.Error("Release() left resources alive")
	}
}
