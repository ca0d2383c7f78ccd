package light_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer/renderertest"
)

func TestLightDataBufferRoundTrip(t *testing.T) {
	for _, k := range []int{0, 1, 5, 8} {
		dev := renderertest.NewDevice()
		buf := light.NewLightDataBuffer(dev, "Lights")
		if _, err := buf.PrepareBufLights(k); err != nil {
			t.Fatal(err)
		}

		want := make([]light.GPULight, k)
		for i := range want {
			want[i] = light.GPULight{
				Position:  [3]float32{float32(i), 1, 2},
				LightType: uint32(i % 3),
				Intensity: float32(i) + 0.5,
				Flags:     uint32(i & 1),
			}
			if err := buf.SetLightData(i, want[i]); err != nil {
				t.Fatal(err)
			}
		}
		buf.SetHeader(common.Vec3{0.1, 0.2, 0.3}, 1)
		if err := buf.FinalizeBufLights(nil); err != nil {
			t.Fatal(err)
		}

		data := buf.Buffer().(*renderertest.Buffer).Data
		if got := binary.LittleEndian.Uint32(data[12:16]); got != uint32(k) {
			t.Errorf("k=%d: header count = %d", k, got)
		}
		if got, wantShadowed := binary.LittleEndian.Uint32(data[16:20]), uint32(min(k, 1)); got != wantShadowed {
			t.Errorf("k=%d: shadowed count = %d, want %d", k, got, wantShadowed)
		}
		for i := range k {
			off := light.GPULightHeaderSize + i*light.GPULightSize
			if got := light.UnmarshalGPULight(data[off:]); got != want[i] {
				t.Errorf("k=%d: record %d = %+v, want %+v", k, i, got, want[i])
			}
		}
	}
}

func TestPrepareBufLightsGrowth(t *testing.T) {
	dev := renderertest.NewDevice()
	buf := light.NewLightDataBuffer(dev, "Lights")

	steps := []struct {
		required  int
		recreated bool
		capacity  int
	}{
		{3, true, 8},
		{8, false, 8},
		{9, true, 16},
		{2, false, 16},
		{40, true, 64},
	}
	for _, s := range steps {
		prev := buf.Buffer()
		recreated, err := buf.PrepareBufLights(s.required)
		if err != nil {
			t.Fatal(err)
		}
		if recreated != s.recreated || buf.Capacity() != s.capacity || buf.Count() != s.required {
			t.Errorf("PrepareBufLights(%d) = %v cap %d count %d, want %v cap %d", s.required, recreated, buf.Capacity(), buf.Count(), s.recreated, s.capacity)
		}
		if recreated && prev != nil && !prev.Released() {
			t.Errorf("PrepareBufLights(%d) leaked the previous buffer", s.required)
		}
	}
	if got := buf.Generation(); got != 3 {
		t.Errorf("Generation() = %d, want 3", got)
	}
	if got := dev.Live(renderertest.KindBuffer); got != 1 {
		t.Errorf("live buffers = %d, want 1", got)
	}
}

func TestPrepareBufLightsFailureKeepsBuffer(t *testing.T) {
	dev := renderertest.NewDevice()
	buf := light.NewLightDataBuffer(dev, "Lights")
	if _, err := buf.PrepareBufLights(4); err != nil {
		t.Fatal(err)
	}
	prev := buf.Buffer()

	dev.FailCreate = func(renderertest.Kind, string) error { return errors.New("oom") }
	if _, err := buf.PrepareBufLights(100); err == nil {
		t.Fatal("PrepareBufLights() should fail")
	}
	if buf.Buffer() != prev || prev.Released() || buf.Capacity() != 8 {
		t.Error("failed growth replaced the buffer")
	}
}

func TestSetLightDataOutOfRange(t *testing.T) {
	buf := light.NewLightDataBuffer(renderertest.NewDevice(), "Lights")
	if err := buf.SetLightData(0, light.GPULight{}); !errors.Is(err, light.ErrIndexOutOfRange) {
		t.Errorf("SetLightData() before prepare error = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := buf.PrepareBufLights(1); err != nil {
		t.Fatal(err)
	}
	if err := buf.SetLightData(buf.Capacity(), light.GPULight{}); !errors.Is(err, light.ErrIndexOutOfRange) {
		t.Errorf("SetLightData(capacity) error = %v, want ErrIndexOutOfRange", err)
	}
	if err := buf.FinalizeBufLights(nil); err != nil {
		t.Fatal(err)
	}
}

func TestFinalizeBufLights(t *testing.T) {
	dev := renderertest.NewDevice()
	buf := light.NewLightDataBuffer(dev, "Lights")
	if err := buf.FinalizeBufLights(nil); !errors.Is(err, light.ErrBufferNotPrepared) {
		t.Errorf("FinalizeBufLights() error = %v, want ErrBufferNotPrepared", err)
	}

	if _, err := buf.PrepareBufLights(2); err != nil {
		t.Fatal(err)
	}
	cmd, _ := dev.BeginCommands("frame")
	if err := buf.FinalizeBufLights(cmd); err != nil {
		t.Fatal(err)
	}
	list := cmd.(*renderertest.CommandList)
	if list.Count(renderertest.OpWriteBuffer) != 1 {
		t.Fatalf("write-buffer commands = %d, want 1", list.Count(renderertest.OpWriteBuffer))
	}
	if got := len(list.Commands[0].Data); got != light.GPULightHeaderSize+2*light.GPULightSize {
		t.Errorf("upload size = %d, want header + 2 records", got)
	}
}
