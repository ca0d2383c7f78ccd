package profiler

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestProfilerReportsPerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(time.Second))

	samples := []Sample{
		{Duration: 2 * time.Millisecond, DrawCalls: 10, ShadowDraws: 4, Presented: true},
		{Duration: 6 * time.Millisecond, DrawCalls: 12, ShadowDraws: 4, Presented: true, Failed: true},
	}
	for i, s := range samples {
		clock.t = clock.t.Add(250 * time.Millisecond)
		if p.Tick(s) {
			t.Fatalf("Tick(%d) reported before the interval elapsed", i)
		}
	}

	clock.t = clock.t.Add(500 * time.Millisecond)
	if !p.Tick(Sample{Duration: 4 * time.Millisecond, DrawCalls: 8}) {
		t.Fatal("Tick() did not report after one second")
	}

	r := p.Last()
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Frames", r.Frames, 3},
		{"FPS", r.FPS, 3.0},
		{"AvgFrame", r.AvgFrame, 4 * time.Millisecond},
		{"MaxFrame", r.MaxFrame, 6 * time.Millisecond},
		{"Failed", r.Failed, 1},
		{"Presented", r.Presented, 2},
		{"DrawCalls", r.DrawCalls, 30},
		{"ShadowDraws", r.ShadowDraws, 8},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	clock.t = clock.t.Add(100 * time.Millisecond)
	if p.Tick(Sample{}) {
		t.Error("Tick() reported again without a full interval")
	}
	if p.Last().Frames != 3 {
		t.Error("Last() changed between reports")
	}
}
