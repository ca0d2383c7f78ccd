package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
)

// Sample is what one drawn frame contributes to the profiler.
type Sample struct {
	// Duration is the CPU time spent recording and submitting the frame.
	Duration time.Duration
	// Failed is set when the frame reported a failure.
	Failed bool
	// Cameras, DrawCalls and ShadowDraws count the frame's work.
	Cameras     int
	DrawCalls   int
	ShadowDraws int
	// Presented is set when the display surface was presented.
	Presented bool
}

// Report aggregates the samples of one interval.
type Report struct {
	Frames      int
	FPS         float64
	AvgFrame    time.Duration
	MaxFrame    time.Duration
	Failed      int
	Presented   int
	DrawCalls   int
	ShadowDraws int

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate, frame cost and memory statistics for performance monitoring.
// Outputs a Report to the logger at a configurable interval.
type Profiler struct {
	logger         *slog.Logger
	updateInterval time.Duration
	now            func() time.Time

	lastTime time.Time
	current  Report
	total    time.Duration
	last     Report

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         common.Logger(),
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with the frame's sample.
// Logs a Report when the update interval has elapsed.
//
// Parameters:
//   - s: the frame sample
//
// Returns:
//   - bool: true if a report was logged this tick, false otherwise
func (p *Profiler) Tick(s Sample) bool {
	p.current.Frames++
	p.total += s.Duration
	p.current.MaxFrame = max(p.current.MaxFrame, s.Duration)
	p.current.DrawCalls += s.DrawCalls
	p.current.ShadowDraws += s.ShadowDraws
	if s.Failed {
		p.current.Failed++
	}
	if s.Presented {
		p.current.Presented++
	}

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	r := p.current
	r.FPS = float64(r.Frames) / elapsed.Seconds()
	r.AvgFrame = p.total / time.Duration(r.Frames)
	p.readMemory(&r, elapsed)

	p.logger.Info("profiler",
		"fps", r.FPS,
		"frame_avg", r.AvgFrame,
		"frame_max", r.MaxFrame,
		"failed", r.Failed,
		"presented", r.Presented,
		"draws", r.DrawCalls,
		"shadow_draws", r.ShadowDraws,
		"heap_mb", r.HeapMB,
		"alloc_rate_mb", r.AllocRateMB,
		"gc", r.GCCount,
		"gc_last_us", r.LastPauseUs,
		"gc_max_us", r.MaxPauseUs,
		"sys_mb", r.SysMB,
	)

	p.last = r
	p.current = Report{}
	p.total = 0
	p.lastTime = currentTime
	return true
}

// Last returns the most recently logged report.
func (p *Profiler) Last() Report {
	return p.last
}

// readMemory fills the memory fields of r from the runtime.
func (p *Profiler) readMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 pauses
	gcCount := p.memStats.NumGC
	r.GCCount = gcCount
	if gcCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
