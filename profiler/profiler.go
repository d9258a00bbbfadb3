package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/gfx-go/logging"
)

// Profiler tracks frame rate, draw statistics and memory usage for
// performance monitoring. Outputs stats to the log at a configurable
// interval. Not safe for concurrent use; the graphics context drives it
// from the frame loop.
type Profiler struct {
	frameCount     int
	drawCalls      uint64
	vertices       uint64
	instances      uint64
	dispatches     uint64
	retired        uint64
	frameStart     time.Time
	frameCPUTime   time.Duration
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
}

// FrameBegin marks the start of CPU frame recording. Called once per frame
// before any draws are recorded.
func (p *Profiler) FrameBegin() {
	p.frameStart = time.Now()
}

// RecordDraw accumulates one draw call into the current frame's statistics.
//
// Parameters:
//   - count: number of vertices or indices drawn
//   - instances: number of instances drawn
func (p *Profiler) RecordDraw(count, instances uint32) {
	p.drawCalls++
	p.vertices += uint64(count) * uint64(instances)
	p.instances += uint64(instances)
}

// RecordDispatch accumulates one compute dispatch into the current frame's
// statistics.
func (p *Profiler) RecordDispatch() {
	p.dispatches++
}

// RecordRetired accumulates one resource handed to deferred destruction.
func (p *Profiler) RecordRetired() {
	p.retired++
}

// FrameEnd should be called once per frame after submission to track frame
// timing. Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, CPU frame time, draw calls, heap usage,
// allocation rate, GC count/pause times, total memory.
//
// Parameters:
//   - pipelineCount: current number of cached pipelines
//
// Returns:
//   - bool: true if stats were logged this frame, false otherwise
func (p *Profiler) FrameEnd(pipelineCount int) bool {
	p.frameCount++
	if !p.frameStart.IsZero() {
		p.frameCPUTime += time.Since(p.frameStart)
	}

	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	avgFrameMS := 0.0
	avgDraws := 0.0
	if p.frameCount > 0 {
		avgFrameMS = p.frameCPUTime.Seconds() * 1000 / float64(p.frameCount)
		avgDraws = float64(p.drawCalls) / float64(p.frameCount)
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	// Calculate allocation rate (MB/sec)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// Calculate GC pause stats (last pause and max recent pause)
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		// Find max pause since last report
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	logging.Infof("FPS: %.2f | CPU: %.2f ms | Draws: %.1f/frame (%d vertices, %d instances, %d dispatches) | Pipelines: %d | Retired: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, avgFrameMS, avgDraws, p.vertices, p.instances, p.dispatches, pipelineCount, p.retired,
		allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.drawCalls = 0
	p.vertices = 0
	p.instances = 0
	p.dispatches = 0
	p.retired = 0
	p.frameCPUTime = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
