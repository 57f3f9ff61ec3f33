// Package profiler reports frame rate, memory and GPU driver traffic at a fixed interval.
package profiler

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
)

// Stats is the driver traffic recorded during one interval.
type Stats struct {
	Frames         int
	Uploads        uint64
	UploadedBytes  uint64
	SamplerUpdates uint64
	Binds          uint64
	Creates        uint64
	Destroys       uint64
}

// counters are updated by the driver wrapper, possibly from several goroutines.
type counters struct {
	uploads        atomic.Uint64
	uploadedBytes  atomic.Uint64
	samplerUpdates atomic.Uint64
	binds          atomic.Uint64
	creates        atomic.Uint64
	destroys       atomic.Uint64
}

// Profiler tracks frame rate, memory statistics and the driver calls made through Driver.
// Outputs stats to the engine logger at a configurable interval.
type Profiler struct {
	counters       counters
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options configuring the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Driver wraps drv so that every call made through the result is counted by the profiler.
//
// Parameters:
//   - drv: the driver to wrap
//
// Returns:
//   - driver.Driver: the counting driver
func (p *Profiler) Driver(drv driver.Driver) driver.Driver {
	return &countingDriver{Driver: drv, c: &p.counters}
}

// Last returns the stats of the most recently completed interval.
//
// Returns:
//   - Stats: the last reported stats
func (p *Profiler) Last() Stats {
	return p.last
}

// Tick should be called once per frame. Logs performance statistics when the update interval has
// elapsed: FPS, heap usage, allocation rate, GC pauses and the driver traffic of the interval.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.last = Stats{
		Frames:         p.frameCount,
		Uploads:        p.counters.uploads.Swap(0),
		UploadedBytes:  p.counters.uploadedBytes.Swap(0),
		SamplerUpdates: p.counters.samplerUpdates.Swap(0),
		Binds:          p.counters.binds.Swap(0),
		Creates:        p.counters.creates.Swap(0),
		Destroys:       p.counters.destroys.Swap(0),
	}

	common.Logger().Info("profile",
		"fps", fps,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_us", lastPauseUs,
		"gc_max_us", maxPauseUs,
		"sys_mb", sysMB,
		"uploads", p.last.Uploads,
		"uploaded_bytes", p.last.UploadedBytes,
		"sampler_updates", p.last.SamplerUpdates,
		"binds", p.last.Binds,
		"creates", p.last.Creates,
		"destroys", p.last.Destroys,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
