package monitoring

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Collector tracks meta-metrics about the agent itself: how the
// pipeline is behaving (polls, fetches, dedup hits, discarded stale
// responses) plus process resource usage. Surfaced through the health
// report details.
type Collector struct {
	mu sync.RWMutex

	// Catalog pipeline
	catalogPolls    int64
	catalogFailures int64
	pollDurations   []float64 // recent durations, seconds

	// Series pipeline
	seriesFetches  int64
	seriesFailures int64
	dedupSkips     int64
	staleDiscards  int64
	fetchDurations []float64 // recent durations, seconds

	// Configuration
	maxSamples int // Maximum number of duration samples to keep

	proc *process.Process
}

// NewCollector creates a new self-metrics collector
func NewCollector() *Collector {
	// Process handle is best-effort; resource stats are simply omitted
	// from the report when unavailable.
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Collector{
		pollDurations:  make([]float64, 0, 100),
		fetchDurations: make([]float64, 0, 100),
		maxSamples:     100,
		proc:           proc,
	}
}

// RecordPollSuccess records a successful catalog poll
func (c *Collector) RecordPollSuccess(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogPolls++
	c.pollDurations = appendSample(c.pollDurations, duration.Seconds(), c.maxSamples)
}

// RecordPollFailure records a failed catalog poll
func (c *Collector) RecordPollFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalogFailures++
}

// RecordFetchSuccess records a successful series fetch
func (c *Collector) RecordFetchSuccess(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seriesFetches++
	c.fetchDurations = appendSample(c.fetchDurations, duration.Seconds(), c.maxSamples)
}

// RecordFetchFailure records a failed series fetch
func (c *Collector) RecordFetchFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seriesFailures++
}

// RecordDedupSkip records a series request skipped by key dedup
func (c *Collector) RecordDedupSkip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dedupSkips++
}

// RecordStaleDiscard records a stale series response thrown away
func (c *Collector) RecordStaleDiscard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staleDiscards++
}

// appendSample appends keeping at most max samples (drop oldest)
func appendSample(samples []float64, v float64, max int) []float64 {
	samples = append(samples, v)
	if len(samples) > max {
		samples = samples[len(samples)-max:]
	}
	return samples
}

// Report returns a point-in-time view of all counters plus process
// resource usage, suitable for embedding in health report details
func (c *Collector) Report() map[string]interface{} {
	c.mu.RLock()
	report := map[string]interface{}{
		"catalog_polls":        c.catalogPolls,
		"catalog_failures":     c.catalogFailures,
		"series_fetches":       c.seriesFetches,
		"series_failures":      c.seriesFailures,
		"dedup_skips":          c.dedupSkips,
		"stale_discards":       c.staleDiscards,
		"poll_duration_avg_s":  average(c.pollDurations),
		"fetch_duration_avg_s": average(c.fetchDurations),
	}
	proc := c.proc
	c.mu.RUnlock()

	if proc != nil {
		if cpuPct, err := proc.CPUPercent(); err == nil {
			report["process_cpu_percent"] = cpuPct
		}
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			report["process_rss_bytes"] = mem.RSS
		}
	}

	return report
}

// average computes the mean of samples, 0 when empty
func average(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
