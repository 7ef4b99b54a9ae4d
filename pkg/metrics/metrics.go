// Package metrics tracks per-process request counters and latency.
//
// All updates happen under a single mutex; readers receive an immutable
// snapshot. The running average uses the incremental form
// avg = (avg*(n-1)+d)/n so no per-request history is retained.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the collector state.
type Snapshot struct {
	Uptime                time.Duration `json:"-"`
	UptimeMS              int64         `json:"uptime_ms"`
	TotalRequests         int64         `json:"total_requests"`
	SuccessfulRequests    int64         `json:"successful_requests"`
	FailedRequests        int64         `json:"failed_requests"`
	AverageResponseTimeMS float64       `json:"average_response_time_ms"`
	CacheHitRate          float64       `json:"cache_hit_rate"`
	LastRequestTime       time.Time     `json:"last_request_time"`
	Version               string        `json:"version"`
}

// Collector owns the shared counters. Safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	startedAt time.Time
	version   string

	total     int64
	succeeded int64
	failed    int64
	avgMS     float64
	hitRate   float64
	lastAt    time.Time
}

// New creates a collector stamped with the process version tag.
func New(version string) *Collector {
	return &Collector{startedAt: time.Now(), version: version}
}

// RecordSuccess registers one successful tool call and its duration.
func (c *Collector) RecordSuccess(d time.Duration) {
	c.record(d, true)
}

// RecordFailure registers one failed tool call and its duration.
func (c *Collector) RecordFailure(d time.Duration) {
	c.record(d, false)
}

func (c *Collector) record(d time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	if ok {
		c.succeeded++
	} else {
		c.failed++
	}
	n := float64(c.total)
	c.avgMS = (c.avgMS*(n-1) + float64(d.Milliseconds())) / n
	c.lastAt = time.Now()
}

// RecordCacheHit bumps the exponential hit-rate estimator upward.
func (c *Collector) RecordCacheHit() {
	c.bumpHitRate(0.01)
}

// RecordCacheMiss decays the estimator.
func (c *Collector) RecordCacheMiss() {
	c.bumpHitRate(-0.001)
}

func (c *Collector) bumpHitRate(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hitRate += delta
	if c.hitRate > 1 {
		c.hitRate = 1
	}
	if c.hitRate < 0 {
		c.hitRate = 0
	}
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	uptime := time.Since(c.startedAt)
	return Snapshot{
		Uptime:                uptime,
		UptimeMS:              uptime.Milliseconds(),
		TotalRequests:         c.total,
		SuccessfulRequests:    c.succeeded,
		FailedRequests:        c.failed,
		AverageResponseTimeMS: c.avgMS,
		CacheHitRate:          c.hitRate,
		LastRequestTime:       c.lastAt,
		Version:               c.version,
	}
}
