// Package health probes the upstream services in parallel and aggregates the
// results into a cached status snapshot.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	probeTimeout = 5 * time.Second
	snapshotTTL  = 30 * time.Second
)

// Service keys in the status map.
const (
	ServiceOpenAI      = "openai"
	ServiceSupabase    = "supabase"
	ServiceVectorStore = "vectorStore"
)

// ServiceStatus is the outcome of one probe.
type ServiceStatus struct {
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Status aggregates all probes.
type Status struct {
	Status    string                   `json:"status"` // healthy, degraded, unhealthy
	Services  map[string]ServiceStatus `json:"services"`
	CheckedAt time.Time                `json:"checkedAt"`
}

// Healthy reports whether every probed service answered.
func (s *Status) Healthy() bool { return s != nil && s.Status == "healthy" }

// Prober is the minimal surface the monitor needs per upstream.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a bare function to Prober.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// Monitor runs the probes on demand and on a background interval, caching the
// latest snapshot.
type Monitor struct {
	llm         Prober
	db          Prober
	vectorStore Prober // nil when no vector store is configured
	interval    time.Duration

	mu       sync.RWMutex
	snapshot *Status

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor wires the monitor. vectorStore may be nil.
func NewMonitor(llm, db, vectorStore Prober, interval time.Duration) *Monitor {
	return &Monitor{llm: llm, db: db, vectorStore: vectorStore, interval: interval}
}

// Check runs all probes in parallel and replaces the cached snapshot.
func (m *Monitor) Check(ctx context.Context) *Status {
	status := &Status{
		Services:  map[string]ServiceStatus{},
		CheckedAt: time.Now().UTC(),
	}

	type outcome struct {
		name   string
		result ServiceStatus
	}
	probes := map[string]Prober{
		ServiceOpenAI:   m.llm,
		ServiceSupabase: m.db,
	}
	if m.vectorStore != nil {
		probes[ServiceVectorStore] = m.vectorStore
	}

	results := make(chan outcome, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for name, prober := range probes {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, probeTimeout)
			defer cancel()

			started := time.Now()
			err := prober.Probe(probeCtx)
			result := ServiceStatus{
				OK:        err == nil,
				LatencyMS: time.Since(started).Milliseconds(),
			}
			if err != nil {
				result.Error = err.Error()
			}
			results <- outcome{name: name, result: result}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	healthy := 0
	for out := range results {
		status.Services[out.name] = out.result
		if out.result.OK {
			healthy++
		}
	}

	switch {
	case healthy == len(probes):
		status.Status = "healthy"
	case healthy > 0:
		status.Status = "degraded"
	default:
		status.Status = "unhealthy"
	}

	m.mu.Lock()
	m.snapshot = status
	m.mu.Unlock()

	if !status.Healthy() {
		slog.Warn("Health check not healthy", "status", status.Status)
	}
	return status
}

// Snapshot returns the cached status, refreshing it when stale.
func (m *Monitor) Snapshot(ctx context.Context) *Status {
	m.mu.RLock()
	cached := m.snapshot
	m.mu.RUnlock()

	if cached != nil && time.Since(cached.CheckedAt) < snapshotTTL {
		return cached
	}
	return m.Check(ctx)
}

// Start launches the periodic probe loop.
func (m *Monitor) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				m.Check(loopCtx)
			}
		}
	}()
	slog.Info("Health monitor started", "interval", m.interval)
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	slog.Info("Health monitor stopped")
}
