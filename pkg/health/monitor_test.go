package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okProbe() ProbeFunc {
	return func(ctx context.Context) error { return nil }
}

func failProbe(msg string) ProbeFunc {
	return func(ctx context.Context) error { return errors.New(msg) }
}

func TestCheckAllHealthy(t *testing.T) {
	m := NewMonitor(okProbe(), okProbe(), okProbe(), time.Minute)
	status := m.Check(context.Background())

	assert.Equal(t, "healthy", status.Status)
	assert.True(t, status.Healthy())
	require.Len(t, status.Services, 3)
	for name, svc := range status.Services {
		assert.True(t, svc.OK, name)
		assert.Empty(t, svc.Error, name)
	}
}

func TestCheckDegraded(t *testing.T) {
	m := NewMonitor(okProbe(), failProbe("connection refused"), okProbe(), time.Minute)
	status := m.Check(context.Background())

	assert.Equal(t, "degraded", status.Status)
	assert.False(t, status.Healthy())
	assert.True(t, status.Services[ServiceOpenAI].OK)
	assert.True(t, status.Services[ServiceVectorStore].OK)

	db := status.Services[ServiceSupabase]
	assert.False(t, db.OK)
	assert.Contains(t, db.Error, "connection refused")
}

func TestCheckUnhealthy(t *testing.T) {
	m := NewMonitor(failProbe("down"), failProbe("down"), nil, time.Minute)
	status := m.Check(context.Background())

	assert.Equal(t, "unhealthy", status.Status)
	require.Len(t, status.Services, 2)
}

func TestVectorStoreProbeOptional(t *testing.T) {
	m := NewMonitor(okProbe(), okProbe(), nil, time.Minute)
	status := m.Check(context.Background())

	assert.Equal(t, "healthy", status.Status)
	_, present := status.Services[ServiceVectorStore]
	assert.False(t, present)
}

func TestSnapshotCaching(t *testing.T) {
	var probes atomic.Int32
	counting := ProbeFunc(func(ctx context.Context) error {
		probes.Add(1)
		return nil
	})

	m := NewMonitor(counting, okProbe(), nil, time.Minute)

	first := m.Snapshot(context.Background())
	second := m.Snapshot(context.Background())

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), probes.Load())
}

func TestSnapshotRefreshesWhenStale(t *testing.T) {
	var probes atomic.Int32
	counting := ProbeFunc(func(ctx context.Context) error {
		probes.Add(1)
		return nil
	})

	m := NewMonitor(counting, okProbe(), nil, time.Minute)
	stale := m.Check(context.Background())
	stale.CheckedAt = stale.CheckedAt.Add(-snapshotTTL - time.Second)

	fresh := m.Snapshot(context.Background())
	assert.NotSame(t, stale, fresh)
	assert.Equal(t, int32(2), probes.Load())
}

func TestStartStop(t *testing.T) {
	var probes atomic.Int32
	counting := ProbeFunc(func(ctx context.Context) error {
		probes.Add(1)
		return nil
	})

	m := NewMonitor(counting, okProbe(), nil, 10*time.Millisecond)
	m.Start(context.Background())

	assert.Eventually(t, func() bool { return probes.Load() >= 2 },
		time.Second, 5*time.Millisecond)

	m.Stop()
	settled := probes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, probes.Load())
}
