package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBalances(t *testing.T) {
	c := New("test")
	c.RecordSuccess(100 * time.Millisecond)
	c.RecordSuccess(200 * time.Millisecond)
	c.RecordFailure(300 * time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.SuccessfulRequests)
	assert.Equal(t, int64(1), snap.FailedRequests)
	assert.Equal(t, snap.TotalRequests, snap.SuccessfulRequests+snap.FailedRequests)
	assert.InDelta(t, 200.0, snap.AverageResponseTimeMS, 0.001)
	assert.False(t, snap.LastRequestTime.IsZero())
	assert.Equal(t, "test", snap.Version)
}

func TestRunningAverage(t *testing.T) {
	c := New("test")
	durations := []time.Duration{
		50 * time.Millisecond, 150 * time.Millisecond, 250 * time.Millisecond, 350 * time.Millisecond,
	}
	var sum float64
	for i, d := range durations {
		c.RecordSuccess(d)
		sum += float64(d.Milliseconds())
		assert.InDelta(t, sum/float64(i+1), c.Snapshot().AverageResponseTimeMS, 0.001)
	}
}

func TestCacheHitRateClamped(t *testing.T) {
	c := New("test")
	for i := 0; i < 200; i++ {
		c.RecordCacheHit()
	}
	assert.Equal(t, 1.0, c.Snapshot().CacheHitRate)

	for i := 0; i < 2000; i++ {
		c.RecordCacheMiss()
	}
	assert.Equal(t, 0.0, c.Snapshot().CacheHitRate)

	c.RecordCacheHit()
	assert.InDelta(t, 0.01, c.Snapshot().CacheHitRate, 1e-9)
	c.RecordCacheMiss()
	assert.InDelta(t, 0.009, c.Snapshot().CacheHitRate, 1e-9)
}

func TestConcurrentRecording(t *testing.T) {
	c := New("test")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if j%2 == 0 {
					c.RecordSuccess(10 * time.Millisecond)
				} else {
					c.RecordFailure(10 * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.Equal(t, int64(1000), snap.TotalRequests)
	assert.Equal(t, int64(500), snap.SuccessfulRequests)
	assert.Equal(t, int64(500), snap.FailedRequests)
}
