package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New()
	c.Put("k", "value", time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestExpiry(t *testing.T) {
	c := New()
	c.Put("k", 42, 20*time.Millisecond)

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestZeroTTLRejected(t *testing.T) {
	c := New()
	c.Put("k", "v", 0)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestSweepPrunesOnlyExpired(t *testing.T) {
	c := New()
	c.Put("old", 1, 10*time.Millisecond)
	c.Put("live", 2, time.Minute)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("live")
	assert.True(t, ok)
}

func TestKeyCanonicalization(t *testing.T) {
	a := Key("search_jira_tickets", map[string]any{"query": "auth", "maxResults": 10})
	b := Key("search_jira_tickets", map[string]any{"maxResults": 10, "query": "auth"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	c := Key("search_jira_tickets", map[string]any{"query": "other", "maxResults": 10})
	assert.NotEqual(t, a, c)

	d := Key("search_git_commits", map[string]any{"query": "auth", "maxResults": 10})
	assert.NotEqual(t, a, d)
}

func TestSweeperLifecycle(t *testing.T) {
	c := New()
	c.StartSweeper()
	c.StartSweeper() // no-op on running sweeper
	c.StopSweeper()
	c.StopSweeper() // no-op on stopped sweeper
}
