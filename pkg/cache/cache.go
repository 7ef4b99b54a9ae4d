// Package cache provides the in-memory TTL cache used for tool responses and
// health snapshots. Entries expire at an absolute createdAt+ttl instant; a
// background sweeper prunes expired entries once a minute.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const sweepInterval = 60 * time.Second

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
	hits      int64
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.ttl
}

// Cache is a TTL map safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	cancel chan struct{}
	done   chan struct{}
}

// New creates an empty cache. Call StartSweeper to enable background pruning.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Key derives a stable cache key from a tool name and its argument object.
// Arguments are canonicalized by sorting keys so logically equal calls collide.
func Key(tool string, args map[string]any) string {
	sum := sha256.Sum256([]byte(tool + canonical(args)))
	return hex.EncodeToString(sum[:])[:16]
}

func canonical(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		raw, err := json.Marshal(args[k])
		if err != nil {
			raw = []byte(fmt.Sprintf("%q", fmt.Sprint(args[k])))
		}
		parts = append(parts, fmt.Sprintf("%q:%s", k, raw))
	}
	out := "{"
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out + "}"
}

// Put stores value under key for ttl. Non-positive ttl entries are rejected.
func (c *Cache) Put(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, createdAt: time.Now(), ttl: ttl}
}

// Get returns the live value for key, if any.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return nil, false
	}
	e.hits++
	return e.value, true
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes all expired entries and returns how many were pruned.
func (c *Cache) Sweep() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			pruned++
		}
	}
	return pruned
}

// StartSweeper launches the background pruning loop.
// Calling StartSweeper on a running cache is a no-op.
func (c *Cache) StartSweeper() {
	if c.cancel != nil {
		return
	}
	c.cancel = make(chan struct{})
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.cancel:
				return
			case <-ticker.C:
				if pruned := c.Sweep(); pruned > 0 {
					slog.Debug("Cache sweep complete", "pruned", pruned)
				}
			}
		}
	}()
}

// StopSweeper stops the background loop and waits for it to exit.
func (c *Cache) StopSweeper() {
	if c.cancel == nil {
		return
	}
	close(c.cancel)
	<-c.done
	c.cancel = nil
	c.done = nil
}
