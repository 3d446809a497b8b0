// Package cache memoizes dialogue and emotional-state computation and runs the
// background task queue that warms it.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/easeaico/npc-heart/internal/emotion"
)

const (
	defaultDialogueCapacity = 1000
	defaultEvictBatch       = 100
)

// DialogueKey identifies a memoized dialogue response.
type DialogueKey struct {
	NPCID     string
	State     emotion.State
	ChoiceID  string
	QuestHash uint64
}

// String renders the key for shared tiers.
func (k DialogueKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%x", k.NPCID, k.State, k.ChoiceID, k.QuestHash)
}

// DialogueEntry is a memoized response.
type DialogueEntry struct {
	Text     string       `json:"text"`
	Tone     emotion.Tone `json:"tone"`
	Source   string       `json:"source"`
	CachedAt time.Time    `json:"cached_at"`
}

// SharedTier is a cache shared between processes, consulted on local misses.
type SharedTier interface {
	Get(ctx context.Context, key string) (DialogueEntry, bool, error)
	Set(ctx context.Context, key string, entry DialogueEntry) error
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// DialogueCache is a bounded response cache. When full it drops the oldest entries by
// cache time in one batch rather than one at a time.
type DialogueCache struct {
	mu         sync.Mutex
	entries    map[DialogueKey]DialogueEntry
	capacity   int
	evictBatch int
	shared     SharedTier
	nowFunc    func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewDialogueCache creates a cache holding at most capacity entries. shared may be nil.
func NewDialogueCache(capacity, evictBatch int, shared SharedTier) *DialogueCache {
	if capacity <= 0 {
		capacity = defaultDialogueCapacity
	}
	if evictBatch <= 0 {
		evictBatch = defaultEvictBatch
	}
	if evictBatch > capacity {
		evictBatch = capacity
	}
	return &DialogueCache{
		entries:    make(map[DialogueKey]DialogueEntry),
		capacity:   capacity,
		evictBatch: evictBatch,
		shared:     shared,
		nowFunc:    time.Now,
	}
}

// Get returns the entry for key, consulting the shared tier on a local miss.
func (c *DialogueCache) Get(ctx context.Context, key DialogueKey) (DialogueEntry, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
		return entry, true
	}

	if c.shared != nil {
		entry, found, err := c.shared.Get(ctx, key.String())
		if err != nil {
			slog.Warn("shared dialogue cache lookup failed", "key", key.String(), "error", err.Error())
		} else if found {
			c.storeLocal(key, entry)
			c.hits.Add(1)
			return entry, true
		}
	}

	c.misses.Add(1)
	return DialogueEntry{}, false
}

// Put stores entry under key. CachedAt is stamped here.
func (c *DialogueCache) Put(ctx context.Context, key DialogueKey, entry DialogueEntry) {
	entry.CachedAt = c.nowFunc()
	c.storeLocal(key, entry)

	if c.shared != nil {
		if err := c.shared.Set(ctx, key.String(), entry); err != nil {
			slog.Warn("shared dialogue cache write failed", "key", key.String(), "error", err.Error())
		}
	}
}

func (c *DialogueCache) storeLocal(key DialogueKey, entry DialogueEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = entry
}

// evictOldestLocked removes the evictBatch entries with the earliest cache time.
func (c *DialogueCache) evictOldestLocked() {
	keys := make([]DialogueKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].CachedAt.Before(c.entries[keys[j]].CachedAt)
	})

	n := c.evictBatch
	if overflow := len(c.entries) - c.capacity + 1; overflow > n {
		n = overflow
	}
	if n > len(keys) {
		n = len(keys)
	}
	for _, k := range keys[:n] {
		delete(c.entries, k)
	}
	c.evictions.Add(uint64(n))
}

// InvalidateNPC drops every local entry for npcID.
func (c *DialogueCache) InvalidateNPC(npcID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if k.NPCID == npcID {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Contains reports whether key is cached locally without touching statistics.
func (c *DialogueCache) Contains(key DialogueKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Stats returns a snapshot of the counters.
func (c *DialogueCache) Stats() Stats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      size,
	}
}
