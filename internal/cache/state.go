package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/easeaico/npc-heart/internal/emotion"
)

// DefaultStateTTL is how long a computed emotional snapshot stays valid.
const DefaultStateTTL = 10 * time.Minute

// StateCache memoizes per-NPC emotional snapshots for a bounded window.
type StateCache struct {
	lru *expirable.LRU[string, emotion.Snapshot]
}

// NewStateCache creates a cache for up to size NPCs.
func NewStateCache(size int, ttl time.Duration) *StateCache {
	if size <= 0 {
		size = defaultGeneralSize
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateCache{lru: expirable.NewLRU[string, emotion.Snapshot](size, nil, ttl)}
}

// Get returns the cached snapshot for npcID.
func (c *StateCache) Get(npcID string) (emotion.Snapshot, bool) {
	return c.lru.Get(npcID)
}

// Put stores the snapshot for npcID.
func (c *StateCache) Put(npcID string, snap emotion.Snapshot) {
	c.lru.Add(npcID, snap)
}

// Invalidate forgets npcID.
func (c *StateCache) Invalidate(npcID string) {
	c.lru.Remove(npcID)
}
