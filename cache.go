package volume

import (
	lru "github.com/hashicorp/golang-lru"
)

// ChunkCoord is a chunk's grid coordinate in [z,y,x] order.
type ChunkCoord [3]int

// ChunkKey identifies one decoded chunk: array identity, chunk coordinate,
// and time index.
type ChunkKey struct {
	ArrayID string
	Coord   ChunkCoord
	Time    int
}

// DecodedChunk is a chunk's decoded elements plus the shape they were
// decoded at.
type DecodedChunk struct {
	Elements []byte
	Shape    Voxel
	Type     ElementType
}

// ChunkCache is the bounded LRU of decoded chunks shared by the coalescer
// and the OMERO statistics dependency. It is grounded on the
// pack's only LRU dependency, hashicorp/golang-lru (an indirect dependency
// of noisetorch's go.mod) rather than a hand-rolled list+map, as recorded
// in DESIGN.md's grounding table.
type ChunkCache struct {
	lru *lru.Cache
}

// DefaultCacheCapacity is the default chunk cache capacity.
const DefaultCacheCapacity = 200

// NewChunkCache creates a cache bounded to capacity entries (using
// maxCacheEntries). capacity <= 0 falls back to DefaultCacheCapacity.
func NewChunkCache(capacity int) *ChunkCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c, err := lru.New(capacity)
	if err != nil {
		// lru.New only errors on size <= 0, already guarded above.
		panic(err)
	}
	return &ChunkCache{lru: c}
}

// Get returns the decoded chunk for key, if present. Accessing a key
// refreshes its recency (standard LRU semantics).
func (c *ChunkCache) Get(key ChunkKey) (DecodedChunk, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return DecodedChunk{}, false
	}
	return v.(DecodedChunk), true
}

// Add inserts or replaces the decoded chunk for key, evicting the least
// recently used entry if the cache is over capacity (no TTL,
// eviction on insertion only).
func (c *ChunkCache) Add(key ChunkKey, chunk DecodedChunk) {
	c.lru.Add(key, chunk)
}

// Remove evicts key if present.
func (c *ChunkCache) Remove(key ChunkKey) { c.lru.Remove(key) }

// Len returns the current entry count; it never exceeds the configured
// capacity between operations.
func (c *ChunkCache) Len() int { return c.lru.Len() }

// Purge empties the cache.
func (c *ChunkCache) Purge() { c.lru.Purge() }
