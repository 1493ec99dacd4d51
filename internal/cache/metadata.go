package cache

import (
	"sync"
	"time"
)

// Partition names the two metadata families cached from the CRM. They have
// independent lifetimes: the module list changes rarely, field schemas more
// often.
type Partition string

const (
	PartitionModules Partition = "modules"
	PartitionFields  Partition = "fields"
)

// Default lifetimes used when the configuration does not override them.
const (
	DefaultModuleTTL = 24 * time.Hour
	DefaultFieldTTL  = 12 * time.Hour
)

// Clock abstracts time.Now for deterministic expiry tests.
type Clock func() time.Time

type entry struct {
	value     interface{}
	writtenAt time.Time
}

type partition struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

// MetadataCache is a two-partition TTL cache for CRM metadata. Entries are
// valid while now-writtenAt is strictly less than the partition TTL; an
// expired entry behaves exactly like a missing one and is overwritten in
// place on the next Put.
type MetadataCache struct {
	partitions map[Partition]*partition
	clock      Clock
}

// NewMetadataCache creates a metadata cache with the given per-partition
// lifetimes. Non-positive TTLs fall back to the defaults.
func NewMetadataCache(moduleTTL, fieldTTL time.Duration) *MetadataCache {
	if moduleTTL <= 0 {
		moduleTTL = DefaultModuleTTL
	}
	if fieldTTL <= 0 {
		fieldTTL = DefaultFieldTTL
	}
	return &MetadataCache{
		partitions: map[Partition]*partition{
			PartitionModules: {ttl: moduleTTL, entries: make(map[string]entry)},
			PartitionFields:  {ttl: fieldTTL, entries: make(map[string]entry)},
		},
		clock: time.Now,
	}
}

// WithClock replaces the cache's time source. Intended for tests.
func (c *MetadataCache) WithClock(clock Clock) *MetadataCache {
	c.clock = clock
	return c
}

// Get returns the cached value for key if it exists and has not expired.
func (c *MetadataCache) Get(p Partition, key string) (interface{}, bool) {
	part, ok := c.partitions[p]
	if !ok {
		return nil, false
	}

	part.mu.RLock()
	defer part.mu.RUnlock()

	e, ok := part.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock().Sub(e.writtenAt) >= part.ttl {
		return nil, false
	}
	return e.value, true
}

// Put stores a value under key, resetting its lifetime.
func (c *MetadataCache) Put(p Partition, key string, value interface{}) {
	part, ok := c.partitions[p]
	if !ok {
		return
	}

	part.mu.Lock()
	defer part.mu.Unlock()
	part.entries[key] = entry{value: value, writtenAt: c.clock()}
}

// Invalidate drops a single key from a partition.
func (c *MetadataCache) Invalidate(p Partition, key string) {
	part, ok := c.partitions[p]
	if !ok {
		return
	}

	part.mu.Lock()
	defer part.mu.Unlock()
	delete(part.entries, key)
}
