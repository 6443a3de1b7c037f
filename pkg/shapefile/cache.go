package shapefile

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// DatasetCache keeps loaded datasets in memory with LRU eviction.
//
// Memory use is estimated from record and vertex counts; the estimate is
// approximate and the limit is enforced only when datasets are added.
//
// Example:
//
//	cache := shapefile.NewDatasetCache(512 * 1024 * 1024) // 512MB
//	ds, err := cache.Get("states", func() (*shapefile.Dataset, error) {
//	    return shapefile.LoadDataset("/data/states", shapefile.DefaultReadOptions())
//	})
type DatasetCache struct {
	maxMemory  int64
	usedMemory int64
	datasets   map[string]*cacheEntry
	lru        *list.List // most recent at front
	mu         sync.Mutex
}

type cacheEntry struct {
	name         string
	dataset      *Dataset
	memorySize   int64
	element      *list.Element
	lastAccessed time.Time
	accessCount  int
}

// NewDatasetCache creates a cache with the given memory limit in bytes.
// 0 means unlimited.
func NewDatasetCache(maxMemoryBytes int64) *DatasetCache {
	return &DatasetCache{
		maxMemory: maxMemoryBytes,
		datasets:  make(map[string]*cacheEntry),
		lru:       list.New(),
	}
}

// Get returns the cached dataset or loads it with loader on a miss. A
// dataset too large to cache is still returned.
func (c *DatasetCache) Get(name string, loader func() (*Dataset, error)) (*Dataset, error) {
	c.mu.Lock()
	if entry, ok := c.datasets[name]; ok {
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.lru.MoveToFront(entry.element)
		c.mu.Unlock()
		return entry.dataset, nil
	}
	c.mu.Unlock()

	ds, err := loader()
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	_ = c.Add(name, ds)
	return ds, nil
}

// Add caches a dataset, evicting least-recently-used entries as needed.
// It fails only when the dataset alone exceeds the memory limit.
func (c *DatasetCache) Add(name string, ds *Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	memSize := estimateDatasetMemory(ds)

	if entry, ok := c.datasets[name]; ok {
		c.usedMemory += memSize - entry.memorySize
		entry.dataset = ds
		entry.memorySize = memSize
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.lru.MoveToFront(entry.element)
		c.evictOver(entry)
		return nil
	}

	if c.maxMemory > 0 && memSize > c.maxMemory {
		return fmt.Errorf("dataset too large for cache (%d bytes > %d bytes max)", memSize, c.maxMemory)
	}

	entry := &cacheEntry{
		name:         name,
		dataset:      ds,
		memorySize:   memSize,
		lastAccessed: time.Now(),
		accessCount:  1,
	}
	c.usedMemory += memSize
	entry.element = c.lru.PushFront(entry)
	c.datasets[name] = entry
	c.evictOver(entry)
	return nil
}

// evictOver drops LRU entries other than keep until usage fits.
// Must be called with c.mu held.
func (c *DatasetCache) evictOver(keep *cacheEntry) {
	if c.maxMemory <= 0 {
		return
	}
	for c.usedMemory > c.maxMemory {
		elem := c.lru.Back()
		if elem == nil {
			return
		}
		entry := elem.Value.(*cacheEntry)
		if entry == keep {
			return
		}
		c.removeEntry(entry)
	}
}

func (c *DatasetCache) removeEntry(entry *cacheEntry) {
	c.lru.Remove(entry.element)
	delete(c.datasets, entry.name)
	c.usedMemory -= entry.memorySize
}

// Remove drops a dataset from the cache.
func (c *DatasetCache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.datasets[name]; ok {
		c.removeEntry(entry)
	}
}

// Clear drops every dataset.
func (c *DatasetCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasets = make(map[string]*cacheEntry)
	c.lru.Init()
	c.usedMemory = 0
}

// CacheStats holds cache metrics.
type CacheStats struct {
	DatasetCount int   // datasets currently cached
	UsedMemory   int64 // estimated bytes in use
	MaxMemory    int64 // limit in bytes, 0 for unlimited
	TotalAccess  int   // accesses across cached datasets
}

// Stats returns cache statistics.
func (c *DatasetCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, entry := range c.datasets {
		total += entry.accessCount
	}
	return CacheStats{
		DatasetCount: len(c.datasets),
		UsedMemory:   c.usedMemory,
		MaxMemory:    c.maxMemory,
		TotalAccess:  total,
	}
}

// estimateDatasetMemory approximates a dataset's footprint:
//   - 1KB base overhead
//   - 256 bytes per record plus 64 per attribute
//   - 16 bytes per vertex
func estimateDatasetMemory(ds *Dataset) int64 {
	if ds == nil {
		return 0
	}
	size := int64(1024)
	for _, rec := range ds.Records {
		size += 256 + 64*int64(len(rec.Attributes))
		if !geom.IsEmpty(rec.Geometry) {
			size += 16 * int64(rec.Geometry.NumPoints())
		}
	}
	return size
}
