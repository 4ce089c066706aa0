package geoadj

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/PolicyEngine/spm-calculator/internal/model"
)

// tableCache memoizes rent tables keyed by (geography level, year). Tract
// tables run to tens of thousands of rows, so the cache keeps lookup cost
// bounded with LRU eviction. Population is idempotent: concurrent loaders
// of the same key write interchangeable data, last writer wins.
type tableCache struct {
	mu        sync.RWMutex
	tables    map[string]model.RentTable
	order     []string // LRU order: front=oldest, back=newest
	maxTables int
	hits      atomic.Int64
	misses    atomic.Int64
}

// CacheStats contains cache performance counters.
type CacheStats struct {
	Tables    int     `json:"tables"`
	MaxTables int     `json:"max_tables"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
}

func newTableCache(maxTables int) *tableCache {
	return &tableCache{
		tables:    make(map[string]model.RentTable),
		maxTables: maxTables,
	}
}

func tableKey(geoType model.GeographyType, year int) string {
	return fmt.Sprintf("%s/%d", geoType, year)
}

// get retrieves a cached table, or nil on a miss.
func (c *tableCache) get(geoType model.GeographyType, year int) model.RentTable {
	key := tableKey(geoType, year)

	c.mu.Lock()
	defer c.mu.Unlock()

	table, ok := c.tables[key]
	if !ok {
		c.misses.Add(1)
		return nil
	}

	// Move to back (most recently used).
	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return table
}

// put stores a table, evicting the oldest entry if at capacity.
func (c *tableCache) put(geoType model.GeographyType, year int, table model.RentTable) {
	key := tableKey(geoType, year)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[key]; ok {
		c.tables[key] = table
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for len(c.tables) >= c.maxTables && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.tables, oldest)
	}

	c.tables[key] = table
	c.order = append(c.order, key)
}

// clear purges all entries, forcing a reload on next access.
func (c *tableCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[string]model.RentTable)
	c.order = nil
}

// stats returns cache performance counters.
func (c *tableCache) stats() CacheStats {
	c.mu.RLock()
	tables := len(c.tables)
	maxTables := c.maxTables
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Tables:    tables,
		MaxTables: maxTables,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
	}
}

func (c *tableCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
