package schema

import (
	"container/list"
	"sync"
)

// DefaultCacheCapacity bounds schema memory for databases with many tables.
const DefaultCacheCapacity = 100

// Cache is a fixed-capacity LRU over table name -> TableSchema. Inserting
// beyond capacity evicts the least-recently-used entry; both Get hits and
// Set calls promote the entry to most-recently-used. Safe for concurrent
// use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	table  string
	schema TableSchema
}

// NewCache creates a cache holding at most capacity table schemas.
// Non-positive capacities fall back to DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Set stores the schema for a table. Updating an existing table promotes
// it without evicting; a new table at capacity evicts the LRU entry first.
func (c *Cache) Set(table string, schema TableSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[table]; ok {
		elem.Value.(*cacheEntry).schema = schema
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).table)
		}
	}

	c.entries[table] = c.order.PushFront(&cacheEntry{table: table, schema: schema})
}

// Get returns the schema for a table, promoting it on a hit.
func (c *Cache) Get(table string) (TableSchema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[table]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).schema, true
}

// GetAll returns a snapshot of every cached schema. Does not affect
// recency order.
func (c *Cache) GetAll() SchemaMap {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(SchemaMap, len(c.entries))
	for table, elem := range c.entries {
		snapshot[table] = elem.Value.(*cacheEntry).schema
	}
	return snapshot
}

// Size returns the number of cached tables.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
