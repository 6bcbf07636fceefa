package schema

// Source provides table schemas by name. SchemaMap is the plain
// implementation; Catalog adds bounded caching in front of one.
type Source interface {
	Lookup(table string) (TableSchema, bool)
	TableNames() []string
}

// Catalog serves schema lookups through a bounded LRU cache backed by the
// full parsed SchemaMap. Cache misses fall back to the source and re-cache,
// so a capacity smaller than the schema's table count only affects which
// entries stay hot, never which tables are visible.
type Catalog struct {
	cache  *Cache
	source SchemaMap
}

// NewCatalog wraps the parsed source map in a cache of the given capacity.
func NewCatalog(source SchemaMap, capacity int) *Catalog {
	return &Catalog{
		cache:  NewCache(capacity),
		source: source,
	}
}

// Lookup returns the named table's schema, preferring the cached copy.
func (c *Catalog) Lookup(table string) (TableSchema, bool) {
	if s, ok := c.cache.Get(table); ok {
		return s, true
	}
	s, ok := c.source.Lookup(table)
	if ok {
		c.cache.Set(table, s)
	}
	return s, ok
}

// TableNames returns every source table name in sorted order, regardless
// of what the cache currently holds.
func (c *Catalog) TableNames() []string {
	return c.source.TableNames()
}

// CacheSize returns the number of entries currently cached.
func (c *Catalog) CacheSize() int {
	return c.cache.Size()
}
