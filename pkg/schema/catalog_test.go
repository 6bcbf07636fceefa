package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogSource() SchemaMap {
	return SchemaMap{
		"Users":  {"UserID": TypeString, "Name": TypeString},
		"Orders": {"OrderID": TypeString},
		"Items":  {"ItemID": TypeString},
	}
}

func TestCatalog_LookupHitAndMiss(t *testing.T) {
	c := NewCatalog(catalogSource(), 2)

	s, ok := c.Lookup("Users")
	require.True(t, ok)
	assert.Equal(t, TypeString, s["UserID"])

	_, ok = c.Lookup("Ghosts")
	assert.False(t, ok)
}

func TestCatalog_EveryTableVisibleBeyondCapacity(t *testing.T) {
	c := NewCatalog(catalogSource(), 1)

	for _, table := range []string{"Users", "Orders", "Items", "Users"} {
		_, ok := c.Lookup(table)
		assert.True(t, ok, table)
	}
	assert.Equal(t, 1, c.CacheSize())
}

func TestCatalog_TableNamesIgnoresCacheState(t *testing.T) {
	c := NewCatalog(catalogSource(), 1)
	c.Lookup("Users")

	assert.Equal(t, []string{"Items", "Orders", "Users"}, c.TableNames())
}

func TestCatalog_MissRecaches(t *testing.T) {
	c := NewCatalog(catalogSource(), 2)

	c.Lookup("Users")
	assert.Equal(t, 1, c.CacheSize())
	c.Lookup("Users")
	assert.Equal(t, 1, c.CacheSize())
	c.Lookup("Orders")
	assert.Equal(t, 2, c.CacheSize())
}

func TestSchemaMap_Lookup(t *testing.T) {
	m := catalogSource()

	s, ok := m.Lookup("Orders")
	require.True(t, ok)
	assert.Equal(t, TypeString, s["OrderID"])

	_, ok = m.Lookup("Ghosts")
	assert.False(t, ok)
}
