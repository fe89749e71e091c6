package sqlgraph

import (
	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/edge"
)

type entityKey struct {
	typ string
	id  any
}

type linkKey struct {
	rel      *edge.Relation
	src, tgt any
}

// Cache is the first-level cache of one call: an identity map from
// (type, identifier) to the materialized entity, and the set of relation
// links already attached.
type Cache struct {
	entities map[entityKey]any
	links    map[linkKey]struct{}
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entities: make(map[entityKey]any),
		links:    make(map[linkKey]struct{}),
	}
}

// Get returns the entity of type typ with the given identifier.
func (c *Cache) Get(typ string, id any) (any, bool) {
	v, ok := c.entities[entityKey{typ, schema.Key(id)}]
	return v, ok
}

// Put stores an entity.
func (c *Cache) Put(typ string, id any, v any) {
	c.entities[entityKey{typ, schema.Key(id)}] = v
}

// Len returns the number of cached entities.
func (c *Cache) Len() int { return len(c.entities) }

// link records a relation link, and reports if it was new.
func (c *Cache) link(r *edge.Relation, src, tgt any) bool {
	k := linkKey{r, schema.Key(src), schema.Key(tgt)}
	if _, ok := c.links[k]; ok {
		return false
	}
	c.links[k] = struct{}{}
	return true
}
