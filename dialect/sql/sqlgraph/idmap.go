package sqlgraph

import (
	"sort"

	"github.com/syssam/relgraph/schema"
)

// IdMap collects the identifiers of the rows reached by a select, per
// entity type, in the order they were first seen.
type IdMap struct {
	ids   map[string][]any
	seen  map[string]map[any]bool
	depth map[string]int
	types []string
}

// NewIdMap returns an empty IdMap.
func NewIdMap() *IdMap {
	return &IdMap{
		ids:   make(map[string][]any),
		seen:  make(map[string]map[any]bool),
		depth: make(map[string]int),
	}
}

// Add records an identifier of typ reached at the given join depth.
func (m *IdMap) Add(typ string, depth int, id any) {
	if id == nil {
		return
	}
	seen, ok := m.seen[typ]
	if !ok {
		seen = make(map[any]bool)
		m.seen[typ] = seen
		m.types = append(m.types, typ)
		m.depth[typ] = depth
	}
	if depth > m.depth[typ] {
		m.depth[typ] = depth
	}
	k := schema.Key(id)
	if seen[k] {
		return
	}
	seen[k] = true
	m.ids[typ] = append(m.ids[typ], id)
}

// IDs returns the identifiers of typ.
func (m *IdMap) IDs(typ string) []any { return m.ids[typ] }

// Has reports if any identifier of typ was collected.
func (m *IdMap) Has(typ string) bool { return len(m.ids[typ]) > 0 }

// Len returns the number of identifiers over all types.
func (m *IdMap) Len() int {
	var n int
	for _, ids := range m.ids {
		n += len(ids)
	}
	return n
}

// Types returns the collected types, deepest first.
func (m *IdMap) Types() []string {
	types := append([]string(nil), m.types...)
	sort.SliceStable(types, func(i, j int) bool {
		return m.depth[types[i]] > m.depth[types[j]]
	})
	return types
}
