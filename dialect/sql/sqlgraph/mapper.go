package sqlgraph

import (
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/field"
)

// mapper materializes the rows of graph selects into entity graphs.
type mapper struct {
	tree    *tree
	aliases *Aliases
	cache   *Cache
	roots   []any
	seen    map[any]bool
}

func newMapper(t *tree, aliases *Aliases) *mapper {
	return &mapper{tree: t, aliases: aliases, cache: NewCache(), seen: make(map[any]bool)}
}

// slot is the destination of a result column.
type slot struct {
	ctx *Context
	col *field.Column
}

// layout resolves the labels of a cursor into their contexts and columns.
func (m *mapper) layout(labels []string) ([]slot, map[*Context]int, error) {
	slots := make([]slot, len(labels))
	ids := make(map[*Context]int)
	for i, label := range labels {
		long, ok := m.aliases.Long(label)
		if !ok {
			return nil, nil, relgraph.NewIncoherentQueryError("unknown result column %q", label)
		}
		dot := strings.LastIndexByte(long, '.')
		if dot < 0 {
			return nil, nil, relgraph.NewIncoherentQueryError("result column %q is not a column path", label)
		}
		c, ok := m.tree.paths[long[:dot]]
		if !ok {
			return nil, nil, relgraph.NewIncoherentQueryError("result column %q has no context", label)
		}
		col := columnOf(c.desc, long[dot+1:])
		if col == nil {
			return nil, nil, relgraph.NewMappingError(c.desc.Type, "no column %q", long[dot+1:])
		}
		slots[i] = slot{ctx: c, col: col}
		if col == c.desc.ID {
			ids[c] = i
		}
	}
	for _, c := range m.tree.nodes {
		if _, ok := ids[c]; !ok {
			return nil, nil, relgraph.NewIncoherentQueryError("identifier of %s is not selected", c.path)
		}
	}
	return slots, ids, nil
}

func columnOf(d *schema.Descriptor, column string) *field.Column {
	for _, c := range d.Columns() {
		if c.Column == column {
			return c
		}
	}
	return nil
}

// add materializes every row of the cursor.
func (m *mapper) add(cur *Cursor) error {
	if cur.Len() == 0 {
		return nil
	}
	slots, ids, err := m.layout(cur.Columns())
	if err != nil {
		return err
	}
	entities := make(map[*Context]any, len(m.tree.nodes))
	for cur.Next() {
		row := cur.Row()
		for _, c := range m.tree.nodes {
			entities[c] = nil
			id := row[ids[c]]
			if id == nil {
				continue
			}
			v, err := m.entity(c, id, row, slots)
			if err != nil {
				return err
			}
			entities[c] = v
			if c.parent == nil {
				if k := schema.Key(id); !m.seen[k] {
					m.seen[k] = true
					m.roots = append(m.roots, v)
				}
				continue
			}
			src := entities[c.parent]
			if src == nil {
				continue
			}
			if m.cache.link(c.relation, c.parent.desc.IDOf(src), id) {
				if err := c.parent.desc.Attach(src, c.relation, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// entity returns the cached entity of c with the given identifier,
// hydrating it from row on first sight.
func (m *mapper) entity(c *Context, id any, row []any, slots []slot) (any, error) {
	d := c.desc
	if v, ok := m.cache.Get(d.Type, id); ok {
		return v, nil
	}
	v := d.New()
	for i, s := range slots {
		if s.ctx != c {
			continue
		}
		if err := d.SetValue(v, s.col, row[i]); err != nil {
			return nil, err
		}
	}
	m.cache.Put(d.Type, id, v)
	return v, nil
}

// ordered returns the roots in the order of ids.
func (m *mapper) ordered(ids []any) []any {
	byID := make(map[any]any, len(m.roots))
	d := m.tree.root.desc
	for _, r := range m.roots {
		byID[schema.Key(d.IDOf(r))] = r
	}
	roots := make([]any, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[schema.Key(id)]; ok {
			roots = append(roots, r)
		}
	}
	return roots
}
