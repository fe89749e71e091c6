package sqlgraph

import (
	"context"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
)

// Delete describes a cascading delete: the rows of Type matching Where,
// and the rows reached from them through Joins.
type Delete struct {
	Type  string
	Joins []*Join
	Where []Predicate
}

// compileDirect compiles a delete without joins: one statement per
// association column referencing the type, filtered by a subquery over the
// matching rows, then the delete of the rows.
func (e *Engine) compileDirect(del *Delete) ([]*Query, error) {
	d, err := e.provider.Descriptor(del.Type)
	if err != nil {
		return nil, err
	}
	t, err := buildTree(e.provider, d, nil, e.sep)
	if err != nil {
		return nil, err
	}
	sc := newScope(e.dialect, NewAliases(e.dialect.MaxIdentifierLength(), e.sep), t)
	sc.table = e.dialect.QuoteTable(d.Table.String())
	where, args, err := compileAll(sc, t.root, del.Where)
	if err != nil {
		return nil, err
	}
	var queries []*Query
	if refs := e.associations(d.Type); len(refs) > 0 {
		sub := e.dialect.SelectSQL(dialect.SelectClauses{
			Columns: []string{sc.column(t.root, d.ID.Column)},
			From:    sc.table,
			Where:   where,
		})
		for _, ref := range refs {
			q, err := newQuery(OpDelete, e.dialect.DeleteSQL(ref.table, e.dialect.Quote(ref.column)+" IN ("+sub+")"), args)
			if err != nil {
				return nil, err
			}
			q.Table = ref.table
			queries = append(queries, q)
		}
	}
	q, err := newQuery(OpDelete, e.dialect.DeleteSQL(d.Table.String(), where), args)
	if err != nil {
		return nil, err
	}
	q.Table, q.Target = d.Table.String(), d
	return append(queries, q), nil
}

// assocRef is an association table column holding identifiers of a type.
type assocRef struct {
	table, column string
}

// associations returns the association columns referencing rows of typ.
func (e *Engine) associations(typ string) []assocRef {
	var (
		refs []assocRef
		seen = make(map[assocRef]bool)
	)
	add := func(ref assocRef) {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	for _, d := range e.provider.Descriptors() {
		for _, r := range d.Relations {
			a, ok := r.Association()
			if !ok {
				continue
			}
			if d.Type == typ {
				add(assocRef{a.Table, a.SourceColumn})
			}
			if r.Target == typ {
				add(assocRef{a.Table, a.TargetColumn})
			}
		}
	}
	return refs
}

// collect runs the id-only select of a cascading delete.
func (e *Engine) collect(ctx context.Context, x *Executor, del *Delete) (*IdMap, error) {
	plan, err := e.compileIDSelect(del)
	if err != nil {
		return nil, err
	}
	ids := NewIdMap()
	m := newMapper(plan.tree, plan.aliases)
	_, err = e.run(ctx, x, plan, func(cur *Cursor) error {
		if cur.Len() == 0 {
			return nil
		}
		_, idx, err := m.layout(cur.Columns())
		if err != nil {
			return err
		}
		for cur.Next() {
			row := cur.Row()
			for _, c := range plan.tree.nodes {
				ids.Add(c.desc.Type, c.depth, row[idx[c]])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (e *Engine) compileIDSelect(del *Delete) (*selectPlan, error) {
	return e.compile(&Select{Type: del.Type, Joins: del.Joins, Where: del.Where}, true)
}

// cascade compiles the statements deleting the collected rows: the
// association rows referencing them on either side, then the rows of each
// type, deepest first.
func (e *Engine) cascade(ids *IdMap) ([]*Query, error) {
	var queries []*Query
	for _, typ := range ids.Types() {
		for _, ref := range e.associations(typ) {
			qs, err := e.deleteIn(ref.table, ref.column, ids.IDs(typ))
			if err != nil {
				return nil, err
			}
			queries = append(queries, qs...)
		}
	}
	for _, typ := range ids.Types() {
		d, err := e.provider.Descriptor(typ)
		if err != nil {
			return nil, err
		}
		qs, err := e.deleteIn(d.Table.String(), d.ID.Column, ids.IDs(typ))
		if err != nil {
			return nil, err
		}
		for _, q := range qs {
			q.Target = d
		}
		queries = append(queries, qs...)
	}
	return queries, nil
}

// deleteIn compiles DELETE ... WHERE column IN (...) statements, chunked by
// the parameter limit.
func (e *Engine) deleteIn(table, column string, ids []any) ([]*Query, error) {
	var queries []*Query
	for _, chunk := range chunks(ids, e.dialect.MaxParameters()) {
		where := e.dialect.Quote(column) + " IN (" + placeholders(len(chunk)) + ")"
		q, err := newQuery(OpDelete, e.dialect.DeleteSQL(table, where), chunk)
		if err != nil {
			return nil, err
		}
		q.Table = table
		queries = append(queries, q)
	}
	return queries, nil
}

// chunks splits ids into slices of at most size elements. Zero size means
// one chunk.
func chunks(ids []any, size int) [][]any {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 || size >= len(ids) {
		return [][]any{ids}
	}
	var out [][]any
	for len(ids) > size {
		out = append(out, ids[:size:size])
		ids = ids[size:]
	}
	return append(out, ids)
}

func (e *Engine) checkDelete(del *Delete) error {
	if del == nil || del.Type == "" {
		return relgraph.NewIncoherentQueryError("delete without an entity type")
	}
	return nil
}
