package sqlgraph

import (
	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/edge"
)

// synchronize writes relation r of the sources to the database.
//
// An association table is rewritten: its rows for the sources are deleted,
// then one row is inserted per (source, target) pair. A foreign-key column
// is updated in place: the local column of updated sources, and the remote
// column of each target. Targets removed from a remote relation are left
// untouched.
func (u *upserter) synchronize(d *schema.Descriptor, sources []any, r *edge.Relation, target *schema.Descriptor) ([]*Query, error) {
	if a, ok := r.Association(); ok {
		return u.associate(d, sources, r, a, target)
	}
	fk, _ := r.ForeignKey()
	var queries []*Query
	if fk.Local != "" {
		for _, src := range sources {
			if u.inserted[src] {
				continue
			}
			var ref any
			if targets := d.Related(src, r); len(targets) > 0 {
				ref = u.ref(target, targets[0])
			}
			q, err := u.setColumn(d, fk.Local, ref, u.ref(d, src))
			if err != nil {
				return nil, err
			}
			queries = append(queries, q)
		}
	}
	if fk.Remote != "" {
		for _, src := range sources {
			for _, t := range d.Related(src, r) {
				q, err := u.setColumn(target, fk.Remote, u.ref(d, src), u.ref(target, t))
				if err != nil {
					return nil, err
				}
				queries = append(queries, q)
			}
		}
	}
	return queries, nil
}

func (u *upserter) associate(d *schema.Descriptor, sources []any, r *edge.Relation, a *edge.AssociationTable, target *schema.Descriptor) ([]*Query, error) {
	dl := u.e.dialect
	var (
		deletes []*Query
		inserts []*Query
		del     = dl.DeleteSQL(a.Table, dl.Quote(a.SourceColumn)+" = ?")
		ins     = dl.InsertSQL(a.Table, []string{a.SourceColumn, a.TargetColumn}, "")
		seen    = make(map[any]bool)
	)
	for _, src := range sources {
		if seen[src] {
			continue
		}
		seen[src] = true
		srcRef := u.ref(d, src)
		q, err := newQuery(OpDelete, del, []any{srcRef})
		if err != nil {
			return nil, err
		}
		q.Table = a.Table
		deletes = append(deletes, q)
		var pairs []any
		for _, t := range d.Related(src, r) {
			if sameTarget(target, pairs, t) {
				continue
			}
			pairs = append(pairs, t)
			q, err := newQuery(OpInsert, ins, []any{srcRef, u.ref(target, t)})
			if err != nil {
				return nil, err
			}
			q.Table = a.Table
			inserts = append(inserts, q)
		}
	}
	return append(deletes, inserts...), nil
}

// sameTarget reports if t is one of targets, or has the natural key of one
// of them and will share its row.
func sameTarget(d *schema.Descriptor, targets []any, t any) bool {
	for _, o := range targets {
		if o == t || d.HasNaturalKey() && d.NaturalKeyEqual(o, t) {
			return true
		}
	}
	return false
}

// setColumn updates one column of the row of d identified by id.
func (u *upserter) setColumn(d *schema.Descriptor, column string, value, id any) (*Query, error) {
	dl := u.e.dialect
	q, err := newQuery(OpUpdate, dl.UpdateSQL(d.Table.String(), []string{column}, dl.Quote(d.ID.Column)+" = ?"), []any{value, id})
	if err != nil {
		return nil, err
	}
	q.Table, q.Target = d.Table.String(), d
	return q, nil
}
