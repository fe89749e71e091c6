package sqlgraph

import (
	"context"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/edge"
)

// Cascade controls which sub-upserts check natural keys when the root
// upsert does.
type Cascade uint8

// Natural-key cascade modes.
const (
	// CascadeDeclared checks the children whose type declares a natural key.
	CascadeDeclared Cascade = iota
	// CascadeNone checks the roots only.
	CascadeNone
	// CascadeAll checks every child. Child types without a natural key are a
	// mapping error.
	CascadeAll
)

type upsertOptions struct {
	check   bool
	cascade Cascade
}

// UpsertOption configures an upsert.
type UpsertOption func(*upsertOptions)

// CheckNaturalKey resolves the identifier of every root by natural key
// before deciding between insert and update.
func CheckNaturalKey() UpsertOption {
	return func(o *upsertOptions) { o.check = true }
}

// NaturalKeyCascade sets which children are checked by natural key.
func NaturalKeyCascade(c Cascade) UpsertOption {
	return func(o *upsertOptions) { o.cascade = c }
}

// upserter compiles the statements of one upsert call. Without an executor,
// no lookup runs and elements are classified by identifier only.
type upserter struct {
	e       *Engine
	x       *Executor
	opts    upsertOptions
	queries []*Query
	visited map[any]bool
	// inserted holds the elements inserted by the call.
	inserted map[any]bool
}

func (e *Engine) newUpserter(x *Executor, opts []UpsertOption) *upserter {
	u := &upserter{
		e:        e,
		x:        x,
		visited:  make(map[any]bool),
		inserted: make(map[any]bool),
	}
	for _, opt := range opts {
		opt(&u.opts)
	}
	return u
}

// compile upserts the entities and the graph reachable through joins.
func (u *upserter) compile(ctx context.Context, entities []any, joins []*Join) ([]*Query, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	d, err := u.e.provider.DescriptorOf(entities[0])
	if err != nil {
		return nil, err
	}
	for _, v := range entities[1:] {
		if !d.Owns(v) {
			return nil, relgraph.NewIncoherentQueryError("upsert mixes %s with %T", d.Type, v)
		}
	}
	if err := u.level(ctx, d, entities, joins, u.opts.check); err != nil {
		return nil, err
	}
	return merge(u.queries, u.e.dialect.SupportsBatchInserts()), nil
}

// level upserts the elements of one type: their joined children first,
// then the elements, then the relations to the children.
func (u *upserter) level(ctx context.Context, d *schema.Descriptor, elems []any, joins []*Join, check bool) error {
	if check && !d.HasNaturalKey() {
		return relgraph.NewMappingError(d.Type, "natural-key check requested but no natural key declared")
	}
	type step struct {
		rel    *edge.Relation
		target *schema.Descriptor
	}
	steps := make([]step, 0, len(joins))
	for _, j := range joins {
		r, ok := d.Relation(j.Relation)
		if !ok {
			return relgraph.NewIncoherentQueryError("type %s has no relation %q", d.Type, j.Relation)
		}
		target, err := u.e.provider.Descriptor(r.Target)
		if err != nil {
			return err
		}
		steps = append(steps, step{rel: r, target: target})
		children := related(d, elems, r)
		if len(children) == 0 {
			continue
		}
		if err := u.level(ctx, target, children, j.Joins, u.cascade(check, target)); err != nil {
			return err
		}
	}
	var current []any
	for _, el := range elems {
		if u.visited[el] {
			continue
		}
		u.visited[el] = true
		current = append(current, el)
	}
	var (
		groups   = twins(d, current)
		absorbed = make(map[any]bool)
	)
	for _, el := range current {
		if absorbed[el] {
			continue
		}
		insert, err := u.classify(ctx, d, el, check)
		if err != nil {
			return err
		}
		var q *Query
		if insert {
			u.inserted[el] = true
			for _, t := range groups[el] {
				absorbed[t] = true
				u.inserted[t] = true
			}
			q, err = u.insert(d, el, groups[el]...)
		} else {
			q, err = u.update(d, el)
		}
		if err != nil {
			return err
		}
		if q != nil {
			u.queries = append(u.queries, q)
		}
	}
	for _, s := range steps {
		qs, err := u.synchronize(d, elems, s.rel, s.target)
		if err != nil {
			return err
		}
		u.queries = append(u.queries, qs...)
	}
	return nil
}

func (u *upserter) cascade(check bool, target *schema.Descriptor) bool {
	if !check {
		return false
	}
	switch u.opts.cascade {
	case CascadeNone:
		return false
	case CascadeAll:
		return true
	default:
		return target.HasNaturalKey()
	}
}

// twins groups the unstored elements of d that share a natural key. The
// map is keyed by the first element of each group and holds the others.
func twins(d *schema.Descriptor, elems []any) map[any][]any {
	if !d.HasNaturalKey() || !d.IDStrategy.Generated() {
		return nil
	}
	var (
		groups map[any][]any
		firsts []any
	)
next:
	for _, el := range elems {
		if d.IDOf(el) != nil {
			continue
		}
		for _, f := range firsts {
			if d.NaturalKeyEqual(f, el) {
				if groups == nil {
					groups = make(map[any][]any)
				}
				groups[f] = append(groups[f], el)
				continue next
			}
		}
		firsts = append(firsts, el)
	}
	return groups
}

// related returns the distinct targets of r over elems.
func related(d *schema.Descriptor, elems []any, r *edge.Relation) []any {
	var (
		out  []any
		seen = make(map[any]bool)
	)
	for _, el := range elems {
		for _, t := range d.Related(el, r) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// classify reports if el must be inserted.
func (u *upserter) classify(ctx context.Context, d *schema.Descriptor, el any, check bool) (bool, error) {
	if check && u.x != nil {
		ids, err := u.lookup(ctx, d, NaturalKey(el))
		if err != nil {
			return false, err
		}
		switch len(ids) {
		case 0:
		case 1:
			if err := d.SetID(el, ids[0]); err != nil {
				return false, err
			}
			return false, nil
		default:
			return false, relgraph.NewMappingError(d.Type, "natural key %v matches %d rows", d.NaturalKeyValues(el), len(ids))
		}
	}
	id := d.IDOf(el)
	switch {
	case id == nil && d.IDStrategy.Generated():
		return true, nil
	case id == nil:
		return false, relgraph.NewMappingError(d.Type, "identifier %q is not assigned", d.ID.Name)
	case d.IDStrategy.Generated():
		return false, nil
	case u.x == nil:
		return true, nil
	}
	ids, err := u.lookup(ctx, d, IDIn(id))
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}

// lookup returns the identifiers of the rows of d matching p.
func (u *upserter) lookup(ctx context.Context, d *schema.Descriptor, p Predicate) ([]any, error) {
	t, err := buildTree(u.e.provider, d, nil, u.e.sep)
	if err != nil {
		return nil, err
	}
	sc := newScope(u.e.dialect, NewAliases(u.e.dialect.MaxIdentifierLength(), u.e.sep), t)
	sc.table = u.e.dialect.QuoteTable(d.Table.String())
	where, args, err := p.compile(sc, t.root)
	if err != nil {
		return nil, err
	}
	q, err := newQuery(OpSelect, u.e.dialect.SelectSQL(dialect.SelectClauses{
		Columns: []string{sc.column(t.root, d.ID.Column)},
		From:    sc.table,
		Where:   where,
	}), args)
	if err != nil {
		return nil, err
	}
	cur, err := u.x.Prepare(q).Execute(ctx)
	if err != nil {
		return nil, err
	}
	var ids []any
	for cur.Next() {
		if id := cur.Row()[0]; id != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ref returns the identifier of el, or a deferred one if it is not known
// yet.
func (u *upserter) ref(d *schema.Descriptor, el any) any {
	if id := d.IDOf(el); id != nil && !(u.inserted[el] && d.IDStrategy.Generated()) {
		return id
	}
	return IDOf(d, el)
}

// insert compiles the INSERT of el. The twins share its row: they receive
// its identifier, and a local foreign key unset on el is taken from the
// first twin that sets it.
func (u *upserter) insert(d *schema.Descriptor, el any, twins ...any) (*Query, error) {
	var (
		columns []string
		args    []any
		index   = make(map[string]int)
		keys    bool
	)
	add := func(column string, v any) {
		if i, ok := index[column]; ok {
			args[i] = v
			return
		}
		index[column] = len(columns)
		columns = append(columns, column)
		args = append(args, v)
	}
	switch d.IDStrategy.Kind {
	case schema.IDNone:
		add(d.ID.Column, d.IDOf(el))
	case schema.IDSequence:
		name := d.IDStrategy.Sequence
		if name == "" {
			name = u.e.cfg.SequenceName(d.Table.Name)
		}
		next, ok := u.e.dialect.NextValueSQL(u.e.dialect.QuoteTable(name))
		if !ok {
			return nil, &relgraph.CapabilityError{Dialect: u.e.dialect.Name(), Feature: "sequences"}
		}
		add(d.ID.Column, &NextValue{desc: d, elem: el, sql: next})
	case schema.IDAutoIncrement:
		keys = true
	}
	for _, f := range d.Fields {
		add(f.Column, d.Value(el, f))
	}
	for _, r := range d.Relations {
		fk, ok := r.ForeignKey()
		if !ok || fk.Local == "" {
			continue
		}
		targets := d.Related(el, r)
		for _, t := range twins {
			if len(targets) > 0 {
				break
			}
			targets = d.Related(t, r)
		}
		if len(targets) == 0 {
			continue
		}
		target, err := u.e.provider.Descriptor(r.Target)
		if err != nil {
			return nil, err
		}
		if !u.visited[targets[0]] && target.IDOf(targets[0]) == nil {
			// Not part of the call and never stored.
			continue
		}
		add(fk.Local, u.ref(target, targets[0]))
	}
	id := ""
	if keys {
		id = d.ID.Column
	}
	q, err := newQuery(OpInsert, u.e.dialect.InsertSQL(d.Table.String(), columns, id), args)
	if err != nil {
		return nil, err
	}
	q.Table, q.Target, q.Sources, q.keys = d.Table.String(), d, []any{el}, keys
	if len(twins) > 0 {
		q.duplicates = [][]any{twins}
	}
	return q, nil
}

// update sets the fields of an element. Relations are written by the
// synchronizer.
func (u *upserter) update(d *schema.Descriptor, el any) (*Query, error) {
	if len(d.Fields) == 0 {
		return nil, nil
	}
	columns := make([]string, 0, len(d.Fields))
	args := make([]any, 0, len(d.Fields)+1)
	for _, f := range d.Fields {
		columns = append(columns, f.Column)
		args = append(args, d.Value(el, f))
	}
	args = append(args, u.ref(d, el))
	q, err := newQuery(OpUpdate, u.e.dialect.UpdateSQL(d.Table.String(), columns, u.e.dialect.Quote(d.ID.Column)+" = ?"), args)
	if err != nil {
		return nil, err
	}
	q.Table, q.Target, q.Sources = d.Table.String(), d, []any{el}
	return q, nil
}
