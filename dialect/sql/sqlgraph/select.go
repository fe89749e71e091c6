package sqlgraph

import (
	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/schema/field"
)

// Order is an ordering term on a root property.
type Order struct {
	Prop string
	Desc bool
}

// Asc orders by prop, ascending.
func Asc(prop string) Order { return Order{Prop: prop} }

// Desc orders by prop, descending.
func Desc(prop string) Order { return Order{Prop: prop, Desc: true} }

// Select describes a graph select: the root type, the joins to follow and
// the filter on the roots.
type Select struct {
	Type  string
	Joins []*Join
	Where []Predicate
	Order []Order
	// Limit and Offset page the roots. Zero means unset.
	Limit  int
	Offset int
	// Distinct selects distinct rows.
	Distinct bool
	// Lock locks the selected rows for update.
	Lock bool
	// Strategy overrides the select strategy of the dialect.
	Strategy dialect.Strategy
}

// Plan is the compiled form of a select, as shown by CompileSelect.
type Plan struct {
	Strategy dialect.Strategy
	Queries  []*Query
}

// selectPlan is the executable form of a select.
type selectPlan struct {
	tree    *tree
	aliases *Aliases
	// graph is the single statement of one-query plans.
	graph *Query
	// first and second are the statements of two-query plans: the root
	// identifiers, then the graph of a chunk of them.
	first  *Query
	second func(ids []any) (*Query, error)
	chunk  int
	// page is set when paging is applied to the first query result.
	page          bool
	limit, offset int
	strategy      dialect.Strategy
}

func (e *Engine) compile(s *Select, idsOnly bool) (*selectPlan, error) {
	if s == nil || s.Type == "" {
		return nil, relgraph.NewIncoherentQueryError("select without an entity type")
	}
	if s.Limit < 0 || s.Offset < 0 {
		return nil, relgraph.NewIncoherentQueryError("negative limit or offset")
	}
	desc, err := e.provider.Descriptor(s.Type)
	if err != nil {
		return nil, err
	}
	t, err := buildTree(e.provider, desc, s.Joins, e.sep)
	if err != nil {
		return nil, err
	}
	joined := t.joined()
	if s.Lock && !e.dialect.SupportsLocking(joined) {
		feature := "row locking"
		if joined {
			feature = "row locking with joins"
		}
		return nil, &relgraph.CapabilityError{Dialect: e.dialect.Name(), Feature: feature}
	}
	if s.Lock && s.Distinct {
		return nil, &relgraph.CapabilityError{Dialect: e.dialect.Name(), Feature: "row locking with distinct"}
	}
	var (
		paged    = s.Limit > 0 || s.Offset > 0
		page     = paged && e.dialect.Paging() == dialect.PagingTwoQueries
		filtered = len(s.Where) > 0 || t.restricted()
		strategy = s.Strategy
	)
	if strategy == dialect.StrategyDefault {
		strategy = e.dialect.SelectStrategy()
		// EXISTS cannot page a joined select.
		if strategy == dialect.StrategyExists && paged && joined {
			strategy = dialect.StrategyTwoQueries
		}
	}
	if page {
		strategy = dialect.StrategyTwoQueries
	}
	plan := &selectPlan{
		tree:     t,
		aliases:  NewAliases(e.dialect.MaxIdentifierLength(), e.sep),
		strategy: strategy,
	}
	b := &selectBuilder{d: e.dialect, s: s, t: t, paged: paged, sep: e.sep, idsOnly: idsOnly}
	b.sc = newScope(e.dialect, plan.aliases, t)
	switch {
	case !joined && !page:
		plan.graph, err = b.plain()
	case !filtered && !paged:
		plan.graph, err = b.graph("", nil)
	case strategy == dialect.StrategyExists:
		if paged {
			return nil, &relgraph.CapabilityError{Dialect: e.dialect.Name(), Feature: "paging joined selects with the exists strategy"}
		}
		plan.graph, err = b.exists()
	case strategy == dialect.StrategyIn:
		plan.graph, err = b.in()
	case strategy == dialect.StrategyTwoQueries:
		err = b.twoQueries(plan, page)
	default:
		err = relgraph.NewIncoherentQueryError("unknown select strategy %s", strategy)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

type selectBuilder struct {
	d     dialect.Dialect
	s     *Select
	t     *tree
	sc    *scope
	sep   string
	paged bool

	// idsOnly selects the identifier of each context only.
	idsOnly bool
}

func (b *selectBuilder) query(sql string, args []any) (*Query, error) {
	q, err := newQuery(OpSelect, sql, args)
	if err != nil {
		return nil, err
	}
	q.Table = b.t.root.desc.Table.String()
	q.Target = b.t.root.desc
	q.Aliases = b.sc.aliases
	return q, nil
}

func (b *selectBuilder) from(sc *scope) string {
	return b.d.QuoteTable(b.t.root.desc.Table.String()) + " " + sc.alias(b.t.root)
}

func (b *selectBuilder) id(sc *scope) string {
	return sc.column(b.t.root, b.t.root.desc.ID.Column)
}

// columns returns every column of every context, labelled by its column
// path.
func (b *selectBuilder) columns() []string {
	var cols []string
	for _, c := range b.t.nodes {
		for _, col := range c.desc.Columns() {
			if b.idsOnly && col != c.desc.ID {
				continue
			}
			label := b.sc.aliases.Alias(c.ColumnPath(col.Column))
			cols = append(cols, b.sc.column(c, col.Column)+" AS "+b.d.Quote(label))
		}
	}
	return cols
}

// joins returns the join clauses of the tree. In filter subqueries,
// restricted joins are inner joins.
func (b *selectBuilder) joins(sc *scope, filter bool) ([]string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range b.t.nodes[1:] {
		kind := "LEFT JOIN "
		if filter && c.restricted() {
			kind = "INNER JOIN "
		}
		var (
			p  = c.parent
			on string
		)
		if a, ok := c.relation.Association(); ok {
			aa := sc.assocAlias(c)
			clauses = append(clauses, kind+b.d.QuoteTable(a.Table)+" "+aa+" ON "+
				aa+"."+b.d.Quote(a.SourceColumn)+" = "+sc.column(p, p.desc.ID.Column))
			on = sc.column(c, c.desc.ID.Column) + " = " + aa + "." + b.d.Quote(a.TargetColumn)
		} else if fk, ok := c.relation.ForeignKey(); ok && fk.Local != "" {
			on = sc.column(c, c.desc.ID.Column) + " = " + sc.column(p, fk.Local)
		} else if ok {
			on = sc.column(c, fk.Remote) + " = " + sc.column(p, p.desc.ID.Column)
		} else {
			return nil, nil, relgraph.NewMappingError(p.desc.Type, "relation %q has no storage shape", c.relation.Name)
		}
		if c.restricted() {
			where, wargs, err := compileAll(sc, c, c.join.where)
			if err != nil {
				return nil, nil, err
			}
			on += " AND " + where
			args = append(args, wargs...)
		}
		clauses = append(clauses, kind+b.d.QuoteTable(c.desc.Table.String())+" "+sc.alias(c)+" ON "+on)
	}
	return clauses, args, nil
}

// order returns the ordering terms on the root, followed by the root
// identifier when ordering or paging. It also returns the ordered columns.
func (b *selectBuilder) order(sc *scope) ([]string, []*field.Column, error) {
	root := b.t.root
	var (
		terms []string
		cols  []*field.Column
		byID  bool
	)
	for _, o := range b.s.Order {
		col, ok := root.desc.Column(o.Prop)
		if !ok {
			return nil, nil, relgraph.NewIncoherentQueryError("cannot order %s by %q", root.desc.Type, o.Prop)
		}
		term := sc.column(root, col.Column)
		if o.Desc {
			term += " DESC"
		}
		terms = append(terms, term)
		cols = append(cols, col)
		byID = byID || col == root.desc.ID
	}
	if (len(terms) > 0 || b.paged) && !byID {
		terms = append(terms, b.id(sc))
		cols = append(cols, root.desc.ID)
	}
	return terms, cols, nil
}

// plain compiles a select of the root type alone.
func (b *selectBuilder) plain() (*Query, error) {
	where, args, err := compileAll(b.sc, b.t.root, b.s.Where)
	if err != nil {
		return nil, err
	}
	orderBy, _, err := b.order(b.sc)
	if err != nil {
		return nil, err
	}
	return b.query(b.d.SelectSQL(dialect.SelectClauses{
		Distinct: b.s.Distinct,
		Columns:  b.columns(),
		From:     b.from(b.sc),
		Where:    where,
		OrderBy:  orderBy,
		Limit:    b.s.Limit,
		Offset:   b.s.Offset,
		Lock:     b.s.Lock,
	}), args)
}

// graph compiles the select of the whole tree with the given root filter.
func (b *selectBuilder) graph(where string, whereArgs []any) (*Query, error) {
	joins, args, err := b.joins(b.sc, false)
	if err != nil {
		return nil, err
	}
	orderBy, _, err := b.order(b.sc)
	if err != nil {
		return nil, err
	}
	return b.query(b.d.SelectSQL(dialect.SelectClauses{
		Distinct: b.s.Distinct,
		Columns:  b.columns(),
		From:     b.from(b.sc),
		Joins:    joins,
		Where:    where,
		OrderBy:  orderBy,
		Lock:     b.s.Lock,
	}), append(args, whereArgs...))
}

// filter compiles the joins and the root predicates of a filter subquery.
func (b *selectBuilder) filter(sc *scope) ([]string, string, []any, error) {
	joins, args, err := b.joins(sc, true)
	if err != nil {
		return nil, "", nil, err
	}
	where, wargs, err := compileAll(sc, b.t.root, b.s.Where)
	if err != nil {
		return nil, "", nil, err
	}
	return joins, where, append(args, wargs...), nil
}

func (b *selectBuilder) exists() (*Query, error) {
	sub := b.sc.sub("sub" + b.sep)
	joins, where, args, err := b.filter(sub)
	if err != nil {
		return nil, err
	}
	cond := b.id(sub) + " = " + b.id(b.sc)
	if where != "" {
		cond += " AND " + where
	}
	inner := b.d.SelectSQL(dialect.SelectClauses{
		Columns: []string{"1"},
		From:    b.from(sub),
		Joins:   joins,
		Where:   cond,
	})
	return b.graph("EXISTS ("+inner+")", args)
}

func (b *selectBuilder) in() (*Query, error) {
	sub := b.sc.sub("sub" + b.sep)
	joins, where, args, err := b.filter(sub)
	if err != nil {
		return nil, err
	}
	if !b.paged {
		inner := b.d.SelectSQL(dialect.SelectClauses{
			Distinct: true,
			Columns:  []string{b.id(sub)},
			From:     b.from(sub),
			Joins:    joins,
			Where:    where,
		})
		return b.graph(b.id(b.sc)+" IN ("+inner+")", args)
	}
	orderBy, cols, err := b.order(sub)
	if err != nil {
		return nil, err
	}
	root := b.t.root
	columns := []string{b.id(sub)}
	for _, col := range cols {
		if col != root.desc.ID {
			columns = append(columns, sub.column(root, col.Column))
		}
	}
	inner := b.d.SelectSQL(dialect.SelectClauses{
		Distinct: true,
		Columns:  columns,
		From:     b.from(sub),
		Joins:    joins,
		Where:    where,
		OrderBy:  orderBy,
		Limit:    b.s.Limit,
		Offset:   b.s.Offset,
	})
	page := b.d.Quote(b.sc.aliases.Alias("#page"))
	paged := "SELECT " + page + "." + b.d.Quote(root.desc.ID.Column) + " FROM (" + inner + ") " + page
	return b.graph(b.id(b.sc)+" IN ("+paged+")", args)
}

func (b *selectBuilder) twoQueries(plan *selectPlan, page bool) error {
	joins, where, args, err := b.filter(b.sc)
	if err != nil {
		return err
	}
	orderBy, cols, err := b.order(b.sc)
	if err != nil {
		return err
	}
	root := b.t.root
	columns := []string{b.id(b.sc)}
	for _, col := range cols {
		if col != root.desc.ID {
			columns = append(columns, b.sc.column(root, col.Column))
		}
	}
	clauses := dialect.SelectClauses{
		Distinct: true,
		Columns:  columns,
		From:     b.from(b.sc),
		Joins:    joins,
		Where:    where,
		OrderBy:  orderBy,
	}
	if page {
		plan.page, plan.limit, plan.offset = true, b.s.Limit, b.s.Offset
	} else {
		clauses.Limit, clauses.Offset = b.s.Limit, b.s.Offset
	}
	if plan.first, err = b.query(b.d.SelectSQL(clauses), args); err != nil {
		return err
	}
	plan.second = func(ids []any) (*Query, error) {
		return b.graph(b.id(b.sc)+" IN ("+placeholders(len(ids))+")", ids)
	}
	sample, err := plan.second([]any{RootIDs{}})
	if err != nil {
		return err
	}
	if max := b.d.MaxParameters(); max > 0 {
		plan.chunk = max - (len(sample.Args()) - 1)
		if plan.chunk < 1 {
			return relgraph.NewIncoherentQueryError("join restrictions use all %d parameters of dialect %s", max, b.d.Name())
		}
	}
	return nil
}

// queries returns the statements of the plan, for inspection.
func (p *selectPlan) queries() ([]*Query, error) {
	if p.first == nil {
		return []*Query{p.graph}, nil
	}
	second, err := p.second([]any{RootIDs{}})
	if err != nil {
		return nil, err
	}
	return []*Query{p.first, second}, nil
}
