package sqlgraph

import (
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
)

// Predicate is a node of a where-clause tree. It compiles into an SQL
// fragment with '?' placeholders and the parameters bound to them.
type Predicate interface {
	compile(s *scope, c *Context) (string, []any, error)
}

// scope is the compilation state shared by the fragments of a statement.
type scope struct {
	d       dialect.Dialect
	aliases *Aliases
	tree    *tree
	// prefix is prepended to context paths, for subqueries that reuse the
	// contexts of the outer statement.
	prefix string
	// table, when set, qualifies root columns instead of the root alias.
	table string
}

func newScope(d dialect.Dialect, aliases *Aliases, t *tree) *scope {
	return &scope{d: d, aliases: aliases, tree: t}
}

// sub returns a scope sharing the alias table, with its own path prefix.
func (s *scope) sub(prefix string) *scope {
	return &scope{d: s.d, aliases: s.aliases, tree: s.tree, prefix: prefix}
}

// alias returns the quoted alias of a context.
func (s *scope) alias(c *Context) string {
	if s.table != "" && c.parent == nil {
		return s.table
	}
	return s.d.Quote(s.aliases.Alias(s.prefix + c.path))
}

// assocAlias returns the quoted alias of the association table of c.
func (s *scope) assocAlias(c *Context) string {
	return s.d.Quote(s.aliases.Alias(s.prefix + c.assocPath()))
}

// column returns the qualified reference of a column of c.
func (s *scope) column(c *Context, column string) string {
	return s.alias(c) + "." + s.d.Quote(column)
}

// resolve returns the qualified column a property of c refers to. Relation
// properties refer to the identifier of the joined target, or to the local
// foreign-key column when the relation has one.
func (s *scope) resolve(c *Context, prop string) (string, error) {
	if col, ok := c.desc.Column(prop); ok {
		return s.column(c, col.Column), nil
	}
	r, ok := c.desc.Relation(prop)
	if !ok {
		return "", relgraph.NewIncoherentQueryError("type %s has no property %q", c.desc.Type, prop)
	}
	if fk, ok := r.ForeignKey(); ok && fk.Local != "" {
		return s.column(c, fk.Local), nil
	}
	for _, child := range c.children {
		if child.relation == r {
			return s.column(child, child.desc.ID.Column), nil
		}
	}
	return "", relgraph.NewIncoherentQueryError("relation %s.%s is referenced but not joined", c.desc.Type, prop)
}

// fragment checks that the number of placeholders in sql matches args.
func fragment(sql string, args []any) (string, []any, error) {
	if n := dialect.Placeholders(sql); n != len(args) {
		return "", nil, &relgraph.IncoherentQueryError{
			SQL:          sql,
			Placeholders: n,
			Args:         args,
			Msg:          "placeholder count does not match parameters",
		}
	}
	return sql, args, nil
}

const (
	alwaysTrue  = "1 = 1"
	alwaysFalse = "1 = 0"
)

// Operator is a comparison operator.
type Operator string

// Comparison operators.
const (
	OpEQ   Operator = "="
	OpNEQ  Operator = "<>"
	OpGT   Operator = ">"
	OpGTE  Operator = ">="
	OpLT   Operator = "<"
	OpLTE  Operator = "<="
	OpLike Operator = "LIKE"
)

type comparison struct {
	prop  string
	op    Operator
	value any
}

func (p *comparison) compile(s *scope, c *Context) (string, []any, error) {
	col, err := s.resolve(c, p.prop)
	if err != nil {
		return "", nil, err
	}
	if p.value == nil {
		switch p.op {
		case OpEQ:
			return fragment(col+" IS NULL", nil)
		case OpNEQ:
			return fragment(col+" IS NOT NULL", nil)
		}
	}
	return fragment(col+" "+string(p.op)+" ?", []any{p.value})
}

// EQ returns a predicate comparing a property to a value. A nil value
// compiles to IS NULL.
func EQ(prop string, v any) Predicate { return &comparison{prop: prop, op: OpEQ, value: v} }

// NEQ returns a predicate checking a property differs from a value. A nil
// value compiles to IS NOT NULL.
func NEQ(prop string, v any) Predicate { return &comparison{prop: prop, op: OpNEQ, value: v} }

// GT returns a "greater than" predicate.
func GT(prop string, v any) Predicate { return &comparison{prop: prop, op: OpGT, value: v} }

// GTE returns a "greater than or equal" predicate.
func GTE(prop string, v any) Predicate { return &comparison{prop: prop, op: OpGTE, value: v} }

// LT returns a "less than" predicate.
func LT(prop string, v any) Predicate { return &comparison{prop: prop, op: OpLT, value: v} }

// LTE returns a "less than or equal" predicate.
func LTE(prop string, v any) Predicate { return &comparison{prop: prop, op: OpLTE, value: v} }

// Like returns a LIKE predicate.
func Like(prop string, pattern string) Predicate {
	return &comparison{prop: prop, op: OpLike, value: pattern}
}

// IsNull returns a predicate checking a property is NULL.
func IsNull(prop string) Predicate { return &comparison{prop: prop, op: OpEQ} }

// NotNull returns a predicate checking a property is not NULL.
func NotNull(prop string) Predicate { return &comparison{prop: prop, op: OpNEQ} }

type membership struct {
	prop   string
	id     bool
	not    bool
	values []any
}

func (p *membership) compile(s *scope, c *Context) (string, []any, error) {
	if len(p.values) == 0 {
		if p.not {
			return alwaysTrue, nil, nil
		}
		return alwaysFalse, nil, nil
	}
	var (
		col string
		err error
	)
	if p.id {
		col = s.column(c, c.desc.ID.Column)
	} else if col, err = s.resolve(c, p.prop); err != nil {
		return "", nil, err
	}
	op := " IN ("
	if p.not {
		op = " NOT IN ("
	}
	return fragment(col+op+placeholders(len(p.values))+")", p.values)
}

// In returns a predicate checking a property is one of the values. An
// empty list matches nothing.
func In(prop string, vs ...any) Predicate { return &membership{prop: prop, values: vs} }

// NotIn returns a predicate checking a property is none of the values. An
// empty list matches everything.
func NotIn(prop string, vs ...any) Predicate { return &membership{prop: prop, not: true, values: vs} }

// IDIn returns a predicate checking the identifier is one of ids.
func IDIn(ids ...any) Predicate { return &membership{id: true, values: ids} }

type naturalKey struct {
	entity any
}

func (p *naturalKey) compile(s *scope, c *Context) (string, []any, error) {
	d := c.desc
	if !d.Owns(p.entity) {
		return "", nil, relgraph.NewIncoherentQueryError("natural key of %T compared at %s", p.entity, d.Type)
	}
	cols := d.NaturalKey()
	if len(cols) == 0 {
		return "", nil, relgraph.NewMappingError(d.Type, "no natural key declared")
	}
	ps := make([]Predicate, len(cols))
	for i, col := range cols {
		ps[i] = EQ(col.Name, d.Value(p.entity, col))
	}
	return And(ps...).compile(s, c)
}

// NaturalKey returns a predicate matching the rows whose natural key equals
// the one of entity.
func NaturalKey(entity any) Predicate { return &naturalKey{entity: entity} }

// Reference names a property of another context of the join tree, by the
// dot-separated relation route from the root.
type Reference struct {
	Route string
	Prop  string
}

// Ref returns a reference to a property at a route. The empty route is the
// root.
func Ref(route, prop string) Reference { return Reference{Route: route, Prop: prop} }

type pathComparison struct {
	prop string
	op   Operator
	ref  Reference
}

func (p *pathComparison) compile(s *scope, c *Context) (string, []any, error) {
	left, err := s.resolve(c, p.prop)
	if err != nil {
		return "", nil, err
	}
	other, ok := s.tree.context(p.ref.Route)
	if !ok {
		return "", nil, relgraph.NewIncoherentQueryError("path reference to %q which was never joined", p.ref.Route)
	}
	right, err := s.resolve(other, p.ref.Prop)
	if err != nil {
		return "", nil, err
	}
	return fragment(left+" "+string(p.op)+" "+right, nil)
}

// PropEQ returns a predicate comparing a property to a property of another
// joined context.
func PropEQ(prop string, ref Reference) Predicate {
	return &pathComparison{prop: prop, op: OpEQ, ref: ref}
}

// PropCmp is like PropEQ with an arbitrary operator.
func PropCmp(prop string, op Operator, ref Reference) Predicate {
	return &pathComparison{prop: prop, op: op, ref: ref}
}

type combinator struct {
	op string
	ps []Predicate
}

func (p *combinator) compile(s *scope, c *Context) (string, []any, error) {
	if len(p.ps) == 0 {
		if p.op == "OR" {
			return alwaysFalse, nil, nil
		}
		return alwaysTrue, nil, nil
	}
	var (
		parts = make([]string, 0, len(p.ps))
		args  []any
	)
	for _, child := range p.ps {
		sql, a, err := child.compile(s, c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, a...)
	}
	if len(parts) == 1 {
		return fragment(parts[0], args)
	}
	return fragment("("+strings.Join(parts, " "+p.op+" ")+")", args)
}

// Or returns the disjunction of the predicates, wrapped in parentheses.
// An empty list is always false.
func Or(ps ...Predicate) Predicate { return &combinator{op: "OR", ps: ps} }

// And returns the conjunction of the predicates. An empty list is always
// true.
func And(ps ...Predicate) Predicate { return &combinator{op: "AND", ps: ps} }

type negation struct {
	p Predicate
}

func (p *negation) compile(s *scope, c *Context) (string, []any, error) {
	sql, args, err := p.p.compile(s, c)
	if err != nil {
		return "", nil, err
	}
	return fragment("NOT ("+sql+")", args)
}

// Not negates a predicate.
func Not(p Predicate) Predicate { return &negation{p: p} }

type expr struct {
	sql  string
	args []any
}

func (p *expr) compile(*scope, *Context) (string, []any, error) {
	return fragment(p.sql, p.args)
}

// Expr returns a raw SQL fragment. The number of '?' placeholders in sql
// must match args.
func Expr(sql string, args ...any) Predicate { return &expr{sql: sql, args: args} }

// compileAll compiles a predicate list as a conjunction.
func compileAll(s *scope, c *Context, ps []Predicate) (string, []any, error) {
	if len(ps) == 0 {
		return "", nil, nil
	}
	return And(ps...).compile(s, c)
}

// Prop is a typed property name.
//
//	var Version = sqlgraph.Prop[int]("version")
//	eng.Select(ctx, &sqlgraph.Select{Type: "Order", Where: []sqlgraph.Predicate{Version.GT(3)}})
type Prop[T any] string

// Name returns the property name.
func (p Prop[T]) Name() string { return string(p) }

// EQ returns a predicate that checks if the property equals the given value.
func (p Prop[T]) EQ(v T) Predicate { return EQ(string(p), v) }

// NEQ returns a predicate that checks if the property does not equal the given value.
func (p Prop[T]) NEQ(v T) Predicate { return NEQ(string(p), v) }

// GT returns a predicate that checks if the property is greater than the given value.
func (p Prop[T]) GT(v T) Predicate { return GT(string(p), v) }

// GTE returns a predicate that checks if the property is greater than or equal to the given value.
func (p Prop[T]) GTE(v T) Predicate { return GTE(string(p), v) }

// LT returns a predicate that checks if the property is less than the given value.
func (p Prop[T]) LT(v T) Predicate { return LT(string(p), v) }

// LTE returns a predicate that checks if the property is less than or equal to the given value.
func (p Prop[T]) LTE(v T) Predicate { return LTE(string(p), v) }

// In returns a predicate that checks if the property value is in the given list.
func (p Prop[T]) In(vs ...T) Predicate { return In(string(p), anys(vs)...) }

// NotIn returns a predicate that checks if the property value is not in the given list.
func (p Prop[T]) NotIn(vs ...T) Predicate { return NotIn(string(p), anys(vs)...) }

// IsNull returns a predicate that checks if the property is NULL.
func (p Prop[T]) IsNull() Predicate { return IsNull(string(p)) }

// NotNull returns a predicate that checks if the property is not NULL.
func (p Prop[T]) NotNull() Predicate { return NotNull(string(p)) }

// Asc orders by the property, ascending.
func (p Prop[T]) Asc() Order { return Asc(string(p)) }

// Desc orders by the property, descending.
func (p Prop[T]) Desc() Order { return Desc(string(p)) }

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
