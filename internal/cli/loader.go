package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql/sqlgraph"
	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/field"
)

// env is what every compiling command loads from the global flags.
type env struct {
	registry *schema.Registry
	config   *relgraph.Config
	dialect  dialect.Dialect
}

func load(opts *RootOptions) (*env, error) {
	if opts.Schema == "" {
		return nil, NewExitError(ExitCommandError, "missing --schema")
	}
	r, err := schema.LoadYAMLFile(opts.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading schema", err)
	}
	cfg := &relgraph.Config{}
	if opts.Config != "" {
		if cfg, err = relgraph.LoadConfig(opts.Config); err != nil {
			return nil, WrapExitError(ExitCommandError, "loading config", err)
		}
	}
	d, err := dialect.For(opts.Dialect)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "selecting dialect", err)
	}
	opts.logger.Debug("schema loaded", "path", opts.Schema, "types", r.Types(), "dialect", d.Name())
	return &env{registry: r, config: cfg, dialect: d}, nil
}

// engine returns an engine without a connection; it only compiles.
func (e *env) engine(opts *RootOptions) (*sqlgraph.Engine, error) {
	eng, err := sqlgraph.NewEngine(nil, e.dialect, e.registry, sqlgraph.WithConfig(e.config), sqlgraph.WithLogger(opts.logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "creating engine", err)
	}
	return eng, nil
}

// parseJoins turns dotted routes such as "lines.product" into join
// directives. Routes sharing a prefix share the directive. The route "*"
// follows every relation reachable from typ.
func parseJoins(p schema.Provider, typ string, routes []string) ([]*sqlgraph.Join, error) {
	for _, r := range routes {
		if r == "*" {
			return sqlgraph.JoinAll(p, typ)
		}
	}
	var joins []*sqlgraph.Join
	for _, route := range routes {
		level := &joins
		for _, name := range strings.Split(route, ".") {
			if name == "" {
				return nil, fmt.Errorf("empty segment in join %q", route)
			}
			var j *sqlgraph.Join
			for _, o := range *level {
				if o.Relation == name {
					j = o
					break
				}
			}
			if j == nil {
				j = sqlgraph.J(name)
				*level = append(*level, j)
			}
			level = &j.Joins
		}
	}
	return joins, nil
}

// restrict applies "route:expr" restrictions to the joins.
func restrict(p schema.Provider, typ string, joins []*sqlgraph.Join, restrictions []string) error {
	for _, r := range restrictions {
		route, expr, ok := strings.Cut(r, ":")
		if !ok {
			return fmt.Errorf("join restriction %q: want route:expr", r)
		}
		j, d, err := joinAt(p, typ, joins, route)
		if err != nil {
			return err
		}
		pred, err := parseWhere(d, expr)
		if err != nil {
			return err
		}
		j.Where(pred)
	}
	return nil
}

func joinAt(p schema.Provider, typ string, joins []*sqlgraph.Join, route string) (*sqlgraph.Join, *schema.Descriptor, error) {
	d, err := p.Descriptor(typ)
	if err != nil {
		return nil, nil, err
	}
	var j *sqlgraph.Join
	level := joins
	for _, name := range strings.Split(route, ".") {
		j = nil
		for _, o := range level {
			if o.Relation == name {
				j = o
			}
		}
		r, ok := d.Relation(name)
		if j == nil || !ok {
			return nil, nil, fmt.Errorf("route %q is not joined", route)
		}
		if d, err = p.Descriptor(r.Target); err != nil {
			return nil, nil, err
		}
		level = j.Joins
	}
	return j, d, nil
}

var operators = []struct {
	token string
	op    sqlgraph.Operator
}{
	{"!=", sqlgraph.OpNEQ},
	{">=", sqlgraph.OpGTE},
	{"<=", sqlgraph.OpLTE},
	{"=", sqlgraph.OpEQ},
	{">", sqlgraph.OpGT},
	{"<", sqlgraph.OpLT},
	{"~", sqlgraph.OpLike},
}

// parseWhere parses "prop<op>value" where op is one of = != > >= < <= or
// ~ for LIKE. The value "null" compares with NULL, and "a|b" after = or !=
// is a list.
func parseWhere(d *schema.Descriptor, expr string) (sqlgraph.Predicate, error) {
	for _, o := range operators {
		i := strings.Index(expr, o.token)
		if i <= 0 {
			continue
		}
		prop, raw := strings.TrimSpace(expr[:i]), strings.TrimSpace(expr[i+len(o.token):])
		if o.op == sqlgraph.OpLike {
			return sqlgraph.Like(prop, raw), nil
		}
		if raw == "null" {
			switch o.op {
			case sqlgraph.OpEQ:
				return sqlgraph.IsNull(prop), nil
			case sqlgraph.OpNEQ:
				return sqlgraph.NotNull(prop), nil
			}
			return nil, fmt.Errorf("where %q: null only compares with = or !=", expr)
		}
		if strings.Contains(raw, "|") && (o.op == sqlgraph.OpEQ || o.op == sqlgraph.OpNEQ) {
			var vs []any
			for _, s := range strings.Split(raw, "|") {
				v, err := convert(d, prop, s)
				if err != nil {
					return nil, err
				}
				vs = append(vs, v)
			}
			if o.op == sqlgraph.OpNEQ {
				return sqlgraph.NotIn(prop, vs...), nil
			}
			return sqlgraph.In(prop, vs...), nil
		}
		v, err := convert(d, prop, raw)
		if err != nil {
			return nil, err
		}
		return compare(prop, o.op, v), nil
	}
	return nil, fmt.Errorf("where %q: missing operator", expr)
}

func compare(prop string, op sqlgraph.Operator, v any) sqlgraph.Predicate {
	switch op {
	case sqlgraph.OpNEQ:
		return sqlgraph.NEQ(prop, v)
	case sqlgraph.OpGT:
		return sqlgraph.GT(prop, v)
	case sqlgraph.OpGTE:
		return sqlgraph.GTE(prop, v)
	case sqlgraph.OpLT:
		return sqlgraph.LT(prop, v)
	case sqlgraph.OpLTE:
		return sqlgraph.LTE(prop, v)
	default:
		return sqlgraph.EQ(prop, v)
	}
}

// convert parses s by the type of the property. Relations compare on the
// target identifier, parsed as an integer when it looks like one.
func convert(d *schema.Descriptor, prop, s string) (any, error) {
	typ := field.TypeString
	if c, ok := d.Column(prop); ok {
		typ = c.Type
	} else if _, ok := d.Relation(prop); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}
	var (
		v   any
		err error
	)
	switch typ {
	case field.TypeInt, field.TypeInt64:
		v, err = strconv.ParseInt(s, 10, 64)
	case field.TypeFloat64:
		v, err = strconv.ParseFloat(s, 64)
	case field.TypeBool:
		v, err = strconv.ParseBool(s)
	default:
		v = s
	}
	if err != nil {
		return nil, fmt.Errorf("value %q of %s: %w", s, prop, err)
	}
	return v, nil
}

// parseOrder parses "prop" or "-prop" for descending order.
func parseOrder(terms []string) []sqlgraph.Order {
	var os []sqlgraph.Order
	for _, s := range terms {
		if p, ok := strings.CutPrefix(s, "-"); ok {
			os = append(os, sqlgraph.Desc(p))
		} else {
			os = append(os, sqlgraph.Asc(s))
		}
	}
	return os
}

// statement is the printed form of a compiled query.
type statement struct {
	Op   string     `json:"op"`
	SQL  string     `json:"sql"`
	Args [][]string `json:"args,omitempty"`
}

func statements(d dialect.Dialect, qs []*sqlgraph.Query) []statement {
	out := make([]statement, 0, len(qs))
	for _, q := range qs {
		s := statement{Op: string(q.Op), SQL: d.Rebind(q.SQL)}
		for _, batch := range q.Batches {
			if len(batch) == 0 {
				continue
			}
			args := make([]string, len(batch))
			for i, a := range batch {
				if a == nil {
					args[i] = "NULL"
				} else {
					args[i] = fmt.Sprint(a)
				}
			}
			s.Args = append(s.Args, args)
		}
		out = append(out, s)
	}
	return out
}

func writeStatements(w io.Writer, stmts []statement) error {
	for i, s := range stmts {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s;\n", s.SQL); err != nil {
			return err
		}
		for _, args := range s.Args {
			if _, err := fmt.Fprintf(w, "-- args: %s\n", strings.Join(args, ", ")); err != nil {
				return err
			}
		}
	}
	return nil
}
