package sqlgraph

import (
	"fmt"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/schema"
)

// Op is the kind of a statement.
type Op string

// Statement kinds.
const (
	OpSelect Op = "SELECT"
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
	OpCreate Op = "CREATE"
	OpDrop   Op = "DROP"
)

// Query is a compiled statement with '?' placeholders and one or more
// parameter batches. A query with many batches runs once per batch.
// Parameters may be Deferred values, resolved when the batch is bound.
type Query struct {
	SQL     string
	Op      Op
	Batches [][]any
	// Table is the table the statement writes, if any.
	Table string
	// Target is the entity type whose elements the statement writes.
	Target *schema.Descriptor
	// Sources holds the element written by each batch, for statements that
	// write entity rows.
	Sources []any
	// Aliases is the alias table of SELECT statements.
	Aliases *Aliases
	// keys reports if an INSERT reads back generated identifiers into its
	// sources.
	keys bool
	// duplicates holds, per batch, the collapsed elements that receive the
	// identifier generated for the batch source.
	duplicates [][]any
}

// newQuery returns a query after checking every batch against the
// placeholders of sql.
func newQuery(op Op, sql string, batches ...[]any) (*Query, error) {
	q := &Query{SQL: sql, Op: op, Batches: batches}
	if len(q.Batches) == 0 {
		q.Batches = [][]any{nil}
	}
	if err := q.check(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Query) check() error {
	n := dialect.Placeholders(q.SQL)
	for _, args := range q.Batches {
		if n != len(args) {
			return &relgraph.IncoherentQueryError{
				SQL:          q.SQL,
				Placeholders: n,
				Args:         args,
				Msg:          "placeholder count does not match parameters",
			}
		}
	}
	return nil
}

// IsBatch reports if the query carries more than one parameter batch.
func (q *Query) IsBatch() bool { return len(q.Batches) > 1 }

// Args returns the parameters of the first batch.
func (q *Query) Args() []any {
	if len(q.Batches) == 0 {
		return nil
	}
	return q.Batches[0]
}

// String returns the statement and its batches, for logs and the CLI.
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString(q.SQL)
	for _, args := range q.Batches {
		if len(args) == 0 {
			continue
		}
		sb.WriteString("\n  args: ")
		sb.WriteString(formatArgs(args))
	}
	return sb.String()
}

// source returns the element of batch i.
func (q *Query) source(i int) any {
	if i < len(q.Sources) {
		return q.Sources[i]
	}
	return nil
}

// reads returns the elements whose generated identifiers the query binds.
func (q *Query) reads() map[any]bool {
	var m map[any]bool
	for _, args := range q.Batches {
		for _, a := range args {
			if g, ok := a.(*GeneratedID); ok {
				if m == nil {
					m = make(map[any]bool)
				}
				m[g.elem] = true
			}
		}
	}
	return m
}

// produces reports if the query generates the identifier of elem.
func (q *Query) produces(elem any) bool {
	for i, args := range q.Batches {
		if q.keys && q.source(i) == elem {
			return true
		}
		if i < len(q.duplicates) && (q.keys || sequenced(args)) {
			for _, dup := range q.duplicates[i] {
				if dup == elem {
					return true
				}
			}
		}
		if q.keys {
			continue
		}
		for _, a := range args {
			if nv, ok := a.(*NextValue); ok && nv.elem == elem {
				return true
			}
		}
	}
	return false
}

func sequenced(args []any) bool {
	for _, a := range args {
		if _, ok := a.(*NextValue); ok {
			return true
		}
	}
	return false
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch a := a.(type) {
		case fmt.Stringer:
			parts[i] = a.String()
		case string:
			parts[i] = fmt.Sprintf("%q", a)
		default:
			parts[i] = fmt.Sprint(a)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
