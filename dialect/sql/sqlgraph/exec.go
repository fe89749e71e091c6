package sqlgraph

import (
	"context"
	"fmt"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql"
)

// Executor runs compiled queries on an ExecQuerier. Batches run one after
// the other, deferred parameters are resolved when their batch is bound
// and placeholders are rebound to the dialect style.
type Executor struct {
	drv dialect.ExecQuerier
	d   dialect.Dialect
}

// NewExecutor returns an executor. Statements are logged and counted by
// the connection, see sql.Instrument.
func NewExecutor(drv dialect.ExecQuerier, d dialect.Dialect) *Executor {
	return &Executor{drv: drv, d: d}
}

// Prepare binds a query to the executor.
func (x *Executor) Prepare(q *Query) *Request {
	return &Request{x: x, q: q}
}

// Request is a query prepared on an executor.
type Request struct {
	x *Executor
	q *Query
}

// Query returns the prepared query.
func (r *Request) Query() *Query { return r.q }

// Execute runs a statement returning rows. Every batch contributes its
// rows to the cursor.
func (r *Request) Execute(ctx context.Context) (*Cursor, error) {
	c := &Cursor{pos: -1}
	for _, batch := range r.q.Batches {
		columns, rows, err := r.x.query(ctx, r.q, batch)
		if err != nil {
			return nil, err
		}
		c.columns = columns
		c.rows = append(c.rows, rows...)
	}
	return c, nil
}

// ExecuteUpdate runs a statement not returning rows, and returns the
// identifiers generated for its batches, if the statement reads them back.
func (r *Request) ExecuteUpdate(ctx context.Context) ([]any, error) {
	ids, _, err := r.x.exec(ctx, r.q)
	return ids, err
}

func (x *Executor) bind(ctx context.Context, q *Query, batch []any) (string, []any, error) {
	args := make([]any, len(batch))
	for i, a := range batch {
		v, ok := a.(Deferred)
		if !ok {
			args[i] = a
			continue
		}
		resolved, err := v.Resolve(ctx, x)
		if err != nil {
			return "", nil, err
		}
		args[i] = resolved
	}
	return x.d.Rebind(q.SQL), args, nil
}

func (x *Executor) query(ctx context.Context, q *Query, batch []any) ([]string, [][]any, error) {
	query, args, err := x.bind(ctx, q, batch)
	if err != nil {
		return nil, nil, err
	}
	rows := &sql.Rows{}
	if err := x.drv.Query(ctx, query, args, rows); err != nil {
		return nil, nil, executionError(q.Op, query, args, err)
	}
	columns, values, err := sql.ScanValues(rows)
	if err != nil {
		return nil, nil, executionError(q.Op, query, args, err)
	}
	return columns, values, nil
}

// exec runs every batch of q and returns the generated identifiers and the
// number of affected rows.
func (x *Executor) exec(ctx context.Context, q *Query) ([]any, int64, error) {
	var (
		ids      []any
		affected int64
	)
	for i, batch := range q.Batches {
		query, args, err := x.bind(ctx, q, batch)
		if err != nil {
			return nil, 0, err
		}
		if q.keys && x.d.GeneratedKeys() != dialect.KeysLastInsertID {
			id, err := x.returning(ctx, q, query, args)
			if err != nil {
				return nil, 0, err
			}
			if err := x.assign(q, i, id); err != nil {
				return nil, 0, err
			}
			ids = append(ids, id)
			affected++
			continue
		}
		var res sql.Result
		if err := x.drv.Exec(ctx, query, args, &res); err != nil {
			return nil, 0, executionError(q.Op, query, args, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
		if !q.keys {
			if err := x.propagate(q, i); err != nil {
				return nil, 0, err
			}
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, 0, &relgraph.DeferredValueError{Entity: q.Target.Type, Expected: len(q.Batches), Resolved: i, Err: err}
		}
		if err := x.assign(q, i, id); err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
	}
	return ids, affected, nil
}

// returning runs an INSERT that reads its generated key through RETURNING
// or OUTPUT.
func (x *Executor) returning(ctx context.Context, q *Query, query string, args []any) (any, error) {
	if x.d.GeneratedKeys() == dialect.KeysNone {
		return nil, &relgraph.DeferredValueError{
			Entity:   q.Target.Type,
			Expected: len(q.Batches),
			Err:      fmt.Errorf("dialect %s cannot read generated keys", x.d.Name()),
		}
	}
	rows := &sql.Rows{}
	if err := x.drv.Query(ctx, query, args, rows); err != nil {
		return nil, executionError(q.Op, query, args, err)
	}
	_, values, err := sql.ScanValues(rows)
	if err != nil {
		return nil, executionError(q.Op, query, args, err)
	}
	if len(values) != 1 || len(values[0]) == 0 {
		return nil, &relgraph.DeferredValueError{Entity: q.Target.Type, Expected: 1, Resolved: len(values)}
	}
	return values[0][0], nil
}

// assign stores the identifier generated by batch i into its source and
// the duplicates collapsed into it.
func (x *Executor) assign(q *Query, i int, id any) error {
	src := q.source(i)
	if src == nil {
		return &relgraph.DeferredValueError{Entity: q.Target.Type, Expected: len(q.Batches), Resolved: i}
	}
	if err := q.Target.SetID(src, id); err != nil {
		return err
	}
	return x.propagate(q, i)
}

// propagate copies the identifier of the source of batch i to its
// duplicates.
func (x *Executor) propagate(q *Query, i int) error {
	if i >= len(q.duplicates) || len(q.duplicates[i]) == 0 {
		return nil
	}
	id := q.Target.IDOf(q.source(i))
	if id == nil {
		return nil
	}
	for _, dup := range q.duplicates[i] {
		if err := q.Target.SetID(dup, id); err != nil {
			return err
		}
	}
	return nil
}

// scalar runs a query returning a single value.
func (x *Executor) scalar(ctx context.Context, query string, args ...any) (any, error) {
	q := &Query{SQL: query, Op: OpSelect, Batches: [][]any{args}}
	_, rows, err := x.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil
	}
	return rows[0][0], nil
}

func executionError(op Op, query string, args []any, err error) error {
	return &relgraph.ExecutionError{Op: string(op), SQL: query, Args: args, Err: asConstraintError(err)}
}

// Cursor iterates over the rows of an executed query.
type Cursor struct {
	columns []string
	rows    [][]any
	pos     int
}

// ColumnCount returns the number of columns.
func (c *Cursor) ColumnCount() int { return len(c.columns) }

// ColumnName returns the label of column i.
func (c *Cursor) ColumnName(i int) string { return c.columns[i] }

// Columns returns the column labels.
func (c *Cursor) Columns() []string { return c.columns }

// Len returns the number of rows.
func (c *Cursor) Len() int { return len(c.rows) }

// Next advances to the next row.
func (c *Cursor) Next() bool {
	if c.pos+1 >= len(c.rows) {
		c.pos = len(c.rows)
		return false
	}
	c.pos++
	return true
}

// Row returns the values of the current row.
func (c *Cursor) Row() []any { return c.rows[c.pos] }

// Get returns a value of the current row by column index or label.
func (c *Cursor) Get(column any) (any, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("sqlgraph: cursor is not positioned on a row")
	}
	switch col := column.(type) {
	case int:
		if col < 0 || col >= len(c.columns) {
			return nil, fmt.Errorf("sqlgraph: column index %d out of range", col)
		}
		return c.rows[c.pos][col], nil
	case string:
		for i, name := range c.columns {
			if name == col {
				return c.rows[c.pos][i], nil
			}
		}
		return nil, fmt.Errorf("sqlgraph: unknown column %q", col)
	default:
		return nil, fmt.Errorf("sqlgraph: invalid column reference %T", column)
	}
}
