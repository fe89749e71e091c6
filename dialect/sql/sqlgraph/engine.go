package sqlgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/schema"
)

// Engine compiles and runs graph statements for one dialect and one
// metadata provider. It holds no per-call state and is safe for concurrent
// use when its ExecQuerier is.
type Engine struct {
	drv      dialect.ExecQuerier
	dialect  dialect.Dialect
	provider schema.Provider
	cfg      *relgraph.Config
	logger   *slog.Logger
	stats    *sql.Stats
	sep      string
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the compiler configuration.
func WithConfig(cfg *relgraph.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the logger used when statement logging is enabled.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStats counts the statements the engine runs into s.
func WithStats(s *sql.Stats) Option {
	return func(e *Engine) { e.stats = s }
}

// NewEngine returns an engine running statements on drv. The dialect
// capabilities are adjusted by the configuration.
func NewEngine(drv dialect.ExecQuerier, d dialect.Dialect, p schema.Provider, opts ...Option) (*Engine, error) {
	if d == nil {
		return nil, errors.New("sqlgraph: nil dialect")
	}
	if p == nil {
		return nil, errors.New("sqlgraph: nil metadata provider")
	}
	e := &Engine{drv: drv, dialect: d, provider: p}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg == nil {
		e.cfg = &relgraph.Config{}
	}
	o, err := dialect.FromConfig(e.cfg)
	if err != nil {
		return nil, err
	}
	if err := o.Check(d); err != nil {
		return nil, err
	}
	e.dialect = dialect.Override(d, o)
	e.sep = e.cfg.PathSeparator()
	if e.logger == nil {
		e.logger = slog.Default()
	}
	var instrument []sql.InstrumentOption
	if e.cfg.LogSQL {
		instrument = append(instrument, sql.WithStatementLog(e.logger, slog.LevelInfo))
	}
	if e.stats != nil {
		instrument = append(instrument, sql.WithStats(e.stats))
	}
	if drv != nil && len(instrument) > 0 {
		e.drv = sql.Instrument(drv, instrument...)
	}
	return e, nil
}

// Dialect returns the dialect statements are generated for.
func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

// Provider returns the metadata provider.
func (e *Engine) Provider() schema.Provider { return e.provider }

// Executor returns an executor on the engine connection.
func (e *Engine) Executor() *Executor {
	return NewExecutor(e.drv, e.dialect)
}

// Prepare binds a compiled query to the engine connection.
func (e *Engine) Prepare(q *Query) *Request {
	return e.Executor().Prepare(q)
}

// Select runs a graph select and returns the materialized roots.
func (e *Engine) Select(ctx context.Context, s *Select) ([]any, error) {
	plan, err := e.compile(s, false)
	if err != nil {
		return nil, err
	}
	m := newMapper(plan.tree, plan.aliases)
	ids, err := e.run(ctx, e.Executor(), plan, m.add)
	if err != nil {
		return nil, err
	}
	if plan.first != nil {
		return m.ordered(ids), nil
	}
	return m.roots, nil
}

// CompileSelect compiles a select without running it. The second statement
// of a two-query plan is shown for a single root identifier.
func (e *Engine) CompileSelect(s *Select) (*Plan, error) {
	plan, err := e.compile(s, false)
	if err != nil {
		return nil, err
	}
	queries, err := plan.queries()
	if err != nil {
		return nil, err
	}
	return &Plan{Strategy: plan.strategy, Queries: queries}, nil
}

// run executes a select plan and passes every cursor to fn. For two-query
// plans it returns the root identifiers in order.
func (e *Engine) run(ctx context.Context, x *Executor, plan *selectPlan, fn func(*Cursor) error) ([]any, error) {
	if plan.first == nil {
		cur, err := x.Prepare(plan.graph).Execute(ctx)
		if err != nil {
			return nil, err
		}
		return nil, fn(cur)
	}
	cur, err := x.Prepare(plan.first).Execute(ctx)
	if err != nil {
		return nil, err
	}
	var (
		ids  []any
		seen = make(map[any]bool)
	)
	for cur.Next() {
		id := cur.Row()[0]
		if k := schema.Key(id); id != nil && !seen[k] {
			seen[k] = true
			ids = append(ids, id)
		}
	}
	if plan.page {
		ids = window(ids, plan.offset, plan.limit)
	}
	for _, chunk := range chunks(ids, plan.chunk) {
		q, err := plan.second(chunk)
		if err != nil {
			return nil, err
		}
		cur, err := x.Prepare(q).Execute(ctx)
		if err != nil {
			return nil, err
		}
		if err := fn(cur); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func window(ids []any, offset, limit int) []any {
	if offset >= len(ids) {
		return nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

// Upsert inserts or updates the entities and the graph reachable from them
// through joins, children first.
func (e *Engine) Upsert(ctx context.Context, entities []any, joins []*Join, opts ...UpsertOption) error {
	x := e.Executor()
	queries, err := e.newUpserter(x, opts).compile(ctx, entities, joins)
	if err != nil {
		return err
	}
	for _, q := range queries {
		if _, _, err := x.exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// CompileUpsert compiles an upsert without running it. No natural-key or
// existence lookup runs: elements without an identifier are inserted, the
// others updated.
func (e *Engine) CompileUpsert(entities []any, joins []*Join, opts ...UpsertOption) ([]*Query, error) {
	return e.newUpserter(nil, opts).compile(context.Background(), entities, joins)
}

// Delete deletes the matching rows of the root type and the rows reached
// from them through joins. It returns the number of entity rows deleted.
func (e *Engine) Delete(ctx context.Context, del *Delete) (int64, error) {
	if err := e.checkDelete(del); err != nil {
		return 0, err
	}
	x := e.Executor()
	var queries []*Query
	if len(del.Joins) == 0 {
		qs, err := e.compileDirect(del)
		if err != nil {
			return 0, err
		}
		queries = qs
	} else {
		ids, err := e.collect(ctx, x, del)
		if err != nil {
			return 0, err
		}
		if queries, err = e.cascade(ids); err != nil {
			return 0, err
		}
	}
	var total int64
	for _, q := range queries {
		_, n, err := x.exec(ctx, q)
		if err != nil {
			return total, err
		}
		if q.Target != nil {
			total += n
		}
	}
	return total, nil
}

// CompileDelete compiles a delete without running it. For cascading
// deletes, the statements after the identifier select are shown for the
// root type only.
func (e *Engine) CompileDelete(del *Delete) ([]*Query, error) {
	if err := e.checkDelete(del); err != nil {
		return nil, err
	}
	if len(del.Joins) == 0 {
		return e.compileDirect(del)
	}
	plan, err := e.compileIDSelect(del)
	if err != nil {
		return nil, err
	}
	queries, err := plan.queries()
	if err != nil {
		return nil, err
	}
	ids := NewIdMap()
	ids.Add(plan.tree.root.desc.Type, 0, RootIDs{})
	rest, err := e.cascade(ids)
	if err != nil {
		return nil, err
	}
	return append(queries, rest...), nil
}

// WithTx runs fn with an engine bound to a new transaction, and commits it
// if fn succeeds. The engine connection must be a dialect.Driver.
func (e *Engine) WithTx(ctx context.Context, fn func(*Engine) error) error {
	drv, ok := e.drv.(dialect.Driver)
	if !ok {
		return fmt.Errorf("sqlgraph: transactions need a dialect.Driver, got %T", e.drv)
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("sqlgraph: starting a transaction: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	txe := *e
	txe.drv = tx
	if err := fn(&txe); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.Join(err, &relgraph.RollbackError{Err: rerr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlgraph: committing transaction: %w", err)
	}
	return nil
}

// All runs a graph select and returns the roots as T values.
//
//	orders, err := sqlgraph.All[*Order](ctx, eng, &sqlgraph.Select{Type: "Order"})
func All[T any](ctx context.Context, e *Engine, s *Select) ([]T, error) {
	roots, err := e.Select(ctx, s)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(roots))
	for _, r := range roots {
		v, ok := r.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("sqlgraph: cannot use %T as %T", r, zero)
		}
		out = append(out, v)
	}
	return out, nil
}
