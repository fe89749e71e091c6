package sqlgraph

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql"
)

func skus(lines []*OrderLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.SKU
	}
	sort.Strings(out)
	return out
}

// seed stores two orders: version 7 with lines A-1 and B-2, and version 8
// with line C-3.
func seed(t *testing.T, e *Engine) (*PurchaseOrder, *PurchaseOrder) {
	t.Helper()
	o1 := &PurchaseOrder{Version: 7, Note: strp("rush"), Lines: []*OrderLine{{SKU: "A-1"}, {SKU: "B-2"}}}
	o2 := &PurchaseOrder{Version: 8, Lines: []*OrderLine{{SKU: "C-3"}}}
	require.NoError(t, e.Upsert(context.Background(), []any{o1, o2}, []*Join{J("lines")}))
	require.NotZero(t, o1.ID)
	require.NotZero(t, o2.ID)
	return o1, o2
}

func TestEngine_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, s := range []dialect.Strategy{dialect.StrategyIn, dialect.StrategyExists, dialect.StrategyTwoQueries} {
		t.Run(s.String(), func(t *testing.T) {
			e, drv := sqliteEngine(t, nil)
			o1, _ := seed(t, e)
			assert.Equal(t, 2, count(t, drv, "SELECT COUNT(*) FROM order_lines WHERE order_id = ?", o1.ID))

			orders, err := All[*PurchaseOrder](ctx, e, &Select{
				Type:     "PurchaseOrder",
				Joins:    []*Join{J("lines")},
				Where:    []Predicate{EQ("version", 7)},
				Strategy: s,
			})
			require.NoError(t, err)
			require.Len(t, orders, 1, "one root for its two rows")
			o := orders[0]
			assert.Equal(t, o1.ID, o.ID)
			assert.Equal(t, int64(7), o.Version)
			require.NotNil(t, o.Note)
			assert.Equal(t, "rush", *o.Note)
			assert.Equal(t, []string{"A-1", "B-2"}, skus(o.Lines))
			assert.Nil(t, o.Customer, "unjoined relations stay unset")
		})
	}
}

func TestEngine_Filters(t *testing.T) {
	ctx := context.Background()
	e, _ := sqliteEngine(t, nil)
	seed(t, e)

	t.Run("join restriction", func(t *testing.T) {
		orders, err := All[*PurchaseOrder](ctx, e, &Select{
			Type:  "PurchaseOrder",
			Joins: []*Join{J("lines").Where(Like("sku", "B%"))},
		})
		require.NoError(t, err)
		require.Len(t, orders, 1, "roots without a matching line are excluded")
		assert.Equal(t, []string{"B-2"}, skus(orders[0].Lines))
	})

	t.Run("related property", func(t *testing.T) {
		orders, err := All[*PurchaseOrder](ctx, e, &Select{
			Type:  "PurchaseOrder",
			Joins: []*Join{J("lines")},
			Where: []Predicate{EQ("lines", nil)},
		})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("unjoined", func(t *testing.T) {
		orders, err := All[*PurchaseOrder](ctx, e, &Select{
			Type:  "PurchaseOrder",
			Where: []Predicate{Or(IsNull("note"), GT("version", 100))},
		})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, int64(8), orders[0].Version)
		assert.Empty(t, orders[0].Lines)
	})

	t.Run("empty in", func(t *testing.T) {
		orders, err := All[*PurchaseOrder](ctx, e, &Select{Type: "PurchaseOrder", Where: []Predicate{In("version")}})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestEngine_Paging(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  *relgraph.Config
		s    dialect.Strategy
	}{
		{name: "in", s: dialect.StrategyIn},
		{name: "two queries", s: dialect.StrategyTwoQueries},
		{name: "in memory", cfg: &relgraph.Config{Paging: relgraph.PagingTwoQueries}},
		{name: "chunked", cfg: &relgraph.Config{MaxParameters: 1}, s: dialect.StrategyTwoQueries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := sqliteEngine(t, tt.cfg)
			seed(t, e)
			o3 := &PurchaseOrder{Version: 9, Lines: []*OrderLine{{SKU: "D-4"}, {SKU: "E-5"}}}
			require.NoError(t, e.Upsert(ctx, []any{o3}, []*Join{J("lines")}))

			orders, err := All[*PurchaseOrder](ctx, e, &Select{
				Type:     "PurchaseOrder",
				Joins:    []*Join{J("lines")},
				Where:    []Predicate{GT("version", 0)},
				Order:    []Order{Desc("version")},
				Limit:    2,
				Strategy: tt.s,
			})
			require.NoError(t, err)
			require.Len(t, orders, 2, "paging counts roots, not rows")
			assert.Equal(t, int64(9), orders[0].Version)
			assert.Equal(t, []string{"D-4", "E-5"}, skus(orders[0].Lines))
			assert.Equal(t, int64(8), orders[1].Version)

			orders, err = All[*PurchaseOrder](ctx, e, &Select{
				Type:     "PurchaseOrder",
				Joins:    []*Join{J("lines")},
				Where:    []Predicate{GT("version", 0)},
				Order:    []Order{Desc("version")},
				Offset:   2,
				Strategy: tt.s,
			})
			require.NoError(t, err)
			require.Len(t, orders, 1)
			assert.Equal(t, int64(7), orders[0].Version)
		})
	}
}

func TestEngine_IdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	e, drv := sqliteEngine(t, nil)
	order := func() *PurchaseOrder {
		return &PurchaseOrder{Version: 7, Lines: []*OrderLine{{SKU: "A-1"}, {SKU: "A-1"}, {SKU: "B-2"}}}
	}
	o := order()
	require.NoError(t, e.Upsert(ctx, []any{o}, []*Join{J("lines")}, CheckNaturalKey()))
	assert.Equal(t, o.Lines[0].ID, o.Lines[1].ID, "equal natural keys share a row")
	assert.Equal(t, 2, count(t, drv, "SELECT COUNT(*) FROM lines"))
	assert.Equal(t, 2, count(t, drv, "SELECT COUNT(*) FROM order_lines"))

	again := order()
	again.Note = strp("updated")
	require.NoError(t, e.Upsert(ctx, []any{again}, []*Join{J("lines")}, CheckNaturalKey()))
	assert.Equal(t, o.ID, again.ID)
	assert.Equal(t, o.Lines[2].ID, again.Lines[2].ID)
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, 2, count(t, drv, "SELECT COUNT(*) FROM lines"))
	assert.Equal(t, 2, count(t, drv, "SELECT COUNT(*) FROM order_lines WHERE order_id = ?", o.ID))
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM orders WHERE note = 'updated'"))

	t.Run("relation rewrite", func(t *testing.T) {
		o := &PurchaseOrder{Version: 7, Lines: []*OrderLine{{SKU: "C-3"}}}
		require.NoError(t, e.Upsert(ctx, []any{o}, []*Join{J("lines")}, CheckNaturalKey()))
		orders, err := All[*PurchaseOrder](ctx, e, &Select{Type: "PurchaseOrder", Joins: []*Join{J("lines")}})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, []string{"C-3"}, skus(orders[0].Lines))
		assert.Equal(t, 3, count(t, drv, "SELECT COUNT(*) FROM lines"), "unlinked lines are kept")
	})
}

func TestEngine_NaturalKeyTwins(t *testing.T) {
	ctx := context.Background()
	e, drv := sqliteEngine(t, nil)
	p := &Product{Name: "bolt"}
	o := &PurchaseOrder{Version: 3, Lines: []*OrderLine{{SKU: "X"}, {SKU: "X", Product: p}}}
	require.NoError(t, e.Upsert(ctx, []any{o}, []*Join{J("lines", J("product"))}, CheckNaturalKey()))
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM lines WHERE sku = 'X'"))
	assert.NotZero(t, o.Lines[0].ID)
	assert.Equal(t, o.Lines[0].ID, o.Lines[1].ID)
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM lines WHERE product_id = ?", p.ID), "the row takes the foreign key of either twin")
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM order_lines WHERE order_id = ?", o.ID))

	t.Run("compile", func(t *testing.T) {
		o := &PurchaseOrder{Version: 4, Lines: []*OrderLine{{SKU: "Y", Product: &Product{Name: "nut"}}, {SKU: "Y"}}}
		queries, err := e.CompileUpsert([]any{o}, []*Join{J("lines", J("product"))})
		require.NoError(t, err)
		var inserts int
		for _, q := range queries {
			if q.Op == OpInsert && q.Table == "lines" {
				inserts += len(q.Batches)
			}
		}
		assert.Equal(t, 1, inserts)
	})
}

func TestEngine_Cycle(t *testing.T) {
	ctx := context.Background()
	e, _ := sqliteEngine(t, nil)
	c := &Customer{Name: "ann", Orders: []*PurchaseOrder{{Version: 1}, {Version: 2}}}
	require.NoError(t, e.Upsert(ctx, []any{c}, []*Join{J("orders")}))

	orders, err := All[*PurchaseOrder](ctx, e, &Select{
		Type:  "PurchaseOrder",
		Joins: []*Join{J("customer", J("orders"))},
		Order: []Order{Asc("version")},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	customer := orders[0].Customer
	require.NotNil(t, customer)
	assert.Same(t, customer, orders[1].Customer, "one instance per row")
	assert.Equal(t, "ann", customer.Name)
	require.Len(t, customer.Orders, 2)
	for _, o := range customer.Orders {
		assert.True(t, o == orders[0] || o == orders[1], "the cycle closes on the roots")
	}
}

func TestEngine_LocalForeignKey(t *testing.T) {
	ctx := context.Background()
	e, drv := sqliteEngine(t, nil)
	pen := &Product{Name: "pen"}
	l := &OrderLine{SKU: "P-1", Product: pen}
	require.NoError(t, e.Upsert(ctx, []any{l}, []*Join{J("product")}))
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM lines WHERE product_id = ?", pen.ID))

	l.Product = nil
	require.NoError(t, e.Upsert(ctx, []any{l}, []*Join{J("product")}))
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM lines WHERE product_id IS NULL"))
}

func TestEngine_ShortAliases(t *testing.T) {
	ctx := context.Background()
	e, _ := sqliteEngine(t, &relgraph.Config{MaxIdentifierLength: 12})
	o := &PurchaseOrder{Version: 3, Lines: []*OrderLine{{SKU: "A-1", Product: &Product{Name: "pen"}}}}
	require.NoError(t, e.Upsert(ctx, []any{o}, []*Join{J("lines", J("product"))}))

	for _, s := range []dialect.Strategy{dialect.StrategyIn, dialect.StrategyExists, dialect.StrategyTwoQueries} {
		orders, err := All[*PurchaseOrder](ctx, e, &Select{
			Type:     "PurchaseOrder",
			Joins:    []*Join{J("lines", J("product"))},
			Where:    []Predicate{EQ("version", 3)},
			Strategy: s,
		})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		require.Len(t, orders[0].Lines, 1)
		require.NotNil(t, orders[0].Lines[0].Product)
		assert.Equal(t, "pen", orders[0].Lines[0].Product.Name)
	}
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()
	e, drv := sqliteEngine(t, nil)
	o1, o2 := seed(t, e)

	n, err := e.Delete(ctx, &Delete{
		Type:  "PurchaseOrder",
		Joins: []*Join{J("lines")},
		Where: []Predicate{EQ("version", 7)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM lines"))
	assert.Equal(t, 0, count(t, drv, "SELECT COUNT(*) FROM order_lines WHERE order_id = ?", o1.ID))
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM order_lines WHERE order_id = ?", o2.ID))

	n, err = e.Delete(ctx, &Delete{Type: "OrderLine", Where: []Predicate{EQ("sku", "C-3")}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, count(t, drv, "SELECT COUNT(*) FROM lines"))
	assert.Equal(t, 0, count(t, drv, "SELECT COUNT(*) FROM order_lines"), "no association row outlives its line")

	n, err = e.Delete(ctx, &Delete{Type: "PurchaseOrder", Joins: []*Join{J("lines")}, Where: []Predicate{EQ("version", 100)}})
	require.NoError(t, err)
	assert.Zero(t, n)

	t.Run("compile", func(t *testing.T) {
		queries, err := e.CompileDelete(&Delete{Type: "PurchaseOrder", Joins: []*Join{J("lines")}, Where: []Predicate{EQ("version", 7)}})
		require.NoError(t, err)
		require.Len(t, queries, 3)
		assert.Contains(t, queries[0].SQL, "SELECT `orders`.`id` AS `orders.id`, `orders_lines_lines`.`id` AS `orders_lines_lines.id`")
		assert.Equal(t, "DELETE FROM `order_lines` WHERE `order_id` IN (?)", queries[1].SQL)
		assert.Equal(t, "DELETE FROM `orders` WHERE `id` IN (?)", queries[2].SQL)
		assert.Equal(t, []any{RootIDs{}}, queries[2].Args())
	})

	t.Run("compile direct", func(t *testing.T) {
		queries, err := e.CompileDelete(&Delete{Type: "OrderLine", Where: []Predicate{EQ("sku", "A-1")}})
		require.NoError(t, err)
		require.Len(t, queries, 2)
		assert.Equal(t, "DELETE FROM `order_lines` WHERE `line_id` IN (SELECT `lines`.`id` FROM `lines` WHERE `lines`.`sku` = ?)", queries[0].SQL)
		assert.Equal(t, []any{"A-1"}, queries[0].Args())
		assert.Nil(t, queries[0].Target)
		assert.Equal(t, "DELETE FROM `lines` WHERE `lines`.`sku` = ?", queries[1].SQL)
		assert.NotNil(t, queries[1].Target)

		queries, err = e.CompileDelete(&Delete{Type: "Tag"})
		require.NoError(t, err)
		require.Len(t, queries, 1, "no association references tags")
		assert.Equal(t, "DELETE FROM `tags`", queries[0].SQL)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := e.Delete(ctx, &Delete{Type: "Invoice"})
		assert.True(t, relgraph.IsMappingError(err))
	})
}

func TestEngine_WithTx(t *testing.T) {
	ctx := context.Background()
	e, drv := sqliteEngine(t, nil)

	boom := errors.New("boom")
	err := e.WithTx(ctx, func(tx *Engine) error {
		if err := tx.Upsert(ctx, []any{&Tag{Label: "x"}}, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, drv, "SELECT COUNT(*) FROM tags"))

	require.NoError(t, e.WithTx(ctx, func(tx *Engine) error {
		return tx.Upsert(ctx, []any{&Tag{Label: "y"}}, nil)
	}))
	assert.Equal(t, 1, count(t, drv, "SELECT COUNT(*) FROM tags"))

	t.Run("rollback error", func(t *testing.T) {
		e, mock := mockEngine(t, dialect.NewSQLite(), nil)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("connection lost"))
		err := e.WithTx(ctx, func(*Engine) error { return boom })
		require.ErrorIs(t, err, boom)
		var rerr *relgraph.RollbackError
		require.ErrorAs(t, err, &rerr)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("panic", func(t *testing.T) {
		e, mock := mockEngine(t, dialect.NewSQLite(), nil)
		mock.ExpectBegin()
		mock.ExpectRollback()
		assert.Panics(t, func() {
			_ = e.WithTx(ctx, func(*Engine) error { panic("oops") })
		})
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no driver", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		e := engine(t, sql.Conn{ExecQuerier: db}, dialect.NewSQLite(), nil)
		assert.Error(t, e.WithTx(ctx, func(*Engine) error { return nil }))
	})
}

func TestNewEngine_BatchInserts(t *testing.T) {
	on := true
	_, err := NewEngine(nil, dialect.NewOracle(), registry(t), WithConfig(&relgraph.Config{BatchInserts: &on}))
	var cerr *relgraph.CapabilityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, dialect.Oracle, cerr.Dialect)
	assert.Equal(t, "batch inserts", cerr.Feature)

	e, err := NewEngine(nil, dialect.NewPostgres(), registry(t), WithConfig(&relgraph.Config{BatchInserts: &on}))
	require.NoError(t, err)
	assert.True(t, e.Dialect().SupportsBatchInserts())
}

func TestEngine_Stats(t *testing.T) {
	ctx := context.Background()
	e, drv := sqliteEngine(t, nil)
	stats := sql.NewStats()
	counted, err := NewEngine(drv, e.Dialect(), e.Provider(), WithStats(stats))
	require.NoError(t, err)

	seed(t, counted)
	assert.Positive(t, stats.Snapshot()["INSERT"].Statements)
	assert.Zero(t, stats.Total().Errors)

	stats.Reset()
	require.NoError(t, counted.WithTx(ctx, func(tx *Engine) error {
		_, err := tx.Delete(ctx, &Delete{Type: "Tag"})
		return err
	}))
	assert.Equal(t, map[string]sql.KindStats{"DELETE": stats.Snapshot()["DELETE"]}, stats.Snapshot())
	assert.Equal(t, int64(1), stats.Total().Statements)
}
