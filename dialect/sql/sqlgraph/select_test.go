package sqlgraph

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
)

func TestCompileSelect_Plain(t *testing.T) {
	e := engine(t, nil, dialect.NewPostgres(), nil)
	plan, err := e.CompileSelect(&Select{Type: "PurchaseOrder", Where: []Predicate{EQ("version", 7)}})
	require.NoError(t, err)
	require.Len(t, plan.Queries, 1)
	q := plan.Queries[0]
	assert.Equal(t, `SELECT "orders"."id" AS "orders.id", "orders"."version" AS "orders.version", "orders"."note" AS "orders.note" FROM "orders" "orders" WHERE "orders"."version" = ?`, q.SQL)
	assert.Equal(t, []any{7}, q.Args())
	assert.Equal(t, OpSelect, q.Op)
}

func TestCompileSelect_Strategies(t *testing.T) {
	const (
		graph = `SELECT "orders"."id" AS "orders.id", "orders"."version" AS "orders.version", "orders"."note" AS "orders.note", ` +
			`"orders_lines_lines"."id" AS "orders_lines_lines.id", "orders_lines_lines"."sku" AS "orders_lines_lines.sku" ` +
			`FROM "orders" "orders" ` +
			`LEFT JOIN "order_lines" "orders_lines_lines#" ON "orders_lines_lines#"."order_id" = "orders"."id" ` +
			`LEFT JOIN "lines" "orders_lines_lines" ON "orders_lines_lines"."id" = "orders_lines_lines#"."line_id"`
		sub = `FROM "orders" "sub_orders" ` +
			`LEFT JOIN "order_lines" "sub_orders_lines_lines#" ON "sub_orders_lines_lines#"."order_id" = "sub_orders"."id" ` +
			`LEFT JOIN "lines" "sub_orders_lines_lines" ON "sub_orders_lines_lines"."id" = "sub_orders_lines_lines#"."line_id"`
	)
	tests := []struct {
		name     string
		strategy dialect.Strategy
		want     []string
	}{
		{
			name:     "in",
			strategy: dialect.StrategyIn,
			want: []string{
				graph + ` WHERE "orders"."id" IN (SELECT DISTINCT "sub_orders"."id" ` + sub + ` WHERE "sub_orders"."version" = ?)`,
			},
		},
		{
			name:     "exists",
			strategy: dialect.StrategyExists,
			want: []string{
				graph + ` WHERE EXISTS (SELECT 1 ` + sub + ` WHERE "sub_orders"."id" = "orders"."id" AND "sub_orders"."version" = ?)`,
			},
		},
		{
			name:     "two queries",
			strategy: dialect.StrategyTwoQueries,
			want: []string{
				`SELECT DISTINCT "orders"."id" FROM "orders" "orders" ` +
					`LEFT JOIN "order_lines" "orders_lines_lines#" ON "orders_lines_lines#"."order_id" = "orders"."id" ` +
					`LEFT JOIN "lines" "orders_lines_lines" ON "orders_lines_lines"."id" = "orders_lines_lines#"."line_id" ` +
					`WHERE "orders"."version" = ?`,
				graph + ` WHERE "orders"."id" IN (?)`,
			},
		},
	}
	e := engine(t, nil, dialect.NewPostgres(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := e.CompileSelect(&Select{
				Type:     "PurchaseOrder",
				Joins:    []*Join{J("lines")},
				Where:    []Predicate{EQ("version", 7)},
				Strategy: tt.strategy,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, plan.Strategy)
			require.Len(t, plan.Queries, len(tt.want))
			for i, q := range plan.Queries {
				assert.Equal(t, tt.want[i], q.SQL)
			}
			if len(plan.Queries) == 2 {
				assert.Equal(t, []any{7}, plan.Queries[0].Args())
				assert.Equal(t, []any{RootIDs{}}, plan.Queries[1].Args())
			}
		})
	}
}

func TestCompileSelect_DialectDefaults(t *testing.T) {
	tests := []struct {
		d    dialect.Dialect
		want dialect.Strategy
	}{
		{dialect.NewPostgres(), dialect.StrategyIn},
		{dialect.NewMySQL(), dialect.StrategyTwoQueries},
		{dialect.NewSQLite(), dialect.StrategyIn},
		{dialect.NewOracle(), dialect.StrategyExists},
		{dialect.NewSQLServer(), dialect.StrategyExists},
	}
	for _, tt := range tests {
		t.Run(tt.d.Name(), func(t *testing.T) {
			e := engine(t, nil, tt.d, nil)
			plan, err := e.CompileSelect(&Select{
				Type:  "PurchaseOrder",
				Joins: []*Join{J("lines")},
				Where: []Predicate{EQ("version", 7)},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Strategy)
		})
	}
	t.Run("config", func(t *testing.T) {
		e := engine(t, nil, dialect.NewPostgres(), &relgraph.Config{Strategy: relgraph.StrategyExists})
		plan, err := e.CompileSelect(&Select{
			Type:  "PurchaseOrder",
			Joins: []*Join{J("lines")},
			Where: []Predicate{EQ("version", 7)},
		})
		require.NoError(t, err)
		assert.Equal(t, dialect.StrategyExists, plan.Strategy)
	})
}

func TestCompileSelect_Unfiltered(t *testing.T) {
	e := engine(t, nil, dialect.NewMySQL(), nil)
	plan, err := e.CompileSelect(&Select{Type: "PurchaseOrder", Joins: []*Join{J("lines")}})
	require.NoError(t, err)
	require.Len(t, plan.Queries, 1, "an unfiltered graph needs no root filter")
	assert.NotContains(t, plan.Queries[0].SQL, "WHERE")
	assert.Contains(t, plan.Queries[0].SQL, "LEFT JOIN `lines` `orders_lines_lines`")
}

func TestCompileSelect_JoinRestriction(t *testing.T) {
	e := engine(t, nil, dialect.NewPostgres(), nil)
	plan, err := e.CompileSelect(&Select{
		Type:  "PurchaseOrder",
		Joins: []*Join{J("lines").Where(Like("sku", "A%"))},
	})
	require.NoError(t, err)
	require.Len(t, plan.Queries, 1)
	q := plan.Queries[0]
	assert.Contains(t, q.SQL, `LEFT JOIN "lines" "orders_lines_lines" ON "orders_lines_lines"."id" = "orders_lines_lines#"."line_id" AND "orders_lines_lines"."sku" LIKE ?`)
	assert.Contains(t, q.SQL, `INNER JOIN "lines" "sub_orders_lines_lines" ON "sub_orders_lines_lines"."id" = "sub_orders_lines_lines#"."line_id" AND "sub_orders_lines_lines"."sku" LIKE ?`)
	assert.Equal(t, []any{"A%", "A%"}, q.Args())
}

func TestCompileSelect_Paging(t *testing.T) {
	t.Run("in", func(t *testing.T) {
		e := engine(t, nil, dialect.NewPostgres(), nil)
		plan, err := e.CompileSelect(&Select{
			Type:  "PurchaseOrder",
			Joins: []*Join{J("lines")},
			Where: []Predicate{GT("version", 1)},
			Order: []Order{Desc("version")},
			Limit: 10,
		})
		require.NoError(t, err)
		require.Len(t, plan.Queries, 1)
		q := plan.Queries[0].SQL
		assert.Contains(t, q, `"orders"."id" IN (SELECT "#page"."id" FROM (SELECT DISTINCT "sub_orders"."id", "sub_orders"."version" FROM "orders" "sub_orders"`)
		assert.Contains(t, q, `ORDER BY "sub_orders"."version" DESC, "sub_orders"."id" LIMIT 10) "#page")`)
		assert.True(t, regexp.MustCompile(`ORDER BY "orders"."version" DESC, "orders"."id"$`).MatchString(q))
	})
	t.Run("two queries", func(t *testing.T) {
		e := engine(t, nil, dialect.NewMySQL(), nil)
		plan, err := e.CompileSelect(&Select{
			Type:   "PurchaseOrder",
			Joins:  []*Join{J("lines")},
			Where:  []Predicate{GT("version", 1)},
			Limit:  5,
			Offset: 5,
		})
		require.NoError(t, err)
		require.Len(t, plan.Queries, 2)
		assert.Contains(t, plan.Queries[0].SQL, "ORDER BY `orders`.`id` LIMIT 5 OFFSET 5")
		assert.NotContains(t, plan.Queries[1].SQL, "LIMIT")
	})
	t.Run("in memory", func(t *testing.T) {
		e := engine(t, nil, dialect.NewPostgres(), &relgraph.Config{Paging: relgraph.PagingTwoQueries})
		plan, err := e.CompileSelect(&Select{Type: "PurchaseOrder", Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, dialect.StrategyTwoQueries, plan.Strategy)
		require.Len(t, plan.Queries, 2)
		assert.NotContains(t, plan.Queries[0].SQL, "LIMIT")
	})
	t.Run("offset fetch", func(t *testing.T) {
		e := engine(t, nil, dialect.NewPostgres(), &relgraph.Config{Paging: relgraph.PagingOffsetFetch})
		plan, err := e.CompileSelect(&Select{Type: "PurchaseOrder", Limit: 5, Offset: 10})
		require.NoError(t, err)
		assert.Contains(t, plan.Queries[0].SQL, `ORDER BY "orders"."id" OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY`)
	})
	t.Run("exists", func(t *testing.T) {
		e := engine(t, nil, dialect.NewOracle(), nil)
		_, err := e.CompileSelect(&Select{
			Type:     "PurchaseOrder",
			Joins:    []*Join{J("lines")},
			Where:    []Predicate{GT("version", 1)},
			Limit:    5,
			Strategy: dialect.StrategyExists,
		})
		require.Error(t, err)
		assert.True(t, relgraph.IsCapabilityError(err))
	})
	for _, d := range []dialect.Dialect{dialect.NewOracle(), dialect.NewSQLServer()} {
		t.Run(d.Name()+" default", func(t *testing.T) {
			e := engine(t, nil, d, nil)
			plan, err := e.CompileSelect(&Select{Type: "PurchaseOrder", Joins: []*Join{J("lines")}, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, dialect.StrategyTwoQueries, plan.Strategy)
			require.Len(t, plan.Queries, 2)
			assert.Contains(t, plan.Queries[0].SQL, "FETCH NEXT 10 ROWS ONLY")

			plan, err = e.CompileSelect(&Select{Type: "PurchaseOrder", Joins: []*Join{J("lines")}, Where: []Predicate{GT("version", 1)}})
			require.NoError(t, err)
			assert.Equal(t, dialect.StrategyExists, plan.Strategy, "unpaged selects keep the default")
		})
	}
}

func TestCompileSelect_Lock(t *testing.T) {
	tests := []struct {
		name    string
		d       dialect.Dialect
		joins    []*Join
		distinct bool
		feature  string
		want     string
	}{
		{name: "sqlite", d: dialect.NewSQLite(), feature: "row locking"},
		{name: "postgres joined", d: dialect.NewPostgres(), joins: []*Join{J("lines")}, feature: "row locking with joins"},
		{name: "postgres", d: dialect.NewPostgres(), want: " FOR UPDATE"},
		{name: "mysql joined", d: dialect.NewMySQL(), joins: []*Join{J("lines")}, want: " FOR UPDATE"},
		{name: "sqlserver", d: dialect.NewSQLServer(), want: " WITH (UPDLOCK, ROWLOCK)"},
		{name: "postgres distinct", d: dialect.NewPostgres(), distinct: true, feature: "row locking with distinct"},
		{name: "mysql distinct", d: dialect.NewMySQL(), joins: []*Join{J("lines")}, distinct: true, feature: "row locking with distinct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := engine(t, nil, tt.d, nil)
			plan, err := e.CompileSelect(&Select{Type: "PurchaseOrder", Joins: tt.joins, Distinct: tt.distinct, Lock: true})
			if tt.feature != "" {
				var cerr *relgraph.CapabilityError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, tt.feature, cerr.Feature)
				assert.Equal(t, tt.d.Name(), cerr.Dialect)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, plan.Queries[len(plan.Queries)-1].SQL, tt.want)
		})
	}
}

func TestCompileSelect_Errors(t *testing.T) {
	e := engine(t, nil, dialect.NewPostgres(), nil)
	tests := []struct {
		name  string
		s     *Select
		check func(error) bool
	}{
		{"no type", &Select{}, relgraph.IsIncoherentQuery},
		{"unknown type", &Select{Type: "Invoice"}, relgraph.IsMappingError},
		{"unknown relation", &Select{Type: "PurchaseOrder", Joins: []*Join{J("payments")}}, relgraph.IsIncoherentQuery},
		{"joined twice", &Select{Type: "PurchaseOrder", Joins: []*Join{J("lines"), J("lines")}}, relgraph.IsIncoherentQuery},
		{"unknown property", &Select{Type: "PurchaseOrder", Where: []Predicate{EQ("total", 1)}}, relgraph.IsIncoherentQuery},
		{"unknown order", &Select{Type: "PurchaseOrder", Order: []Order{Asc("total")}}, relgraph.IsIncoherentQuery},
		{"negative limit", &Select{Type: "PurchaseOrder", Limit: -1}, relgraph.IsIncoherentQuery},
		{"unjoined reference", &Select{Type: "PurchaseOrder", Where: []Predicate{PropEQ("version", Ref("lines", "sku"))}}, relgraph.IsIncoherentQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CompileSelect(tt.s)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestCompileSelect_ShortAliases(t *testing.T) {
	e := engine(t, nil, dialect.NewSQLite(), &relgraph.Config{MaxIdentifierLength: 12})
	plan, err := e.CompileSelect(&Select{
		Type:  "PurchaseOrder",
		Joins: []*Join{J("lines", J("product"))},
		Where: []Predicate{EQ("version", 7)},
	})
	require.NoError(t, err)
	for _, q := range plan.Queries {
		for _, m := range regexp.MustCompile("`([^`]*)`").FindAllStringSubmatch(q.SQL, -1) {
			assert.LessOrEqual(t, len(m[1]), 12, "identifier %q", m[1])
		}
		long, ok := q.Aliases.Long(q.Aliases.Alias("orders_lines_lines_product_products.name"))
		require.True(t, ok)
		assert.Equal(t, "orders_lines_lines_product_products.name", long)
		assert.NotEmpty(t, q.Aliases.Shortened())
	}
}

func TestCompileSelect_Concurrent(t *testing.T) {
	e := engine(t, nil, dialect.NewPostgres(), nil)
	selects := []*Select{
		{Type: "PurchaseOrder", Joins: []*Join{J("lines")}, Where: []Predicate{EQ("version", 1)}, Strategy: dialect.StrategyIn},
		{Type: "PurchaseOrder", Joins: []*Join{J("lines")}, Where: []Predicate{EQ("version", 1)}, Strategy: dialect.StrategyExists},
		{Type: "PurchaseOrder", Joins: []*Join{J("customer")}, Where: []Predicate{EQ("version", 1)}, Strategy: dialect.StrategyTwoQueries},
		{Type: "Customer", Joins: []*Join{J("orders", J("lines"))}, Limit: 3},
	}
	want := make([]string, len(selects))
	for i, s := range selects {
		plan, err := e.CompileSelect(s)
		require.NoError(t, err)
		want[i] = plan.Queries[len(plan.Queries)-1].SQL
	}
	g, _ := errgroup.WithContext(context.Background())
	got := make([]string, 64)
	for i := range got {
		i := i
		g.Go(func() error {
			plan, err := e.CompileSelect(selects[i%len(selects)])
			if err != nil {
				return err
			}
			got[i] = plan.Queries[len(plan.Queries)-1].SQL
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for i, sql := range got {
		assert.Equal(t, want[i%len(want)], sql)
	}
}
