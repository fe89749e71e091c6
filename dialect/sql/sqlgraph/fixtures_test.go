package sqlgraph

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql"
	migrate "github.com/syssam/relgraph/dialect/sql/schema"
	"github.com/syssam/relgraph/schema"
)

type (
	PurchaseOrder struct {
		ID       int64        `db:"id,pk,auto"`
		Version  int64        `db:"version,natural"`
		Note     *string      `db:"note"`
		Lines    []*OrderLine `rel:"lines,table=order_lines,source=order_id,target=line_id"`
		Customer *Customer    `rel:"customer,local=customer_id"`
	}
	OrderLine struct {
		ID      int64    `db:"id,pk,auto"`
		SKU     string   `db:"sku,natural,size=32"`
		Product *Product `rel:"product,local=product_id"`
	}
	Product struct {
		ID   int64  `db:"id,pk,auto"`
		Name string `db:"name,natural"`
	}
	Customer struct {
		ID     int64            `db:"id,pk,auto"`
		Name   string           `db:"name,natural"`
		Orders []*PurchaseOrder `rel:"orders,remote=customer_id"`
	}
	// Account has a sequence identifier, for dialects with sequences.
	Account struct {
		ID    int64  `db:"id,pk,seq=account_seq"`
		Email string `db:"email"`
	}
	// Tag has no natural key.
	Tag struct {
		ID    int64  `db:"id,pk,auto"`
		Label string `db:"label"`
	}
)

func (PurchaseOrder) TableName() string { return "orders" }
func (OrderLine) TableName() string     { return "lines" }

func registry(t *testing.T) *schema.Registry {
	t.Helper()
	r := schema.NewRegistry()
	for _, v := range []any{PurchaseOrder{}, OrderLine{}, Product{}, Customer{}, Tag{}} {
		_, err := r.RegisterStruct(v)
		require.NoError(t, err)
	}
	return r
}

func engine(t *testing.T, drv dialect.ExecQuerier, d dialect.Dialect, cfg *relgraph.Config) *Engine {
	t.Helper()
	e, err := NewEngine(drv, d, registry(t), WithConfig(cfg))
	require.NoError(t, err)
	return e
}

// mockEngine returns an engine on a sqlmock connection that matches
// statements exactly.
func mockEngine(t *testing.T, d dialect.Dialect, cfg *relgraph.Config) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return engine(t, sql.OpenDB(d.Name(), db), d, cfg), mock
}

var databases atomic.Int64

// sqliteEngine returns an engine on a fresh in-memory SQLite database with
// the tables of the test registry.
func sqliteEngine(t *testing.T, cfg *relgraph.Config) (*Engine, *sql.Driver) {
	t.Helper()
	dsn := fmt.Sprintf("file:relgraph%d?mode=memory&cache=shared", databases.Add(1))
	drv, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	d := dialect.NewSQLite()
	e := engine(t, drv, d, cfg)
	require.NoError(t, migrate.Create(context.Background(), drv, d, e.Provider()))
	return e, drv
}

func count(t *testing.T, drv *sql.Driver, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, drv.DB().QueryRow(query, args...).Scan(&n))
	return n
}

func strp(s string) *string { return &s }
