package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema/field"
)

func TestFor(t *testing.T) {
	for _, name := range Names() {
		d, err := For(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}
	d, err := For("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d.Name())
	_, err = For("db2")
	assert.Error(t, err)
	assert.Equal(t, []string{H2, MySQL, Oracle, Postgres, SQLite, SQLServer}, Names())
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name          string
		strategy      Strategy
		paging        Paging
		lock, lockJ   bool
		batch         bool
		maxIdentifier int
	}{
		{Postgres, StrategyIn, PagingLimitOffset, true, false, true, 63},
		{MySQL, StrategyTwoQueries, PagingLimitOffset, true, true, true, 64},
		{SQLite, StrategyIn, PagingLimitOffset, false, false, true, 0},
		{Oracle, StrategyExists, PagingOffsetFetch, true, false, false, 30},
		{SQLServer, StrategyExists, PagingOffsetFetch, true, false, false, 128},
		{H2, StrategyIn, PagingLimitOffset, true, false, true, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := For(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, d.SelectStrategy())
			assert.Equal(t, tt.paging, d.Paging())
			assert.Equal(t, tt.lock, d.SupportsLocking(false))
			assert.Equal(t, tt.lockJ, d.SupportsLocking(true))
			assert.Equal(t, tt.batch, d.SupportsBatchInserts())
			assert.Equal(t, tt.maxIdentifier, d.MaxIdentifierLength())
			assert.Positive(t, d.MaxParameters())
		})
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT `a?` FROM t WHERE x = ? AND y = '?' AND z IN (?, ?)"
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{NewSQLite(), query},
		{NewPostgres(), "SELECT `a?` FROM t WHERE x = $1 AND y = '?' AND z IN ($2, $3)"},
		{NewOracle(), "SELECT `a?` FROM t WHERE x = :1 AND y = '?' AND z IN (:2, :3)"},
		{NewSQLServer(), "SELECT `a?` FROM t WHERE x = @p1 AND y = '?' AND z IN (@p2, @p3)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dialect.Rebind(query), tt.dialect.Name())
	}
	assert.Equal(t, 3, Placeholders(query))
	assert.Equal(t, 1, Placeholders(`SELECT "it's?" FROM [x?] WHERE a = ?`))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"orders"`, NewPostgres().Quote("orders"))
	assert.Equal(t, `"a""b"`, NewPostgres().Quote(`a"b`))
	assert.Equal(t, "`orders`", NewMySQL().Quote("orders"))
	assert.Equal(t, "[orders]", NewSQLServer().Quote("orders"))
	assert.Equal(t, `"billing"."accounts"`, NewPostgres().QuoteTable("billing.accounts"))
}

func TestSelectSQL(t *testing.T) {
	c := SelectClauses{
		Columns: []string{`"t"."id" "t.id"`},
		From:    `"orders" "t"`,
		Joins:   []string{`LEFT JOIN "lines" "l" ON "l"."id" = "t"."line_id"`},
		Where:   `"t"."version" = ?`,
		OrderBy: []string{`"t"."id"`},
		Limit:   10,
		Offset:  20,
	}
	assert.Equal(t,
		`SELECT "t"."id" "t.id" FROM "orders" "t" LEFT JOIN "lines" "l" ON "l"."id" = "t"."line_id" WHERE "t"."version" = ? ORDER BY "t"."id" LIMIT 10 OFFSET 20`,
		NewPostgres().SelectSQL(c))
	assert.Equal(t,
		`SELECT "t"."id" "t.id" FROM "orders" "t" LEFT JOIN "lines" "l" ON "l"."id" = "t"."line_id" WHERE "t"."version" = ? ORDER BY "t"."id" OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY`,
		NewOracle().SelectSQL(c))

	c = SelectClauses{Distinct: true, Columns: []string{"`t`.`id`"}, From: "`orders` `t`", Offset: 5, Lock: true}
	assert.Equal(t, "SELECT DISTINCT `t`.`id` FROM `orders` `t` LIMIT 18446744073709551615 OFFSET 5 FOR UPDATE", NewMySQL().SelectSQL(c))
	assert.Equal(t, "SELECT DISTINCT `t`.`id` FROM `orders` `t` LIMIT -1 OFFSET 5 FOR UPDATE", NewSQLite().SelectSQL(c))

	c = SelectClauses{Columns: []string{"[t].[id]"}, From: "[orders] [t]", Lock: true}
	assert.Equal(t, "SELECT [t].[id] FROM [orders] [t] WITH (UPDLOCK, ROWLOCK)", NewSQLServer().SelectSQL(c))
}

func TestInsertSQL(t *testing.T) {
	cols := []string{"version", "note"}
	assert.Equal(t, `INSERT INTO "orders" ("version", "note") VALUES (?, ?) RETURNING "id"`, NewPostgres().InsertSQL("orders", cols, "id"))
	assert.Equal(t, `INSERT INTO "orders" ("version", "note") VALUES (?, ?)`, NewPostgres().InsertSQL("orders", cols, ""))
	assert.Equal(t, "INSERT INTO `orders` (`version`, `note`) VALUES (?, ?)", NewMySQL().InsertSQL("orders", cols, "id"))
	assert.Equal(t, "INSERT INTO [orders] ([version], [note]) OUTPUT INSERTED.[id] VALUES (?, ?)", NewSQLServer().InsertSQL("orders", cols, "id"))
	assert.Equal(t, "INSERT INTO `orders` () VALUES ()", NewMySQL().InsertSQL("orders", nil, "id"))
	assert.Equal(t, `INSERT INTO "orders" DEFAULT VALUES RETURNING "id"`, NewPostgres().InsertSQL("orders", nil, "id"))
}

func TestUpdateDeleteSQL(t *testing.T) {
	d := NewPostgres()
	assert.Equal(t, `UPDATE "orders" SET "version" = ?, "note" = ? WHERE "id" = ?`, d.UpdateSQL("orders", []string{"version", "note"}, `"id" = ?`))
	assert.Equal(t, `DELETE FROM "orders" WHERE "id" IN (?, ?)`, d.DeleteSQL("orders", `"id" IN (?, ?)`))
	assert.Equal(t, `DELETE FROM "orders"`, d.DeleteSQL("orders", ""))
	assert.Equal(t, `DROP TABLE "orders"`, d.DropTableSQL("orders"))
}

func TestCreateTableSQL(t *testing.T) {
	id := &field.Column{Name: "id", Column: "id", Type: field.TypeInt64}
	sku := &field.Column{Name: "sku", Column: "sku", Type: field.TypeString, Size: 32}
	note := &field.Column{Name: "note", Column: "note", Type: field.TypeString, Nullable: true}
	for _, tt := range []struct {
		dialect Dialect
		want    string
	}{
		{NewSQLite(), "CREATE TABLE `lines` (`id` integer PRIMARY KEY AUTOINCREMENT, `sku` text NOT NULL, `note` text NULL)"},
		{NewPostgres(), `CREATE TABLE "lines" ("id" bigserial PRIMARY KEY, "sku" varchar(32) NOT NULL, "note" varchar(255) NULL)`},
		{NewMySQL(), "CREATE TABLE `lines` (`id` bigint NOT NULL AUTO_INCREMENT PRIMARY KEY, `sku` varchar(32) NOT NULL, `note` varchar(255) NULL)"},
	} {
		d := tt.dialect
		got := d.CreateTableSQL("lines", []ColumnDef{
			{Name: "id", Type: d.SQLType(id), PrimaryKey: true, AutoIncrement: true},
			{Name: "sku", Type: d.SQLType(sku)},
			{Name: "note", Type: d.SQLType(note), Nullable: true},
		})
		assert.Equal(t, tt.want, got, d.Name())
	}
	s, ok := NewOracle().CreateSequenceSQL("line_seq")
	assert.True(t, ok)
	assert.Equal(t, `CREATE SEQUENCE "line_seq"`, s)
	_, ok = NewMySQL().CreateSequenceSQL("line_seq")
	assert.False(t, ok)
}

func TestNextValueSQL(t *testing.T) {
	s, ok := NewPostgres().NextValueSQL(`"line_seq"`)
	assert.True(t, ok)
	assert.Equal(t, `SELECT nextval('"line_seq"')`, s)
	s, ok = NewOracle().NextValueSQL(`"line_seq"`)
	assert.True(t, ok)
	assert.Equal(t, `SELECT "line_seq".NEXTVAL FROM DUAL`, s)
	_, ok = NewSQLite().NextValueSQL("line_seq")
	assert.False(t, ok)
}

func TestOverride(t *testing.T) {
	off := false
	o, err := FromConfig(&relgraph.Config{
		MaxIdentifierLength: 20,
		MaxParameters:       10,
		BatchInserts:        &off,
		Paging:              relgraph.PagingTwoQueries,
		Strategy:            relgraph.StrategyExists,
	})
	require.NoError(t, err)
	d := Override(NewPostgres(), o)
	assert.Equal(t, 20, d.MaxIdentifierLength())
	assert.Equal(t, 10, d.MaxParameters())
	assert.False(t, d.SupportsBatchInserts())
	assert.Equal(t, PagingTwoQueries, d.Paging())
	assert.Equal(t, StrategyExists, d.SelectStrategy())
	assert.Equal(t, Postgres, d.Name())

	on := true
	o, err = FromConfig(&relgraph.Config{BatchInserts: &on})
	require.NoError(t, err)
	assert.False(t, Override(NewOracle(), o).SupportsBatchInserts())
	var cerr *relgraph.CapabilityError
	require.ErrorAs(t, o.Check(NewOracle()), &cerr)
	assert.Equal(t, Oracle, cerr.Dialect)
	assert.Equal(t, "batch inserts", cerr.Feature)
	assert.NoError(t, o.Check(NewPostgres()))
	assert.NoError(t, Overrides{}.Check(NewSQLServer()))

	o, err = FromConfig(nil)
	require.NoError(t, err)
	base := NewSQLite()
	assert.Same(t, base, Override(base, o))

	_, err = FromConfig(&relgraph.Config{Strategy: "join"})
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	for _, s := range []Strategy{StrategyExists, StrategyIn, StrategyTwoQueries} {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for _, p := range []Paging{PagingLimitOffset, PagingOffsetFetch, PagingTwoQueries} {
		got, err := ParsePaging(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePaging("cursor")
	assert.Error(t, err)
}
