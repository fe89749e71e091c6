package dialect

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema/field"
)

// Dialect names.
const (
	MySQL     = "mysql"
	SQLite    = "sqlite"
	Postgres  = "postgres"
	Oracle    = "oracle"
	SQLServer = "sqlserver"
	H2        = "h2"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the engine.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}

// Dialect is the per-DBMS strategy every statement is generated through.
// Implementations are immutable and safe for concurrent use.
type Dialect interface {
	// Name returns the dialect name.
	Name() string
	// SQLType returns the column type used in CREATE TABLE.
	SQLType(c *field.Column) string
	// MaxIdentifierLength returns the longest identifier the DBMS accepts.
	// Zero means unlimited.
	MaxIdentifierLength() int
	// SupportsBatchInserts reports if an INSERT may bind many parameter
	// batches in one statement.
	SupportsBatchInserts() bool
	// Paging returns the paging method.
	Paging() Paging
	// SupportsLocking reports if SELECT ... FOR UPDATE is supported, with or
	// without joined tables.
	SupportsLocking(withJoins bool) bool
	// SelectStrategy returns the recommended select strategy.
	SelectStrategy() Strategy
	// MaxParameters returns the maximum number of parameters per statement.
	MaxParameters() int
	// GeneratedKeys returns how generated identifiers are read back.
	GeneratedKeys() GeneratedKeys
	// Quote quotes a single identifier.
	Quote(ident string) string
	// QuoteTable quotes a table name that may be schema-qualified.
	QuoteTable(name string) string
	// Rebind converts '?' placeholders to the native placeholder style.
	Rebind(query string) string
	// NextValueSQL returns the query that draws the next value of a sequence.
	NextValueSQL(sequence string) (string, bool)
	// SelectSQL assembles a SELECT statement.
	SelectSQL(SelectClauses) string
	// InsertSQL assembles an INSERT of one row. When id is not empty and the
	// dialect reads generated keys through the statement, the id column is
	// returned by it.
	InsertSQL(table string, columns []string, id string) string
	// UpdateSQL assembles an UPDATE setting the given columns.
	UpdateSQL(table string, columns []string, where string) string
	// DeleteSQL assembles a DELETE.
	DeleteSQL(table, where string) string
	// CreateTableSQL assembles a CREATE TABLE.
	CreateTableSQL(table string, columns []ColumnDef) string
	// CreateSequenceSQL assembles a CREATE SEQUENCE, if sequences exist.
	CreateSequenceSQL(name string) (string, bool)
	// DropTableSQL assembles a DROP TABLE.
	DropTableSQL(table string) string
}

// SelectClauses are the pre-built pieces of a SELECT statement.
type SelectClauses struct {
	Distinct bool
	// Columns are select expressions, already quoted and aliased.
	Columns []string
	// From is the table expression, already quoted and aliased.
	From string
	// Joins are complete JOIN clauses.
	Joins []string
	// Where is the filter, without the WHERE keyword.
	Where   string
	OrderBy []string
	// Limit and Offset page the result. Zero means unset.
	Limit  int
	Offset int
	Lock   bool
}

// Paged reports if the statement is paged.
func (c SelectClauses) Paged() bool { return c.Limit > 0 || c.Offset > 0 }

// ColumnDef is a column of a CREATE TABLE statement.
type ColumnDef struct {
	Name          string
	Type          string
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
}

var dialects = map[string]func() Dialect{
	Postgres:  NewPostgres,
	MySQL:     NewMySQL,
	SQLite:    NewSQLite,
	Oracle:    NewOracle,
	SQLServer: NewSQLServer,
	H2:        NewH2,
}

// For returns the dialect with the given name.
func For(name string) (Dialect, error) {
	if fn, ok := dialects[strings.ToLower(name)]; ok {
		return fn(), nil
	}
	if strings.HasPrefix(name, "sqlite") {
		return NewSQLite(), nil
	}
	return nil, fmt.Errorf("dialect: unsupported dialect %q", name)
}

// Names returns the names of the known dialects, sorted.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overrides replace capabilities of a dialect from configuration. Zero
// values keep the dialect's own setting.
type Overrides struct {
	MaxIdentifierLength int
	MaxParameters       int
	DisableBatchInserts bool
	// RequireBatchInserts fails Check on a dialect without batch inserts.
	RequireBatchInserts bool
	Paging              Paging
	Strategy            Strategy
}

// FromConfig returns the overrides described by cfg. A nil config has none.
func FromConfig(cfg *relgraph.Config) (Overrides, error) {
	var o Overrides
	if cfg == nil {
		return o, nil
	}
	if err := cfg.Validate(); err != nil {
		return o, err
	}
	o.MaxIdentifierLength = cfg.MaxIdentifierLength
	o.MaxParameters = cfg.MaxParameters
	if cfg.BatchInserts != nil {
		o.DisableBatchInserts = !*cfg.BatchInserts
		o.RequireBatchInserts = *cfg.BatchInserts
	}
	var err error
	if o.Paging, err = ParsePaging(cfg.Paging); err != nil {
		return o, err
	}
	if o.Strategy, err = ParseStrategy(cfg.Strategy); err != nil {
		return o, err
	}
	return o, nil
}

// Check reports the overrides d cannot honor.
func (o Overrides) Check(d Dialect) error {
	if o.RequireBatchInserts && !d.SupportsBatchInserts() {
		return &relgraph.CapabilityError{Dialect: d.Name(), Feature: "batch inserts"}
	}
	return nil
}

// Override wraps d with the given overrides. Batch inserts can only be
// disabled, never enabled on a dialect that lacks them.
func Override(d Dialect, o Overrides) Dialect {
	if o == (Overrides{}) {
		return d
	}
	if b, ok := d.(*Base); ok && o.Paging != PagingDefault && o.Paging != PagingTwoQueries {
		c := *b
		c.PagingMethod = o.Paging
		d = &c
	}
	return &overridden{Dialect: d, o: o}
}

type overridden struct {
	Dialect
	o Overrides
}

func (d *overridden) MaxIdentifierLength() int {
	if d.o.MaxIdentifierLength > 0 {
		return d.o.MaxIdentifierLength
	}
	return d.Dialect.MaxIdentifierLength()
}

func (d *overridden) MaxParameters() int {
	if d.o.MaxParameters > 0 {
		return d.o.MaxParameters
	}
	return d.Dialect.MaxParameters()
}

func (d *overridden) SupportsBatchInserts() bool {
	return !d.o.DisableBatchInserts && d.Dialect.SupportsBatchInserts()
}

func (d *overridden) Paging() Paging {
	if d.o.Paging != PagingDefault {
		return d.o.Paging
	}
	return d.Dialect.Paging()
}

func (d *overridden) SelectStrategy() Strategy {
	if d.o.Strategy != StrategyDefault {
		return d.o.Strategy
	}
	return d.Dialect.SelectStrategy()
}
