// Package dialect holds the database boundary of the engine.
//
// It defines two contracts. The connectivity contract (Driver, Tx and
// ExecQuerier) is what statements are executed through; dialect/sql
// implements it on top of database/sql. The Dialect contract carries the
// per-DBMS knowledge every statement is generated through: type mapping,
// identifier length limits, batch-insert support, paging and locking
// capabilities, generated-key retrieval and the SQL templates.
//
// # Supported Dialects
//
//	dialect.Postgres  = "postgres"
//	dialect.MySQL     = "mysql"
//	dialect.SQLite    = "sqlite"
//	dialect.Oracle    = "oracle"
//	dialect.SQLServer = "sqlserver"
//	dialect.H2        = "h2"
//
// Each is a Base value: a table of capabilities plus shared templates.
//
// # Default select strategies
//
//	dialect     strategy     paging        lock  lock+joins  batch inserts
//	postgres    in           limit_offset  yes   no          yes
//	mysql       two_queries  limit_offset  yes   yes         yes
//	sqlite      in           limit_offset  no    no          yes
//	oracle      exists       offset_fetch  yes   no          no
//	sqlserver   exists       offset_fetch  yes   no          no
//	h2          in           limit_offset  yes   no          yes
//
// A paged joined select falls back to two_queries when the default
// strategy is exists. Requesting exists explicitly for such a select is a
// capability error. Configuration may replace some of these through
// Override.
//
// # Usage
//
//	d, err := dialect.For(dialect.Postgres)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	d = dialect.Override(d, dialect.Overrides{MaxIdentifierLength: 30})
package dialect
