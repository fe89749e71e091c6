// Package sql implements the dialect.Driver contract on top of
// database/sql.
//
// Driver wraps a *sql.DB and Tx a *sql.Tx. Exec accepts a nil or *Result
// destination and Query a *Rows destination:
//
//	drv, err := sql.Open("sqlite", "file:app.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rows := &sql.Rows{}
//	if err := drv.Query(ctx, "SELECT id FROM orders", []any{}, rows); err != nil {
//	    log.Fatal(err)
//	}
//	columns, values, err := sql.ScanValues(rows)
//
// Instrument wraps a connection so that its statements are logged through
// log/slog and counted by kind into a Stats value.
package sql
