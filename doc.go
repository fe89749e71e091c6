// Package relgraph holds the pieces shared by every layer of the relgraph
// object-relational mapping engine: the error taxonomy and the compiler
// configuration.
//
// The engine itself lives in dialect/sql/sqlgraph. Entity metadata is
// described in package schema, and per-DBMS knowledge in package dialect.
//
//	reg := schema.NewRegistry().MustRegister(&Order{}, &Line{})
//	drv, err := sql.Open(dialect.SQLite, "file:shop.db")
//	if err != nil {
//	    return err
//	}
//	d, _ := dialect.For(dialect.SQLite)
//	eng, err := sqlgraph.NewEngine(drv, d, reg, sqlgraph.WithConfig(cfg))
//	if err != nil {
//	    return err
//	}
//
//	err = eng.Upsert(ctx, []any{order}, []*sqlgraph.Join{sqlgraph.J("lines")})
//	orders, err := sqlgraph.All[*Order](ctx, eng, &sqlgraph.Select{
//	    Type:  "Order",
//	    Joins: []*sqlgraph.Join{sqlgraph.J("lines")},
//	    Where: []sqlgraph.Predicate{sqlgraph.EQ("version", 7)},
//	})
//
// The relgraph command prints the statements compiled for a YAML schema.
package relgraph
