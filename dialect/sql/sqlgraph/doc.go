// Package sqlgraph compiles graph operations into SQL and materializes
// their results.
//
// A graph operation names a root entity type and a tree of join
// directives following its relations. Each node of the tree is a Context
// whose path (root table, then separator, relation and target table per
// step) becomes the table alias in the generated SQL, and whose column
// paths label the selected columns. Aliases longer than the dialect limit
// are shortened and mapped back when rows are read.
//
// # Selects
//
//	orders, err := eng.Select(ctx, &sqlgraph.Select{
//		Type:  "Order",
//		Joins: []*sqlgraph.Join{sqlgraph.J("lines")},
//		Where: []sqlgraph.Predicate{sqlgraph.EQ("version", 7)},
//	})
//
// A filtered select with joins restricts the roots with one of three
// strategies: an EXISTS subquery, an IN subquery, or two queries (root
// identifiers first, then the graph of those roots). The strategy defaults
// to the dialect's and may be set per select or by configuration.
//
// # Upserts
//
// Upsert writes the joined children first, resolves identifiers by natural
// key when asked to, and synchronizes association tables and foreign-key
// columns. Identifiers generated by the database are bound to dependent
// statements as deferred values. Statements with the same SQL are merged
// into batches when the order of dependent statements allows it.
//
// # Deletes
//
// Delete without joins is a single statement. With joins, the identifiers
// of every reached row are selected first, then the association rows
// referencing them and the rows themselves are deleted per type.
package sqlgraph
