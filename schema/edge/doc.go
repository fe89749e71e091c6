// Package edge describes the relations between entity types.
//
// A Relation is a property of a source entity type that points at one
// (Cardinality One) or many (Cardinality Many) target entities. How the
// relation is stored is a closed choice made once per relation:
//
//	// association table: order_lines(order_id, line_id)
//	&edge.Relation{Name: "lines", Target: "Line", Cardinality: edge.Many,
//	    Shape: &edge.AssociationTable{Table: "order_lines", SourceColumn: "order_id", TargetColumn: "line_id"}}
//
//	// foreign-key column on the source table: orders.customer_id
//	&edge.Relation{Name: "customer", Target: "Customer", Cardinality: edge.One,
//	    Shape: &edge.ForeignKeyColumn{Local: "customer_id"}}
//
//	// foreign-key column on the target table: notes.order_id
//	&edge.Relation{Name: "notes", Target: "Note", Cardinality: edge.Many,
//	    Shape: &edge.ForeignKeyColumn{Remote: "order_id"}}
package edge
