// Package schema provides the entity metadata consumed by the relgraph
// compiler: table names, columns, identifier strategy, natural keys and
// relation descriptors, together with the accessors used to read and
// populate entity values.
//
// Metadata is held by a Registry. Go structs are registered through struct
// tags:
//
//	type Order struct {
//	    ID      int64   `db:"id,pk,auto"`
//	    Version int     `db:"version,natural"`
//	    Lines   []*Line `rel:"lines,table=order_lines,source=order_id,target=line_id"`
//	}
//
//	type Line struct {
//	    ID  int64  `db:"id,pk,auto"`
//	    SKU string `db:"sku,natural,size=64"`
//	}
//
//	reg := schema.NewRegistry()
//	reg.MustRegister(&Order{}, &Line{})
//
// # Column Tags
//
// The db tag lists the column name followed by options:
//
//	pk          identifier column (a field named ID is used otherwise)
//	auto        identifier generated by the database
//	seq[=name]  identifier taken from a sequence
//	natural     part of the natural key
//	null        nullable (implied by pointer fields)
//	size=N      maximum length
//	name=prop   property name, defaults to the column name
//
// Untagged exported fields of a supported type are mapped with a
// snake_case column name. Table names default to the pluralised snake_case
// type name unless the struct has a TableName() string method.
//
// # Relation Tags
//
// The rel tag names the relation property and its storage shape:
//
//	rel:"lines,table=order_lines,source=order_id,target=line_id" // association table
//	rel:"customer,local=customer_id"                              // column on this table
//	rel:"notes,remote=order_id"                                   // column on the target table
//
// A pointer field holds one target and a slice of pointers holds many.
//
// # Records
//
// Entity types can also be declared without Go structs, from YAML or by
// building a Descriptor directly; their values are *Record.
package schema
