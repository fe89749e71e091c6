// Package field describes the mapped columns of an entity type.
//
// A Column pairs the property name used by callers (in predicates, natural
// keys and ordering) with the SQL column that stores it:
//
//	&field.Column{Name: "sku", Column: "sku", Type: field.TypeString, Size: 64, NaturalKey: true}
//
// # Types
//
// Type is the logical column type. Each dialect maps it to a concrete SQL
// type when tables are created:
//
//	field.TypeInt64   // bigint / NUMBER(19) / INTEGER
//	field.TypeString  // varchar(n) / VARCHAR2(n) / TEXT
//	field.TypeTime    // timestamp / datetime / TEXT
//
// # Natural Keys
//
// Columns flagged with NaturalKey form the entity's natural key. Upserts
// that request natural-key checking look an element up by these columns
// before deciding between INSERT and UPDATE.
package field
