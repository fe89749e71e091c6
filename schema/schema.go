package schema

import (
	"fmt"
	"reflect"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema/edge"
	"github.com/syssam/relgraph/schema/field"
)

// IDKind is the primary-key generation strategy.
type IDKind uint8

// Primary-key strategies.
const (
	// IDNone means the caller assigns identifiers.
	IDNone IDKind = iota
	// IDAutoIncrement means the database generates identifiers on insert.
	IDAutoIncrement
	// IDSequence means identifiers are drawn from a named sequence.
	IDSequence
)

// String returns the strategy name as used in schema files.
func (k IDKind) String() string {
	switch k {
	case IDAutoIncrement:
		return "autoincrement"
	case IDSequence:
		return "sequence"
	default:
		return "none"
	}
}

// IDStrategy describes how identifiers of an entity type are produced.
type IDStrategy struct {
	Kind IDKind
	// Sequence is the sequence name for IDSequence. Empty means the
	// configured default name.
	Sequence string
}

// Generated reports if identifiers are produced by the database.
func (s IDStrategy) Generated() bool { return s.Kind != IDNone }

// Table identifies a table, optionally qualified by a schema.
type Table struct {
	Name   string
	Schema string
}

// String returns the qualified table name.
func (t Table) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Provider resolves entity types into their descriptors.
type Provider interface {
	// Descriptor returns the descriptor of the named entity type.
	Descriptor(typ string) (*Descriptor, error)
	// DescriptorOf returns the descriptor of an entity value.
	DescriptorOf(v any) (*Descriptor, error)
	// Descriptors returns every known descriptor.
	Descriptors() []*Descriptor
}

// Accessor reads and populates entity values of one type.
type Accessor interface {
	// New returns a new, empty entity value.
	New() any
	// Owns reports if v is a value of the entity type.
	Owns(v any) bool
	// Get returns the value of a column property. Nil pointers and missing
	// values are returned as nil.
	Get(v any, c *field.Column) any
	// Set assigns a column property, converting driver values as needed.
	Set(v any, c *field.Column, value any) error
	// Related returns the current targets of a relation.
	Related(v any, r *edge.Relation) []any
	// Attach adds target to the relation. For unique relations it replaces
	// the current target.
	Attach(v any, r *edge.Relation, target any) error
}

// Descriptor is the immutable metadata of an entity type.
type Descriptor struct {
	// Type is the identity name of the entity type.
	Type string
	// Table is the table storing the entity.
	Table Table
	// ID is the identifier column.
	ID *field.Column
	// Fields are the non-identifier columns in declaration order.
	Fields []*field.Column
	// IDStrategy describes how identifiers are produced.
	IDStrategy IDStrategy
	// Relations are the relation properties in declaration order.
	Relations []*edge.Relation
	// Accessor reads and populates values. Nil means *Record values.
	Accessor Accessor
	// GoType is the struct type for struct-backed entities.
	GoType reflect.Type
}

// Validate reports mapping errors local to the descriptor.
func (d *Descriptor) Validate() error {
	if d.Type == "" {
		return relgraph.NewMappingError("", "entity type without a name")
	}
	if d.Table.Name == "" {
		return relgraph.NewMappingError(d.Type, "entity type without a table")
	}
	if d.ID == nil {
		return relgraph.NewMappingError(d.Type, "entity type has no identifier property")
	}
	seen := make(map[string]bool)
	for _, c := range d.Columns() {
		if c.Name == "" || c.Column == "" {
			return relgraph.NewMappingError(d.Type, "column without a name")
		}
		if !c.Type.Valid() {
			return relgraph.NewMappingError(d.Type, "column %q has invalid type", c.Name)
		}
		if seen[c.Name] {
			return relgraph.NewMappingError(d.Type, "duplicate property %q", c.Name)
		}
		seen[c.Name] = true
	}
	for _, r := range d.Relations {
		if err := r.Validate(); err != nil {
			return &relgraph.MappingError{Entity: d.Type, Msg: "invalid relation", Err: err}
		}
		if seen[r.Name] {
			return relgraph.NewMappingError(d.Type, "duplicate property %q", r.Name)
		}
		seen[r.Name] = true
	}
	if d.IDStrategy.Kind == IDSequence && !d.ID.Type.Numeric() {
		return relgraph.NewMappingError(d.Type, "sequence identifier %q must be numeric", d.ID.Name)
	}
	return nil
}

// Columns returns the identifier column followed by the fields.
func (d *Descriptor) Columns() []*field.Column {
	cols := make([]*field.Column, 0, len(d.Fields)+1)
	if d.ID != nil {
		cols = append(cols, d.ID)
	}
	return append(cols, d.Fields...)
}

// Column returns the column mapped to the given property name.
func (d *Descriptor) Column(name string) (*field.Column, bool) {
	if d.ID != nil && d.ID.Name == name {
		return d.ID, true
	}
	for _, c := range d.Fields {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Relation returns the relation with the given property name.
func (d *Descriptor) Relation(name string) (*edge.Relation, bool) {
	for _, r := range d.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// NaturalKey returns the natural-key columns.
func (d *Descriptor) NaturalKey() []*field.Column {
	var cols []*field.Column
	for _, c := range d.Columns() {
		if c.NaturalKey {
			cols = append(cols, c)
		}
	}
	return cols
}

// HasNaturalKey reports if the type declares a natural key.
func (d *Descriptor) HasNaturalKey() bool {
	return len(d.NaturalKey()) > 0
}

func (d *Descriptor) accessor() Accessor {
	if d.Accessor != nil {
		return d.Accessor
	}
	return recordAccessor{typ: d.Type}
}

// New returns a new, empty entity value.
func (d *Descriptor) New() any { return d.accessor().New() }

// Owns reports if v is a value of this entity type.
func (d *Descriptor) Owns(v any) bool { return v != nil && d.accessor().Owns(v) }

// Value returns the value of a column property of v.
func (d *Descriptor) Value(v any, c *field.Column) any { return d.accessor().Get(v, c) }

// SetValue assigns a column property of v.
func (d *Descriptor) SetValue(v any, c *field.Column, value any) error {
	if err := d.accessor().Set(v, c, value); err != nil {
		return &relgraph.MappingError{Entity: d.Type, Msg: fmt.Sprintf("set %s", c.Name), Err: err}
	}
	return nil
}

// IDOf returns the identifier of v, or nil if it has none yet. Zero
// numbers and empty strings are treated as unassigned.
func (d *Descriptor) IDOf(v any) any {
	id := d.accessor().Get(v, d.ID)
	if id == nil || reflect.ValueOf(id).IsZero() {
		return nil
	}
	return id
}

// SetID assigns the identifier of v.
func (d *Descriptor) SetID(v any, id any) error { return d.SetValue(v, d.ID, id) }

// Related returns the current targets of relation r on v.
func (d *Descriptor) Related(v any, r *edge.Relation) []any { return d.accessor().Related(v, r) }

// Attach adds target to relation r on v.
func (d *Descriptor) Attach(v any, r *edge.Relation, target any) error {
	if err := d.accessor().Attach(v, r, target); err != nil {
		return &relgraph.MappingError{Entity: d.Type, Msg: fmt.Sprintf("attach %s", r.Name), Err: err}
	}
	return nil
}

// NaturalKeyValues returns the natural-key values of v in column order.
func (d *Descriptor) NaturalKeyValues(v any) []any {
	cols := d.NaturalKey()
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = d.Value(v, c)
	}
	return values
}

// NaturalKeyEqual reports if a and b denote the same entity: the same value,
// or equal natural keys when the type declares one.
func (d *Descriptor) NaturalKeyEqual(a, b any) bool {
	if a == b {
		return true
	}
	cols := d.NaturalKey()
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if Key(d.Value(a, c)) != Key(d.Value(b, c)) {
			return false
		}
	}
	return true
}
