package schema

import (
	"fmt"

	"github.com/syssam/relgraph/schema/edge"
	"github.com/syssam/relgraph/schema/field"
)

// Record is a map-backed entity value, used for entity types that have no
// Go struct, such as those loaded from YAML.
type Record struct {
	// Type is the entity type name.
	Type string
	// Values holds column values by property name.
	Values map[string]any
	// Edges holds relation targets by relation name.
	Edges map[string][]*Record
}

// NewRecord returns an empty record of the given entity type.
func NewRecord(typ string) *Record {
	return &Record{Type: typ, Values: make(map[string]any), Edges: make(map[string][]*Record)}
}

// Get returns the value of a property.
func (r *Record) Get(prop string) any { return r.Values[prop] }

// Set assigns a property and returns the record.
func (r *Record) Set(prop string, v any) *Record {
	r.Values[prop] = v
	return r
}

// Edge returns the targets of a relation.
func (r *Record) Edge(name string) []*Record { return r.Edges[name] }

// Add appends targets to a relation and returns the record.
func (r *Record) Add(name string, targets ...*Record) *Record {
	r.Edges[name] = append(r.Edges[name], targets...)
	return r
}

// String implements fmt.Stringer.
func (r *Record) String() string {
	return fmt.Sprintf("%s%v", r.Type, r.Values)
}

type recordAccessor struct {
	typ string
}

func (a recordAccessor) New() any { return NewRecord(a.typ) }

func (a recordAccessor) Owns(v any) bool {
	r, ok := v.(*Record)
	return ok && r != nil && r.Type == a.typ
}

func (a recordAccessor) record(v any) *Record {
	r, ok := v.(*Record)
	if !ok || r == nil {
		panic(fmt.Sprintf("schema: expect *schema.Record, got %T", v))
	}
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	if r.Edges == nil {
		r.Edges = make(map[string][]*Record)
	}
	return r
}

func (a recordAccessor) Get(v any, c *field.Column) any {
	return a.record(v).Values[c.Name]
}

func (a recordAccessor) Set(v any, c *field.Column, value any) error {
	switch x := value.(type) {
	case []byte:
		if c.Type != field.TypeBytes {
			value = string(x)
		} else {
			value = append([]byte(nil), x...)
		}
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		value = Key(x)
	}
	a.record(v).Values[c.Name] = value
	return nil
}

func (a recordAccessor) Related(v any, r *edge.Relation) []any {
	targets := a.record(v).Edges[r.Name]
	related := make([]any, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			related = append(related, t)
		}
	}
	return related
}

func (a recordAccessor) Attach(v any, r *edge.Relation, target any) error {
	t, ok := target.(*Record)
	if !ok {
		return fmt.Errorf("cannot attach %T to record relation %q", target, r.Name)
	}
	rec := a.record(v)
	if r.Unique() {
		rec.Edges[r.Name] = []*Record{t}
		return nil
	}
	rec.Edges[r.Name] = append(rec.Edges[r.Name], t)
	return nil
}
