package schema

import (
	"fmt"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/field"
)

// Table is a table derived from the entity metadata.
type Table struct {
	Name   string
	Schema string
	// Columns holds the identifier first, then the fields and the
	// foreign-key columns of relations.
	Columns    []*Column
	PrimaryKey []*Column
	// Sequence names the sequence drawing the identifiers, if any.
	Sequence string
	// Association reports if the table stores relation rows only.
	Association bool
}

// QualifiedName returns the table name, qualified by its schema.
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Column is a column of a derived table.
type Column struct {
	Name          string
	Type          field.Type
	Size          int
	Nullable      bool
	AutoIncrement bool
	// References names the table a foreign-key column points to.
	References string
}

func fromField(c *field.Column) *Column {
	return &Column{Name: c.Column, Type: c.Type, Size: c.Size, Nullable: c.Nullable}
}

// Tables derives the tables of every entity type of p: one table per type,
// with the foreign-key columns its relations need, and one table per
// association. Columns declared by several sources are merged.
func Tables(p schema.Provider, cfg *relgraph.Config) ([]*Table, error) {
	var (
		tables []*Table
		byName = make(map[string]*Table)
	)
	for _, d := range p.Descriptors() {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		t := &Table{Name: d.Table.Name, Schema: d.Table.Schema}
		id := fromField(d.ID)
		id.AutoIncrement = d.IDStrategy.Kind == schema.IDAutoIncrement
		t.Columns = append(t.Columns, id)
		t.PrimaryKey = []*Column{id}
		if d.IDStrategy.Kind == schema.IDSequence {
			t.Sequence = d.IDStrategy.Sequence
			if t.Sequence == "" {
				t.Sequence = cfg.SequenceName(d.Table.Name)
			}
		}
		for _, f := range d.Fields {
			t.Columns = append(t.Columns, fromField(f))
		}
		if prev, ok := byName[t.QualifiedName()]; ok {
			return nil, relgraph.NewMappingError(d.Type, "table %q is also mapped by another entity type with id %q", t.QualifiedName(), prev.Columns[0].Name)
		}
		byName[t.QualifiedName()] = t
		tables = append(tables, t)
	}
	for _, d := range p.Descriptors() {
		src := byName[d.Table.String()]
		for _, r := range d.Relations {
			target, err := p.Descriptor(r.Target)
			if err != nil {
				return nil, err
			}
			dst := byName[target.Table.String()]
			if a, ok := r.Association(); ok {
				t, ok := byName[a.Table]
				if !ok {
					t = &Table{Name: a.Table, Association: true}
					byName[a.Table] = t
					tables = append(tables, t)
				}
				if err := t.addColumn(&Column{Name: a.SourceColumn, Type: d.ID.Type, Size: d.ID.Size, References: src.QualifiedName()}); err != nil {
					return nil, err
				}
				if err := t.addColumn(&Column{Name: a.TargetColumn, Type: target.ID.Type, Size: target.ID.Size, References: dst.QualifiedName()}); err != nil {
					return nil, err
				}
				continue
			}
			fk, _ := r.ForeignKey()
			if fk.Local != "" {
				if err := src.addColumn(&Column{Name: fk.Local, Type: target.ID.Type, Size: target.ID.Size, Nullable: true, References: dst.QualifiedName()}); err != nil {
					return nil, err
				}
			}
			if fk.Remote != "" {
				if err := dst.addColumn(&Column{Name: fk.Remote, Type: d.ID.Type, Size: d.ID.Size, Nullable: true, References: src.QualifiedName()}); err != nil {
					return nil, err
				}
			}
		}
	}
	return tables, nil
}

// addColumn adds c unless a column with its name exists. An existing
// column must have the same type.
func (t *Table) addColumn(c *Column) error {
	prev, ok := t.Column(c.Name)
	if !ok {
		t.Columns = append(t.Columns, c)
		return nil
	}
	if prev.Type != c.Type {
		return fmt.Errorf("schema: column %s.%s declared as %s and %s", t.Name, c.Name, prev.Type, c.Type)
	}
	if prev.References == "" {
		prev.References = c.References
	}
	return nil
}
