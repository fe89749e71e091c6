package edge

import (
	"errors"
	"fmt"
)

// Cardinality of a relation.
type Cardinality uint8

// Relation cardinalities.
const (
	One Cardinality = iota + 1
	Many
)

// String returns the cardinality as used in schema files.
func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return fmt.Sprintf("cardinality(%d)", c)
	}
}

// Shape is the storage shape of a relation. It is implemented only by
// *AssociationTable and *ForeignKeyColumn.
type Shape interface {
	shape()
	fmt.Stringer
}

// AssociationTable stores a relation in a separate join table holding
// one row per (source, target) pair.
type AssociationTable struct {
	Table        string
	SourceColumn string
	TargetColumn string
}

// ForeignKeyColumn stores a relation in a column holding the counterpart's
// identifier. Local is a column of the source table referencing the target;
// Remote is a column of the target table referencing the source. At least
// one of them is set.
type ForeignKeyColumn struct {
	Local  string
	Remote string
}

func (*AssociationTable) shape() {}
func (*ForeignKeyColumn) shape() {}

// String implements fmt.Stringer.
func (a *AssociationTable) String() string {
	return fmt.Sprintf("%s(%s, %s)", a.Table, a.SourceColumn, a.TargetColumn)
}

// String implements fmt.Stringer.
func (f *ForeignKeyColumn) String() string {
	switch {
	case f.Local != "" && f.Remote != "":
		return fmt.Sprintf("local(%s) remote(%s)", f.Local, f.Remote)
	case f.Local != "":
		return fmt.Sprintf("local(%s)", f.Local)
	default:
		return fmt.Sprintf("remote(%s)", f.Remote)
	}
}

// Relation describes a relation property of an entity type.
type Relation struct {
	// Name is the relation property name.
	Name string
	// Target is the identity name of the target entity type.
	Target string
	// Cardinality is One or Many.
	Cardinality Cardinality
	// Shape is *AssociationTable or *ForeignKeyColumn.
	Shape Shape
}

// Unique reports if the relation holds at most one target.
func (r *Relation) Unique() bool { return r.Cardinality == One }

// Association returns the association-table shape, if the relation has one.
func (r *Relation) Association() (*AssociationTable, bool) {
	a, ok := r.Shape.(*AssociationTable)
	return a, ok
}

// ForeignKey returns the foreign-key-column shape, if the relation has one.
func (r *Relation) ForeignKey() (*ForeignKeyColumn, bool) {
	f, ok := r.Shape.(*ForeignKeyColumn)
	return f, ok
}

// Validate reports an error if the relation shape is internally inconsistent.
func (r *Relation) Validate() error {
	if r.Name == "" {
		return errors.New("edge: relation without a name")
	}
	if r.Target == "" {
		return fmt.Errorf("edge: relation %q without a target type", r.Name)
	}
	if r.Cardinality != One && r.Cardinality != Many {
		return fmt.Errorf("edge: relation %q has invalid cardinality %d", r.Name, r.Cardinality)
	}
	switch s := r.Shape.(type) {
	case *AssociationTable:
		if s == nil || s.Table == "" || s.SourceColumn == "" || s.TargetColumn == "" {
			return fmt.Errorf("edge: relation %q: association table requires table, source and target columns", r.Name)
		}
		if s.SourceColumn == s.TargetColumn {
			return fmt.Errorf("edge: relation %q: association source and target columns are both %q", r.Name, s.SourceColumn)
		}
	case *ForeignKeyColumn:
		if s == nil || s.Local == "" && s.Remote == "" {
			return fmt.Errorf("edge: relation %q: foreign-key column requires a local or remote column", r.Name)
		}
		if s.Local != "" && r.Cardinality == Many {
			return fmt.Errorf("edge: relation %q: a local foreign-key column cannot hold many targets", r.Name)
		}
	default:
		return fmt.Errorf("edge: relation %q has no storage shape", r.Name)
	}
	return nil
}
