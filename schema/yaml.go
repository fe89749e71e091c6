package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema/edge"
	"github.com/syssam/relgraph/schema/field"
)

type (
	yamlFile struct {
		Entities []yamlEntity `yaml:"entities"`
	}
	yamlEntity struct {
		Type      string         `yaml:"type"`
		Table     string         `yaml:"table"`
		Schema    string         `yaml:"schema"`
		ID        yamlID         `yaml:"id"`
		Fields    []yamlField    `yaml:"fields"`
		Relations []yamlRelation `yaml:"relations"`
	}
	yamlID struct {
		yamlField `yaml:",inline"`
		Strategy  string `yaml:"strategy"`
		Sequence  string `yaml:"sequence"`
	}
	yamlField struct {
		Name     string `yaml:"name"`
		Column   string `yaml:"column"`
		Type     string `yaml:"type"`
		Size     int    `yaml:"size"`
		Nullable bool   `yaml:"nullable"`
		Natural  bool   `yaml:"natural"`
	}
	yamlRelation struct {
		Name        string `yaml:"name"`
		Target      string `yaml:"target"`
		Cardinality string `yaml:"cardinality"`
		Association *struct {
			Table  string `yaml:"table"`
			Source string `yaml:"source"`
			Target string `yaml:"target"`
		} `yaml:"association"`
		ForeignKey *struct {
			Local  string `yaml:"local"`
			Remote string `yaml:"remote"`
		} `yaml:"foreign_key"`
	}
)

// LoadYAMLFile reads a YAML schema file into a new registry.
func LoadYAMLFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return LoadYAML(data)
}

// LoadYAML parses a YAML schema into a new registry. Entities declared in
// YAML are backed by *Record values.
//
//	entities:
//	  - type: Order
//	    table: orders
//	    id: {name: id, type: int64, strategy: autoincrement}
//	    fields:
//	      - {name: version, type: int, natural: true}
//	    relations:
//	      - name: lines
//	        target: Line
//	        cardinality: many
//	        association: {table: order_lines, source: order_id, target: line_id}
func LoadYAML(data []byte) (*Registry, error) {
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schema: parse yaml: %w", err)
	}
	r := NewRegistry()
	for _, e := range f.Entities {
		d, err := e.descriptor()
		if err != nil {
			return nil, err
		}
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	if err := r.CheckTargets(); err != nil {
		return nil, err
	}
	return r, nil
}

func (e yamlEntity) descriptor() (*Descriptor, error) {
	d := &Descriptor{
		Type:  e.Type,
		Table: Table{Name: e.Table, Schema: e.Schema},
	}
	if d.Table.Name == "" {
		d.Table.Name = snake(rules.Pluralize(e.Type))
	}
	if e.ID.Name == "" {
		e.ID.Name = "id"
	}
	if e.ID.Type == "" {
		e.ID.Type = field.TypeInt64.String()
	}
	id, err := e.ID.column(e.Type)
	if err != nil {
		return nil, err
	}
	id.Nullable = false
	d.ID = id
	switch e.ID.Strategy {
	case "", "none":
	case "autoincrement", "auto":
		d.IDStrategy.Kind = IDAutoIncrement
	case "sequence", "seq":
		d.IDStrategy = IDStrategy{Kind: IDSequence, Sequence: e.ID.Sequence}
	default:
		return nil, relgraph.NewMappingError(e.Type, "unknown id strategy %q", e.ID.Strategy)
	}
	for _, f := range e.Fields {
		c, err := f.column(e.Type)
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, c)
	}
	for _, yr := range e.Relations {
		rel := &edge.Relation{Name: yr.Name, Target: yr.Target}
		switch yr.Cardinality {
		case "one":
			rel.Cardinality = edge.One
		case "many", "":
			rel.Cardinality = edge.Many
		default:
			return nil, relgraph.NewMappingError(e.Type, "relation %q has unknown cardinality %q", yr.Name, yr.Cardinality)
		}
		switch {
		case yr.Association != nil && yr.ForeignKey != nil:
			return nil, relgraph.NewMappingError(e.Type, "relation %q declares both association and foreign_key", yr.Name)
		case yr.Association != nil:
			rel.Shape = &edge.AssociationTable{
				Table:        yr.Association.Table,
				SourceColumn: yr.Association.Source,
				TargetColumn: yr.Association.Target,
			}
		case yr.ForeignKey != nil:
			rel.Shape = &edge.ForeignKeyColumn{Local: yr.ForeignKey.Local, Remote: yr.ForeignKey.Remote}
		}
		d.Relations = append(d.Relations, rel)
	}
	return d, nil
}

func (f yamlField) column(entity string) (*field.Column, error) {
	typ, err := field.ParseType(f.Type)
	if err != nil {
		return nil, &relgraph.MappingError{Entity: entity, Msg: "field " + f.Name, Err: err}
	}
	c := &field.Column{
		Name:       f.Name,
		Column:     f.Column,
		Type:       typ,
		Size:       f.Size,
		Nullable:   f.Nullable,
		NaturalKey: f.Natural,
	}
	if c.Column == "" {
		c.Column = c.Name
	}
	return c, nil
}
