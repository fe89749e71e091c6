package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema/edge"
	"github.com/syssam/relgraph/schema/field"
)

var rules = inflect.NewDefaultRuleset()

// TableNamer is implemented by structs that choose their own table name.
type TableNamer interface {
	TableName() string
}

// FromStruct loads a descriptor from the db and rel tags of v, a struct or
// pointer to struct.
func FromStruct(v any) (*Descriptor, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, relgraph.NewMappingError(fmt.Sprintf("%T", v), "expect a struct")
	}
	d := &Descriptor{
		Type:   t.Name(),
		Table:  Table{Name: snake(rules.Pluralize(t.Name()))},
		GoType: t,
	}
	if namer, ok := reflect.New(t).Interface().(TableNamer); ok {
		name := namer.TableName()
		if i := strings.LastIndexByte(name, '.'); i > 0 {
			d.Table = Table{Schema: name[:i], Name: name[i+1:]}
		} else {
			d.Table = Table{Name: name}
		}
	}
	acc := &structAccessor{
		typ:       t,
		columns:   make(map[string][]int),
		relations: make(map[string][]int),
	}
	d.Accessor = acc
	var implicitID *field.Column
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		if tag, ok := sf.Tag.Lookup("rel"); ok {
			rel, err := parseRelation(sf, tag)
			if err != nil {
				return nil, &relgraph.MappingError{Entity: d.Type, Msg: "field " + sf.Name, Err: err}
			}
			d.Relations = append(d.Relations, rel)
			acc.relations[rel.Name] = sf.Index
			continue
		}
		tag := sf.Tag.Get("db")
		if tag == "-" {
			continue
		}
		typ := field.TypeOf(sf.Type)
		if !typ.Valid() {
			if tag != "" {
				return nil, relgraph.NewMappingError(d.Type, "field %s has unsupported type %s", sf.Name, sf.Type)
			}
			continue
		}
		col, opts, err := parseColumn(sf, typ, tag)
		if err != nil {
			return nil, &relgraph.MappingError{Entity: d.Type, Msg: "field " + sf.Name, Err: err}
		}
		acc.columns[col.Name] = sf.Index
		switch {
		case opts.pk:
			if d.ID != nil {
				return nil, relgraph.NewMappingError(d.Type, "more than one identifier property")
			}
			d.ID = col
			d.IDStrategy = opts.strategy
		case sf.Name == "ID" && implicitID == nil:
			implicitID = col
		default:
			d.Fields = append(d.Fields, col)
		}
	}
	if d.ID == nil && implicitID != nil {
		d.ID = implicitID
		d.IDStrategy = IDStrategy{Kind: IDAutoIncrement}
	} else if implicitID != nil {
		d.Fields = append(d.Fields, implicitID)
	}
	if d.ID != nil {
		d.ID.Nullable = false
	}
	return d, nil
}

type columnOptions struct {
	pk       bool
	strategy IDStrategy
}

func parseColumn(sf reflect.StructField, typ field.Type, tag string) (*field.Column, columnOptions, error) {
	var opts columnOptions
	parts := strings.Split(tag, ",")
	col := &field.Column{
		Column:   strings.TrimSpace(parts[0]),
		Type:     typ,
		Nullable: sf.Type.Kind() == reflect.Ptr,
	}
	if col.Column == "" {
		col.Column = snake(sf.Name)
	}
	col.Name = col.Column
	for _, p := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(p), "=")
		switch key {
		case "pk":
			opts.pk = true
		case "auto":
			opts.strategy.Kind = IDAutoIncrement
		case "seq":
			opts.strategy = IDStrategy{Kind: IDSequence, Sequence: value}
		case "natural":
			col.NaturalKey = true
		case "null":
			col.Nullable = true
		case "size":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return nil, opts, fmt.Errorf("invalid size %q", value)
			}
			col.Size = n
		case "name":
			if value == "" {
				return nil, opts, fmt.Errorf("empty property name")
			}
			col.Name = value
		case "":
		default:
			return nil, opts, fmt.Errorf("unknown db tag option %q", key)
		}
	}
	if opts.strategy.Kind != IDNone && !opts.pk {
		return nil, opts, fmt.Errorf("identifier strategy on non-pk column %q", col.Column)
	}
	return col, opts, nil
}

func parseRelation(sf reflect.StructField, tag string) (*edge.Relation, error) {
	parts := strings.Split(tag, ",")
	rel := &edge.Relation{Name: strings.TrimSpace(parts[0])}
	if rel.Name == "" {
		rel.Name = snake(sf.Name)
	}
	t := sf.Type
	switch {
	case t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct:
		rel.Cardinality = edge.One
		rel.Target = t.Elem().Name()
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Ptr && t.Elem().Elem().Kind() == reflect.Struct:
		rel.Cardinality = edge.Many
		rel.Target = t.Elem().Elem().Name()
	default:
		return nil, fmt.Errorf("relation field must be *T or []*T, got %s", t)
	}
	var (
		assoc edge.AssociationTable
		fk    edge.ForeignKeyColumn
	)
	for _, p := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(p), "=")
		switch key {
		case "table":
			assoc.Table = value
		case "source":
			assoc.SourceColumn = value
		case "target":
			assoc.TargetColumn = value
		case "local":
			fk.Local = value
		case "remote":
			fk.Remote = value
		case "":
		default:
			return nil, fmt.Errorf("unknown rel tag option %q", key)
		}
	}
	switch {
	case assoc != (edge.AssociationTable{}) && fk != (edge.ForeignKeyColumn{}):
		return nil, fmt.Errorf("relation %q mixes association table and foreign-key options", rel.Name)
	case assoc != (edge.AssociationTable{}):
		rel.Shape = &assoc
	case fk != (edge.ForeignKeyColumn{}):
		rel.Shape = &fk
	default:
		return nil, fmt.Errorf("relation %q has no storage shape", rel.Name)
	}
	return rel, rel.Validate()
}

// snake converts a Go identifier to snake_case ("OrderLine" → "order_line",
// "CustomerID" → "customer_id").
func snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is
		// uppercase, and previous is lowercase (cases like: "UserInfo"), or
		// next letter is also a lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
