package field

import (
	"fmt"
	"reflect"
	"time"
)

// Type is the logical type of a column.
type Type uint8

// Logical column types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeInt64
	TypeFloat64
	TypeString
	TypeBytes
	TypeTime
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeBytes:   "bytes",
	TypeTime:    "time",
}

// String returns the type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// Valid reports if the type is a known logical type.
func (t Type) Valid() bool {
	return t > TypeInvalid && int(t) < len(typeNames)
}

// Numeric reports if the type holds a number.
func (t Type) Numeric() bool {
	return t == TypeInt || t == TypeInt64 || t == TypeFloat64
}

// ParseType returns the logical type for the given name.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if i > 0 && n == name {
			return Type(i), nil
		}
	}
	return TypeInvalid, fmt.Errorf("field: unknown type %q", name)
}

var timeType = reflect.TypeOf(time.Time{})

// TypeOf returns the logical type for a Go type. Pointer types map to the
// type they point to.
func TypeOf(t reflect.Type) Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return TypeTime
	}
	switch t.Kind() {
	case reflect.Bool:
		return TypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return TypeInt
	case reflect.Int64, reflect.Uint64:
		return TypeInt64
	case reflect.Float32, reflect.Float64:
		return TypeFloat64
	case reflect.String:
		return TypeString
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return TypeBytes
		}
	}
	return TypeInvalid
}

// Column describes one mapped column of an entity type.
type Column struct {
	// Name is the property name used by predicates and ordering.
	Name string
	// Column is the SQL column name.
	Column string
	// Type is the logical type.
	Type Type
	// Size is the maximum length for string and bytes columns. Zero means
	// the dialect default.
	Size int
	// Nullable reports if the column accepts NULL.
	Nullable bool
	// NaturalKey reports if the column is part of the natural key.
	NaturalKey bool
}

// String implements fmt.Stringer.
func (c *Column) String() string {
	if c.Name == c.Column {
		return c.Name
	}
	return c.Name + "(" + c.Column + ")"
}
