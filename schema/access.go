package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/syssam/relgraph/schema/edge"
	"github.com/syssam/relgraph/schema/field"
)

// Key normalises a column value into a comparable key: integers become
// int64, byte slices become strings and pointers are dereferenced. It is
// used by identity maps and natural-key comparisons.
func Key(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, string, bool, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Round(0)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return Key(rv.Elem().Interface())
	}
	if !rv.Type().Comparable() {
		return fmt.Sprint(v)
	}
	return v
}

// structAccessor reads and writes struct-backed entities through the field
// indexes resolved when the type was registered.
type structAccessor struct {
	typ       reflect.Type
	columns   map[string][]int
	relations map[string][]int
}

func (a *structAccessor) New() any {
	return reflect.New(a.typ).Interface()
}

func (a *structAccessor) Owns(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Kind() == reflect.Ptr && t.Elem() == a.typ
}

func (a *structAccessor) elem(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Type() != a.typ {
		panic(fmt.Sprintf("schema: expect *%s, got %T", a.typ.Name(), v))
	}
	return rv.Elem()
}

func (a *structAccessor) Get(v any, c *field.Column) any {
	idx, ok := a.columns[c.Name]
	if !ok {
		return nil
	}
	fv := a.elem(v).FieldByIndex(idx)
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	return fv.Interface()
}

func (a *structAccessor) Set(v any, c *field.Column, value any) error {
	idx, ok := a.columns[c.Name]
	if !ok {
		return fmt.Errorf("unknown property %q", c.Name)
	}
	return assign(a.elem(v).FieldByIndex(idx), value)
}

func (a *structAccessor) Related(v any, r *edge.Relation) []any {
	idx, ok := a.relations[r.Name]
	if !ok {
		return nil
	}
	fv := a.elem(v).FieldByIndex(idx)
	switch fv.Kind() {
	case reflect.Ptr:
		if fv.IsNil() {
			return nil
		}
		return []any{fv.Interface()}
	case reflect.Slice:
		targets := make([]any, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			if e := fv.Index(i); !e.IsNil() {
				targets = append(targets, e.Interface())
			}
		}
		return targets
	}
	return nil
}

func (a *structAccessor) Attach(v any, r *edge.Relation, target any) error {
	idx, ok := a.relations[r.Name]
	if !ok {
		return fmt.Errorf("unknown relation %q", r.Name)
	}
	fv := a.elem(v).FieldByIndex(idx)
	tv := reflect.ValueOf(target)
	switch fv.Kind() {
	case reflect.Ptr:
		if !tv.Type().AssignableTo(fv.Type()) {
			return fmt.Errorf("cannot attach %T to %s", target, fv.Type())
		}
		fv.Set(tv)
	case reflect.Slice:
		if !tv.Type().AssignableTo(fv.Type().Elem()) {
			return fmt.Errorf("cannot attach %T to %s", target, fv.Type())
		}
		fv.Set(reflect.Append(fv, tv))
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// assign stores a driver or caller value into dst, converting between the
// representations drivers commonly return (int64, float64, []byte, string,
// time.Time) and the field's Go type.
func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(v)
	if src.Kind() == reflect.Ptr {
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		src = src.Elem()
	}
	if dst.Kind() == reflect.Ptr {
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), src.Interface()); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	text, isText := asText(src)
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch {
		case isInt(src):
			dst.SetInt(src.Int())
		case isUint(src):
			dst.SetInt(int64(src.Uint()))
		case isFloat(src):
			dst.SetInt(int64(src.Float()))
		case src.Kind() == reflect.Bool:
			dst.SetInt(boolInt(src.Bool()))
		case isText:
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return err
			}
			dst.SetInt(n)
		default:
			return cannotAssign(v, dst)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch {
		case isInt(src):
			dst.SetUint(uint64(src.Int()))
		case isUint(src):
			dst.SetUint(src.Uint())
		case isFloat(src):
			dst.SetUint(uint64(src.Float()))
		case isText:
			n, err := strconv.ParseUint(text, 10, 64)
			if err != nil {
				return err
			}
			dst.SetUint(n)
		default:
			return cannotAssign(v, dst)
		}
	case reflect.Float32, reflect.Float64:
		switch {
		case isInt(src):
			dst.SetFloat(float64(src.Int()))
		case isUint(src):
			dst.SetFloat(float64(src.Uint()))
		case isFloat(src):
			dst.SetFloat(src.Float())
		case isText:
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return err
			}
			dst.SetFloat(f)
		default:
			return cannotAssign(v, dst)
		}
	case reflect.Bool:
		switch {
		case isInt(src):
			dst.SetBool(src.Int() != 0)
		case isText:
			b, err := strconv.ParseBool(text)
			if err != nil {
				return err
			}
			dst.SetBool(b)
		default:
			return cannotAssign(v, dst)
		}
	case reflect.String:
		switch {
		case isText:
			dst.SetString(text)
		case isInt(src):
			dst.SetString(strconv.FormatInt(src.Int(), 10))
		case isFloat(src):
			dst.SetString(strconv.FormatFloat(src.Float(), 'g', -1, 64))
		default:
			return cannotAssign(v, dst)
		}
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.Uint8 || !isText {
			return cannotAssign(v, dst)
		}
		dst.SetBytes([]byte(text))
	case reflect.Struct:
		if dst.Type() != reflect.TypeOf(time.Time{}) || !isText {
			return cannotAssign(v, dst)
		}
		t, err := parseTime(text)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
	default:
		if src.Type().ConvertibleTo(dst.Type()) {
			dst.Set(src.Convert(dst.Type()))
			return nil
		}
		return cannotAssign(v, dst)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func asText(v reflect.Value) (string, bool) {
	switch {
	case v.Kind() == reflect.String:
		return v.String(), true
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		return string(v.Bytes()), true
	}
	return "", false
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(v reflect.Value) bool {
	return v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func cannotAssign(v any, dst reflect.Value) error {
	return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
}
