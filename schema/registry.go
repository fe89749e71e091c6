package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/syssam/relgraph"
)

// Registry is a Provider holding registered descriptors. Registration is
// expected to happen at start-up; lookups are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	types   map[string]*Descriptor
	goTypes map[reflect.Type]*Descriptor
	order   []string
}

var _ Provider = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:   make(map[string]*Descriptor),
		goTypes: make(map[reflect.Type]*Descriptor),
	}
}

// Register adds a descriptor built by hand or by a loader.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[d.Type]; ok {
		return relgraph.NewMappingError(d.Type, "entity type registered twice")
	}
	r.types[d.Type] = d
	r.order = append(r.order, d.Type)
	if d.GoType != nil {
		r.goTypes[d.GoType] = d
	}
	return nil
}

// RegisterStruct loads a descriptor from the struct tags of v, a struct or
// pointer to struct, and registers it.
func (r *Registry) RegisterStruct(v any) (*Descriptor, error) {
	d, err := FromStruct(v)
	if err != nil {
		return nil, err
	}
	if err := r.Register(d); err != nil {
		return nil, err
	}
	return d, nil
}

// MustRegister registers the given structs and panics on error.
func (r *Registry) MustRegister(vs ...any) *Registry {
	for _, v := range vs {
		if _, err := r.RegisterStruct(v); err != nil {
			panic(err)
		}
	}
	return r
}

// Descriptor returns the descriptor of the named entity type.
func (r *Registry) Descriptor(typ string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[typ]
	if !ok {
		return nil, relgraph.NewMappingError(typ, "unknown entity type")
	}
	return d, nil
}

// DescriptorOf returns the descriptor of an entity value.
func (r *Registry) DescriptorOf(v any) (*Descriptor, error) {
	if rec, ok := v.(*Record); ok {
		if rec == nil {
			return nil, relgraph.NewMappingError("", "nil record")
		}
		return r.Descriptor(rec.Type)
	}
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	d, ok := r.goTypes[t]
	r.mu.RUnlock()
	if !ok {
		return nil, relgraph.NewMappingError(fmt.Sprintf("%T", v), "unknown entity type")
	}
	return d, nil
}

// Descriptors returns every registered descriptor in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds := make([]*Descriptor, len(r.order))
	for i, name := range r.order {
		ds[i] = r.types[name]
	}
	return ds
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// CheckTargets reports relations whose target type is not registered.
func (r *Registry) CheckTargets() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		d := r.types[name]
		for _, rel := range d.Relations {
			if _, ok := r.types[rel.Target]; !ok {
				return relgraph.NewMappingError(d.Type, "relation %q targets unknown type %q", rel.Name, rel.Target)
			}
		}
	}
	return nil
}
