package sqlgraph

import (
	"context"
	"fmt"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
)

// Deferred is a parameter whose value is only known when its batch is
// bound, such as the identifier generated for an element inserted by an
// earlier statement.
type Deferred interface {
	Resolve(ctx context.Context, x *Executor) (any, error)
}

// GeneratedID is the identifier of an element, read when it is bound.
type GeneratedID struct {
	desc *schema.Descriptor
	elem any
}

// IDOf returns a deferred identifier of elem.
func IDOf(d *schema.Descriptor, elem any) *GeneratedID {
	return &GeneratedID{desc: d, elem: elem}
}

// Resolve implements Deferred.
func (g *GeneratedID) Resolve(context.Context, *Executor) (any, error) {
	id := g.desc.IDOf(g.elem)
	if id == nil {
		return nil, &relgraph.DeferredValueError{Entity: g.desc.Type, Expected: 1}
	}
	return id, nil
}

// String implements fmt.Stringer.
func (g *GeneratedID) String() string {
	if id := g.desc.IDOf(g.elem); id != nil {
		return fmt.Sprint(id)
	}
	return "<id of " + g.desc.Type + ">"
}

// NextValue is a sequence value drawn when it is bound, and assigned as the
// identifier of its element.
type NextValue struct {
	desc *schema.Descriptor
	elem any
	sql  string
}

// Resolve implements Deferred. The value is drawn once per element.
func (n *NextValue) Resolve(ctx context.Context, x *Executor) (any, error) {
	if id := n.desc.IDOf(n.elem); id != nil {
		return id, nil
	}
	id, err := x.scalar(ctx, n.sql)
	if err != nil {
		return nil, &relgraph.DeferredValueError{Entity: n.desc.Type, Expected: 1, Err: err}
	}
	if id == nil {
		return nil, &relgraph.DeferredValueError{Entity: n.desc.Type, Expected: 1}
	}
	if err := n.desc.SetID(n.elem, id); err != nil {
		return nil, err
	}
	return n.desc.IDOf(n.elem), nil
}

// String implements fmt.Stringer.
func (n *NextValue) String() string { return "<" + n.sql + ">" }

// RootIDs stands for the root identifiers returned by the first query of a
// two-query select.
type RootIDs struct{}

// String implements fmt.Stringer.
func (RootIDs) String() string { return "<root ids>" }
