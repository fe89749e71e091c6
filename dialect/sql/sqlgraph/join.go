package sqlgraph

import (
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
)

// Join is a join directive: the relation to follow, an optional
// restriction on the joined targets and the joins to follow from them.
type Join struct {
	Relation string
	Joins    []*Join
	where    []Predicate
}

// J returns a join directive following the named relation, with nested
// directives applied to its target.
//
//	sqlgraph.J("lines", sqlgraph.J("product"))
func J(relation string, sub ...*Join) *Join {
	return &Join{Relation: relation, Joins: sub}
}

// Where restricts the joined targets. A restricted join keeps only the
// matching targets in the graph, and excludes roots without any match from
// filtered selects.
func (j *Join) Where(ps ...Predicate) *Join {
	j.where = append(j.where, ps...)
	return j
}

// Predicates returns the restriction of the join.
func (j *Join) Predicates() []Predicate { return j.where }

// JoinAll returns the directives that follow every relation reachable from
// typ. It fails if the relation graph has a cycle, since the expansion
// would not terminate.
func JoinAll(p schema.Provider, typ string) ([]*Join, error) {
	d, err := p.Descriptor(typ)
	if err != nil {
		return nil, err
	}
	return joinAll(p, d, []string{d.Type})
}

func joinAll(p schema.Provider, d *schema.Descriptor, stack []string) ([]*Join, error) {
	var joins []*Join
	for _, r := range d.Relations {
		for _, typ := range stack {
			if typ == r.Target {
				return nil, relgraph.NewIncoherentQueryError("cannot join all relations of a cycle: %s -> %s", strings.Join(stack, " -> "), r.Target)
			}
		}
		target, err := p.Descriptor(r.Target)
		if err != nil {
			return nil, err
		}
		sub, err := joinAll(p, target, append(stack[:len(stack):len(stack)], target.Type))
		if err != nil {
			return nil, err
		}
		joins = append(joins, J(r.Name, sub...))
	}
	return joins, nil
}
