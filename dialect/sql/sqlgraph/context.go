package sqlgraph

import (
	"sort"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
	"github.com/syssam/relgraph/schema/edge"
)

// Context is a node of a join tree. Its path identifies the traversal route
// from the root, so two joins reaching the same type through different
// relations are different contexts.
type Context struct {
	desc     *schema.Descriptor
	parent   *Context
	relation *edge.Relation
	join     *Join
	path     string
	route    string
	sep      string
	depth    int
	children []*Context
}

// Root returns the root context of a join tree over d. The root path is
// the table name.
func Root(d *schema.Descriptor, sep string) *Context {
	if sep == "" {
		sep = relgraph.DefaultSeparator
	}
	return &Context{desc: d, path: d.Table.Name, sep: sep}
}

// To returns the child context reached from c through relation r.
func (c *Context) To(d *schema.Descriptor, r *edge.Relation) *Context {
	route := r.Name
	if c.route != "" {
		route = c.route + "." + r.Name
	}
	child := &Context{
		desc:     d,
		parent:   c,
		relation: r,
		path:     c.path + c.sep + r.Name + c.sep + d.Table.Name,
		route:    route,
		sep:      c.sep,
		depth:    c.depth + 1,
	}
	c.children = append(c.children, child)
	return child
}

// Path returns the alias path of the context.
func (c *Context) Path() string { return c.path }

// Route returns the dot-separated relation names leading from the root to
// the context. The root route is empty.
func (c *Context) Route() string { return c.route }

// Descriptor returns the entity type of the context.
func (c *Context) Descriptor() *schema.Descriptor { return c.desc }

// Parent returns the parent context, or nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Relation returns the relation that produced the context.
func (c *Context) Relation() *edge.Relation { return c.relation }

// Depth returns the number of relation steps from the root.
func (c *Context) Depth() int { return c.depth }

// Children returns the contexts joined from c.
func (c *Context) Children() []*Context { return c.children }

// ColumnPath returns the alias path of a column of the context.
func (c *Context) ColumnPath(column string) string { return c.path + "." + column }

// assocPath returns the alias path of the association table joined in
// front of the context.
func (c *Context) assocPath() string { return c.path + "#" }

// restricted reports if the join producing the context carries a predicate.
func (c *Context) restricted() bool { return c.join != nil && len(c.join.where) > 0 }

// tree is a compiled join tree.
type tree struct {
	root *Context
	// nodes holds every context ordered by depth, then path. Parents always
	// precede their children.
	nodes  []*Context
	routes map[string]*Context
	paths  map[string]*Context
}

// buildTree resolves the join directives against the provider.
func buildTree(p schema.Provider, root *schema.Descriptor, joins []*Join, sep string) (*tree, error) {
	t := &tree{
		root:   Root(root, sep),
		routes: make(map[string]*Context),
		paths:  make(map[string]*Context),
	}
	t.add(t.root)
	if err := t.expand(p, t.root, joins); err != nil {
		return nil, err
	}
	sort.SliceStable(t.nodes, func(i, j int) bool {
		if t.nodes[i].depth != t.nodes[j].depth {
			return t.nodes[i].depth < t.nodes[j].depth
		}
		return t.nodes[i].path < t.nodes[j].path
	})
	return t, nil
}

func (t *tree) add(c *Context) {
	t.nodes = append(t.nodes, c)
	t.routes[c.route] = c
	t.paths[c.path] = c
}

func (t *tree) expand(p schema.Provider, parent *Context, joins []*Join) error {
	for _, j := range joins {
		if j == nil {
			continue
		}
		r, ok := parent.desc.Relation(j.Relation)
		if !ok {
			return relgraph.NewIncoherentQueryError("type %s has no relation %q", parent.desc.Type, j.Relation)
		}
		target, err := p.Descriptor(r.Target)
		if err != nil {
			return err
		}
		child := parent.To(target, r)
		child.join = j
		if _, dup := t.paths[child.path]; dup {
			return relgraph.NewIncoherentQueryError("relation %q joined twice at %s", j.Relation, parent.path)
		}
		t.add(child)
		if err := t.expand(p, child, j.Joins); err != nil {
			return err
		}
	}
	return nil
}

// joined reports if the tree has contexts besides the root.
func (t *tree) joined() bool { return len(t.nodes) > 1 }

// restricted reports if any join carries a predicate.
func (t *tree) restricted() bool {
	for _, c := range t.nodes {
		if c.restricted() {
			return true
		}
	}
	return false
}

// context returns the context reached by a dot-separated route.
func (t *tree) context(route string) (*Context, bool) {
	c, ok := t.routes[strings.Trim(route, ".")]
	return c, ok
}
