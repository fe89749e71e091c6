package sqlgraph

// merge groups queries with identical SQL into batch queries, preserving
// the order dependent statements need. A query joins the last group with
// its SQL only if no later group produces an identifier it reads, or
// writes its table with another kind of statement.
//
// INSERT groups collapse elements with equal natural keys: the duplicate
// is dropped and receives the identifier of the surviving element. Without
// batch inserts, INSERT groups are not formed but duplicates still
// collapse.
func merge(queries []*Query, batchInserts bool) []*Query {
	var out []*Query
	for _, q := range queries {
		if q.Op == OpInsert && q.Target != nil && collapse(out, q) {
			continue
		}
		i := lastGroup(out, q)
		if i < 0 || (q.Op == OpInsert && !batchInserts) || conflicts(out[i+1:], q) {
			out = append(out, clone(q))
			continue
		}
		g := out[i]
		n := len(g.Batches)
		g.Sources = append(pad(g.Sources, n), pad(q.Sources, len(q.Batches))...)
		g.duplicates = append(pad(g.duplicates, n), pad(q.duplicates, len(q.Batches))...)
		g.Batches = append(g.Batches, q.Batches...)
	}
	return out
}

// collapse records q as a duplicate of an INSERT of a natural-key equal
// element, and reports if it did.
func collapse(out []*Query, q *Query) bool {
	d := q.Target
	if !d.HasNaturalKey() || len(q.Sources) != 1 {
		return false
	}
	el := q.Sources[0]
	for _, g := range out {
		if g.Op != OpInsert || g.Target != d || g.SQL != q.SQL {
			continue
		}
		for i, src := range g.Sources {
			if src == el || !d.NaturalKeyEqual(src, el) {
				continue
			}
			g.duplicates = pad(g.duplicates, len(g.Batches))
			g.duplicates[i] = append(g.duplicates[i], el)
			if len(q.duplicates) > 0 {
				g.duplicates[i] = append(g.duplicates[i], q.duplicates[0]...)
			}
			return true
		}
	}
	return false
}

func lastGroup(out []*Query, q *Query) int {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].SQL == q.SQL && out[i].Op == q.Op {
			return i
		}
	}
	return -1
}

func conflicts(later []*Query, q *Query) bool {
	reads := q.reads()
	for _, g := range later {
		if g.Table != "" && g.Table == q.Table && g.Op != q.Op {
			return true
		}
		for el := range reads {
			if g.produces(el) {
				return true
			}
		}
	}
	return false
}

func clone(q *Query) *Query {
	c := *q
	c.Batches = append([][]any(nil), q.Batches...)
	c.Sources = append([]any(nil), q.Sources...)
	c.duplicates = nil
	for _, dups := range q.duplicates {
		c.duplicates = append(c.duplicates, append([]any(nil), dups...))
	}
	return &c
}

// pad extends s with zero values up to n elements.
func pad[T any](s []T, n int) []T {
	for len(s) < n {
		var zero T
		s = append(s, zero)
	}
	return s
}
