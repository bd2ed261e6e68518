// Package identity assigns canonical integer ids to graph nodes.
//
// Discovery builds the node set from edge endpoints and numbers names densely
// in sorted order, so ids depend only on the set of names. Declared trusts
// source ids where they parse and mints the rest around them.
package identity

import "graphjson/internal/graph"

// Discovery accumulates endpoint names seen while scanning edge records.
// The auxiliary attributes of the first sighting of a name are kept.
type Discovery struct {
	names *OrderedSet[string, graph.Attrs]
}

func NewDiscovery() *Discovery {
	return &Discovery{names: NewOrderedSet[string, graph.Attrs]()}
}

// Observe records an endpoint. Empty names are not nodes.
func (d *Discovery) Observe(name string, aux graph.Attrs) {
	if name == "" {
		return
	}
	d.names.Add(name, aux.Clone())
}

func (d *Discovery) Len() int { return d.names.Len() }

// Resolve numbers the observed names 0..n-1 in lexicographic order.
func (d *Discovery) Resolve() *Assignment {
	sorted := d.names.SortedKeys(func(a, b string) bool { return a < b })
	a := &Assignment{
		ids:   make(map[string]int64, len(sorted)),
		nodes: make([]graph.Node, 0, len(sorted)),
	}
	for i, name := range sorted {
		aux, _ := d.names.Get(name)
		a.ids[name] = int64(i)
		a.nodes = append(a.nodes, graph.Node{ID: int64(i), Name: name, Attrs: aux})
	}
	return a
}

// Assignment is the resolved name -> id table of one run.
type Assignment struct {
	ids   map[string]int64
	nodes []graph.Node
}

func (a *Assignment) ID(name string) (int64, bool) {
	id, ok := a.ids[name]
	return id, ok
}

// Nodes returns the materialized nodes in id order.
func (a *Assignment) Nodes() []graph.Node {
	out := make([]graph.Node, len(a.nodes))
	copy(out, a.nodes)
	return out
}

// Enrich attaches extra attributes to an already-assigned node. Keys the
// node already carries are left untouched.
func (a *Assignment) Enrich(name string, extra graph.Attrs) bool {
	id, ok := a.ids[name]
	if !ok {
		return false
	}
	n := &a.nodes[id]
	for _, at := range extra {
		if n.Attrs.Has(at.Key) {
			continue
		}
		n.Attrs = append(n.Attrs, at)
	}
	return true
}
