package graph

import (
	"fmt"
	"sort"
)

// Attr is a single named attribute value.
type Attr struct {
	Key   string
	Value Value
}

// Attrs is an ordered attribute bag. Order is the order fields were added,
// which keeps serialized documents byte-stable across runs.
type Attrs []Attr

func (a Attrs) Get(key string) (Value, bool) {
	for _, at := range a {
		if at.Key == key {
			return at.Value, true
		}
	}
	return Value{}, false
}

func (a Attrs) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Set replaces the value of key in place or appends it.
func (a Attrs) Set(key string, v Value) Attrs {
	for i := range a {
		if a[i].Key == key {
			a[i].Value = v
			return a
		}
	}
	return append(a, Attr{Key: key, Value: v})
}

// Clone returns an independent copy.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	copy(out, a)
	return out
}

// Node is a vertex with its canonical id.
type Node struct {
	ID    int64
	Name  string
	Attrs Attrs
}

// Edge references its endpoints by canonical node id.
type Edge struct {
	Source int64
	Target int64
	Attrs  Attrs
}

// Document is the normalized output: nodes first, then edges in source order.
type Document struct {
	Nodes []Node
	Edges []Edge
}

type Summary struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

func (d *Document) Summary() Summary {
	if d == nil {
		return Summary{}
	}
	return Summary{Nodes: len(d.Nodes), Edges: len(d.Edges)}
}

// Validate checks the structural guarantees of a normalized document:
// node ids are pairwise distinct and every edge endpoint names an existing node.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("graph: document is nil")
	}
	ids := make(map[int64]int, len(d.Nodes))
	for i, n := range d.Nodes {
		if prev, dup := ids[n.ID]; dup {
			return fmt.Errorf("graph: nodes[%d] and nodes[%d] share id %d", prev, i, n.ID)
		}
		ids[n.ID] = i
	}
	for i, e := range d.Edges {
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("graph: edges[%d].source %d has no node", i, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("graph: edges[%d].target %d has no node", i, e.Target)
		}
	}
	return nil
}

// UniqueNames returns the distinct non-empty node names, sorted.
func (d *Document) UniqueNames() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(d.Nodes))
	out := make([]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Name == "" {
			continue
		}
		if _, ok := seen[n.Name]; ok {
			continue
		}
		seen[n.Name] = struct{}{}
		out = append(out, n.Name)
	}
	sort.Strings(out)
	return out
}
