package pipeline

import (
	"strings"

	"graphjson/internal/coerce"
	"graphjson/internal/graph"
	"graphjson/internal/identity"
)

// EdgeDerived assembles a document from flat edge records. Nodes are the
// distinct endpoint names, numbered in sorted order.
type EdgeDerived struct{ Config EdgeDerivedConfig }

// Build normalizes rows, resolves node ids and emits edges in source order.
// table is the optional node attribute table; it is ignored when the config
// has no NodeTable.
func (p EdgeDerived) Build(rows []coerce.Raw, table []coerce.Raw) (*graph.Document, Stats) {
	c := p.Config
	var st Stats

	type pending struct {
		source, target string
		attrs          graph.Attrs
	}
	records := make([]pending, 0, len(rows))
	disc := identity.NewDiscovery()
	for _, raw := range rows {
		attrs := c.Schema.Normalize(raw)
		src := endpointName(raw, attrs, c.SourceField)
		dst := endpointName(raw, attrs, c.TargetField)
		aux := auxOf(attrs, c.NodeAux)
		disc.Observe(src, aux)
		disc.Observe(dst, aux)
		records = append(records, pending{source: src, target: dst, attrs: attrs})
	}

	assign := disc.Resolve()
	if c.NodeTable != nil {
		joinNodeTable(assign, *c.NodeTable, table)
	}
	nodes := assign.Nodes()
	if c.NodeTable != nil {
		for i := range nodes {
			nodes[i].Attrs = fillNodeDefaults(nodes[i].Attrs, *c.NodeTable)
		}
	}

	edges := make([]graph.Edge, 0, len(records))
	for _, r := range records {
		src, okSrc := assign.ID(r.source)
		dst, okDst := assign.ID(r.target)
		if !okSrc || !okDst {
			st.SkippedEdges++
			continue
		}
		edges = append(edges, graph.Edge{Source: src, Target: dst, Attrs: r.attrs})
	}

	doc := &graph.Document{Nodes: nodes, Edges: edges}
	st.Nodes, st.Edges = len(nodes), len(edges)
	return doc, st
}

func endpointName(raw coerce.Raw, attrs graph.Attrs, field string) string {
	if v, ok := attrs.Get(field); ok {
		if s, ok := v.AsString(); ok {
			return s
		}
		if !v.IsNull() {
			return v.String()
		}
		return ""
	}
	return strings.TrimSpace(raw[field])
}

func auxOf(attrs graph.Attrs, names []string) graph.Attrs {
	if len(names) == 0 {
		return nil
	}
	out := make(graph.Attrs, 0, len(names))
	for _, name := range names {
		if v, ok := attrs.Get(name); ok {
			out = append(out, graph.Attr{Key: name, Value: v})
		}
	}
	return out
}

// joinNodeTable attaches table rows to nodes that were discovered. Rows for
// keys that never appear as an endpoint are dropped, and the first row for
// a key wins.
func joinNodeTable(assign *identity.Assignment, t NodeTable, rows []coerce.Raw) {
	for _, raw := range rows {
		key := strings.TrimSpace(raw[t.KeyField])
		if key == "" {
			continue
		}
		attrs := make(graph.Attrs, 0, len(t.Schema))
		for _, at := range t.Schema.Normalize(raw) {
			if at.Key == t.KeyField {
				continue
			}
			attrs = append(attrs, at)
		}
		assign.Enrich(key, categorize(attrs, t))
	}
}

func categorize(attrs graph.Attrs, t NodeTable) graph.Attrs {
	if t.CategoryField == "" {
		return attrs
	}
	v, ok := attrs.Get(t.CategoryField)
	if !ok || v.IsNull() || v.String() == "" {
		attrs = attrs.Set(t.CategoryField, graph.StringValue(t.DefaultCategory))
	}
	return attrs
}

// fillNodeDefaults gives nodes absent from the table the same attribute set
// as those present in it.
func fillNodeDefaults(attrs graph.Attrs, t NodeTable) graph.Attrs {
	for _, f := range t.Schema {
		if f.Name == t.KeyField || attrs.Has(f.Name) {
			continue
		}
		attrs = append(attrs, graph.Attr{Key: f.Name, Value: graph.NullValue()})
	}
	return categorize(attrs, t)
}
