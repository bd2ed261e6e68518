package pipeline

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"graphjson/internal/coerce"
	"graphjson/internal/graph"
	"graphjson/internal/identity"
	"graphjson/internal/source"
)

// GraphDeclared assembles a document from a declared graph. Source ids are
// kept when they parse; the remaining nodes get ids minted around them.
type GraphDeclared struct{ Config GraphDeclaredConfig }

func (p GraphDeclared) Build(g *source.DeclaredGraph) (*graph.Document, Stats) {
	c := p.Config.withDefaults()
	var st Stats
	if g == nil {
		return &graph.Document{}, st
	}

	decl := identity.NewDeclared()
	names := make([]string, len(g.Nodes))
	byID := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		rawID, hasID := n.Attrs[c.IDAttr]
		decl.Declare(rawID, hasID)
		if hasID {
			// Edges address the first declaration of an id.
			if _, seen := byID[rawID]; !seen {
				byID[rawID] = i
			}
		}
		switch label, ok := n.Attrs[c.LabelAttr]; {
		case ok:
			names[i] = label
		case hasID:
			names[i] = rawID
		default:
			names[i] = fmt.Sprintf("node %d", i)
		}
	}
	tbl := decl.Resolve()
	endpoint := func(ref string) int64 {
		if i, ok := byID[ref]; ok {
			id, _ := tbl.ID(i)
			return id
		}
		return tbl.Endpoint(ref)
	}

	// Endpoints resolve before nodes are materialized so undeclared refs
	// are injected as nodes.
	edges := make([]graph.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		src := endpoint(e.Source)
		dst := endpoint(e.Target)
		attrs := graph.Attrs{{Key: c.WeightAttr, Value: weight(e, c)}}
		for _, at := range c.EdgeSchema.Normalize(e.Attrs) {
			if at.Key == c.WeightAttr {
				continue
			}
			attrs = append(attrs, at)
		}
		edges = append(edges, graph.Edge{Source: src, Target: dst, Attrs: attrs})
	}

	injected := tbl.Injected()
	nodes := make([]graph.Node, 0, tbl.Len()+len(injected))
	for i, name := range names {
		id, _ := tbl.ID(i)
		nodes = append(nodes, graph.Node{ID: id, Name: name})
	}
	for _, in := range injected {
		nodes = append(nodes, graph.Node{ID: in.ID, Name: in.Ref})
	}

	st.Nodes, st.Edges = len(nodes), len(edges)
	st.Ambiguities = tbl.Ambiguities()
	return &graph.Document{Nodes: nodes, Edges: edges}, st
}

func (c GraphDeclaredConfig) withDefaults() GraphDeclaredConfig {
	if c.IDAttr == "" {
		c.IDAttr = "id"
	}
	if c.LabelAttr == "" {
		c.LabelAttr = "label"
	}
	if c.WeightAttr == "" {
		c.WeightAttr = "value"
	}
	if c.DefaultWeight == 0 {
		c.DefaultWeight = 1
	}
	return c
}

// weight reads the edge weight. Real weights are truncated toward zero;
// anything absent or non-finite falls back to the default.
func weight(e source.DeclaredEdge, c GraphDeclaredConfig) graph.Value {
	raw, ok := e.Attrs[c.WeightAttr]
	if !ok {
		return graph.IntValue(c.DefaultWeight)
	}
	if e.Kinds[c.WeightAttr] == source.ScalarReal {
		raw = truncateReal(raw)
	}
	return coerce.WeightOr(raw, c.DefaultWeight)
}

func truncateReal(text string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return ""
	}
	n, _ := big.NewFloat(f).Int(nil)
	return n.String()
}
