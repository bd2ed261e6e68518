// Package pipeline turns source records into a normalized graph document.
//
// Two assemblers share the shape read -> normalize -> resolve -> assemble:
// EdgeDerived discovers nodes from edge endpoints, GraphDeclared trusts the
// nodes a graph file declares. Run wires an assembler to a source and a sink.
package pipeline

import (
	"context"
	"fmt"

	"graphjson/internal/coerce"
	"graphjson/internal/graph"
	"graphjson/internal/safeio"
	"graphjson/internal/sink"
	"graphjson/internal/source"
)

// Stats is the operator summary of one run.
type Stats struct {
	Nodes int
	Edges int
	// SkippedEdges counts records with an empty endpoint.
	SkippedEdges int
	// Ambiguities counts identity substitutions in declared graphs.
	Ambiguities int
}

type Result struct {
	Document *graph.Document
	Stats    Stats
	Receipt  sink.Receipt
}

// Assemble reads the spec's inputs under root and builds the document
// without writing it.
func Assemble(root *safeio.Root, spec Spec) (*graph.Document, Stats, error) {
	if err := spec.Validate(); err != nil {
		return nil, Stats{}, err
	}
	switch spec.Kind {
	case KindEdgeDerived:
		rows, err := source.CSVFile(root, spec.Input)
		if err != nil {
			return nil, Stats{}, err
		}
		var table []coerce.Raw
		if spec.EdgeDerived.NodeTable != nil && spec.NodeInput != "" {
			table, err = source.CSVFile(root, spec.NodeInput)
			if err != nil {
				return nil, Stats{}, err
			}
		}
		doc, st := EdgeDerived{Config: spec.EdgeDerived}.Build(rows, table)
		return doc, st, nil
	case KindGraphDeclared:
		g, err := source.GMLFile(root, spec.Input)
		if err != nil {
			return nil, Stats{}, err
		}
		doc, st := GraphDeclared{Config: spec.GraphDeclared}.Build(g)
		return doc, st, nil
	}
	return nil, Stats{}, fmt.Errorf("pipeline %s: unsupported kind %s", spec.Name, spec.Kind)
}

// Run assembles the document and writes it once to store under runID.
// Nothing is written when the source cannot be read.
func Run(ctx context.Context, root *safeio.Root, spec Spec, store sink.Store, runID string) (Result, error) {
	doc, st, err := Assemble(root, spec)
	if err != nil {
		return Result{}, err
	}
	if err := doc.Validate(); err != nil {
		return Result{}, fmt.Errorf("pipeline %s: assembled document is inconsistent: %w", spec.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	rec, err := sink.Write(ctx, store, runID, spec.Output, doc)
	if err != nil {
		return Result{}, err
	}
	return Result{Document: doc, Stats: st, Receipt: rec}, nil
}
