package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"graphjson/internal/graph"
	"graphjson/internal/util/jsonutil"
)

// ErrSink marks failures to persist or load a document.
var ErrSink = errors.New("sink error")

type SinkError struct {
	Op   string // encode | put | get | stat | verify | decode
	Path string
	Err  error
}

func (e *SinkError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrSink.Error(), e.Op, e.Path, e.Err)
}

func (e *SinkError) Unwrap() []error { return []error{ErrSink, e.Err} }

// Receipt describes a written document.
type Receipt struct {
	RunID  string
	Path   string
	Bytes  int
	Digest string // xxhash64 of the payload, hex
	Nodes  int
	Edges  int
}

// Indent matches the four-space layout the visualization fixtures were
// produced with.
const Indent = "    "

// Encode renders doc as indented JSON without HTML escaping.
func Encode(doc *graph.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	return jsonutil.MarshalNoEscapeIndent(doc, "", Indent)
}

func Digest(payload []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// Write encodes doc and stores it once. Stores that keep metadata receive
// the digest and counts alongside the payload.
func Write(ctx context.Context, store Store, runID, path string, doc *graph.Document) (Receipt, error) {
	payload, err := Encode(doc)
	if err != nil {
		return Receipt{}, &SinkError{Op: "encode", Path: path, Err: err}
	}
	if store == nil {
		return Receipt{}, &SinkError{Op: "put", Path: path, Err: fmt.Errorf("store is nil")}
	}
	sum := doc.Summary()
	meta := Meta{Digest: Digest(payload), Bytes: len(payload), Nodes: sum.Nodes, Edges: sum.Edges}
	if ds, ok := store.(DocumentStore); ok {
		err = ds.PutDocument(ctx, runID, path, payload, meta)
	} else {
		err = store.Put(ctx, runID, path, payload)
	}
	if err != nil {
		return Receipt{}, &SinkError{Op: "put", Path: path, Err: err}
	}
	return Receipt{
		RunID:  runID,
		Path:   path,
		Bytes:  meta.Bytes,
		Digest: meta.Digest,
		Nodes:  meta.Nodes,
		Edges:  meta.Edges,
	}, nil
}

// Read loads a document written by Write. When the store keeps a digest,
// the payload must match it.
func Read(ctx context.Context, store Store, runID, path string) (*graph.Document, error) {
	if store == nil {
		return nil, &SinkError{Op: "get", Path: path, Err: fmt.Errorf("store is nil")}
	}
	raw, err := store.Get(ctx, runID, path)
	if err != nil {
		return nil, &SinkError{Op: "get", Path: path, Err: err}
	}
	if ds, ok := store.(DocumentStore); ok {
		meta, err := ds.Stat(ctx, runID, path)
		switch {
		case errors.Is(err, errors.ErrUnsupported):
		case err != nil:
			return nil, &SinkError{Op: "stat", Path: path, Err: err}
		case meta.Digest != "" && meta.Digest != Digest(raw):
			return nil, &SinkError{Op: "verify", Path: path, Err: fmt.Errorf("digest %s does not match stored %s", Digest(raw), meta.Digest)}
		}
	}
	doc, err := graph.DecodeDocument(raw)
	if err != nil {
		return nil, &SinkError{Op: "decode", Path: path, Err: err}
	}
	return doc, nil
}
