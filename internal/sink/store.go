package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"graphjson/internal/graph"
)

// Store persists serialized documents under (runID, path).
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	GetURL(ctx context.Context, runID, path string) (string, error)
	List(ctx context.Context, runID string) ([]string, error)
}

// Meta summarizes a stored document.
type Meta struct {
	Digest string
	Bytes  int
	Nodes  int
	Edges  int
}

// DocumentStore is a Store that keeps Meta next to each document. Write
// prefers PutDocument and Read checks the stored digest through Stat.
type DocumentStore interface {
	Store
	PutDocument(ctx context.Context, runID, path string, content []byte, meta Meta) error
	// Stat returns errors.ErrUnsupported when the backend holds no metadata.
	Stat(ctx context.Context, runID, path string) (Meta, error)
}

var ErrNotFound = errors.New("document not found")

func requireKey(runID, path string) (string, string, error) {
	runID = strings.TrimSpace(runID)
	path = strings.TrimSpace(path)
	if runID == "" {
		return "", "", fmt.Errorf("run_id is required")
	}
	if path == "" {
		return "", "", fmt.Errorf("path is required")
	}
	return runID, path, nil
}

func objectKey(runID, path string) string {
	return strings.TrimSpace(runID) + "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}

// describe derives Meta from a payload stored without it. Counts stay zero
// when the payload is not a document.
func describe(content []byte) Meta {
	m := Meta{Digest: Digest(content), Bytes: len(content)}
	if doc, err := graph.DecodeDocument(content); err == nil {
		s := doc.Summary()
		m.Nodes, m.Edges = s.Nodes, s.Edges
	}
	return m
}
