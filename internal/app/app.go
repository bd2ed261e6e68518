// Package app wires configuration, stores and pipelines for the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"graphjson/internal/config"
	"graphjson/internal/pipeline"
	"graphjson/internal/safeio"
	"graphjson/internal/sink"
	"graphjson/internal/util/jsonutil"
)

// NamesPipeline prints the sorted distinct node names of a written document.
const NamesPipeline = "names"

const defaultNamesInput = "lesmiserables.json"

type App struct {
	cfg   *config.Config
	root  *safeio.Root
	store sink.Store
	close closer
	out   io.Writer
}

func New(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	root, err := safeio.NewRoot(cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open input dir: %w", err)
	}
	store, closeFn, err := openStore(ctx, cfg.Sink)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, root: root, store: store, close: closeFn, out: out}, nil
}

// Run executes the configured pipeline once.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Pipeline == NamesPipeline {
		return a.names(ctx)
	}
	spec, err := a.cfg.PipelineSpec()
	if err != nil {
		return err
	}
	res, err := pipeline.Run(ctx, a.root, spec, a.store, a.cfg.RunID)
	if err != nil {
		return err
	}
	st := res.Stats
	log.Printf("loaded %d unique nodes and %d edges from %s", st.Nodes, st.Edges, a.inputPath(spec.Input))
	if st.SkippedEdges > 0 {
		log.Printf("skipped %d edges with an empty endpoint", st.SkippedEdges)
	}
	if st.Ambiguities > 0 {
		log.Printf("resolved %d ambiguous node ids", st.Ambiguities)
	}
	log.Printf("wrote %s (%d bytes, digest %s)", a.location(ctx, res.Receipt), res.Receipt.Bytes, res.Receipt.Digest)
	return nil
}

func (a *App) names(ctx context.Context) error {
	path := a.cfg.Input
	if path == "" {
		path = defaultNamesInput
	}
	doc, err := sink.Read(ctx, a.store, a.cfg.RunID, path)
	if err != nil {
		return err
	}
	names := doc.UniqueNames()
	if names == nil {
		names = []string{}
	}
	raw, err := jsonutil.MarshalNoEscape(names)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(raw))
	return err
}

// inputPath reports where a relative input was read from.
func (a *App) inputPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.root.Dir(), p)
}

func (a *App) location(ctx context.Context, rec sink.Receipt) string {
	if url, err := a.store.GetURL(ctx, rec.RunID, rec.Path); err == nil && url != "" {
		return url
	}
	if rec.RunID == "" {
		return rec.Path
	}
	return rec.RunID + "/" + rec.Path
}

func (a *App) Close() error {
	if a == nil || a.close == nil {
		return nil
	}
	return a.close()
}
