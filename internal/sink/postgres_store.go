package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps documents in a single graph_documents table.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects through the pgx stdlib driver and pings once.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS graph_documents (
    id SERIAL PRIMARY KEY,
    run_id TEXT NOT NULL,
    path TEXT NOT NULL,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    size BIGINT NOT NULL,
    digest TEXT NOT NULL DEFAULT '',
    nodes INTEGER NOT NULL DEFAULT 0,
    edges INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    UNIQUE(run_id, path)
);
CREATE INDEX IF NOT EXISTS idx_graph_documents_run_id ON graph_documents(run_id);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, runID, path string, content []byte) error {
	return s.PutDocument(ctx, runID, path, content, describe(content))
}

func (s *PostgresStore) PutDocument(ctx context.Context, runID, path string, content []byte, meta Meta) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO graph_documents (run_id, path, content, size, digest, nodes, edges, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (run_id, path)
DO UPDATE SET content=EXCLUDED.content, size=EXCLUDED.size, digest=EXCLUDED.digest,
    nodes=EXCLUDED.nodes, edges=EXCLUDED.edges, updated_at=EXCLUDED.updated_at
`, runID, path, content, int64(len(content)), meta.Digest, meta.Nodes, meta.Edges, time.Now())
	return err
}

func (s *PostgresStore) Stat(ctx context.Context, runID, path string) (Meta, error) {
	if s == nil {
		return Meta{}, fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return Meta{}, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return Meta{}, err
	}
	var (
		m    Meta
		size int64
	)
	err = s.db.QueryRowContext(ctx, `SELECT digest, size, nodes, edges FROM graph_documents WHERE run_id=$1 AND path=$2`, runID, path).
		Scan(&m.Digest, &size, &m.Nodes, &m.Edges)
	if err == sql.ErrNoRows {
		return Meta{}, ErrNotFound
	}
	m.Bytes = int(size)
	return m, err
}

func (s *PostgresStore) Get(ctx context.Context, runID, path string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM graph_documents WHERE run_id=$1 AND path=$2`, runID, path).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return content, err
}

func (s *PostgresStore) List(ctx context.Context, runID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM graph_documents WHERE run_id=$1 ORDER BY path`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// GetURL is unsupported: content lives in a BYTEA column.
func (s *PostgresStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
