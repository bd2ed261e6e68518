package sink

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableDB is an in-process database/sql backend that understands the
// handful of statements PostgresStore issues against graph_documents.
type tableDB struct {
	mu    sync.Mutex
	execs []string
	rows  map[string][]driver.Value // run_id/path -> content, size, digest, nodes, edges
}

func newTableDB() *tableDB { return &tableDB{rows: map[string][]driver.Value{}} }

func (db *tableDB) Connect(context.Context) (driver.Conn, error) { return &tableConn{db: db}, nil }
func (db *tableDB) Driver() driver.Driver                        { return tableDriver{db} }

type tableDriver struct{ db *tableDB }

func (d tableDriver) Open(string) (driver.Conn, error) { return &tableConn{db: d.db}, nil }

type tableConn struct{ db *tableDB }

func (c *tableConn) Prepare(query string) (driver.Stmt, error) {
	return &tableStmt{db: c.db, query: query}, nil
}
func (c *tableConn) Close() error              { return nil }
func (c *tableConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions unsupported") }

type tableStmt struct {
	db    *tableDB
	query string
}

func (s *tableStmt) Close() error  { return nil }
func (s *tableStmt) NumInput() int { return -1 }

func (s *tableStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q := strings.TrimSpace(s.query)
	s.db.execs = append(s.db.execs, q)
	if strings.HasPrefix(q, "INSERT INTO graph_documents") {
		// run_id, path, content, size, digest, nodes, edges, updated_at
		key := fmt.Sprintf("%v/%v", args[0], args[1])
		s.db.rows[key] = []driver.Value{args[2], args[3], args[4], args[5], args[6]}
	}
	return driver.RowsAffected(1), nil
}

func (s *tableStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q := strings.TrimSpace(s.query)
	switch {
	case strings.HasPrefix(q, "SELECT content "):
		row, ok := s.db.rows[fmt.Sprintf("%v/%v", args[0], args[1])]
		if !ok {
			return &tableRows{cols: []string{"content"}}, nil
		}
		return &tableRows{cols: []string{"content"}, data: [][]driver.Value{{row[0]}}}, nil
	case strings.HasPrefix(q, "SELECT digest, size, nodes, edges "):
		row, ok := s.db.rows[fmt.Sprintf("%v/%v", args[0], args[1])]
		cols := []string{"digest", "size", "nodes", "edges"}
		if !ok {
			return &tableRows{cols: cols}, nil
		}
		return &tableRows{cols: cols, data: [][]driver.Value{{row[2], row[1], row[3], row[4]}}}, nil
	case strings.HasPrefix(q, "SELECT path "):
		prefix := fmt.Sprintf("%v/", args[0])
		var paths []string
		for key := range s.db.rows {
			if strings.HasPrefix(key, prefix) {
				paths = append(paths, strings.TrimPrefix(key, prefix))
			}
		}
		sort.Strings(paths)
		out := &tableRows{cols: []string{"path"}}
		for _, p := range paths {
			out.data = append(out.data, []driver.Value{p})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected query %q", q)
}

type tableRows struct {
	cols []string
	data [][]driver.Value
}

func (r *tableRows) Columns() []string { return r.cols }
func (r *tableRows) Close() error      { return nil }
func (r *tableRows) Next(dest []driver.Value) error {
	if len(r.data) == 0 {
		return io.EOF
	}
	copy(dest, r.data[0])
	r.data = r.data[1:]
	return nil
}

func newTablePostgres(t *testing.T) (*PostgresStore, *tableDB) {
	t.Helper()
	backend := newTableDB()
	db := sql.OpenDB(backend)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), backend
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	s, backend := newTablePostgres(t)
	ctx := context.Background()

	rec, err := Write(ctx, s, "run-1", "funcall.json", sampleDoc())
	require.NoError(t, err)

	back, err := Read(ctx, s, "run-1", "funcall.json")
	require.NoError(t, err)
	assert.Equal(t, sampleDoc().Summary(), back.Summary())

	meta, err := s.Stat(ctx, "run-1", "funcall.json")
	require.NoError(t, err)
	assert.Equal(t, Meta{Digest: rec.Digest, Bytes: rec.Bytes, Nodes: 2, Edges: 1}, meta)

	paths, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"funcall.json"}, paths)

	_, err = s.Get(ctx, "run-1", "absent.json")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	_, err = s.Stat(ctx, "run-1", "absent.json")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	creates := 0
	for _, q := range backend.execs {
		if strings.HasPrefix(q, "CREATE TABLE") {
			creates++
		}
	}
	if creates != 1 {
		t.Fatalf("schema statements: got=%d want=1", creates)
	}
}

func TestPostgresStoreRequiresKeyBeforeTouchingDB(t *testing.T) {
	s, backend := newTablePostgres(t)
	ctx := context.Background()

	require.EqualError(t, s.Put(ctx, " ", "x.json", []byte("{}")), "run_id is required")
	_, err := s.Get(ctx, "run-1", "")
	require.EqualError(t, err, "path is required")
	_, err = s.Stat(ctx, "", "x.json")
	require.EqualError(t, err, "run_id is required")
	_, err = s.List(ctx, "")
	require.EqualError(t, err, "run_id is required")
	assert.Empty(t, backend.execs)
}

func TestPostgresStoreNilGuards(t *testing.T) {
	ctx := context.Background()

	noDB := NewPostgresStore(nil)
	require.EqualError(t, noDB.Put(ctx, "r", "x.json", nil), "db is nil")
	_, err := noDB.Get(ctx, "r", "x.json")
	require.EqualError(t, err, "db is nil")
	_, err = noDB.List(ctx, "r")
	require.EqualError(t, err, "db is nil")
	require.NoError(t, noDB.Close())

	var nilStore *PostgresStore
	require.EqualError(t, nilStore.Put(ctx, "r", "x.json", nil), "store is nil")
	_, err = nilStore.Stat(ctx, "r", "x.json")
	require.EqualError(t, err, "store is nil")
	require.NoError(t, nilStore.Close())
}
