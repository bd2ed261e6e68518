package sink

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memoryEntry struct {
	content []byte
	meta    Meta
}

// MemoryStore keeps documents per run in process memory. It backs the
// memory sink and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]map[string]memoryEntry)}
}

func (s *MemoryStore) Put(ctx context.Context, runID, path string, content []byte) error {
	return s.PutDocument(ctx, runID, path, content, describe(content))
}

func (s *MemoryStore) PutDocument(_ context.Context, runID, path string, content []byte, meta Meta) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return err
	}
	path = strings.TrimLeft(path, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.runs[runID]
	if !ok {
		docs = make(map[string]memoryEntry)
		s.runs[runID] = docs
	}
	docs[path] = memoryEntry{content: append([]byte(nil), content...), meta: meta}
	return nil
}

func (s *MemoryStore) lookup(runID, path string) (memoryEntry, error) {
	if s == nil {
		return memoryEntry{}, fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return memoryEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[runID][strings.TrimLeft(path, "/")]
	if !ok {
		return memoryEntry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Get(_ context.Context, runID, path string) ([]byte, error) {
	e, err := s.lookup(runID, path)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), e.content...), nil
}

func (s *MemoryStore) Stat(_ context.Context, runID, path string) (Meta, error) {
	e, err := s.lookup(runID, path)
	if err != nil {
		return Meta{}, err
	}
	return e.meta, nil
}

func (s *MemoryStore) List(_ context.Context, runID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.runs[runID]))
	for p := range s.runs[runID] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// GetURL is unsupported for in-memory documents.
func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
