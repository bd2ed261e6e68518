package sink

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

type MetricsSnapshot struct {
	Hits         uint64
	Misses       uint64
	OriginWrites uint64
}

// CachedStore fronts an origin Store with an LRU of recently written or read
// documents. Writes go through to the origin before the cache is updated.
type CachedStore struct {
	origin Store
	blobs  *lru.Cache[string, []byte]

	hits         atomic.Uint64
	misses       atomic.Uint64
	originWrites atomic.Uint64
}

func NewCachedStore(origin Store, maxEntries int) (*CachedStore, error) {
	if origin == nil {
		return nil, fmt.Errorf("origin store is nil")
	}
	if maxEntries <= 0 {
		maxEntries = 64
	}
	blobs, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachedStore{origin: origin, blobs: blobs}, nil
}

func (s *CachedStore) Put(ctx context.Context, runID, path string, content []byte) error {
	return s.write(runID, path, content, s.origin.Put(ctx, runID, path, content))
}

// PutDocument passes meta through when the origin keeps it.
func (s *CachedStore) PutDocument(ctx context.Context, runID, path string, content []byte, meta Meta) error {
	ds, ok := s.origin.(DocumentStore)
	if !ok {
		return s.Put(ctx, runID, path, content)
	}
	return s.write(runID, path, content, ds.PutDocument(ctx, runID, path, content, meta))
}

func (s *CachedStore) write(runID, path string, content []byte, originErr error) error {
	if originErr != nil {
		s.blobs.Remove(objectKey(runID, path))
		return originErr
	}
	s.originWrites.Add(1)
	s.blobs.Add(objectKey(runID, path), append([]byte(nil), content...))
	return nil
}

// Stat is answered by the origin; metadata is not cached.
func (s *CachedStore) Stat(ctx context.Context, runID, path string) (Meta, error) {
	ds, ok := s.origin.(DocumentStore)
	if !ok {
		return Meta{}, errors.ErrUnsupported
	}
	return ds.Stat(ctx, runID, path)
}

func (s *CachedStore) Get(ctx context.Context, runID, path string) ([]byte, error) {
	key := objectKey(runID, path)
	if raw, ok := s.blobs.Get(key); ok {
		s.hits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.misses.Add(1)
	raw, err := s.origin.Get(ctx, runID, path)
	if err != nil {
		return nil, err
	}
	s.blobs.Add(key, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) List(ctx context.Context, runID string) ([]string, error) {
	return s.origin.List(ctx, runID)
}

func (s *CachedStore) GetURL(ctx context.Context, runID, path string) (string, error) {
	return s.origin.GetURL(ctx, runID, path)
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		OriginWrites: s.originWrites.Load(),
	}
}
