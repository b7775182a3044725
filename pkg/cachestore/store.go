package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// Registry remembers provider cache references between commands, keyed by
// the planner's content digest. The cache stage consults it before asking
// the adapter to create a cache, so two commands over the same content
// share one provider-side cache.
type Registry interface {
	// Get returns the live reference for a key. Expired references are
	// treated as absent.
	Get(ctx context.Context, key string) (*pipeline.CacheReference, error)

	// Put records a reference under a key, replacing any previous one.
	Put(ctx context.Context, key string, ref pipeline.CacheReference) error

	// PruneExpired removes references past their expiry and reports how
	// many were removed.
	PruneExpired(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// Memory is the in-process Registry. Lookups and stores are safe for
// concurrent use.
type Memory struct {
	mu   sync.RWMutex
	refs map[string]pipeline.CacheReference
	now  func() time.Time
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		refs: make(map[string]pipeline.CacheReference),
		now:  time.Now,
	}
}

// Get implements Registry.
func (m *Memory) Get(_ context.Context, key string) (*pipeline.CacheReference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.refs[key]
	if !ok || ref.Expired(m.now()) {
		return nil, nil
	}
	out := ref
	return &out, nil
}

// Put implements Registry.
func (m *Memory) Put(_ context.Context, key string, ref pipeline.CacheReference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[key] = ref
	return nil
}

// PruneExpired implements Registry.
func (m *Memory) PruneExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	pruned := 0
	for key, ref := range m.refs {
		if ref.Expired(now) {
			delete(m.refs, key)
			pruned++
		}
	}
	return pruned, nil
}

// Close implements Registry.
func (m *Memory) Close() error { return nil }
