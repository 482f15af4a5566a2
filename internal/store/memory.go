package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/apperr"
	"github.com/hybridserver/hybridserver/internal/resource"
)

// MemoryStore is a concurrent, in-process Store backend keyed by
// uuid.UUID. It never touches disk; Close is a no-op.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]resource.WebResource
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[uuid.UUID]resource.WebResource)}
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (resource.WebResource, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[id]
	return r, ok, nil
}

// Put enforces the insert-only invariant with a single compute-if-absent
// critical section, so a racing pair of Puts for the same UUID can
// never both succeed.
func (s *MemoryStore) Put(_ context.Context, r resource.WebResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[r.UUID]; exists {
		return apperr.New(apperr.KindConflict, "memory store put", apperr.ErrAlreadyMapped)
	}
	s.data[r.UUID] = r
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[id]; !exists {
		return false, nil
	}
	delete(s.data, id)
	return true, nil
}

func (s *MemoryStore) UUIDSet(_ context.Context) (map[uuid.UUID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]struct{}, len(s.data))
	for id := range s.data {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *MemoryStore) WebResources(_ context.Context) ([]resource.WebResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]resource.WebResource, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
