package geocache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries for the life of the process behind a mutex.
// With a positive capacity the oldest entries are evicted first; evicted
// queries can then reach the geocoder again. Capacity 0 means unbounded.
type MemoryStore struct {
	mu       sync.Mutex
	items    map[string]Entry
	order    []string
	capacity int
}

// NewMemoryStore creates a store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryStore{
		items:    make(map[string]Entry),
		capacity: capacity,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	return e, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; !exists {
		s.order = append(s.order, key)
	}
	s.items[key] = e
	s.compact()
	return nil
}

// Len returns the number of cached queries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemoryStore) compact() {
	if s.capacity == 0 {
		return
	}
	for len(s.order) > 0 && len(s.items) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
}
