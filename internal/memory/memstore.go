package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a thread-safe, in-memory implementation of Store.
// Search uses simple substring matching. It backs tests and runs where
// no durable memory is wanted.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int // id → index in entries slice
	now     func() time.Time
}

// NewInMemoryStore creates a new empty memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Compile-time interface checks.
var (
	_ Store    = (*InMemoryStore)(nil)
	_ Searcher = (*InMemoryStore)(nil)
)

// Save stores the entry, assigning ID and CreatedAt when zero. An entry
// with a known ID is updated in place.
func (s *InMemoryStore) Save(_ context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	if i, exists := s.index[e.ID]; exists {
		s.entries[i] = e
		return e, nil
	}
	s.index[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	return e, nil
}

// Search retrieves up to limit entries whose content contains the query,
// case-insensitively, in insertion order.
func (s *InMemoryStore) Search(_ context.Context, query string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if query == "" || limit <= 0 {
		return nil, nil
	}

	queryLower := strings.ToLower(query)
	var results []Entry
	for i := range s.entries {
		if strings.Contains(strings.ToLower(s.entries[i].Content), queryLower) {
			results = append(results, s.entries[i])
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// Delete removes an entry by ID.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[id]
	if !exists {
		return ErrNotFound
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].ID] = j
	}
	return nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
