package repositories

import (
	"context"
	"sync"
)

// MemoryStateStore keeps client state in process memory. It satisfies
// StateStore for tests and database-less development runs.
type MemoryStateStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemoryStateStore creates an empty in-memory store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{values: make(map[string]map[string]string)}
}

func (s *MemoryStateStore) Get(_ context.Context, clientID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[clientID][key]
	return value, ok, nil
}

func (s *MemoryStateStore) Put(_ context.Context, clientID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values[clientID] == nil {
		s.values[clientID] = make(map[string]string)
	}
	s.values[clientID][key] = value
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, clientID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values[clientID], key)
	}
	if len(s.values[clientID]) == 0 {
		delete(s.values, clientID)
	}
	return nil
}
