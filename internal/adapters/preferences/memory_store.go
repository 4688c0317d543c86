package preferences

import (
	"context"
	"sync"
)

// MemoryStore keeps preferences for the lifetime of the process
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, userID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[userID][key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[userID] == nil {
		s.values[userID] = make(map[string]string)
	}
	s.values[userID][key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values[userID], key)
	return nil
}
