package store

import (
	"context"
	"sync"

	"smartgate/internal/ratelimit/models"
	"smartgate/pkg/platform/sentinel"
)

// InMemoryLockoutStore keeps lockout counters in a map. Expired entries are
// left for the service to reset on the next failure.
type InMemoryLockoutStore struct {
	mu      sync.RWMutex
	records map[string]models.Lockout
}

func NewInMemory() *InMemoryLockoutStore {
	return &InMemoryLockoutStore{records: make(map[string]models.Lockout)}
}

func (s *InMemoryLockoutStore) Get(_ context.Context, key string) (*models.Lockout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &record, nil
}

// Update runs mutate under the write lock. mutate receives a copy of the
// stored record, or nil when none exists.
func (s *InMemoryLockoutStore) Update(_ context.Context, key string, mutate func(*models.Lockout) *models.Lockout) (*models.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current *models.Lockout
	if record, ok := s.records[key]; ok {
		current = &record
	}
	next := mutate(current)
	s.records[key] = *next
	out := *next
	return &out, nil
}

func (s *InMemoryLockoutStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
