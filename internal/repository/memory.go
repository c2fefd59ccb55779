package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Dan9191/tea-service/internal/models"
)

// MemoryStore is an in-memory Store
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*models.ScenarioRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*models.ScenarioRecord)}
}

// Save stores a copy of the record
func (s *MemoryStore) Save(ctx context.Context, name string, record *models.ScenarioRecord) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = cloneRecord(record)
	return nil
}

// Load returns a copy of the stored record
func (s *MemoryStore) Load(ctx context.Context, name string) (*models.ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[name]
	if !ok {
		return nil, notFound(name)
	}
	return cloneRecord(r), nil
}

// List returns the sorted record names
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
