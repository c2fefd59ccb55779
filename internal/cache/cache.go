// Package cache stores serialized projections keyed by a hash of their inputs.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Dan9191/tea-service/internal/models"
)

const keyPrefix = "tea:projection:"

// Cache is a string key/value cache
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string) error
}

// Key derives a cache key from everything that affects a projection.
// The scenario name is part of the key because it is echoed in the result.
func Key(cfg models.ScenarioConfig, inputs models.FinancialInputs) string {
	data, _ := json.Marshal(struct {
		Scenario   models.ScenarioConfig  `json:"s"`
		Financials models.FinancialInputs `json:"f"`
	}{cfg, inputs})
	return keyPrefix + strconv.FormatUint(xxhash.Sum64(data), 16)
}

// MemoryCache is a process-local Cache without expiry
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok
}

func (m *MemoryCache) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Len returns the number of cached entries
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
