package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/billbatista/acasinha-diary/storage"
)

// Store keeps values in a map. Used by tests and the memory driver.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewStore() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (m *Store) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	// copy so callers can't modify stored bytes
	return slices.Clone(v), nil
}

func (m *Store) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = slices.Clone(value)
	return nil
}

func (m *Store) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Store) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m *Store) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *Store) Close() error {
	return nil
}

var _ storage.KV = (*Store)(nil)
