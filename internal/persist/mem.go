package persist

import "sync"

// MemStore keeps blobs in memory. Used for tests and the "memory" backend.
type MemStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	writes map[string]int
}

func NewMemStore() *MemStore {
	return &MemStore{
		data:   make(map[string][]byte),
		writes: make(map[string]int),
	}
}

func (m *MemStore) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemStore) Save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	m.writes[key]++
	return nil
}

// Writes reports how many times key has been saved.
func (m *MemStore) Writes(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[key]
}

func (m *MemStore) Close() error { return nil }
