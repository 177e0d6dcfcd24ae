package attrs

import "sync"

// MemStore is an in-memory Store used in tests, where the filesystem under
// TMPDIR may not support extended attributes.
type MemStore struct {
	mu    sync.RWMutex
	slots map[string]map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{slots: make(map[string]map[string]string)}
}

func (m *MemStore) Supported(path string) bool { return true }

func (m *MemStore) Exists(path, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.slots[path][name]
	return ok, nil
}

func (m *MemStore) Get(path, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.slots[path][name]
	if !ok {
		return "", ErrNotSet
	}
	return value, nil
}

func (m *MemStore) Set(path, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slots[path] == nil {
		m.slots[path] = make(map[string]string)
	}
	m.slots[path][name] = value
	return nil
}
