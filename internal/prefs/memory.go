package prefs

import "sync"

// MemoryBackend is a Backend kept in a map.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
	err  error
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// FailWith makes every later call return err. Nil restores normal operation.
func (m *MemoryBackend) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
