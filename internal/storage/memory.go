package storage

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Memory держит документы в памяти процесса. Хранятся байты JSON, так что
// Load всегда возвращает независимую копию.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var _ Adapter = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, key string, value any) error {
	b, err := encode(key, value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[key] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, key string, dst any) error {
	m.mu.RLock()
	b, ok := m.docs[key]
	m.mu.RUnlock()
	if !ok {
		return notFound(key)
	}
	return decode(key, b, dst)
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.docs, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.docs = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
