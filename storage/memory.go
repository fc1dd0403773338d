package storage

import (
	"context"
	"sync"
)

// Memory keeps blobs in process memory. Used by tests and by the daemon when
// no durable backend is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	b := make([]byte, len(data))
	copy(b, data)

	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
