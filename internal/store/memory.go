package store

import (
	"context"
	"sync"
)

// memoryBackend keeps values in process memory. It backs tests and the
// degraded mode used when the configured backend cannot be opened.
type memoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// OpenMemory creates an empty in-memory backend.
func OpenMemory() Backend {
	return &memoryBackend{values: make(map[string][]byte)}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.values[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = cp
	return nil
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}

func (b *memoryBackend) Close() error { return nil }
