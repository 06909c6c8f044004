package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// fileBackend keeps one document per key under a state directory. Writes go
// through a temp file and rename so readers never observe partial documents.
type fileBackend struct {
	dir string
	mu  sync.Mutex
}

// OpenFile initializes a file-per-key backend rooted at dir.
func OpenFile(dir string) (Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &fileBackend{dir: dir}, nil
}

func (b *fileBackend) keyPath(key string) string {
	return filepath.Join(b.dir, url.PathEscape(key)+".json")
}

func (b *fileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.keyPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return data, nil
}

func (b *fileBackend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.keyPath(key)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, value, 0o644); err != nil {
		return fmt.Errorf("write temp file for %q: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file for %q: %w", key, err)
	}
	return nil
}

func (b *fileBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := os.Remove(b.keyPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (b *fileBackend) Close() error { return nil }
