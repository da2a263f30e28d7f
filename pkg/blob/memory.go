package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Memory keeps blobs in a map. Intended for tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string, rng sonar.ByteRange) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, errKeyNotFound(key)
	}
	offset, length := rng.Clamp(int64(len(data)))
	out := make([]byte, length)
	copy(out, data[offset:offset+length])
	return out, nil
}

func (m *Memory) Read(ctx context.Context, key string, rng sonar.ByteRange) (io.ReadCloser, error) {
	data, err := m.Get(ctx, key, rng)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[key] = stored
	return nil
}

func (m *Memory) Write(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob %q: %w", key, err)
	}
	return m.Put(ctx, key, data)
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
