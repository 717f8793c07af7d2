package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Backend persists raw record payloads for a single session. Implementations
// must treat a missing key as (nil, false, nil).
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// NewSessionID returns a random identifier used by shared backends (redis,
// sqlite) to namespace one wizard session's records.
func NewSessionID() string {
	return uuid.NewString()
}

// MemoryBackend keeps records in process memory. It is the default backend
// and mirrors browser session storage: records live as long as the value.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.records[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	keys := make([]string, 0, len(m.records))
	for key := range m.records {
		keys = append(keys, key)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.records = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}
