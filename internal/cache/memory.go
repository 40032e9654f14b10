package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is a size-bounded in-process backend. Expiry is checked on
// read against the injected clock.
type MemoryBackend struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

func NewMemoryBackend(size int, now func() time.Time) (*MemoryBackend, error) {
	if now == nil {
		now = time.Now
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, errors.Wrap(err, "creating lru")
	}
	return &MemoryBackend{entries: entries, now: now}, nil
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.entries.Add(key, memoryEntry{value: value, expiresAt: m.now().Add(ttl)})
	return nil
}
