package cache

import (
	"context"
	"sync"
	"time"
)

// KV is a byte-value cache with per-entry TTL. Discovery and the holdings
// resolver take a KV instead of owning module-level maps, so callers pick the
// caching policy and tests inject deterministic state.
type KV interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. ttl <= 0 means the entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes an entry if present.
	Delete(ctx context.Context, key string) error
}

// Clock abstracts time so expiry can be tested without sleeping
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Memory is an in-process KV with an injectable clock
type Memory struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]memoryEntry
}

// NewMemory creates an in-process cache. A nil clock uses the system clock.
func NewMemory(clock Clock) *Memory {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Memory{clock: clock, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.clock.Now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = m.clock.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
