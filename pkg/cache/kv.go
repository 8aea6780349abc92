package cache

import (
	"context"
	"path"
	"strconv"
	"sync"
	"time"
)

// Store is the key-value backend the caches run on. Implementations are
// best-effort: a failing backend degrades to cache misses, it never breaks
// translation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int, error)
	DeletePattern(ctx context.Context, pattern string) (int, error)
	Incr(ctx context.Context, key string) (int64, error)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-process Store with TTL expiry, used in
// tests and single-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, key := range keys {
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) DeletePattern(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key := range s.entries {
		// Cache keys contain no '/', so path.Match gives plain glob
		// semantics over the whole key.
		if ok, err := path.Match(pattern, key); err == nil && ok {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if entry, ok := s.entries[key]; ok {
		n, _ = strconv.ParseInt(string(entry.value), 10, 64)
	}
	n++
	s.entries[key] = memoryEntry{value: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

// Len reports the number of live entries, for stats and tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
