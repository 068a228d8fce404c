package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count    int64
	expireAt time.Time
}

// MemoryStore keeps counters in a process-local map. Expired windows
// are dropped lazily on access and swept whenever the map grows past a
// threshold.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// WithClock overrides the store's clock. Tests use it to step across
// window boundaries without sleeping.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

const sweepThreshold = 4096

func (s *MemoryStore) IncrementAndGet(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || !entry.expireAt.After(now) {
		entry = &memoryEntry{expireAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++

	if len(s.entries) > sweepThreshold {
		s.sweepLocked(now)
	}

	return entry.count, entry.expireAt.Sub(now), nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for key, entry := range s.entries {
		if !entry.expireAt.After(now) {
			delete(s.entries, key)
		}
	}
}
