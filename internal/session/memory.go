package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store used in tests and single-node setups.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
	go s.cleanup()
	return s
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for k, e := range s.entries {
			if e.expiresAt.Before(now) {
				delete(s.entries, k)
			}
		}
		s.mu.Unlock()
	}
}

func (s *MemoryStore) Get(_ context.Context, token, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[slotKey(token, key)]
	s.mu.RUnlock()

	if !ok || e.expiresAt.Before(time.Now()) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Set(_ context.Context, token, key string, value []byte) error {
	s.mu.Lock()
	s.entries[slotKey(token, key)] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token, key string) error {
	s.mu.Lock()
	delete(s.entries, slotKey(token, key))
	s.mu.Unlock()
	return nil
}
