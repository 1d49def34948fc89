package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a token store that owns resources
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type entry struct {
	token     string
	expiresAt time.Time
}

// InMemoryTokenStore keeps tokens in process memory. Tokens are not shared
// with other processes.
type InMemoryTokenStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryTokenStore creates an in-memory store; a non-positive ttl uses DefaultTokenTTL
func NewInMemoryTokenStore(ttl time.Duration) *InMemoryTokenStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &InMemoryTokenStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the token under key unless it expired
func (s *InMemoryTokenStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.token, true, nil
}

// Set stores token under key
func (s *InMemoryTokenStore) Set(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{token: token, expiresAt: s.now().Add(s.ttl)}
	s.evictExpired()
	return nil
}

// Delete removes the token under key
func (s *InMemoryTokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close releases nothing; it satisfies Store
func (s *InMemoryTokenStore) Close() error {
	return nil
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryTokenStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictExpired must be called with the write lock held
func (s *InMemoryTokenStore) evictExpired() {
	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

var _ Store = (*InMemoryTokenStore)(nil)
