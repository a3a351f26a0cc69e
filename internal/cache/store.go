package cache

import (
	"context"
	"sync"
	"time"
)

// Item represents a cached value with an expiration time.
type Item struct {
	Value      interface{}
	Expiration int64
}

// Store is a thread-safe TTL cache bounded to a fixed number of entries.
// Expiry is checked lazily on read; inserts past capacity sweep expired
// entries first and then drop arbitrary ones.
type Store struct {
	items    map[string]Item
	mu       sync.RWMutex
	capacity int
}

func New(capacity int) *Store {
	return &Store{
		items:    make(map[string]Item),
		capacity: capacity,
	}
}

// Set adds a value to the cache with a specific TTL.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; !exists && s.capacity > 0 && len(s.items) >= s.capacity {
		s.evictLocked()
	}

	s.items[key] = Item{
		Value:      value,
		Expiration: time.Now().Add(ttl).UnixNano(),
	}
}

// Get retrieves a value. Returns value and exists boolean.
// Returns false if item exists but is expired.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, found := s.items[key]
	if !found {
		return nil, false
	}

	if time.Now().UnixNano() > item.Expiration {
		return nil, false
	}

	return item.Value, true
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Cleanup removes expired items (Run this in a goroutine if strict memory mgmt is needed)
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
}

func (s *Store) cleanupLocked() {
	now := time.Now().UnixNano()
	for k, v := range s.items {
		if now > v.Expiration {
			delete(s.items, k)
		}
	}
}

// StartCleanup launches a single goroutine that calls Cleanup on the given
// interval and exits when ctx is cancelled.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// evictLocked makes room for one more entry. Expired entries go first;
// if everything is still live, arbitrary entries are dropped.
func (s *Store) evictLocked() {
	s.cleanupLocked()
	for k := range s.items {
		if len(s.items) < s.capacity {
			return
		}
		delete(s.items, k)
	}
}
