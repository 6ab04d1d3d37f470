package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	counter int64
	set     map[string]struct{}
	expires time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryStore is a mutex-guarded in-process Store with the same TTL semantics
// as the Redis implementation. Expired keys are dropped lazily on access.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*memoryEntry
	now  func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

// SetClock overrides the store clock, for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) live(key string) *memoryEntry {
	entry := s.data[key]
	if entry == nil {
		return nil
	}
	if entry.expired(s.now()) {
		delete(s.data, key)
		return nil
	}
	return entry
}

// IncrExpire increments key and re-arms its TTL.
func (s *MemoryStore) IncrExpire(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		entry = &memoryEntry{}
		s.data[key] = entry
	}
	entry.counter++
	entry.expires = s.now().Add(ttl)
	return entry.counter, nil
}

// AddSetExpire adds member to the set at key, re-arms the TTL and returns the
// set cardinality.
func (s *MemoryStore) AddSetExpire(_ context.Context, key, member string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		entry = &memoryEntry{set: make(map[string]struct{})}
		s.data[key] = entry
	}
	if entry.set == nil {
		entry.set = make(map[string]struct{})
	}
	entry.set[member] = struct{}{}
	entry.expires = s.now().Add(ttl)
	return int64(len(entry.set)), nil
}

// SetNXExpire stores value with a TTL if key is absent.
func (s *MemoryStore) SetNXExpire(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live(key) != nil {
		return false, nil
	}
	s.data[key] = &memoryEntry{value: value, expires: s.now().Add(ttl)}
	return true, nil
}

// SetExpire stores value with a TTL.
func (s *MemoryStore) SetExpire(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &memoryEntry{value: value, expires: s.now().Add(ttl)}
	return nil
}

// Set stores value without expiry.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &memoryEntry{value: value}
	return nil
}

// Get returns the value at key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		return "", false, nil
	}
	if entry.value == "" && entry.counter != 0 {
		// Counters read back as their decimal form, matching Redis GET on an
		// INCR-created key.
		return strconv.FormatInt(entry.counter, 10), true, nil
	}
	return entry.value, true, nil
}

// Incr increments key without touching its TTL.
func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(key)
	if entry == nil {
		entry = &memoryEntry{}
		s.data[key] = entry
	}
	entry.counter++
	return entry.counter, nil
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close releases nothing; present to satisfy Store.
func (s *MemoryStore) Close() error {
	return nil
}
