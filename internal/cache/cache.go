// Package cache is a small in-memory TTL cache used to spare the store
// redundant reads within a short staleness window. Entries expire lazily
// on read; writers clear whole key prefixes after every mutation.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Store maps string keys to values with a per-entry TTL.
type Store struct {
	entries sync.Map
}

func New() *Store {
	return &Store{}
}

// Get returns the cached value for key if present and not expired.
func (s *Store) Get(key string) (interface{}, bool) {
	raw, ok := s.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := raw.(*entry)
	if time.Now().After(e.expiresAt) {
		s.entries.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key until now+ttl.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.entries.Store(key, &entry{value: value, expiresAt: time.Now().Add(ttl)})
}

// Fetch serves the cached value for key, or calls produce on miss/expiry
// and caches the result. A producer error caches nothing and propagates
// unchanged. Two concurrent misses on the same key may both run produce;
// the duplicate read is harmless and accepted.
func (s *Store) Fetch(key string, ttl time.Duration, produce func() (interface{}, error)) (interface{}, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}
	v, err := produce()
	if err != nil {
		return nil, err
	}
	s.Set(key, v, ttl)
	return v, nil
}

// Invalidate removes every entry whose key starts with prefix and
// returns how many were dropped.
func (s *Store) Invalidate(prefix string) int {
	removed := 0
	s.entries.Range(func(key, _ interface{}) bool {
		if strings.HasPrefix(key.(string), prefix) {
			s.entries.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Flush drops every entry.
func (s *Store) Flush() {
	s.entries.Range(func(key, _ interface{}) bool {
		s.entries.Delete(key)
		return true
	})
}

// Len counts live (possibly expired but not yet collected) entries.
func (s *Store) Len() int {
	n := 0
	s.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Fetch is the typed variant of Store.Fetch.
func Fetch[T any](s *Store, key string, ttl time.Duration, produce func() (T, error)) (T, error) {
	raw, err := s.Fetch(key, ttl, func() (interface{}, error) {
		return produce()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		// A foreign value under our key means the keyspace is shared
		// incorrectly; refuse to guess.
		var zero T
		return zero, fmt.Errorf("cache: unexpected value type %T for key %q", raw, key)
	}
	return v, nil
}

// Key assembles the canonical "<resource>:<userID>:<parts...>" cache key.
func Key(resource string, userID uint, parts ...string) string {
	key := fmt.Sprintf("%s:%d", resource, userID)
	if len(parts) > 0 {
		key += ":" + strings.Join(parts, ":")
	}
	return key
}

// Prefix is the invalidation prefix covering every key of a user's
// resource.
func Prefix(resource string, userID uint) string {
	return fmt.Sprintf("%s:%d:", resource, userID)
}
