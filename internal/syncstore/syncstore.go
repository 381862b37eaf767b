// Package syncstore provides the keyed concurrent stores backing the project
// index. Every write is a whole-value replacement under one key: readers can
// never observe a half-updated entry, and writes to different keys don't
// contend beyond the map lock itself.
package syncstore

import "sync"

// Map is a concurrent map with atomic per-key replace semantics. The zero
// value is not usable; create with New.
type Map[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// New returns an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V)}
}

// Get returns the value stored under k.
func (s *Map[K, V]) Get(k K) (V, bool) {
	s.mu.RLock()
	v, ok := s.m[k]
	s.mu.RUnlock()
	return v, ok
}

// Set replaces the value under k. Last writer wins.
func (s *Map[K, V]) Set(k K, v V) {
	s.mu.Lock()
	s.m[k] = v
	s.mu.Unlock()
}

// Delete removes k.
func (s *Map[K, V]) Delete(k K) {
	s.mu.Lock()
	delete(s.m, k)
	s.mu.Unlock()
}

// Contains reports whether k is present.
func (s *Map[K, V]) Contains(k K) bool {
	s.mu.RLock()
	_, ok := s.m[k]
	s.mu.RUnlock()
	return ok
}

// Len returns the number of entries.
func (s *Map[K, V]) Len() int {
	s.mu.RLock()
	n := len(s.m)
	s.mu.RUnlock()
	return n
}

// Keys returns the current key set in unspecified order.
func (s *Map[K, V]) Keys() []K {
	s.mu.RLock()
	keys := make([]K, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	return keys
}

// Replace swaps the entire contents for the given entries: clear, then
// reinsert, atomically with respect to readers.
func (s *Map[K, V]) Replace(entries map[K]V) {
	next := make(map[K]V, len(entries))
	for k, v := range entries {
		next[k] = v
	}
	s.mu.Lock()
	s.m = next
	s.mu.Unlock()
}

// Range calls fn over a point-in-time snapshot of the map, so fn may itself
// read or write the store. Iteration order is unspecified; fn returning
// false stops early.
func (s *Map[K, V]) Range(fn func(K, V) bool) {
	s.mu.RLock()
	snapshot := make(map[K]V, len(s.m))
	for k, v := range s.m {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// Set is a concurrent set of comparable values.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

// NewSet returns an empty Set.
func NewSet[K comparable]() *Set[K] {
	return &Set[K]{m: New[K, struct{}]()}
}

// Add inserts v.
func (s *Set[K]) Add(v K) { s.m.Set(v, struct{}{}) }

// Remove deletes v.
func (s *Set[K]) Remove(v K) { s.m.Delete(v) }

// Contains reports membership.
func (s *Set[K]) Contains(v K) bool { return s.m.Contains(v) }

// Values returns the current members in unspecified order.
func (s *Set[K]) Values() []K { return s.m.Keys() }

// Len returns the member count.
func (s *Set[K]) Len() int { return s.m.Len() }
