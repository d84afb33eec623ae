package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// ShardCount is the number of shards. It is a power of two so the shard
// index is a mask of the hash.
const ShardCount = 16

// Map is a concurrent-safe sharded map with string keys.
type Map[V any] struct {
	shards [ShardCount]*shard[V]
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates an empty map.
func New[V any]() *Map[V] {
	m := &Map[V]{}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) getShard(key string) *shard[V] {
	return m.shards[murmur3.Sum32([]byte(key))&(ShardCount-1)]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Upsert atomically replaces the value for key with fn(existing, exists)
// and returns the stored value.
func (m *Map[V]) Upsert(key string, fn func(existing V, exists bool) V) V {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[key]
	v := fn(existing, exists)
	s.items[key] = v
	return v
}

// DeleteIf removes every entry for which fn returns true and returns the
// number removed. fn runs with the shard write lock held and must not call
// back into the map.
func (m *Map[V]) DeleteIf(fn func(key string, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if fn(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Count returns the total number of items.
func (m *Map[V]) Count() int {
	count := 0
	for _, s := range m.shards {
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}

// Clear removes all items.
func (m *Map[V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]V)
		s.mu.Unlock()
	}
}
