package cmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShardCount is used when New gets an invalid count.
const DefaultShardCount = 16

// Map is a concurrent-safe map from string keys to V.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint64
	seed   maphash.Seed
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a map with shardCount shards. shardCount must be a power of
// two; anything else falls back to DefaultShardCount.
func New[V any](shardCount int) *Map[V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}
	m := &Map[V]{
		shards: make([]*shard[V], shardCount),
		mask:   uint64(shardCount - 1),
		seed:   maphash.MakeSeed(),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[maphash.String(m.seed, key)&m.mask]
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores value under key.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Delete removes key.
func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// GetOrCreate returns the value under key, storing create() first when
// there is none. create runs under the shard lock, at most once per miss.
func (m *Map[V]) GetOrCreate(key string, create func() V) V {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		return v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[key]; ok {
		return v
	}
	v = create()
	s.items[key] = v
	return v
}

// DeleteIf removes key when drop reports true for its value, and reports
// whether it did.
func (m *Map[V]) DeleteIf(key string, drop func(V) bool) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok || !drop(v) {
		return false
	}
	delete(s.items, key)
	return true
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Sweep removes every entry for which drop reports true and returns how
// many it removed. Shards are locked one at a time.
func (m *Map[V]) Sweep(drop func(key string, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if drop(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
