package sharded

import (
	"hash/fnv"
	"sync"
)

// Set is a concurrency-safe string set split across multiple independently
// locked shards. Workers removing matched keys concurrently only contend on
// the shard their key hashes to, not on one global lock.
type Set struct {
	shards []*setShard
}

type setShard struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewSet creates a set with the given number of shards. The shard count must
// be a power of two so the shard pick reduces to a bitwise mask.
func NewSet(numShards int) *Set {
	if numShards <= 0 || numShards&(numShards-1) != 0 {
		panic("sharded: num shards must be a power of 2")
	}
	s := &Set{shards: make([]*setShard, numShards)}
	for i := range numShards {
		s.shards[i] = &setShard{items: make(map[string]struct{})}
	}
	return s
}

func (s *Set) getShard(key string) *setShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[int(h.Sum32())&(len(s.shards)-1)]
}

// Store adds a key to the set.
func (s *Set) Store(key string) {
	shard := s.getShard(key)
	shard.mu.Lock()
	shard.items[key] = struct{}{}
	shard.mu.Unlock()
}

// Has checks for the presence of a key.
func (s *Set) Has(key string) bool {
	shard := s.getShard(key)
	shard.mu.RLock()
	_, exists := shard.items[key]
	shard.mu.RUnlock()
	return exists
}

// Delete removes a key from the set. Removing an absent key is a no-op.
func (s *Set) Delete(key string) {
	shard := s.getShard(key)
	shard.mu.Lock()
	delete(shard.items, key)
	shard.mu.Unlock()
}

// Count returns the total number of keys in the set.
func (s *Set) Count() int {
	count := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		count += len(shard.items)
		shard.mu.RUnlock()
	}
	return count
}

// Keys returns a slice of all keys in the set. The order is not guaranteed.
func (s *Set) Keys() []string {
	keys := make([]string, 0, s.Count())
	for _, shard := range s.shards {
		shard.mu.RLock()
		for k := range shard.items {
			keys = append(keys, k)
		}
		shard.mu.RUnlock()
	}
	return keys
}

// Range calls f sequentially for each key present in the set. If f returns
// false, the iteration stops. Only one shard is locked at a time; f must not
// modify the set.
func (s *Set) Range(f func(key string) bool) {
	for _, shard := range s.shards {
		shard.mu.RLock()
		for k := range shard.items {
			if !f(k) {
				shard.mu.RUnlock()
				return
			}
		}
		shard.mu.RUnlock()
	}
}
