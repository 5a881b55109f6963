package recency

import (
	"container/list"
	"fmt"
)

/*
Index keeps the recency order of cache keys, most-recently-used first.

Guarantees:
- Touch, Insert and Remove are O(1) via a doubly-linked list plus a
  key -> element map.
- Size never exceeds the configured capacity after Insert returns.
- Eviction happens only when Insert adds a new key at capacity, never
  when an existing key is touched.
- Ordering is strict logical access order. Filesystem timestamps play
  no part in it.

Index is not safe for concurrent use. The cache orchestrator owns the
lock that serializes access to it.
*/
type Index struct {
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

// NewIndex creates an empty index bounded to capacity entries.
// Capacity must be at least 1.
func NewIndex(capacity int) (*Index, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("index capacity must be at least 1, got %d", capacity)
	}
	return &Index{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}, nil
}

// Touch moves key to the most-recently-used position.
// Unknown keys are a no-op. Returns whether the key was present.
func (i *Index) Touch(key string) bool {
	elem, exists := i.items[key]
	if !exists {
		return false
	}
	i.order.MoveToFront(elem)
	return true
}

// Insert adds key at the most-recently-used position. If the key is
// already present, Insert behaves exactly like Touch. If the index is
// at capacity and the key is new, the least-recently-used key is
// removed first and returned as the eviction victim.
func (i *Index) Insert(key string) (victim string, evicted bool) {
	if elem, exists := i.items[key]; exists {
		i.order.MoveToFront(elem)
		return "", false
	}

	if i.order.Len() >= i.capacity {
		back := i.order.Back()
		if back != nil {
			victim = back.Value.(string)
			evicted = true
			i.order.Remove(back)
			delete(i.items, victim)
		}
	}

	elem := i.order.PushFront(key)
	i.items[key] = elem
	return victim, evicted
}

// Remove deletes key from the index if present.
// Returns whether the key was present.
func (i *Index) Remove(key string) bool {
	elem, exists := i.items[key]
	if !exists {
		return false
	}
	i.order.Remove(elem)
	delete(i.items, key)
	return true
}

// Contains reports whether key is tracked.
func (i *Index) Contains(key string) bool {
	_, exists := i.items[key]
	return exists
}

// Size returns the number of tracked keys.
func (i *Index) Size() int {
	return i.order.Len()
}

// Capacity returns the configured entry bound.
func (i *Index) Capacity() int {
	return i.capacity
}

// Clear removes every tracked key.
func (i *Index) Clear() {
	i.order.Init()
	clear(i.items)
}

// Keys returns the tracked keys in recency order, most-recently-used
// first. Intended for diagnostics and tests.
func (i *Index) Keys() []string {
	keys := make([]string, 0, i.order.Len())
	for elem := i.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(string))
	}
	return keys
}
