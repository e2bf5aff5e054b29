// Package buffer provides bounded in-memory collections shared by the
// preview console and the terminal scrollback.
package buffer

import "sync"

// Log is a thread-safe append-only collection with a hard capacity.
//
// When an append would push the length past the capacity, the oldest
// entries are evicted and only the most recent half of the capacity is
// kept. The stored length never exceeds the capacity.
type Log[T any] struct {
	items    []T
	capacity int
	evicted  int
	mu       sync.RWMutex
}

// NewLog creates a log holding at most capacity items.
// A capacity below 2 is raised to 2 so that eviction keeps at least one item.
func NewLog[T any](capacity int) *Log[T] {
	if capacity < 2 {
		capacity = 2
	}
	return &Log[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Append adds an item, evicting the oldest entries on overflow.
func (l *Log[T]) Append(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, item)
	if len(l.items) <= l.capacity {
		return
	}

	keep := l.capacity / 2
	drop := len(l.items) - keep
	l.evicted += drop

	// Copy into a fresh slice so the evicted prefix can be collected
	kept := make([]T, keep, l.capacity)
	copy(kept, l.items[drop:])
	l.items = kept
}

// Items returns a copy of the stored items, oldest first.
func (l *Log[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.items...)
}

// Len returns the number of stored items.
func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Cap returns the capacity.
func (l *Log[T]) Cap() int {
	return l.capacity
}

// Evicted returns how many items have been dropped since creation.
func (l *Log[T]) Evicted() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.evicted
}

// Clear removes all items.
func (l *Log[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make([]T, 0, l.capacity)
}
