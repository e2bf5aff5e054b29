// Package fanout delivers one stream of events to many subscribers.
package fanout

import "sync"

// Hub broadcasts events of type T to subscriber channels.
//
// Publish never blocks: a subscriber whose channel is full misses the event.
// Ordering is preserved per subscriber.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[int]chan T
	next   int
	size   int
	closed bool
}

// New creates a hub whose subscriber channels buffer size events.
func New[T any](size int) *Hub[T] {
	if size <= 0 {
		size = 64
	}
	return &Hub[T]{
		subs: make(map[int]chan T),
		size: size,
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; calling it more than once is safe.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan T, h.size)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	key := h.next
	h.next++
	h.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[key]; ok {
				delete(h.subs, key)
				close(sub)
			}
		})
	}
}

// Publish sends event to every subscriber and returns how many received it.
func (h *Hub[T]) Publish(event T) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.subs {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for key, ch := range h.subs {
		delete(h.subs, key)
		close(ch)
	}
}
